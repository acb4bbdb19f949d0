package http

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gilliangoud/RRCLiveLaps/config"
	"github.com/gilliangoud/RRCLiveLaps/errors"
	"github.com/gilliangoud/RRCLiveLaps/pkg/buffer"
)

// StatusResponse is the body of GET /api/status
type StatusResponse struct {
	Connected   bool                 `json:"connected"`
	Mode        string               `json:"mode,omitempty"`
	Subscribers int                  `json:"subscribers"`
	Hub         *buffer.StatsSummary `json:"hub,omitempty"`
	Version     string               `json:"version,omitempty"`
	Uptime      string               `json:"uptime"`
}

// ConfigUpdateResponse is the body of a successful PUT /api/config
type ConfigUpdateResponse struct {
	Config          *config.Config `json:"config"`
	RestartRequired bool           `json:"restart_required"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := StatusResponse{
		Connected: s.deps.Tracker.Get(),
		Version:   s.deps.Version,
		Uptime:    time.Since(s.startTime).Truncate(time.Second).String(),
	}
	if s.deps.Config != nil {
		resp.Mode = s.deps.Config.Get().Mode.Mode
	}
	if s.deps.Hub != nil {
		stats := s.deps.Hub.Stats()
		resp.Hub = &stats
		resp.Subscribers = s.deps.Hub.SubscriberCount()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Config == nil {
		writeError(w, http.StatusNotFound, "configuration endpoint disabled")
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Config.Get())
}

func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	if s.deps.Config == nil {
		writeError(w, http.StatusNotFound, "configuration endpoint disabled")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxConfigBody))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	if err := config.ValidateDocument(body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// the body replaces the current configuration section by section
	cfg := s.deps.Config.Get()
	var incoming map[string]json.RawMessage
	if err := json.Unmarshal(body, &incoming); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if _, ok := incoming["mode"]; ok {
		cfg.Mode = config.ModeConfig{}
	}
	if err := json.Unmarshal(body, cfg); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.deps.Config.Update(cfg); err != nil {
		if errors.IsInvalid(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("Failed to save configuration", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save configuration")
		return
	}

	s.logger.Info("Configuration updated", "mode", cfg.Mode.Mode)
	writeJSON(w, http.StatusOK, ConfigUpdateResponse{
		Config:          s.deps.Config.Get(),
		RestartRequired: true,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"error":  message,
		"status": status,
	})
}

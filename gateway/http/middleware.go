package http

import (
	"fmt"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// logRequests logs each request at Debug and counts it in the flow metrics.
// Server errors are logged at Warn.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			// hijacked connections write their status line themselves
			status = http.StatusOK
			if r.Header.Get("Upgrade") != "" {
				status = http.StatusSwitchingProtocols
			}
		}
		s.flow.RecordMessage(ww.BytesWritten())

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration", time.Since(start),
			"request_id", chimw.GetReqID(r.Context()),
		}
		if status >= http.StatusInternalServerError {
			s.flow.RecordError(fmt.Errorf("%s %s: status %d", r.Method, r.URL.Path, status))
			s.logger.Warn("HTTP request failed", attrs...)
			return
		}
		s.logger.Debug("HTTP request", attrs...)
	})
}

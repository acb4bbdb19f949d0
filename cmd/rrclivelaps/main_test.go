package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gilliangoud/RRCLiveLaps/component"
	"github.com/gilliangoud/RRCLiveLaps/config"
	"github.com/gilliangoud/RRCLiveLaps/connstate"
	"github.com/gilliangoud/RRCLiveLaps/errors"
	"github.com/gilliangoud/RRCLiveLaps/hub"
)

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func TestParseFlags(t *testing.T) {
	t.Setenv("RRC_CONFIG", "")
	t.Setenv("RRC_LOG_LEVEL", "")

	cfg, err := parseFlags(newFlagSet(), nil)
	require.NoError(t, err)
	assert.Equal(t, "config.json", cfg.ConfigPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)

	cfg, err = parseFlags(newFlagSet(), []string{"-c", "gw.yaml", "-debug", "-log-format", "json"})
	require.NoError(t, err)
	assert.Equal(t, "gw.yaml", cfg.ConfigPath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestParseFlags_Env(t *testing.T) {
	t.Setenv("RRC_CONFIG", "/etc/rrc.json")
	t.Setenv("RRC_LOG_LEVEL", "warn")

	cfg, err := parseFlags(newFlagSet(), nil)
	require.NoError(t, err)
	assert.Equal(t, "/etc/rrc.json", cfg.ConfigPath)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestValidateFlags(t *testing.T) {
	valid := CLIConfig{LogLevel: "info", LogFormat: "text", ShutdownTimeout: time.Second}

	tests := []struct {
		name    string
		mutate  func(*CLIConfig)
		wantErr bool
	}{
		{"valid", func(*CLIConfig) {}, false},
		{"bad level", func(c *CLIConfig) { c.LogLevel = "trace" }, true},
		{"bad format", func(c *CLIConfig) { c.LogFormat = "xml" }, true},
		{"zero timeout", func(c *CLIConfig) { c.ShutdownTimeout = 0 }, true},
		{"version skips checks", func(c *CLIConfig) { c.LogLevel = "trace"; c.ShowVersion = true }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := validateFlags(&cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSetupLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := setupLogger(&buf, "warn", "json")

	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, appName, entry["service"])
	assert.Equal(t, "v", entry["k"])
	assert.Contains(t, entry, "pid")
}

func TestNewSource(t *testing.T) {
	h, err := hub.New()
	require.NoError(t, err)
	defer h.Close()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		mode config.ModeConfig
		name string
	}{
		{config.ModeConfig{Mode: config.ModeTCP, Host: "127.0.0.1", Port: 3601}, "lineproto"},
		{config.ModeConfig{Mode: config.ModeUSB, PortPath: "/dev/ttyUSB0"}, "lineproto"},
		{config.ModeConfig{Mode: config.ModeTCPServer, Port: 3601}, "jsonline"},
	}

	for _, tt := range tests {
		t.Run(tt.mode.Mode, func(t *testing.T) {
			cfg := config.Default()
			cfg.Mode = tt.mode
			src, err := newSource(cfg, &component.Dependencies{Hub: h, Tracker: connstate.New(), Logger: logger})
			require.NoError(t, err)
			assert.Equal(t, tt.name, src.Meta().Name)
		})
	}

	cfg := config.Default()
	cfg.Mode.Mode = "carrier-pigeon"
	_, err = newSource(cfg, &component.Dependencies{Hub: h})
	assert.True(t, errors.IsInvalid(err))
}

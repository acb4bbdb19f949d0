package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gilliangoud/RRCLiveLaps/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, ValidateSchema(cfg))
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ModeTCP, cfg.Mode.Mode)
	assert.Equal(t, "127.0.0.1:3601", cfg.Mode.Address())
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Address())
	assert.Equal(t, "/ws", cfg.HTTP.WSPath)
	assert.Equal(t, 100, cfg.Hub.Capacity)
	assert.Equal(t, 30*time.Second, cfg.Decoder.KeepaliveInterval.Std())
	assert.Equal(t, 115200, cfg.Decoder.BaudRate)
	assert.False(t, cfg.NATS.Enabled)
	assert.Equal(t, "timing", cfg.NATS.SubjectPrefix)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"usb mode", func(c *Config) { c.Mode = ModeConfig{Mode: ModeUSB, PortPath: "/dev/ttyUSB0"} }, false},
		{"tcpserver mode", func(c *Config) { c.Mode = ModeConfig{Mode: ModeTCPServer, Port: 3601} }, false},
		{"mode name is normalized", func(c *Config) { c.Mode.Mode = " TCP " }, false},
		{"missing mode", func(c *Config) { c.Mode.Mode = "" }, true},
		{"unknown mode", func(c *Config) { c.Mode.Mode = "udp" }, true},
		{"tcp without host", func(c *Config) { c.Mode.Host = "" }, true},
		{"tcp port out of range", func(c *Config) { c.Mode.Port = 70000 }, true},
		{"usb without path", func(c *Config) { c.Mode = ModeConfig{Mode: ModeUSB} }, true},
		{"tcpserver without port", func(c *Config) { c.Mode = ModeConfig{Mode: ModeTCPServer} }, true},
		{"http port zero", func(c *Config) { c.HTTP.Port = 0 }, true},
		{"ws path relative", func(c *Config) { c.HTTP.WSPath = "ws" }, true},
		{"hub capacity zero", func(c *Config) { c.Hub.Capacity = 0 }, true},
		{"keepalive zero", func(c *Config) { c.Decoder.KeepaliveInterval = 0 }, true},
		{"baud rate zero", func(c *Config) { c.Decoder.BaudRate = 0 }, true},
		{"nats disabled ignores url", func(c *Config) { c.NATS.URL = "" }, false},
		{"nats enabled without url", func(c *Config) { c.NATS.Enabled = true; c.NATS.URL = "" }, true},
		{"nats bad prefix", func(c *Config) { c.NATS.Enabled = true; c.NATS.SubjectPrefix = "timing.*" }, true},
		{"nats dotted prefix", func(c *Config) { c.NATS.Enabled = true; c.NATS.SubjectPrefix = "race.live" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, errors.ErrInvalidConfig)
				assert.True(t, errors.IsInvalid(err))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestLoader_JSONLayerMergesOverDefaults(t *testing.T) {
	path := writeFile(t, "config.json", `{
		"mode": {"mode": "tcpserver", "port": 4000},
		"hub": {"capacity": 250},
		"decoder": {"keepalive_interval": "10s"}
	}`)

	cfg, err := NewLoader().LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, ModeConfig{Mode: ModeTCPServer, Port: 4000}, cfg.Mode, "mode block is replaced, not merged")
	assert.Equal(t, 250, cfg.Hub.Capacity)
	assert.Equal(t, 10*time.Second, cfg.Decoder.KeepaliveInterval.Std())
	assert.Equal(t, 115200, cfg.Decoder.BaudRate, "unset keys keep their defaults")
	assert.Equal(t, 8080, cfg.HTTP.Port)
}

func TestLoader_YAMLLayer(t *testing.T) {
	path := writeFile(t, "config.yaml", `
mode:
  mode: usb
  port_path: /dev/ttyUSB0
http:
  port: 9090
nats:
  enabled: true
  url: nats://broker:4222
  subject_prefix: race
debug: true
`)

	cfg, err := NewLoader().LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, ModeUSB, cfg.Mode.Mode)
	assert.Equal(t, "/dev/ttyUSB0", cfg.Mode.PortPath)
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, "/ws", cfg.HTTP.WSPath)
	assert.True(t, cfg.NATS.Enabled)
	assert.Equal(t, "race", cfg.NATS.SubjectPrefix)
	assert.True(t, cfg.Debug)
}

func TestLoader_LaterLayersWin(t *testing.T) {
	base := writeFile(t, "base.json", `{"http": {"port": 9000, "ws_path": "/live"}}`)
	override := writeFile(t, "override.yml", "http:\n  port: 9100\n")

	l := NewLoader()
	l.AddLayer(base)
	l.AddLayer(override)
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.HTTP.Port)
	assert.Equal(t, "/live", cfg.HTTP.WSPath)
}

func TestLoader_EnvOverrides(t *testing.T) {
	t.Setenv("RRC_MODE", "TCPServer")
	t.Setenv("RRC_PORT", "5000")
	t.Setenv("RRC_HTTP_PORT", "8181")
	t.Setenv("RRC_NATS_URL", "nats://other:4222")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, ModeTCPServer, cfg.Mode.Mode)
	assert.Equal(t, 5000, cfg.Mode.Port)
	assert.Equal(t, 8181, cfg.HTTP.Port)
	assert.Equal(t, "nats://other:4222", cfg.NATS.URL)
}

func TestLoader_EnvOverrideNotANumber(t *testing.T) {
	t.Setenv("RRC_PORT", "abc")

	_, err := NewLoader().Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
}

func TestLoader_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		target  error
	}{
		{"malformed json", "bad.json", `{"mode": `, errors.ErrInvalidConfig},
		{"malformed yaml", "bad.yaml", "mode: [unclosed", errors.ErrInvalidConfig},
		{"unknown key", "extra.json", `{"mode": {"mode": "tcp", "host": "h", "port": 1}, "colour": "red"}`, errors.ErrInvalidConfig},
		{"bad duration", "dur.json", `{"decoder": {"keepalive_interval": "soon"}}`, errors.ErrInvalidConfig},
		{"unknown mode", "mode.json", `{"mode": {"mode": "udp", "port": 1}}`, errors.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.content)
			_, err := NewLoader().LoadFile(path)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)
		})
	}
}

func TestLoader_MissingFile(t *testing.T) {
	_, err := NewLoader().LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrConfigNotFound)
}

func TestLoader_RejectsUnknownExtension(t *testing.T) {
	path := writeFile(t, "config.toml", `mode = "tcp"`)
	_, err := NewLoader().LoadFile(path)
	require.Error(t, err)
}

func TestLoadOrCreate_WritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg, created, err := NewLoader().LoadOrCreate(path)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, Default(), cfg)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"keepalive_interval": "30s"`)
	assert.NoError(t, ValidateDocument(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	_, created, err = NewLoader().LoadOrCreate(path)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestLoadOrCreate_KeepsUnparsableFile(t *testing.T) {
	path := writeFile(t, "config.json", `not json`)

	_, created, err := NewLoader().LoadOrCreate(path)
	require.Error(t, err)
	assert.False(t, created)

	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, "not json", string(data))
}

func TestSaveToFile_YAMLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := Default()
	cfg.Mode = ModeConfig{Mode: ModeUSB, PortPath: "COM3"}
	cfg.Decoder.KeepaliveInterval = Duration(15 * time.Second)
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := NewLoader().LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestValidateDocument(t *testing.T) {
	assert.NoError(t, ValidateDocument([]byte(`{"mode": {"mode": "usb", "port_path": "/dev/ttyACM0"}}`)))

	err := ValidateDocument([]byte(`{"mode": {"mode": "tcp"}}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "host")

	err = ValidateDocument([]byte(`{"mode": `))
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
}

func TestSafeConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	sc := NewSafeConfig(Default(), path)

	got := sc.Get()
	got.Hub.Capacity = 1
	assert.Equal(t, 100, sc.Get().Hub.Capacity, "Get returns a copy")

	update := Default()
	update.Mode = ModeConfig{Mode: ModeTCPServer, Port: 3601}
	require.NoError(t, sc.Update(update))
	assert.Equal(t, ModeTCPServer, sc.Get().Mode.Mode)

	persisted, err := NewLoader().LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, ModeTCPServer, persisted.Mode.Mode)

	bad := Default()
	bad.Hub.Capacity = 0
	err = sc.Update(bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
	assert.Equal(t, ModeTCPServer, sc.Get().Mode.Mode, "rejected update leaves config unchanged")

	assert.ErrorIs(t, sc.Update(nil), errors.ErrMissingConfig)
}

func TestSafeConfig_Concurrent(t *testing.T) {
	sc := NewSafeConfig(nil, "")
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(port int) {
			defer wg.Done()
			cfg := Default()
			cfg.HTTP.Port = port
			_ = sc.Update(cfg)
		}(8000 + i)
		go func() {
			defer wg.Done()
			_ = sc.Get()
		}()
	}
	wg.Wait()
	assert.GreaterOrEqual(t, sc.Get().HTTP.Port, 8000)
}

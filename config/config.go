package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/gilliangoud/RRCLiveLaps/errors"
	"gopkg.in/yaml.v3"
)

// Acquisition modes
const (
	ModeTCP       = "tcp"
	ModeUSB       = "usb"
	ModeTCPServer = "tcpserver"
)

// Config represents the complete gateway configuration
type Config struct {
	Mode    ModeConfig    `json:"mode"    yaml:"mode"`
	HTTP    HTTPConfig    `json:"http"    yaml:"http"`
	Hub     HubConfig     `json:"hub"     yaml:"hub"`
	Decoder DecoderConfig `json:"decoder" yaml:"decoder"`
	NATS    NATSConfig    `json:"nats"    yaml:"nats"`
	Debug   bool          `json:"debug"   yaml:"debug"`
}

// ModeConfig selects the acquisition mode. Only the fields of the selected
// mode are meaningful.
type ModeConfig struct {
	Mode     string `json:"mode"                yaml:"mode"`
	Host     string `json:"host,omitempty"      yaml:"host,omitempty"`
	Port     int    `json:"port,omitempty"      yaml:"port,omitempty"`
	PortPath string `json:"port_path,omitempty" yaml:"port_path,omitempty"`
}

// HTTPConfig configures the HTTP and WebSocket surface
type HTTPConfig struct {
	Bind   string `json:"bind"    yaml:"bind"`
	Port   int    `json:"port"    yaml:"port"`
	WSPath string `json:"ws_path" yaml:"ws_path"`
}

// HubConfig configures the broadcast hub
type HubConfig struct {
	Capacity int `json:"capacity" yaml:"capacity"`
}

// DecoderConfig tunes the line-protocol decoder
type DecoderConfig struct {
	KeepaliveInterval Duration `json:"keepalive_interval" yaml:"keepalive_interval"`
	BaudRate          int      `json:"baud_rate"          yaml:"baud_rate"`
}

// NATSConfig configures the optional NATS bridge
type NATSConfig struct {
	Enabled       bool   `json:"enabled"        yaml:"enabled"`
	URL           string `json:"url"            yaml:"url"`
	SubjectPrefix string `json:"subject_prefix" yaml:"subject_prefix"`
}

// Duration is a time.Duration written as a Go duration string ("30s")
type Duration time.Duration

// MarshalJSON writes the duration as a string
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON accepts a duration string or a number of nanoseconds
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("duration must be a string or integer: %s", data)
	}
	*d = Duration(n)
	return nil
}

// MarshalYAML writes the duration as a string
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the duration as a time.Duration
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns the configuration written when no file exists
func Default() *Config {
	return &Config{
		Mode: ModeConfig{
			Mode: ModeTCP,
			Host: "127.0.0.1",
			Port: 3601,
		},
		HTTP: HTTPConfig{
			Bind:   "0.0.0.0",
			Port:   8080,
			WSPath: "/ws",
		},
		Hub: HubConfig{Capacity: 100},
		Decoder: DecoderConfig{
			KeepaliveInterval: Duration(30 * time.Second),
			BaudRate:          115200,
		},
		NATS: NATSConfig{
			Enabled:       false,
			URL:           "nats://localhost:4222",
			SubjectPrefix: "timing",
		},
	}
}

// Validate checks the configuration and normalizes the mode name
func (c *Config) Validate() error {
	if err := c.validate(); err != nil {
		return errors.WrapInvalid(fmt.Errorf("%w: %w", errors.ErrInvalidConfig, err),
			"Config", "Validate", "check configuration")
	}
	return nil
}

func (c *Config) validate() error {
	c.Mode.Mode = strings.ToLower(strings.TrimSpace(c.Mode.Mode))

	switch c.Mode.Mode {
	case ModeTCP:
		if c.Mode.Host == "" {
			return fmt.Errorf("mode.host is required for mode %q", ModeTCP)
		}
		if !validPort(c.Mode.Port) {
			return fmt.Errorf("mode.port %d out of range", c.Mode.Port)
		}
	case ModeUSB:
		if c.Mode.PortPath == "" {
			return fmt.Errorf("mode.port_path is required for mode %q", ModeUSB)
		}
	case ModeTCPServer:
		if !validPort(c.Mode.Port) {
			return fmt.Errorf("mode.port %d out of range", c.Mode.Port)
		}
	case "":
		return fmt.Errorf("mode.mode is required")
	default:
		return fmt.Errorf("unknown mode %q (want %s, %s or %s)", c.Mode.Mode, ModeTCP, ModeUSB, ModeTCPServer)
	}

	if !validPort(c.HTTP.Port) {
		return fmt.Errorf("http.port %d out of range", c.HTTP.Port)
	}
	if !strings.HasPrefix(c.HTTP.WSPath, "/") {
		return fmt.Errorf("http.ws_path %q must start with /", c.HTTP.WSPath)
	}
	if c.Hub.Capacity < 1 {
		return fmt.Errorf("hub.capacity must be at least 1, got %d", c.Hub.Capacity)
	}
	if c.Decoder.KeepaliveInterval <= 0 {
		return fmt.Errorf("decoder.keepalive_interval must be positive")
	}
	if c.Decoder.BaudRate <= 0 {
		return fmt.Errorf("decoder.baud_rate must be positive, got %d", c.Decoder.BaudRate)
	}

	if c.NATS.Enabled {
		u, err := url.Parse(c.NATS.URL)
		if err != nil || u.Host == "" {
			return fmt.Errorf("nats.url %q is not a valid URL", c.NATS.URL)
		}
		if !isValidSubjectPrefix(c.NATS.SubjectPrefix) {
			return fmt.Errorf("nats.subject_prefix %q is not valid for NATS subjects", c.NATS.SubjectPrefix)
		}
	}
	return nil
}

func validPort(p int) bool {
	return p > 0 && p <= 65535
}

// isValidSubjectPrefix accepts dot-separated tokens of letters, digits, dashes and underscores
func isValidSubjectPrefix(s string) bool {
	if s == "" {
		return false
	}
	for _, token := range strings.Split(s, ".") {
		if token == "" {
			return false
		}
		for _, r := range token {
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' {
				return false
			}
		}
	}
	return true
}

// Address returns the host:port of the selected mode
func (m ModeConfig) Address() string {
	switch m.Mode {
	case ModeTCP:
		return fmt.Sprintf("%s:%d", m.Host, m.Port)
	case ModeTCPServer:
		return fmt.Sprintf("0.0.0.0:%d", m.Port)
	default:
		return m.PortPath
	}
}

// Address returns the HTTP listen address
func (h HTTPConfig) Address() string {
	return fmt.Sprintf("%s:%d", h.Bind, h.Port)
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	if c == nil {
		return Default()
	}
	copied := *c
	return &copied
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// SaveToFile writes the configuration as YAML or JSON, chosen by extension
func (c *Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return errors.Wrap(err, "Config", "SaveToFile", "encode configuration")
	}
	if err := safeWriteFile(path, data); err != nil {
		return errors.WrapTransient(err, "Config", "SaveToFile", "write "+filepath.Base(path))
	}
	return nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// SafeConfig provides thread-safe access to configuration
type SafeConfig struct {
	mu     sync.RWMutex
	config *Config
	path   string
}

// NewSafeConfig wraps cfg; path is where Update persists changes (empty = memory only)
func NewSafeConfig(cfg *Config, path string) *SafeConfig {
	if cfg == nil {
		cfg = Default()
	}
	return &SafeConfig{config: cfg, path: path}
}

// Get returns a copy of the current configuration
func (sc *SafeConfig) Get() *Config {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.config.Clone()
}

// Update validates cfg, persists it and makes it current
func (sc *SafeConfig) Update(cfg *Config) error {
	if cfg == nil {
		return errors.WrapInvalid(errors.ErrMissingConfig, "SafeConfig", "Update", "nil check")
	}

	cfg = cfg.Clone()
	if err := ValidateSchema(cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.path != "" {
		if err := cfg.SaveToFile(sc.path); err != nil {
			return err
		}
	}
	sc.config = cfg
	return nil
}

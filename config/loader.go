package config

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/gilliangoud/RRCLiveLaps/errors"
	"gopkg.in/yaml.v3"
)

// DefaultEnvPrefix prefixes the environment overrides
const DefaultEnvPrefix = "RRC"

// Loader handles configuration loading with layers and overrides
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
	logger     *slog.Logger
}

// NewLoader creates a loader with validation enabled
func NewLoader() *Loader {
	return &Loader{
		validation: true,
		envPrefix:  DefaultEnvPrefix,
		logger:     slog.Default().With("component", "config"),
	}
}

// AddLayer adds a configuration file layer; later layers win
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation toggles validation at the end of Load
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// SetEnvPrefix changes the prefix of the environment overrides
func (l *Loader) SetEnvPrefix(prefix string) {
	l.envPrefix = prefix
}

// SetLogger sets the loader logger
func (l *Loader) SetLogger(logger *slog.Logger) {
	if logger != nil {
		l.logger = logger
	}
}

// LoadFile loads a single file on top of the defaults
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load merges defaults, file layers and environment overrides, then validates
func (l *Loader) Load() (*Config, error) {
	merged, err := toMap(Default())
	if err != nil {
		return nil, errors.Wrap(err, "Loader", "Load", "encode defaults")
	}

	for _, path := range l.layers {
		raw, err := l.loadRaw(path)
		if err != nil {
			return nil, err
		}
		merged = deepMergeMaps(merged, raw)
		// the mode block is a tagged union; a layer replaces it instead of merging
		if mode, ok := raw["mode"].(map[string]any); ok {
			merged["mode"] = mode
		}
	}

	if l.validation {
		// checked before decoding so unknown keys are reported
		doc, err := json.Marshal(merged)
		if err != nil {
			return nil, errors.Wrap(err, "Loader", "Load", "encode merged layers")
		}
		if err := ValidateDocument(doc); err != nil {
			return nil, err
		}
	}

	cfg, err := fromMap(merged)
	if err != nil {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: %w", errors.ErrInvalidConfig, err),
			"Loader", "Load", "decode configuration")
	}

	if err := l.applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	cfg.Mode.Mode = strings.ToLower(strings.TrimSpace(cfg.Mode.Mode))

	if l.validation {
		if err := ValidateSchema(cfg); err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadOrCreate loads path, writing the defaults there first when it does not
// exist. The second result reports whether the file was created. A file that
// exists but cannot be parsed is returned as an error and left untouched.
func (l *Loader) LoadOrCreate(path string) (*Config, bool, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		cfg, err := l.LoadFile(path)
		return cfg, false, err
	case stderrors.Is(err, fs.ErrNotExist):
	default:
		return nil, false, errors.WrapTransient(err, "Loader", "LoadOrCreate", "stat config file")
	}

	l.logger.Info("Config file not found, writing defaults", "path", path)
	if err := Default().SaveToFile(path); err != nil {
		return nil, false, err
	}

	cfg, err := l.LoadFile(path)
	return cfg, true, err
}

func (l *Loader) loadRaw(path string) (map[string]any, error) {
	data, err := safeReadFile(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.WrapInvalid(fmt.Errorf("%w: %s", errors.ErrConfigNotFound, path),
				"Loader", "loadRaw", "read config file")
		}
		return nil, errors.WrapInvalid(err, "Loader", "loadRaw", "read config file")
	}

	var raw map[string]any
	if isYAML(path) {
		err = yaml.Unmarshal(data, &raw)
	} else {
		if err = validateJSONDepth(data); err == nil {
			err = json.Unmarshal(data, &raw)
		}
	}
	if err != nil {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: %s: %w", errors.ErrInvalidConfig, path, err),
			"Loader", "loadRaw", "parse config file")
	}
	return raw, nil
}

// applyEnvOverrides applies environment variable overrides
func (l *Loader) applyEnvOverrides(cfg *Config) error {
	env := func(name string) (string, bool, error) {
		key := l.envPrefix + "_" + name
		val := os.Getenv(key)
		if val == "" {
			return "", false, nil
		}
		if err := validateEnvVar(key, val); err != nil {
			return "", false, errors.WrapInvalid(err, "Loader", "applyEnvOverrides", "read "+key)
		}
		return val, true, nil
	}
	envInt := func(name string) (int, bool, error) {
		val, ok, err := env(name)
		if !ok || err != nil {
			return 0, false, err
		}
		n, err := strconv.Atoi(val)
		if err != nil {
			return 0, false, errors.WrapInvalid(
				fmt.Errorf("%w: %s_%s=%q is not a number", errors.ErrInvalidConfig, l.envPrefix, name, val),
				"Loader", "applyEnvOverrides", "parse "+name)
		}
		return n, true, nil
	}

	if val, ok, err := env("MODE"); err != nil {
		return err
	} else if ok {
		cfg.Mode.Mode = strings.ToLower(val)
	}
	if val, ok, err := env("HOST"); err != nil {
		return err
	} else if ok {
		cfg.Mode.Host = val
	}
	if n, ok, err := envInt("PORT"); err != nil {
		return err
	} else if ok {
		cfg.Mode.Port = n
	}
	if val, ok, err := env("PORT_PATH"); err != nil {
		return err
	} else if ok {
		cfg.Mode.PortPath = val
	}
	if n, ok, err := envInt("HTTP_PORT"); err != nil {
		return err
	} else if ok {
		cfg.HTTP.Port = n
	}
	if val, ok, err := env("NATS_URL"); err != nil {
		return err
	} else if ok {
		cfg.NATS.URL = val
	}
	return nil
}

func toMap(cfg *Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func fromMap(m map[string]any) (*Config, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// deepMergeMaps returns base with override applied; nested objects merge key by key
func deepMergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		result[k] = v
	}

	for k, v := range override {
		if v == nil {
			continue
		}
		if baseMap, ok := base[k].(map[string]any); ok {
			if overrideMap, ok := v.(map[string]any); ok {
				result[k] = deepMergeMaps(baseMap, overrideMap)
				continue
			}
		}
		result[k] = v
	}
	return result
}

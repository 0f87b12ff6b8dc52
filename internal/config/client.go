package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ClientConfig configures the workout engine running on the member's device.
type ClientConfig struct {
	MemberID string       `yaml:"member_id"`
	Local    LocalConfig  `yaml:"local"`
	Remote   RemoteConfig `yaml:"remote"`
	Engine   EngineConfig `yaml:"engine"`
	Log      LogConfig    `yaml:"log"`
}

type LocalConfig struct {
	Path string `yaml:"path"`
}

// RemoteConfig points at the sync server. An empty URL runs offline.
type RemoteConfig struct {
	URL     string        `yaml:"url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

type EngineConfig struct {
	StandaloneRestSeconds int           `yaml:"standalone_rest_seconds"`
	SupersetRestSeconds   int           `yaml:"superset_rest_seconds"`
	RestWarningSeconds    []int         `yaml:"rest_warning_seconds"`
	Tick                  time.Duration `yaml:"tick"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// DefaultClient returns the client defaults.
func DefaultClient() *ClientConfig {
	path := "repflow.db"
	if home, err := os.UserHomeDir(); err == nil {
		path = filepath.Join(home, ".repflow", "local.db")
	}
	return &ClientConfig{
		MemberID: "me",
		Local:    LocalConfig{Path: path},
		Remote:   RemoteConfig{Timeout: 30 * time.Second},
		Engine: EngineConfig{
			StandaloneRestSeconds: 90,
			SupersetRestSeconds:   30,
			RestWarningSeconds:    []int{10, 3},
			Tick:                  time.Second,
		},
		Log: LogConfig{Level: "info"},
	}
}

// LoadClient reads the client config. A missing file is not an error: the
// defaults and environment overrides apply. Env vars:
//
//	REPFLOW_MEMBER_ID, REPFLOW_LOCAL_PATH,
//	REPFLOW_REMOTE_URL, REPFLOW_REMOTE_API_KEY, REPFLOW_REMOTE_TIMEOUT,
//	REPFLOW_ENGINE_STANDALONE_REST, REPFLOW_ENGINE_SUPERSET_REST,
//	REPFLOW_ENGINE_TICK, REPFLOW_LOG_LEVEL
func LoadClient(path string) (*ClientConfig, error) {
	cfg := DefaultClient()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		}
	}

	applyClientEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func applyClientEnvOverrides(cfg *ClientConfig) {
	if v := os.Getenv("REPFLOW_MEMBER_ID"); v != "" {
		cfg.MemberID = v
	}
	if v := os.Getenv("REPFLOW_LOCAL_PATH"); v != "" {
		cfg.Local.Path = v
	}
	if v := os.Getenv("REPFLOW_REMOTE_URL"); v != "" {
		cfg.Remote.URL = v
	}
	if v := os.Getenv("REPFLOW_REMOTE_API_KEY"); v != "" {
		cfg.Remote.APIKey = v
	}
	if v := os.Getenv("REPFLOW_REMOTE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Remote.Timeout = d
		}
	}
	if v := os.Getenv("REPFLOW_ENGINE_STANDALONE_REST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.StandaloneRestSeconds = n
		}
	}
	if v := os.Getenv("REPFLOW_ENGINE_SUPERSET_REST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.SupersetRestSeconds = n
		}
	}
	if v := os.Getenv("REPFLOW_ENGINE_TICK"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Engine.Tick = d
		}
	}
	if v := os.Getenv("REPFLOW_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

func (c *ClientConfig) validate() error {
	if c.MemberID == "" {
		return fmt.Errorf("member_id is required")
	}
	if c.Local.Path == "" {
		return fmt.Errorf("local.path is required")
	}
	if c.Remote.URL != "" && c.Remote.APIKey == "" {
		return fmt.Errorf("remote.api_key is required when remote.url is set")
	}
	if c.Remote.Timeout <= 0 {
		return fmt.Errorf("remote.timeout must be positive")
	}
	if c.Engine.StandaloneRestSeconds < 0 || c.Engine.SupersetRestSeconds < 0 {
		return fmt.Errorf("engine rest durations must not be negative")
	}
	if c.Engine.Tick <= 0 {
		return fmt.Errorf("engine.tick must be positive")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	return nil
}

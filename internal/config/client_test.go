package config

import (
	"path/filepath"
	"testing"
	"time"
)

// TestLoadClientMissingFile verifies that a missing client config falls back to defaults.
func TestLoadClientMissingFile(t *testing.T) {
	cfg, err := LoadClient(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Engine.StandaloneRestSeconds != 90 {
		t.Errorf("standalone rest = %d, want 90", cfg.Engine.StandaloneRestSeconds)
	}
	if cfg.Engine.SupersetRestSeconds != 30 {
		t.Errorf("superset rest = %d, want 30", cfg.Engine.SupersetRestSeconds)
	}
	if cfg.Engine.Tick != time.Second {
		t.Errorf("tick = %v, want 1s", cfg.Engine.Tick)
	}
	if len(cfg.Engine.RestWarningSeconds) != 2 {
		t.Errorf("rest warnings = %v, want [10 3]", cfg.Engine.RestWarningSeconds)
	}
	if cfg.Remote.URL != "" {
		t.Errorf("remote.url = %q, want offline default", cfg.Remote.URL)
	}
}

// TestLoadClientYAMLAndEnv verifies YAML values and REPFLOW_ env overrides on the client.
func TestLoadClientYAMLAndEnv(t *testing.T) {
	path := writeTemp(t, `
member_id: "bobby"
local:
  path: "/tmp/repflow.db"
remote:
  url: "http://sync.local:8080"
  api_key: "k"
  timeout: 5s
engine:
  superset_rest_seconds: 45
  tick: 500ms
`)
	t.Setenv("REPFLOW_ENGINE_STANDALONE_REST", "120")
	t.Setenv("REPFLOW_LOG_LEVEL", "debug")

	cfg, err := LoadClient(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MemberID != "bobby" {
		t.Errorf("member_id = %q, want bobby", cfg.MemberID)
	}
	if cfg.Remote.Timeout != 5*time.Second {
		t.Errorf("remote.timeout = %v, want 5s", cfg.Remote.Timeout)
	}
	if cfg.Engine.SupersetRestSeconds != 45 {
		t.Errorf("superset rest = %d, want 45", cfg.Engine.SupersetRestSeconds)
	}
	if cfg.Engine.StandaloneRestSeconds != 120 {
		t.Errorf("standalone rest = %d, want env override 120", cfg.Engine.StandaloneRestSeconds)
	}
	if cfg.Engine.Tick != 500*time.Millisecond {
		t.Errorf("tick = %v, want 500ms", cfg.Engine.Tick)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log.level = %q, want debug", cfg.Log.Level)
	}
}

// TestLoadClientRemoteNeedsKey verifies that a remote URL without an API key is rejected.
func TestLoadClientRemoteNeedsKey(t *testing.T) {
	path := writeTemp(t, `
remote:
  url: "http://sync.local:8080"
`)
	if _, err := LoadClient(path); err == nil {
		t.Fatal("expected validation error for remote without api_key")
	}
}

// TestLoadClientBadYAML verifies that a malformed client config is reported.
func TestLoadClientBadYAML(t *testing.T) {
	if _, err := LoadClient(writeTemp(t, "engine: [")); err == nil {
		t.Fatal("expected parse error")
	}
}

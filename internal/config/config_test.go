// ABOUTME: Tests for configuration loading.
// ABOUTME: Env expansion, duration parsing, defaults, and validation errors.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

const minimalConfig = `
server:
  http_addr: "127.0.0.1:8420"
database:
  path: "/tmp/gateway.db"
auth:
  jwt_secret: "secret"
model:
  name: "gpt-4o"
`

func TestLoad_Minimal(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.HTTPAddr != "127.0.0.1:8420" {
		t.Errorf("unexpected http_addr: %s", cfg.Server.HTTPAddr)
	}

	// Unset sections fall back to defaults.
	if cfg.Planner.MaxSteps != DefaultPlannerMaxSteps {
		t.Errorf("planner.max_steps default = %d", cfg.Planner.MaxSteps)
	}
	if cfg.Planner.MaxRetries != DefaultPlannerMaxRetries {
		t.Errorf("planner.max_retries default = %d", cfg.Planner.MaxRetries)
	}
	if cfg.Planner.ContextWindow != DefaultContextWindow {
		t.Errorf("planner.context_window default = %d", cfg.Planner.ContextWindow)
	}
	if cfg.Stream.FlushDelay != DefaultFlushDelay {
		t.Errorf("stream.flush_delay default = %v", cfg.Stream.FlushDelay)
	}
	if cfg.Stream.Buffer != DefaultStreamBuffer {
		t.Errorf("stream.buffer default = %d", cfg.Stream.Buffer)
	}
}

func TestLoad_FlushDelayParsed(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig+`
stream:
  flush_delay: "150ms"
  buffer: 32
`))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Stream.FlushDelay != 150*time.Millisecond {
		t.Errorf("flush_delay = %v", cfg.Stream.FlushDelay)
	}
	if cfg.Stream.Buffer != 32 {
		t.Errorf("buffer = %d", cfg.Stream.Buffer)
	}
}

func TestLoad_BadFlushDelay(t *testing.T) {
	_, err := Load(writeConfig(t, minimalConfig+`
stream:
  flush_delay: "soon"
`))
	if err == nil {
		t.Fatal("expected error for unparseable duration")
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_JWT_SECRET", "from-env")

	cfg, err := Load(writeConfig(t, `
server:
  http_addr: "127.0.0.1:8420"
database:
  path: "/tmp/gateway.db"
auth:
  jwt_secret: "${TEST_JWT_SECRET}"
model:
  name: "gpt-4o"
`))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Auth.JWTSecret != "from-env" {
		t.Errorf("jwt_secret = %q", cfg.Auth.JWTSecret)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	cases := map[string]string{
		"missing server":   "database:\n  path: x\nauth:\n  jwt_secret: s\nmodel:\n  name: m\n",
		"missing database": "server:\n  http_addr: x\nauth:\n  jwt_secret: s\nmodel:\n  name: m\n",
		"missing secret":   "server:\n  http_addr: x\ndatabase:\n  path: p\nmodel:\n  name: m\n",
		"missing model":    "server:\n  http_addr: x\ndatabase:\n  path: p\nauth:\n  jwt_secret: s\n",
	}
	for name, content := range cases {
		if _, err := Load(writeConfig(t, content)); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

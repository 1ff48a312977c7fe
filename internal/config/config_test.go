package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danmuck/matrixd/internal/testutil/testlog"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadServerConfigTemplate(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "server.toml")
	if err := WriteTemplate(path, "server", false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	cfg, err := LoadServerConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Name != "matrixd" || cfg.Addr != ":8888" || cfg.AdminAddr != "" {
		t.Fatalf("unexpected server config: %+v", cfg)
	}
	if cfg.Session.Limits.MaxPayloadBytes != 1<<30 {
		t.Fatalf("unexpected payload cap: %d", cfg.Session.Limits.MaxPayloadBytes)
	}
	if cfg.Session.ReadTimeout != 0 || cfg.Session.WriteTimeout != 0 {
		t.Fatalf("timeouts should stay disabled: %+v", cfg.Session)
	}
}

func TestLoadServerConfigOverrides(t *testing.T) {
	testlog.Start(t)
	path := writeConfig(t, `
addr = "127.0.0.1:9999"
admin_addr = "127.0.0.1:9998"
admin_cors_origins = [" http://localhost:3000 ", ""]
max_payload_bytes = 0
read_timeout = "30s"
`)
	cfg, err := LoadServerConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Addr != "127.0.0.1:9999" || cfg.AdminAddr != "127.0.0.1:9998" {
		t.Fatalf("unexpected addrs: %+v", cfg)
	}
	if len(cfg.AdminCORSOrigins) != 1 || cfg.AdminCORSOrigins[0] != "http://localhost:3000" {
		t.Fatalf("unexpected cors origins: %v", cfg.AdminCORSOrigins)
	}
	if cfg.Session.Limits.MaxPayloadBytes != 0 {
		t.Fatalf("expected uncapped payloads, got %d", cfg.Session.Limits.MaxPayloadBytes)
	}
	if cfg.Session.ReadTimeout != 30*time.Second {
		t.Fatalf("unexpected read timeout: %v", cfg.Session.ReadTimeout)
	}
	if cfg.Name != "matrixd" {
		t.Fatalf("undefined keys must keep defaults: %q", cfg.Name)
	}
}

func TestLoadServerConfigRejectsBadValues(t *testing.T) {
	testlog.Start(t)
	for _, content := range []string{
		`read_timeout = "abc"`,
		`max_payload_bytes = -1`,
		`addr = ""`,
	} {
		if _, err := LoadServerConfig(writeConfig(t, content)); err == nil {
			t.Fatalf("expected error for %q", content)
		}
	}
}

func TestLoadClientConfigTemplate(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "client.toml")
	if err := WriteTemplate(path, "client", false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	cfg, err := LoadClientConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Addr != "127.0.0.1:8888" || cfg.MatrixSize != 10000 || cfg.Workers != 128 {
		t.Fatalf("unexpected client config: %+v", cfg)
	}
	if cfg.Session.Poll.Interval != 100*time.Millisecond || cfg.Session.Poll.Timeout != 0 {
		t.Fatalf("unexpected poll config: %+v", cfg.Session.Poll)
	}
	if cfg.Session.ConnectTimeout != 5*time.Second {
		t.Fatalf("unexpected connect timeout: %v", cfg.Session.ConnectTimeout)
	}
}

func TestLoadClientConfigPollOverrides(t *testing.T) {
	testlog.Start(t)
	path := writeConfig(t, `
matrix_size = 4
workers = 2
poll_interval = "10ms"
poll_timeout = "2s"
poll_backoff_multiplier = 2.0
poll_backoff_max = "500ms"
poll_jitter = true
`)
	cfg, err := LoadClientConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	p := cfg.Session.Poll
	if cfg.MatrixSize != 4 || cfg.Workers != 2 {
		t.Fatalf("unexpected run params: %+v", cfg)
	}
	if p.Interval != 10*time.Millisecond || p.Timeout != 2*time.Second {
		t.Fatalf("unexpected poll timing: %+v", p)
	}
	if p.Backoff.Multiplier != 2.0 || p.Backoff.MaxDelay != 500*time.Millisecond || !p.Backoff.Jitter {
		t.Fatalf("unexpected poll backoff: %+v", p.Backoff)
	}
}

func TestLoadClientConfigRejectsBadValues(t *testing.T) {
	testlog.Start(t)
	for _, content := range []string{
		`matrix_size = 40000`,
		`workers = -5`,
		`poll_interval = "0s"`,
		`poll_timeout = "-1s"`,
		`connect_timeout = "soon"`,
	} {
		if _, err := LoadClientConfig(writeConfig(t, content)); err == nil {
			t.Fatalf("expected error for %q", content)
		}
	}
}

func TestWriteTemplateRefusesOverwrite(t *testing.T) {
	testlog.Start(t)
	path := writeConfig(t, "addr = \":1\"\n")
	if err := WriteTemplate(path, "server", false); err == nil {
		t.Fatalf("expected overwrite refusal")
	}
	if err := WriteTemplate(path, "server", true); err != nil {
		t.Fatalf("forced overwrite: %v", err)
	}
	if _, err := Template("worker"); err == nil {
		t.Fatalf("expected unknown kind error")
	}
}

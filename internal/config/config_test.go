package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadParsesSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `server:
  port: "9090"
redis:
  addr: "localhost:6379"
  ttl: "30m"
questions:
  file: "config/questions.yaml"
poll:
  sessionId: "physics-101"
  closePolicy: "quorum"
  discloseCorrect: false
chat:
  maxLength: 140
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Redis.Addr != "localhost:6379" {
		t.Fatalf("unexpected server/redis config: %+v", cfg)
	}
	if cfg.Poll.SessionID != "physics-101" || cfg.Poll.ClosePolicy != "quorum" {
		t.Fatalf("unexpected poll config: %+v", cfg.Poll)
	}
	if cfg.DiscloseCorrect() {
		t.Fatalf("expected discloseCorrect false")
	}
	if cfg.ChatMaxLength() != 140 {
		t.Fatalf("expected chat max 140, got %d", cfg.ChatMaxLength())
	}
	if got := TTLDuration(cfg.Redis.TTL, time.Minute); got != 30*time.Minute {
		t.Fatalf("expected 30m ttl, got %v", got)
	}
}

func TestDefaults(t *testing.T) {
	var cfg Config
	if !cfg.DiscloseCorrect() {
		t.Fatalf("expected answers disclosed by default")
	}
	if cfg.ChatMaxLength() != 500 {
		t.Fatalf("expected default chat max 500, got %d", cfg.ChatMaxLength())
	}
	if got := TTLDuration("not-a-duration", 5*time.Minute); got != 5*time.Minute {
		t.Fatalf("expected fallback, got %v", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for explicit missing path")
	}
}

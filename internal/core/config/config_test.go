package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaultsAndEnvOverride(t *testing.T) {
	path := writeConfig(t, `
auth:
  mode: local
  secret: s3cret
db:
  driver: sqlite
  dsn: "file::memory:"
`)
	t.Setenv("APP_STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("APP_LIFECYCLE_STRICT", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.HTTP.Port != 5000 {
		t.Fatalf("default port = %d", cfg.App.HTTP.Port)
	}
	if cfg.Stripe.SecretKey != "sk_test_123" {
		t.Fatalf("stripe key = %q", cfg.Stripe.SecretKey)
	}
	if !cfg.Lifecycle.Strict {
		t.Fatal("lifecycle.strict env override not applied")
	}
	if cfg.Stripe.Currency != "usd" || cfg.MQ.Exchange != "blood_topic" {
		t.Fatalf("defaults not applied: %+v %+v", cfg.Stripe, cfg.MQ)
	}
	if cfg.Limits.MaxBodyMB != 4 || cfg.Redis.TTLSec != 30 {
		t.Fatalf("limits/redis defaults: %+v %+v", cfg.Limits, cfg.Redis)
	}
}

func TestLoadRejectsIncompleteAuth(t *testing.T) {
	cases := map[string]string{
		"firebase without project": "auth:\n  mode: firebase\n",
		"local without secret":     "auth:\n  mode: local\n",
		"unknown mode":             "auth:\n  mode: saml\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body)); err == nil || !strings.Contains(err.Error(), "auth") {
				t.Fatalf("Load err = %v, want auth validation error", err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/eva-app/evaclient/pkg/models"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Environment != EnvDevelopment {
		t.Errorf("expected development, got %s", cfg.Environment)
	}
	if cfg.Request.RedirectDelay != 1500*time.Millisecond {
		t.Errorf("expected 1.5s redirect delay, got %v", cfg.Request.RedirectDelay)
	}
	if cfg.Request.SuccessCode != 200 {
		t.Errorf("expected success code 200, got %d", cfg.Request.SuccessCode)
	}
	if cfg.Request.LoginRoute != "/pages/login/index" {
		t.Errorf("unexpected login route %s", cfg.Request.LoginRoute)
	}
	if len(cfg.Guard.Public) != 1 || cfg.Guard.Public[0] != cfg.Request.LoginRoute {
		t.Errorf("expected login route to be public, got %v", cfg.Guard.Public)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("EVA_API_URL", "https://staging.eva-app.com")

	path := writeConfig(t, `
environment: staging
endpoints:
  - name: staging
    base_url: ${EVA_API_URL}
db_path: "test.db"
request:
  timeout: 5s
  rate_limit: 10
  burst: 2
session:
  token_ttl: 720h
guard:
  public: ["/pages/login/index", "/pages/home/index"]
  rules:
    - route: /pages/admin/*
      roles: [admin]
    - route: /pages/pets/edit/index
      permissions: ["pets:edit:update", "pets:edit:create"]
      mode: any
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Environment != "staging" {
		t.Errorf("expected staging, got %s", cfg.Environment)
	}
	if len(cfg.Endpoints) != 1 || cfg.Endpoints[0].BaseURL != "https://staging.eva-app.com" {
		t.Errorf("env var not expanded: got %+v", cfg.Endpoints)
	}
	if cfg.Request.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %v", cfg.Request.Timeout)
	}
	if cfg.Request.SuccessCode != 200 {
		t.Errorf("expected default success code to survive, got %d", cfg.Request.SuccessCode)
	}
	if cfg.Session.TokenTTL != 720*time.Hour {
		t.Errorf("expected 720h token ttl, got %v", cfg.Session.TokenTTL)
	}
	if cfg.Session.TokenKey != "token" {
		t.Errorf("expected default token key, got %s", cfg.Session.TokenKey)
	}
	if len(cfg.Guard.Rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(cfg.Guard.Rules))
	}
	if cfg.Guard.Rules[1].Mode != models.AccessAny {
		t.Errorf("expected any mode, got %s", cfg.Guard.Rules[1].Mode)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadInvalid(t *testing.T) {
	path := writeConfig(t, `
endpoints:
  - name: broken
request:
  rate_limit: -1
guard:
  rules:
    - route: /x
      mode: some
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"base_url", "rate_limit", "unknown mode"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in error, got %v", want, err)
		}
	}
}

package main

import "testing"

func TestParseHeaders(t *testing.T) {
	got, err := parseHeaders([]string{"X-Client=cli", " Content-Type = text/plain "})
	if err != nil {
		t.Fatal(err)
	}
	if got["X-Client"] != "cli" || got["Content-Type"] != "text/plain" {
		t.Errorf("unexpected headers %v", got)
	}

	if got, err := parseHeaders(nil); err != nil || got != nil {
		t.Errorf("expected nil map, got %v, %v", got, err)
	}

	for _, bad := range []string{"novalue", "=v"} {
		if _, err := parseHeaders([]string{bad}); err == nil {
			t.Errorf("%q: expected error", bad)
		}
	}
}

func TestLoadConfigDefaultsWithoutFile(t *testing.T) {
	t.Setenv("EVA_ENV", "production")

	cfg, err := loadConfig(&globalFlags{configPath: "does-not-exist.yaml"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Environment != "production" {
		t.Errorf("expected EVA_ENV to select production, got %s", cfg.Environment)
	}

	cfg, err = loadConfig(&globalFlags{configPath: "does-not-exist.yaml", env: "development"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Environment != "development" {
		t.Errorf("expected --env to win, got %s", cfg.Environment)
	}

	if _, err := loadConfig(&globalFlags{configPath: "does-not-exist.yaml", configExplicit: true}); err == nil {
		t.Error("expected error for an explicit missing config")
	}
}

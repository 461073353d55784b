package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIURL != "http://127.0.0.1:4000" {
		t.Fatalf("APIURL = %q", cfg.APIURL)
	}
	if cfg.StaleTime != 10*time.Second {
		t.Fatalf("StaleTime = %v", cfg.StaleTime)
	}
	if cfg.CacheTime != 300*time.Second {
		t.Fatalf("CacheTime = %v", cfg.CacheTime)
	}
}

func TestLoad_ParsesOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
api_url = "http://books.local:8080"
stale_seconds = 30
cache_seconds = 600
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIURL != "http://books.local:8080" {
		t.Fatalf("APIURL = %q", cfg.APIURL)
	}
	if cfg.StaleTime != 30*time.Second {
		t.Fatalf("StaleTime = %v", cfg.StaleTime)
	}
	if cfg.CacheTime != 600*time.Second {
		t.Fatalf("CacheTime = %v", cfg.CacheTime)
	}
}

func TestLoad_PartialFileKeepsRemainingDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`api_url = "http://books.local"`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIURL != "http://books.local" {
		t.Fatalf("APIURL = %q", cfg.APIURL)
	}
	if cfg.StaleTime != 10*time.Second {
		t.Fatalf("StaleTime = %v, want default kept", cfg.StaleTime)
	}
}

func TestLoad_MalformedFileErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`api_url = [broken`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("Load of malformed file succeeded")
	}
}

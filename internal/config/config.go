package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config captures the settings the Bookshelf client needs.
type Config struct {
	APIURL    string
	StaleTime time.Duration // how long fetched data is served without refetching
	CacheTime time.Duration // how long unused cache entries are retained
}

const (
	defaultConfigPath   = "~/.config/bookshelf/config.toml"
	defaultAPIURL       = "http://127.0.0.1:4000"
	defaultStaleSeconds = 10
	defaultCacheSeconds = 300
)

// Load locates and parses the client config, falling back to defaults when
// the file is missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		APIURL:    defaultAPIURL,
		StaleTime: defaultStaleSeconds * time.Second,
		CacheTime: defaultCacheSeconds * time.Second,
	}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		APIURL       string `toml:"api_url"`
		StaleSeconds int    `toml:"stale_seconds"`
		CacheSeconds int    `toml:"cache_seconds"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if url := strings.TrimSpace(raw.APIURL); url != "" {
		cfg.APIURL = url
	}
	if raw.StaleSeconds > 0 {
		cfg.StaleTime = time.Duration(raw.StaleSeconds) * time.Second
	}
	if raw.CacheSeconds > 0 {
		cfg.CacheTime = time.Duration(raw.CacheSeconds) * time.Second
	}

	return cfg, nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}

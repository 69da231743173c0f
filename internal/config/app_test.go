package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"CONFIG_FILE", "SERVER_ADDR", "EDITOR_ADDR", "BACKEND_URL", "EDITOR_EMAIL",
		"EDITOR_PASSWORD", "JWT_SECRET", "MAPBOX_TOKEN", "MAPBOX_BASE_URL",
		"DEFAULT_ROUTE_COLOR", "LOG_FILE", "LOG_LEVEL", "REQUEST_TIMEOUT", "METRICS_ENABLED",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServerAddr != ":8080" || cfg.RequestTimeout != 10*time.Second || cfg.DefaultRouteColor != "#3b82f6" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	yml := "backend_url: http://backend:9000\nrequest_timeout: 3s\nlog_level: debug\nmetrics_enabled: false\n"
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BackendURL != "http://backend:9000" {
		t.Errorf("backend url = %q", cfg.BackendURL)
	}
	if cfg.RequestTimeout != 3*time.Second {
		t.Errorf("timeout = %s", cfg.RequestTimeout)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("log level = %q, want env override", cfg.LogLevel)
	}
	if cfg.MetricsEnabled {
		t.Error("metrics enabled despite file setting")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name, key, value, want string
	}{
		{"timeout", "REQUEST_TIMEOUT", "soon", "REQUEST_TIMEOUT"},
		{"metrics flag", "METRICS_ENABLED", "maybe", "METRICS_ENABLED"},
		{"color", "DEFAULT_ROUTE_COLOR", "blue", "DefaultRouteColor"},
		{"level", "LOG_LEVEL", "loud", "LogLevel"},
		{"email", "EDITOR_EMAIL", "not-an-email", "EditorEmail"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			if err == nil {
				t.Fatal("Load accepted invalid value")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %s", err, tt.want)
			}
		})
	}
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppConfig holds the settings shared by the backend and the editor service.
type AppConfig struct {
	ServerAddr string `yaml:"server_addr" validate:"required"`
	EditorAddr string `yaml:"editor_addr" validate:"required"`

	// BackendURL is where the editor service reaches the persistence API.
	BackendURL     string `yaml:"backend_url" validate:"required,url"`
	EditorEmail    string `yaml:"editor_email" validate:"omitempty,email"`
	EditorPassword string `yaml:"editor_password"`
	JWTSecret      string `yaml:"jwt_secret" validate:"required,min=8"`

	MapboxToken   string `yaml:"mapbox_token"`
	MapboxBaseURL string `yaml:"mapbox_base_url" validate:"required,url"`

	RequestTimeout    time.Duration `yaml:"request_timeout" validate:"gt=0"`
	DefaultRouteColor string        `yaml:"default_route_color" validate:"required,hexcolor"`

	LogFile        string `yaml:"log_file"`
	LogLevel       string `yaml:"log_level" validate:"oneof=trace debug info warn error"`
	MetricsEnabled bool   `yaml:"metrics_enabled"`
}

func defaults() AppConfig {
	return AppConfig{
		ServerAddr:        ":8080",
		EditorAddr:        ":8081",
		BackendURL:        "http://localhost:8080",
		JWTSecret:         "supersecret",
		MapboxBaseURL:     "https://api.mapbox.com",
		RequestTimeout:    10 * time.Second,
		DefaultRouteColor: "#3b82f6",
		LogLevel:          "info",
		MetricsEnabled:    true,
	}
}

// Load builds the configuration from defaults, an optional YAML file named by
// CONFIG_FILE and the environment (a .env file is read first if present),
// in that order of precedence, and validates the result.
func Load() (*AppConfig, error) {
	_ = godotenv.Load()

	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func applyEnv(cfg *AppConfig) error {
	setString(&cfg.ServerAddr, "SERVER_ADDR")
	setString(&cfg.EditorAddr, "EDITOR_ADDR")
	setString(&cfg.BackendURL, "BACKEND_URL")
	setString(&cfg.EditorEmail, "EDITOR_EMAIL")
	setString(&cfg.EditorPassword, "EDITOR_PASSWORD")
	setString(&cfg.JWTSecret, "JWT_SECRET")
	setString(&cfg.MapboxToken, "MAPBOX_TOKEN")
	setString(&cfg.MapboxBaseURL, "MAPBOX_BASE_URL")
	setString(&cfg.DefaultRouteColor, "DEFAULT_ROUTE_COLOR")
	setString(&cfg.LogFile, "LOG_FILE")
	setString(&cfg.LogLevel, "LOG_LEVEL")

	if v := os.Getenv("REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid REQUEST_TIMEOUT: %q", v)
		}
		cfg.RequestTimeout = d
	}
	if v := os.Getenv("METRICS_ENABLED"); v != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid METRICS_ENABLED: %q", v)
		}
		cfg.MetricsEnabled = b
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

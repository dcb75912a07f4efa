package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port           string        `mapstructure:"PORT"`
	Environment    string        `mapstructure:"ENVIRONMENT"`
	APIURL         string        `mapstructure:"API_URL"`
	APITimeout     time.Duration `mapstructure:"API_TIMEOUT"`
	RedisURL       string        `mapstructure:"REDIS_URL"`
	SessionSecret  string        `mapstructure:"SESSION_SECRET"`
	SecureCookies  bool          `mapstructure:"SECURE_COOKIES"`
	SearchDebounce time.Duration `mapstructure:"SEARCH_DEBOUNCE"`
	CatalogTTL     time.Duration `mapstructure:"CATALOG_TTL"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`
	LogFormat      string        `mapstructure:"LOG_FORMAT"`
}

var defaults = map[string]interface{}{
	"PORT":            "3000",
	"ENVIRONMENT":     "development",
	"API_URL":         "http://localhost:4000",
	"API_TIMEOUT":     "10s",
	"REDIS_URL":       "",
	"SESSION_SECRET":  "",
	"SECURE_COOKIES":  false,
	"SEARCH_DEBOUNCE": "300ms",
	"CATALOG_TTL":     "5m",
	"LOG_LEVEL":       "info",
	"LOG_FORMAT":      "text",
}

// devSecret is only accepted when ENVIRONMENT is development.
const devSecret = "rids-dashboard-development-secret"

// LoadConfig reads an optional .env file from path, then the process
// environment. Environment variables win over the file.
func LoadConfig(path string) (*Config, error) {
	envFile := strings.TrimRight(path, "/") + "/.env"
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")

	if cfg.SessionSecret == "" {
		if !cfg.IsDevelopment() {
			return nil, errors.New("SESSION_SECRET is required outside development")
		}
		cfg.SessionSecret = devSecret
	}
	if cfg.APIURL == "" {
		return nil, errors.New("API_URL is empty")
	}
	return &cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, "development")
}

func (c *Config) Addr() string {
	return ":" + c.Port
}

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App     AppConfig
	API     APIConfig
	Store   StoreConfig
	Catalog CatalogConfig
	Metrics MetricsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.API.validateBaseURL(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SHOPFRONT_APP_ENV" default:"dev"`
	LogLevel     string `envconfig:"SHOPFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SHOPFRONT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type APIConfig struct {
	BaseURL   string        `envconfig:"SHOPFRONT_API_BASE_URL" required:"true"`
	Timeout   time.Duration `envconfig:"SHOPFRONT_API_TIMEOUT" default:"30s"`
	LoginPath string        `envconfig:"SHOPFRONT_LOGIN_PATH" default:"/login"`
	Tracing   bool          `envconfig:"SHOPFRONT_API_TRACING" default:"false"`
}

type StoreConfig struct {
	Path string `envconfig:"SHOPFRONT_CREDENTIALS_PATH" default:"shopfront.db"`
}

type CatalogConfig struct {
	PageSize int `envconfig:"SHOPFRONT_CATALOG_PAGE_SIZE" default:"20"`
}

type MetricsConfig struct {
	Enabled bool `envconfig:"SHOPFRONT_METRICS_ENABLED" default:"false"`
}

func (a *APIConfig) validateBaseURL() error {
	trimmed := strings.TrimRight(strings.TrimSpace(a.BaseURL), "/")
	if trimmed == "" {
		return fmt.Errorf("%s is required", EnvAPIBaseURL)
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", EnvAPIBaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) URL", EnvAPIBaseURL)
	}
	a.BaseURL = trimmed
	return nil
}

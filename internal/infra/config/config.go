package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yanqian/weather-screen/internal/domain/preferences"
)

// Storage drivers understood by the preference store.
const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StorageValkey   = "valkey"
	StoragePostgres = "postgres"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Weather WeatherConfig `yaml:"weather"`
	Screen  ScreenConfig  `yaml:"screen"`
	Storage StorageConfig `yaml:"storage"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address         string          `yaml:"address"`
	ReadTimeout     time.Duration   `yaml:"readTimeout"`
	WriteTimeout    time.Duration   `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration   `yaml:"shutdownTimeout"`
	RateLimit       RateLimitConfig `yaml:"rateLimit"`
	CORS            CORSConfig      `yaml:"cors"`
}

// RateLimitConfig drives the request limiting middleware. The upstream pair
// caps the raw proxy routes across all clients; zero disables that cap.
type RateLimitConfig struct {
	Enabled                   bool `yaml:"enabled"`
	RequestsPerMinute         int  `yaml:"requestsPerMinute"`
	Burst                     int  `yaml:"burst"`
	UpstreamRequestsPerMinute int  `yaml:"upstreamRequestsPerMinute"`
	UpstreamBurst             int  `yaml:"upstreamBurst"`
}

// CORSConfig lists the origins allowed to call the API. Empty means any.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

// WeatherConfig holds the weatherapi.com settings.
type WeatherConfig struct {
	APIKey  string        `yaml:"apiKey"`
	BaseURL string        `yaml:"baseUrl"`
	Timeout time.Duration `yaml:"timeout"`
}

// ScreenConfig tunes the search screen.
type ScreenConfig struct {
	DefaultCity    string        `yaml:"defaultCity"`
	ForecastDays   int           `yaml:"forecastDays"`
	MinQueryLength int           `yaml:"minQueryLength"`
	Debounce       time.Duration `yaml:"debounce"`
	CityKey        string        `yaml:"cityKey"`
}

// StorageConfig selects where the last viewed city is kept.
type StorageConfig struct {
	Driver   string         `yaml:"driver"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Valkey   ValkeyConfig   `yaml:"valkey"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig points at the local database file.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// ValkeyConfig contains connection information for the valkey backend.
type ValkeyConfig struct {
	Addr      string `yaml:"addr"`
	KeyPrefix string `yaml:"keyPrefix"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// Load reads configuration from a YAML file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_ENABLED"); v != "" {
		cfg.HTTP.RateLimit.Enabled = parseBool(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_RPM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.RequestsPerMinute = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_BURST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.Burst = parsed
		}
	}
	if v := os.Getenv("HTTP_UPSTREAM_RATE_LIMIT_RPM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.UpstreamRequestsPerMinute = parsed
		}
	}
	if v := os.Getenv("HTTP_CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.CORS.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("WEATHER_API_KEY"); v != "" {
		cfg.Weather.APIKey = v
	}
	if v := os.Getenv("WEATHER_BASE_URL"); v != "" {
		cfg.Weather.BaseURL = v
	}
	if v := os.Getenv("WEATHER_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Weather.Timeout = parsed
		}
	}
	if v := os.Getenv("SCREEN_DEFAULT_CITY"); v != "" {
		cfg.Screen.DefaultCity = v
	}
	if v := os.Getenv("SCREEN_FORECAST_DAYS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Screen.ForecastDays = parsed
		}
	}
	if v := os.Getenv("SCREEN_DEBOUNCE"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Screen.Debounce = parsed
		}
	}
	if v := os.Getenv("STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("STORAGE_SQLITE_PATH"); v != "" {
		cfg.Storage.SQLite.Path = v
	}
	if v := os.Getenv("STORAGE_VALKEY_ADDR"); v != "" {
		cfg.Storage.Valkey.Addr = v
	}
	if v := os.Getenv("STORAGE_POSTGRES_DSN"); v != "" {
		cfg.Storage.Postgres.DSN = v
	}
	if v := os.Getenv("STORAGE_POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Storage.Postgres.MaxConns = int32(parsed)
		}
	}
	if v := os.Getenv("STORAGE_POSTGRES_MIN_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Storage.Postgres.MinConns = int32(parsed)
		}
	}
}

func parseBool(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:         ":8080",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:                   true,
				RequestsPerMinute:         120,
				Burst:                     30,
				UpstreamRequestsPerMinute: 60,
				UpstreamBurst:             10,
			},
		},
		Weather: WeatherConfig{
			BaseURL: "https://api.weatherapi.com/v1",
			Timeout: 10 * time.Second,
		},
		Screen: ScreenConfig{
			DefaultCity:    "Mumbai",
			ForecastDays:   7,
			MinQueryLength: 3,
			Debounce:       600 * time.Millisecond,
			CityKey:        preferences.KeyCity,
		},
		Storage: StorageConfig{
			Driver: StorageSQLite,
			SQLite: SQLiteConfig{
				Path: "data/preferences.db",
			},
			Valkey: ValkeyConfig{
				KeyPrefix: "weather-screen",
			},
			Postgres: PostgresConfig{
				MaxConns: 4,
				MinConns: 0,
			},
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
		if c.HTTP.RateLimit.UpstreamRequestsPerMinute < 0 {
			return errors.New("http.rateLimit.upstreamRequestsPerMinute cannot be negative")
		}
		if c.HTTP.RateLimit.UpstreamRequestsPerMinute > 0 && c.HTTP.RateLimit.UpstreamBurst <= 0 {
			return errors.New("http.rateLimit.upstreamBurst must be positive when the upstream cap is set")
		}
	}
	if strings.TrimSpace(c.Weather.BaseURL) == "" {
		return errors.New("weather.baseUrl cannot be empty")
	}
	if c.Weather.Timeout <= 0 {
		return errors.New("weather.timeout must be positive")
	}
	if strings.TrimSpace(c.Screen.DefaultCity) == "" {
		return errors.New("screen.defaultCity cannot be empty")
	}
	if c.Screen.ForecastDays <= 0 {
		return errors.New("screen.forecastDays must be positive")
	}
	if c.Screen.MinQueryLength <= 0 {
		return errors.New("screen.minQueryLength must be positive")
	}
	if c.Screen.Debounce <= 0 {
		return errors.New("screen.debounce must be positive")
	}
	if strings.TrimSpace(c.Screen.CityKey) == "" {
		return errors.New("screen.cityKey cannot be empty")
	}
	switch c.Storage.Driver {
	case StorageMemory:
	case StorageSQLite:
		if strings.TrimSpace(c.Storage.SQLite.Path) == "" {
			return errors.New("storage.sqlite.path cannot be empty when the sqlite driver is selected")
		}
	case StorageValkey:
		if strings.TrimSpace(c.Storage.Valkey.Addr) == "" {
			return errors.New("storage.valkey.addr cannot be empty when the valkey driver is selected")
		}
	case StoragePostgres:
		if strings.TrimSpace(c.Storage.Postgres.DSN) == "" {
			return errors.New("storage.postgres.dsn cannot be empty when the postgres driver is selected")
		}
		if c.Storage.Postgres.MinConns < 0 || c.Storage.Postgres.MaxConns < c.Storage.Postgres.MinConns {
			return errors.New("storage.postgres pool sizes are inconsistent")
		}
	default:
		return fmt.Errorf("storage.driver %q is not supported", c.Storage.Driver)
	}
	return nil
}

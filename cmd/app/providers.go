package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/weather-screen/internal/domain/preferences"
	"github.com/yanqian/weather-screen/internal/domain/screen"
	"github.com/yanqian/weather-screen/internal/infra/config"
	"github.com/yanqian/weather-screen/internal/infra/prefstore"
	"github.com/yanqian/weather-screen/internal/infra/weatherapi"
	"github.com/yanqian/weather-screen/pkg/metrics"
)

func provideScreenConfig(cfg *config.Config) screen.Config {
	return screen.Config{
		DefaultCity:    cfg.Screen.DefaultCity,
		ForecastDays:   cfg.Screen.ForecastDays,
		MinQueryLength: cfg.Screen.MinQueryLength,
		Debounce:       cfg.Screen.Debounce,
		CityKey:        cfg.Screen.CityKey,
	}
}

func provideUpstreamMetrics(reg *prometheus.Registry) *metrics.Upstream {
	return metrics.NewUpstream(reg)
}

func provideWeatherClient(cfg *config.Config, upstream *metrics.Upstream, logger *slog.Logger) *weatherapi.Client {
	if strings.TrimSpace(cfg.Weather.APIKey) == "" {
		logger.Warn("WEATHER_API_KEY is not set, upstream calls will be rejected")
	}
	return weatherapi.NewClient(weatherapi.Options{
		APIKey:  cfg.Weather.APIKey,
		BaseURL: cfg.Weather.BaseURL,
		Timeout: cfg.Weather.Timeout,
	}, upstream, logger)
}

// providePreferenceStore opens the configured backend. Any failure degrades to
// process memory so the screen still works, just without durable history.
func providePreferenceStore(cfg *config.Config, logger *slog.Logger) (preferences.Store, func()) {
	fallback := func(msg string, err error) (preferences.Store, func()) {
		logger.Error(msg+", using memory preference store", "driver", cfg.Storage.Driver, "error", err)
		return prefstore.NewMemoryStore(), func() {}
	}

	switch cfg.Storage.Driver {
	case config.StorageSQLite:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		store, err := prefstore.OpenSQLite(ctx, cfg.Storage.SQLite.Path)
		if err != nil {
			return fallback("failed to open sqlite", err)
		}
		logger.Info("sqlite preference store enabled", "path", cfg.Storage.SQLite.Path)
		return store, closer(store.Close, logger)

	case config.StorageValkey:
		opt, err := buildValkeyOptions(cfg)
		if err != nil {
			return fallback("invalid valkey configuration", err)
		}
		client, err := valkey.NewClient(opt)
		if err != nil {
			return fallback("failed to create valkey client", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
			client.Close()
			return fallback("valkey ping failed", err)
		}
		logger.Info("valkey preference store enabled", "addr", cfg.Storage.Valkey.Addr)
		store := prefstore.NewValkeyStore(client, cfg.Storage.Valkey.KeyPrefix)
		return store, closer(store.Close, logger)

	case config.StoragePostgres:
		pool, err := openPostgresPool(cfg)
		if err != nil {
			return fallback("postgres unavailable", err)
		}
		store := prefstore.NewPostgresStore(pool)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return fallback("failed to apply postgres schema", err)
		}
		logger.Info("postgres preference store enabled")
		return store, closer(store.Close, logger)
	}

	logger.Info("memory preference store enabled")
	return prefstore.NewMemoryStore(), func() {}
}

func openPostgresPool(cfg *config.Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(strings.TrimSpace(cfg.Storage.Postgres.DSN))
	if err != nil {
		return nil, err
	}
	if cfg.Storage.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Storage.Postgres.MaxConns
	}
	if cfg.Storage.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Storage.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func buildValkeyOptions(cfg *config.Config) (valkey.ClientOption, error) {
	var (
		opt valkey.ClientOption
		err error
	)
	if strings.Contains(cfg.Storage.Valkey.Addr, "://") {
		opt, err = valkey.ParseURL(cfg.Storage.Valkey.Addr)
	} else {
		opt = valkey.ClientOption{InitAddress: []string{cfg.Storage.Valkey.Addr}}
	}
	if err != nil {
		return valkey.ClientOption{}, err
	}
	return opt, nil
}

func closer(closeFn func() error, logger *slog.Logger) func() {
	return func() {
		if err := closeFn(); err != nil {
			logger.Error("failed to close preference store", "error", err)
		}
	}
}

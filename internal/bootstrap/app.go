package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/yanqian/weather-screen/internal/infra/config"
)

// Runner is a long-lived component that stops when its context is done.
type Runner interface {
	Run(ctx context.Context) error
}

// App encapsulates the HTTP server and screen lifecycle.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
	server *http.Server
	screen Runner
}

// NewApp is used by Wire to build the runnable app.
func NewApp(cfg *config.Config, logger *slog.Logger, server *http.Server, screen Runner) *App {
	return &App{cfg: cfg, logger: logger.With("component", "bootstrap"), server: server, screen: screen}
}

// Run starts the screen and the HTTP server and blocks until ctx is done or
// either of them fails.
func (a *App) Run(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return a.screen.Run(ctx)
	})

	group.Go(func() error {
		a.logger.Info("http server starting", "address", a.cfg.HTTP.Address)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-ctx.Done()
		a.logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

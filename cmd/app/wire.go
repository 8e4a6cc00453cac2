//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/weather-screen/internal/bootstrap"
	"github.com/yanqian/weather-screen/internal/domain/preferences"
	"github.com/yanqian/weather-screen/internal/domain/screen"
	"github.com/yanqian/weather-screen/internal/domain/weather"
	"github.com/yanqian/weather-screen/internal/infra/config"
	"github.com/yanqian/weather-screen/internal/infra/weatherapi"
	httpiface "github.com/yanqian/weather-screen/internal/interface/http"
	"github.com/yanqian/weather-screen/pkg/logger"
	"github.com/yanqian/weather-screen/pkg/metrics"
	"github.com/yanqian/weather-screen/pkg/util"
)

func initializeApp() (*bootstrap.App, func(), error) {
	wire.Build(
		config.Load,
		logger.New,
		metrics.NewRegistry,
		util.NewSystemClock,
		provideScreenConfig,
		provideUpstreamMetrics,
		provideWeatherClient,
		providePreferenceStore,
		preferences.NewAdapter,
		screen.NewOrchestrator,
		wire.Bind(new(weather.Client), new(*weatherapi.Client)),
		wire.Bind(new(screen.Preferences), new(*preferences.Adapter)),
		wire.Bind(new(httpiface.ScreenService), new(*screen.Orchestrator)),
		wire.Bind(new(bootstrap.Runner), new(*screen.Orchestrator)),
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil, nil
}

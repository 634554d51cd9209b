//go:build wireinject

package app

import (
	"github.com/amaumene/listarr/internal/api"
	"github.com/amaumene/listarr/internal/api/handlers"
	"github.com/amaumene/listarr/internal/config"
	"github.com/amaumene/listarr/internal/controllers"
	"github.com/amaumene/listarr/internal/metrics"
	"github.com/amaumene/listarr/internal/models"
	"github.com/amaumene/listarr/internal/scheduler"
	"github.com/amaumene/listarr/internal/services/anilist"
	"github.com/amaumene/listarr/internal/services/animap"
	"github.com/amaumene/listarr/internal/services/provider"
	"github.com/amaumene/listarr/internal/services/seerr"
	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"
)

var storeSet = wire.NewSet(
	provideDatabase,
	wire.Bind(new(controllers.ListStore), new(*models.Database)),
	wire.Bind(new(controllers.ExecutionStore), new(*models.Database)),
	wire.Bind(new(controllers.DestinationStore), new(*models.Database)),
	wire.Bind(new(controllers.SettingsStore), new(*models.Database)),
	wire.Bind(new(provider.ConfigStore), new(*models.Database)),
	wire.Bind(new(scheduler.SettingsReader), new(*models.Database)),
	wire.Bind(new(handlers.Pinger), new(*models.Database)),
)

var observabilitySet = wire.NewSet(
	provideLogger,
	provideTracer,
	provideRegistry,
	metrics.NewCollector,
	wire.Bind(new(prometheus.Registerer), new(*prometheus.Registry)),
	wire.Bind(new(prometheus.Gatherer), new(*prometheus.Registry)),
	wire.Bind(new(metrics.Recorder), new(*metrics.Collector)),
)

var serviceSet = wire.NewSet(
	provideHTTPClient,
	provideTranslator,
	wire.Bind(new(anilist.IDTranslator), new(*animap.Translator)),
	seerr.NewClient,
	wire.Bind(new(controllers.StatusLookup), new(*seerr.Client)),
	wire.Bind(new(controllers.RequestSubmitter), new(*seerr.Client)),
	wire.Bind(new(controllers.PendingCounter), new(*seerr.Client)),
	provider.NewFactory,
	wire.Bind(new(controllers.FetcherResolver), new(*provider.Factory)),
)

var controllerSet = wire.NewSet(
	provideAvailabilityChecker,
	controllers.NewOrchestrator,
	controllers.NewExecutionRecorder,
	controllers.NewProcessController,
	controllers.NewListController,
	controllers.NewDashboardController,
	controllers.NewSettingsController,
	provideScheduler,
	wire.Bind(new(controllers.ScheduleReloader), new(*scheduler.Scheduler)),
)

var httpSet = wire.NewSet(
	handlers.NewHealthHandler,
	handlers.NewStatusHandler,
	handlers.NewListHandler,
	handlers.NewSettingsHandler,
	wire.Bind(new(handlers.Processor), new(*controllers.ProcessController)),
	wire.Bind(new(handlers.ListManager), new(*controllers.ListController)),
	wire.Bind(new(handlers.PendingReader), new(*controllers.DashboardController)),
	wire.Bind(new(handlers.Schedule), new(*scheduler.Scheduler)),
	wire.Bind(new(handlers.SettingsReader), new(*controllers.SettingsController)),
	wire.Bind(new(handlers.SettingsUpdater), new(*controllers.SettingsController)),
	wire.Struct(new(api.Handlers), "*"),
	api.NewServer,
)

// Initialize builds the application from cfg. The cleanup func stops the
// scheduler, flushes traces and closes the database.
func Initialize(cfg *config.Config) (*App, func(), error) {
	wire.Build(
		storeSet,
		observabilitySet,
		serviceSet,
		controllerSet,
		httpSet,
		wire.Struct(new(App), "*"),
	)
	return nil, nil, nil
}

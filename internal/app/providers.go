package app

import (
	"context"
	"net/http"

	"github.com/amaumene/listarr/internal/config"
	"github.com/amaumene/listarr/internal/controllers"
	"github.com/amaumene/listarr/internal/metrics"
	"github.com/amaumene/listarr/internal/models"
	"github.com/amaumene/listarr/internal/scheduler"
	"github.com/amaumene/listarr/internal/services/animap"
	"github.com/amaumene/listarr/internal/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

func provideLogger(cfg *config.Config) zerolog.Logger {
	return utils.NewLogger(cfg.LogLevel, cfg.LogFormat)
}

func provideDatabase(cfg *config.Config, logger zerolog.Logger) (*models.Database, func(), error) {
	db, err := models.NewDatabase(cfg.DatabaseFile)
	if err != nil {
		return nil, nil, err
	}
	logger.Info().Str("path", cfg.DatabaseFile).Msg("Database initialized")
	cleanup := func() {
		if err := db.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close database")
		}
	}
	return db, cleanup, nil
}

func provideTracer(cfg *config.Config, logger zerolog.Logger) (trace.Tracer, func()) {
	tp, shutdown := utils.NewTracerProvider(cfg.TracingEnabled)
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("Failed to flush traces")
		}
	}
	return utils.Tracer(tp), cleanup
}

func provideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func provideHTTPClient(cfg *config.Config) *http.Client {
	return &http.Client{Timeout: cfg.HTTPTimeout}
}

func provideTranslator(cfg *config.Config, httpClient *http.Client, logger zerolog.Logger) *animap.Translator {
	return animap.NewTranslator(cfg.AnimeMappingURL, cfg.AnimeMappingTTL, httpClient, logger)
}

func provideAvailabilityChecker(cfg *config.Config, lookup controllers.StatusLookup, recorder metrics.Recorder, tracer trace.Tracer, logger zerolog.Logger) *controllers.AvailabilityChecker {
	return controllers.NewAvailabilityChecker(lookup, cfg.AvailabilityConcurrency, cfg.AvailabilityBatchSize, recorder, tracer, logger)
}

func provideScheduler(cfg *config.Config, settings scheduler.SettingsReader, process *controllers.ProcessController, recorder metrics.Recorder, logger zerolog.Logger) (*scheduler.Scheduler, func()) {
	run := func(ctx context.Context) error {
		_, err := process.ProcessScheduled(ctx)
		return err
	}
	s := scheduler.New(settings, run, cfg.DefaultTimezone, recorder, logger)
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := s.Close(ctx); err != nil {
			logger.Warn().Err(err).Msg("Scheduler stop timed out")
		}
	}
	return s, cleanup
}

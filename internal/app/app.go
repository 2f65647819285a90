package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bedpulse/internal/config"
	"bedpulse/internal/dataprocessing"
	apierrors "bedpulse/internal/errors"
	"bedpulse/internal/infrastructure"
	"bedpulse/internal/middleware"
	"bedpulse/internal/services"
	"bedpulse/internal/store"
	handlers "bedpulse/internal/transport/http"
)

// Application wires configuration, telemetry, the housing service and the
// HTTP server into one runnable unit.
type Application struct {
	Config         *config.Config
	Router         *chi.Mux
	Server         *http.Server
	HousingService *services.HousingService
	Logger         *slog.Logger
	OTelProviders  *infrastructure.OTelProviders
}

// NewApplication creates a fully wired application instance.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("application starting",
		slog.String("service", infrastructure.ServiceName),
		slog.String("version", infrastructure.ServiceVersion))

	otelProviders, err := infrastructure.InitializeOTel(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
	}

	app.initializeServices()
	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices builds the parsing, aggregation and persistence
// stack behind the housing service.
func (a *Application) initializeServices() {
	parser := dataprocessing.NewParser(a.Logger, a.Config.DST.Rule())
	aggregator := dataprocessing.NewAggregator(a.Logger)
	historyStore := store.New(a.Config.Paths.HistoryPath(), a.Logger)

	a.HousingService = services.NewHousingService(parser, aggregator, historyStore, a.Logger)
}

// setupRouter configures the HTTP router and all routes.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.StructuredLogger(a.Logger))

	errorHandler := apierrors.NewErrorHandler(a.Logger)
	housingHandler := handlers.NewHousingHandler(
		a.HousingService,
		a.Logger,
		errorHandler,
		a.Config.Ingest.MaxBodyBytes,
	)
	healthHandler := handlers.NewHealthHandler(a.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Mount("/health", healthHandler.Routes())

		// Uploads are rate limited so a misconfigured scheduler cannot
		// flood ingestion; reads are not.
		r.With(middleware.RateLimit(
			a.Config.Ingest.RateLimitRPS,
			a.Config.Ingest.RateBurst,
		)).Mount("/housing", housingHandler.Routes())
	})

	// Prometheus scrape endpoint, outside the API middleware.
	r.Handle("/metrics", promhttp.Handler())

	a.Router = r
}

// createServer creates the HTTP server.
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Start launches the HTTP listener. Listener failures cancel the run
// context rather than exiting the process.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) {
	a.Logger.InfoContext(ctx, "server listening",
		slog.Int("port", a.Config.Server.Port),
		slog.String("history", a.Config.Paths.HistoryPath()))

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
			cancel()
		}
	}()
}

// Stop gracefully shuts down the server and telemetry providers.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "telemetry shutdown error", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "shutdown complete")
	return nil
}

// Run runs the application until interrupted.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	a.Start(ctx, cancel)

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "received interrupt signal")
	case <-ctx.Done():
	}

	return a.Stop(context.Background())
}

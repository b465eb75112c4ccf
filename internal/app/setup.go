// Package app wires the inventory service together.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/abgdnv/inventory/internal/config"
	"github.com/abgdnv/inventory/internal/service"
	"github.com/abgdnv/inventory/internal/store"
	"github.com/abgdnv/inventory/internal/store/filedb"
	"github.com/abgdnv/inventory/internal/store/pgdb"
	"github.com/abgdnv/inventory/internal/store/sqlitedb"
	grpcImpl "github.com/abgdnv/inventory/internal/transport/grpc"
	"github.com/abgdnv/inventory/internal/transport/rest"
	"github.com/abgdnv/inventory/pkg/bootstrap"
	pkgconfig "github.com/abgdnv/inventory/pkg/config"
	"github.com/abgdnv/inventory/pkg/messaging"
	"github.com/abgdnv/inventory/pkg/messaging/events"
	"github.com/abgdnv/inventory/pkg/nats"
	"github.com/abgdnv/inventory/pkg/server"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
)

type Dependencies struct {
	ProductService service.ProductService
	Health         *grpcImpl.HealthServer
	Logger         *slog.Logger
	// Registry, when set, is served on the metrics path.
	Registry *prometheus.Registry
}

func SetupDependencies(st store.ProductStore, publisher messaging.Publisher, logger *slog.Logger) *Dependencies {
	pService := service.NewService(st, publisher, logger.With("component", "service"))

	return &Dependencies{
		ProductService: pService,
		Health:         grpcImpl.NewHealthServer(pService, logger),
		Logger:         logger,
	}
}

// NewMetricsRegistry returns a registry with the Go runtime and process collectors.
func NewMetricsRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// OpenBackend builds the document backend selected by cfg.Driver.
func OpenBackend(ctx context.Context, cfg pkgconfig.StorageConfig, logger *slog.Logger) (store.Backend, error) {
	switch cfg.Driver {
	case pkgconfig.StorageDriverFile:
		return filedb.New(cfg.File.Path, logger.With("component", "filedb"))
	case pkgconfig.StorageDriverSQLite:
		return sqlitedb.New(ctx, cfg.SQLite.Path)
	case pkgconfig.StorageDriverPostgres:
		if err := pgdb.Migrate(cfg.Postgres.URL, logger.With("component", "migrate")); err != nil {
			return nil, err
		}
		pool, err := bootstrap.NewDbPool(ctx, cfg.Postgres.URL, cfg.Postgres.Timeout)
		if err != nil {
			return nil, err
		}
		return pgdb.New(pool), nil
	default:
		return nil, fmt.Errorf("unknown storage driver: %q", cfg.Driver)
	}
}

// SetupPublisher connects to NATS and returns a circuit-breaking JetStream publisher,
// or a no-op publisher when NATS is disabled. The returned func closes the connection.
func SetupPublisher(ctx context.Context, cfg *config.Config, logger *slog.Logger) (messaging.Publisher, func(), error) {
	if !cfg.NATS.Enabled {
		logger.Info("NATS disabled, change events will not be published")
		return messaging.NoopPublisher{}, func() {}, nil
	}
	nc, err := nats.NewClient(cfg.NATS.Url, cfg.NATS.Timeout)
	if err != nil {
		return nil, nil, err
	}
	js, err := nats.NewJetStreamContext(nc)
	if err != nil {
		nc.Close()
		return nil, nil, err
	}
	if err := nats.EnsureStream(ctx, js, cfg.NATS.Stream, events.SubjectsWildcard); err != nil {
		nc.Close()
		return nil, nil, err
	}
	logger.Info("Connected to NATS", "url", cfg.NATS.Url, "stream", cfg.NATS.Stream)
	publisher := nats.NewBreakerPublisher(nats.NewNatsPublisher(js), cfg.CircuitBreaker)
	return publisher, func() { _ = nc.Drain() }, nil
}

// SetupHttpHandler builds the router with the inventory API routes and, if configured, the metrics endpoint.
// Used by E2E tests to set up the HTTP server with the necessary routes and middleware.
func SetupHttpHandler(deps *Dependencies, metricsPath string) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps, metricsPath)
	return mux
}

func wireRoutes(mux *chi.Mux, deps *Dependencies, metricsPath string) {
	productHandler := rest.NewHandler(deps.ProductService, deps.Logger)
	productHandler.RegisterRoutes(mux)
	if deps.Registry != nil && metricsPath != "" {
		mux.Method(http.MethodGet, metricsPath, promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}
}

// SetupHttpServer creates and configures the HTTP server.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	metricsPath := ""
	if cfg.Telemetry.Metrics.Enabled {
		metricsPath = cfg.Telemetry.Metrics.Path
	}
	handler := SetupHttpHandler(deps, metricsPath)
	if cfg.Telemetry.Traces.Enabled {
		handler = server.WithTracing(handler, "inventory-http")
	}

	httpCfg := server.HTTPConfig{
		Port:           cfg.HTTPServer.Port,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		ReadTimeout:    cfg.HTTPServer.Timeout.Read,
		WriteTimeout:   cfg.HTTPServer.Timeout.Write,
		IdleTimeout:    cfg.HTTPServer.Timeout.Idle,
		ReadHeader:     cfg.HTTPServer.Timeout.ReadHeader,
	}

	return server.NewHTTPServer(httpCfg, handler)
}

// SetupGrpcServer initializes the gRPC server exposing the health service.
func SetupGrpcServer(deps *Dependencies, reflectionEnabled bool) *grpc.Server {
	return server.NewGRPCServer(deps.Logger, reflectionEnabled, deps.Health.Register)
}

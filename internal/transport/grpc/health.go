// Package grpc exposes the inventory health over the standard gRPC health protocol.
package grpc

import (
	"context"
	"log/slog"

	"github.com/abgdnv/inventory/internal/store"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health-checked service name.
const ServiceName = "inventory.v1.Inventory"

// HealthReporter is the part of the inventory service the health server needs.
type HealthReporter interface {
	Health(ctx context.Context) store.Health
}

// HealthServer tracks the serving status of the inventory service.
type HealthServer struct {
	srv      *health.Server
	reporter HealthReporter
	logger   *slog.Logger
}

// NewHealthServer creates a health server. Status is NOT_SERVING until MarkServing is called.
func NewHealthServer(reporter HealthReporter, logger *slog.Logger) *HealthServer {
	h := &HealthServer{
		srv:      health.NewServer(),
		reporter: reporter,
		logger:   logger.With("component", "grpc-health"),
	}
	h.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

// Register registers the health service on s.
func (h *HealthServer) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.srv)
}

// MarkServing reports SERVING, logging the store snapshot it is based on.
func (h *HealthServer) MarkServing(ctx context.Context) {
	snap := h.reporter.Health(ctx)
	h.logger.InfoContext(ctx, "inventory serving",
		"product_count", snap.ProductCount,
		"next_id", snap.NextID,
		"reseeded_products", snap.ReseededProducts,
		"next_id_repaired", snap.NextIDRepaired)
	h.set(healthpb.HealthCheckResponse_SERVING)
}

// Shutdown reports NOT_SERVING and ignores later updates.
func (h *HealthServer) Shutdown() {
	h.srv.Shutdown()
}

func (h *HealthServer) set(status healthpb.HealthCheckResponse_ServingStatus) {
	h.srv.SetServingStatus("", status)
	h.srv.SetServingStatus(ServiceName, status)
}

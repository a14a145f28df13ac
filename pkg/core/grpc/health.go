// ============================================================================
// lendbot - Community Lending Bot
// ============================================================================
//
// Package:     grpc
// Description: Publishes health registry reports on the gRPC health service
// Author:      Mike Stoffels
// Created:     2025-12-06
// License:     MIT
// ============================================================================

package grpc

import (
	"context"
	"time"

	"github.com/msto63/lendbot/pkg/core/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServingStatus maps a health status onto the gRPC health protocol.
// Degraded components still serve.
func ServingStatus(s health.Status) healthpb.HealthCheckResponse_ServingStatus {
	switch s {
	case health.StatusHealthy, health.StatusDegraded:
		return healthpb.HealthCheckResponse_SERVING
	case health.StatusUnhealthy:
		return healthpb.HealthCheckResponse_NOT_SERVING
	default:
		return healthpb.HealthCheckResponse_UNKNOWN
	}
}

// PublishHealth sets the serving status of the whole server (""), of the
// report's service and of every check as "<service>/<check>"
func (s *Server) PublishHealth(report *health.Report) {
	overall := ServingStatus(report.Status)
	s.health.SetServingStatus("", overall)
	s.health.SetServingStatus(report.Service, overall)

	for _, check := range report.Checks {
		s.health.SetServingStatus(report.Service+"/"+check.Name, ServingStatus(check.Status))
	}
}

// WatchHealth checks the registry every interval and publishes the result
// until ctx is cancelled
func (s *Server) WatchHealth(ctx context.Context, registry *health.Registry, interval time.Duration) {
	publish := func() {
		checkCtx, cancel := context.WithTimeout(ctx, interval)
		defer cancel()

		report := registry.Check(checkCtx)
		s.PublishHealth(report)
		currentLogger().Debug("health published", "status", string(report.Status), "checks", len(report.Checks))
	}

	publish()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			publish()
		}
	}
}

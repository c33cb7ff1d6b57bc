// Package healthserver publishes the grpc.health.v1 protocol for frontdesk
// and its dependencies.
package healthserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	// OverallService is the empty service name health clients use for the whole process.
	OverallService       = ""
	defaultRefreshPeriod = 10 * time.Second
	defaultProbeTimeout  = 2 * time.Second
)

var ErrInvalidProbe = errors.New("invalid probe")

// Probe reports whether a dependency is usable.
type Probe struct {
	Service string
	Check   func(ctx context.Context) error
}

// Server serves health status computed from probes.
type Server struct {
	logger        *zap.Logger
	health        *health.Server
	grpcServer    *grpc.Server
	probes        []Probe
	refreshPeriod time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for probe failures.
func WithLogger(logger *zap.Logger) Option {
	return func(server *Server) {
		if logger != nil {
			server.logger = logger
		}
	}
}

// WithRefreshPeriod sets how often probes run while serving.
func WithRefreshPeriod(period time.Duration) Option {
	return func(server *Server) {
		if period > 0 {
			server.refreshPeriod = period
		}
	}
}

// New registers the health service on a fresh gRPC server.
func New(probes []Probe, options ...Option) (*Server, error) {
	for _, probe := range probes {
		if probe.Service == OverallService || probe.Check == nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidProbe, probe.Service)
		}
	}
	server := &Server{
		logger:        zap.NewNop(),
		health:        health.NewServer(),
		grpcServer:    grpc.NewServer(),
		probes:        append([]Probe(nil), probes...),
		refreshPeriod: defaultRefreshPeriod,
	}
	for _, option := range options {
		option(server)
	}
	healthpb.RegisterHealthServer(server.grpcServer, server.health)
	server.health.SetServingStatus(OverallService, healthpb.HealthCheckResponse_NOT_SERVING)
	return server, nil
}

// Refresh runs every probe and publishes the result. The overall status is
// SERVING only when every probe passes.
func (server *Server) Refresh(ctx context.Context) bool {
	healthy := true
	for _, probe := range server.probes {
		probeCtx, cancel := context.WithTimeout(ctx, defaultProbeTimeout)
		err := probe.Check(probeCtx)
		cancel()
		status := healthpb.HealthCheckResponse_SERVING
		if err != nil {
			healthy = false
			status = healthpb.HealthCheckResponse_NOT_SERVING
			server.logger.Warn("health probe failed", zap.String("service", probe.Service), zap.Error(err))
		}
		server.health.SetServingStatus(probe.Service, status)
	}
	overall := healthpb.HealthCheckResponse_NOT_SERVING
	if healthy {
		overall = healthpb.HealthCheckResponse_SERVING
	}
	server.health.SetServingStatus(OverallService, overall)
	return healthy
}

// Serve answers health checks on listener until ctx is cancelled.
func (server *Server) Serve(ctx context.Context, listener net.Listener) error {
	server.Refresh(ctx)

	stopRefresh := make(chan struct{})
	refreshDone := make(chan struct{})
	go func() {
		defer close(refreshDone)
		ticker := time.NewTicker(server.refreshPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-stopRefresh:
				return
			case <-ticker.C:
				server.Refresh(ctx)
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		server.logger.Info("health server starting", zap.String("listen_addr", listener.Addr().String()))
		errCh <- server.grpcServer.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		close(stopRefresh)
		<-refreshDone
		server.health.Shutdown()
		server.grpcServer.GracefulStop()
		if serveErr := <-errCh; serveErr != nil && !errors.Is(serveErr, grpc.ErrServerStopped) {
			return serveErr
		}
		return nil
	case serveErr := <-errCh:
		close(stopRefresh)
		<-refreshDone
		if errors.Is(serveErr, grpc.ErrServerStopped) {
			return nil
		}
		return serveErr
	}
}

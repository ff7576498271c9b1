// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package server

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/AccelByte/extend-challenge-ledger/pkg/common"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// defaultHealthInterval is how often the backing store is probed.
const defaultHealthInterval = 10 * time.Second

// HealthCheck reports whether a dependency is usable.
type HealthCheck interface {
	Check(ctx context.Context) error
}

// GRPCServer serves the gRPC health and reflection services. Health turns
// NOT_SERVING while the ledger store is unreachable.
type GRPCServer struct {
	server   *grpc.Server
	health   *health.Server
	port     int
	checker  HealthCheck
	interval time.Duration
	stop     chan struct{}
}

// NewGRPCServer creates a new gRPC server instance.
func NewGRPCServer(port int, checker HealthCheck) *GRPCServer {
	return &GRPCServer{
		port:     port,
		checker:  checker,
		interval: defaultHealthInterval,
		stop:     make(chan struct{}),
	}
}

// Setup configures the gRPC server with interceptors and registers services.
func (s *GRPCServer) Setup() error {
	unaryInterceptors := []grpc.UnaryServerInterceptor{
		logging.UnaryServerInterceptor(common.InterceptorLogger(logrus.StandardLogger())),
	}
	streamInterceptors := []grpc.StreamServerInterceptor{
		logging.StreamServerInterceptor(common.InterceptorLogger(logrus.StandardLogger())),
	}

	// Create server with OpenTelemetry instrumentation
	s.server = grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(unaryInterceptors...),
		grpc.ChainStreamInterceptor(streamInterceptors...),
	)

	// Reflection lets tools like grpcurl inspect services; health backs
	// Kubernetes liveness/readiness probes.
	s.health = health.NewServer()
	reflection.Register(s.server)
	grpc_health_v1.RegisterHealthServer(s.server, s.health)

	logrus.Infof("gRPC reflection and health check enabled")

	return nil
}

// updateHealth probes the checker once and publishes the result.
func (s *GRPCServer) updateHealth(ctx context.Context) {
	status := grpc_health_v1.HealthCheckResponse_SERVING
	if s.checker != nil {
		checkCtx, cancel := context.WithTimeout(ctx, s.interval)
		defer cancel()
		if err := s.checker.Check(checkCtx); err != nil {
			logrus.Warnf("health check failed: %v", err)
			status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus("", status)
}

func (s *GRPCServer) watchHealth(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.updateHealth(ctx)
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Start begins listening and serving gRPC requests.
func (s *GRPCServer) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", s.port, err)
	}

	s.updateHealth(ctx)
	go s.watchHealth(context.WithoutCancel(ctx))

	go func() {
		logrus.Infof("gRPC server listening on port %d", s.port)
		if err := s.server.Serve(lis); err != nil {
			logrus.Fatalf("gRPC server failed: %v", err)
		}
	}()

	return nil
}

// Shutdown gracefully stops the gRPC server.
func (s *GRPCServer) Shutdown(ctx context.Context) error {
	logrus.Info("shutting down gRPC server...")
	close(s.stop)
	s.health.Shutdown()
	s.server.GracefulStop()
	logrus.Info("gRPC server stopped")
	return nil
}

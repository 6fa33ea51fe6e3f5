package grpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/cfg"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName — имя сервиса в протоколе grpc.health.v1.
const ServiceName = "reconciliation"

// CheckFunc проверяет готовность зависимостей.
type CheckFunc func(ctx context.Context) error

// GRPCServer отдаёт только grpc.health.v1.Health. Статус обновляется фоновой проверкой.
type GRPCServer struct {
	server *grpc.Server
	health *health.Server
	cfg    *cfg.GRPCConfig
	check  CheckFunc
	period time.Duration
	logger logger.Logger
}

func NewGRPCServer(cfg *cfg.GRPCConfig, check CheckFunc, period time.Duration, logger logger.Logger) *GRPCServer {
	s := &GRPCServer{
		server: grpc.NewServer(),
		health: health.NewServer(),
		cfg:    cfg,
		check:  check,
		period: period,
		logger: logger,
	}
	healthpb.RegisterHealthServer(s.server, s.health)
	s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)

	return s
}

func (s *GRPCServer) Start() error {
	addr := fmt.Sprintf(":%s", s.cfg.Port)
	lis, err := net.Listen(s.cfg.NetworkMode, addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	if err := s.server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// Watch обновляет статус здоровья до отмены ctx.
func (s *GRPCServer) Watch(ctx context.Context) {
	s.checkDependencies(ctx)
	if s.period <= 0 {
		return
	}

	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkDependencies(ctx)
		}
	}
}

func (s *GRPCServer) checkDependencies(ctx context.Context) {
	if s.check == nil {
		s.setStatus(healthpb.HealthCheckResponse_SERVING)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.check(ctx); err != nil {
		s.logger.Warnf("grpc health: not serving: %v", err)
		s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
		return
	}
	s.setStatus(healthpb.HealthCheckResponse_SERVING)
}

func (s *GRPCServer) setStatus(st healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

func (s *GRPCServer) Stop(ctx context.Context) error {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Infof("gRPC server stopped gracefully")
		return nil
	case <-ctx.Done():
		s.server.Stop()
		return fmt.Errorf("gRPC graceful stop timed out: %w", ctx.Err())
	}
}

package grpcapi

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/gurkanbulca/streamline/internal/middleware"
	"github.com/gurkanbulca/streamline/internal/service"
	"github.com/gurkanbulca/streamline/pkg/auth"
)

// ServerConfig configures NewServer.
type ServerConfig struct {
	Tasks            TaskService
	Users            UserService
	Verifier         auth.Verifier
	MaxProofBytes    int64
	EnableReflection bool
	Logger           *slog.Logger
}

// Server wraps a grpc.Server carrying TaskService, UserService when
// configured, and the health service.
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	logger     *slog.Logger
}

// MaxMessageSize returns the message ceiling needed to carry a base64
// encoded proof of maxProofBytes plus the surrounding fields.
func MaxMessageSize(maxProofBytes int64) int {
	return int(maxProofBytes/3*4) + 1<<20
}

func NewServer(cfg ServerConfig) *Server {
	logger := cfg.Logger.With(slog.String("component", "grpc_server"))
	if cfg.MaxProofBytes <= 0 {
		cfg.MaxProofBytes = service.DefaultMaxProofBytes
	}

	metadataExtractor := middleware.NewMetadataExtractorInterceptor()
	authInterceptor := middleware.NewAuthInterceptor(cfg.Verifier, cfg.Logger)

	grpcServer := grpc.NewServer(
		grpc.MaxRecvMsgSize(MaxMessageSize(cfg.MaxProofBytes)),
		grpc.ChainUnaryInterceptor(
			metadataExtractor.Unary(),
			middleware.MetricsInterceptor(),
			middleware.LoggingInterceptor(cfg.Logger),
			authInterceptor.Unary(),
		),
		grpc.ChainStreamInterceptor(
			metadataExtractor.Stream(),
			authInterceptor.Stream(),
		),
	)

	RegisterTaskServiceServer(grpcServer, NewTaskServer(cfg.Tasks, cfg.Logger))

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	if cfg.Users != nil {
		RegisterUserServiceServer(grpcServer, NewUserServer(cfg.Users, cfg.Logger))
		healthServer.SetServingStatus(UserServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	}
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	if cfg.EnableReflection {
		reflection.Register(grpcServer)
		logger.Warn("gRPC reflection enabled")
	}

	return &Server{
		grpcServer: grpcServer,
		health:     healthServer,
		logger:     logger,
	}
}

// Serve accepts connections on lis until ctx is cancelled, then stops
// gracefully.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("gRPC server started", slog.String("addr", lis.Addr().String()))
		errCh <- s.grpcServer.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		s.health.Shutdown()
		s.logger.Info("shutting down gRPC server")
		s.grpcServer.GracefulStop()
		s.logger.Info("gRPC server stopped")
		return nil
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	}
}

// Stop terminates all connections immediately.
func (s *Server) Stop() {
	s.grpcServer.Stop()
}

// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/gurkanbulca/streamline/internal/config"
	"github.com/gurkanbulca/streamline/internal/database"
	"github.com/gurkanbulca/streamline/internal/grpcapi"
	"github.com/gurkanbulca/streamline/internal/httpapi"
	"github.com/gurkanbulca/streamline/internal/repository"
	"github.com/gurkanbulca/streamline/internal/service"
	"github.com/gurkanbulca/streamline/internal/storage/attachment"
	"github.com/gurkanbulca/streamline/pkg/auth"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateConfig(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := config.NewLogger(cfg.Log, os.Stdout)
	logger.Info("starting streamline",
		slog.String("environment", cfg.Server.Environment),
		slog.String("auth_mode", cfg.Auth.Mode),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.ToDatabaseConfig(), logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("failed to close database", slog.String("error", err.Error()))
		}
	}()

	if cfg.Server.AutoMigrate {
		logger.Info("running auto migration")
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
	}

	dialect, err := database.Dialect(cfg.Database.Driver)
	if err != nil {
		return err
	}

	store, err := attachment.New(cfg.Upload.Dir,
		attachment.WithPublicPrefix(cfg.Upload.PublicPrefix),
		attachment.WithNamePrefix("proofImage"),
	)
	if err != nil {
		return fmt.Errorf("open attachment store: %w", err)
	}

	verifier, err := newVerifier(cfg, logger)
	if err != nil {
		return err
	}

	validation := cfg.Validation
	proofs := service.NewProofReceiver(store, cfg.Upload.MaxProofBytes, logger)
	taskService := service.NewTaskService(
		repository.NewTaskRepository(db, dialect),
		proofs,
		service.NewEventLogger(repository.NewTaskEventRepository(db, dialect), logger),
		&validation,
		logger,
	)
	userService := service.NewUserService(repository.NewUserRepository(db, dialect), logger)

	routerCfg := httpapi.RouterConfig{
		Tasks:    httpapi.NewHandler(taskService, proofs.MaxBytes(), logger),
		Users:    httpapi.NewUserHandler(userService, logger),
		Health:   httpapi.NewHealthHandler(db),
		Verifier: verifier,
		Logger:   logger,
	}
	if cfg.Upload.ServeStatic {
		routerCfg.UploadDir = store.Dir()
		routerCfg.UploadPrefix = store.PublicPrefix()
	}
	httpServer := httpapi.NewServer(":"+cfg.Server.HTTPPort, httpapi.NewRouter(routerCfg), cfg.Server.ShutdownTimeout, logger)

	grpcServer := grpcapi.NewServer(grpcapi.ServerConfig{
		Tasks:            taskService,
		Users:            userService,
		Verifier:         verifier,
		MaxProofBytes:    proofs.MaxBytes(),
		EnableReflection: cfg.Server.EnableReflection,
		Logger:           logger,
	})
	lis, err := net.Listen("tcp", ":"+cfg.Server.GRPCPort)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return httpServer.Run(gctx) })
	g.Go(func() error { return grpcServer.Serve(gctx, lis) })

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server shutdown complete")
	return nil
}

func newVerifier(cfg *config.Config, logger *slog.Logger) (auth.Verifier, error) {
	switch cfg.Auth.Mode {
	case config.AuthModeJWKS:
		v, err := auth.NewJWKSVerifier(cfg.Auth.JWKSURL, cfg.Auth.Issuer, cfg.Auth.JWKSRefreshInterval, cfg.Auth.Leeway, logger)
		if err != nil {
			return nil, fmt.Errorf("create JWKS verifier: %w", err)
		}
		logger.Info("using JWKS token verification", slog.String("url", cfg.Auth.JWKSURL))
		return v, nil
	default:
		if cfg.IsDevelopment() {
			logger.Warn("using shared-secret token verification")
		}
		return auth.NewTokenManager(cfg.Auth.AccessSecret, cfg.Auth.AccessTokenDuration, cfg.Auth.Issuer).
			WithLeeway(cfg.Auth.Leeway), nil
	}
}

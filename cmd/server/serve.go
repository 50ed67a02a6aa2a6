package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmehra2102/notely/internal/app"
	"github.com/dmehra2102/notely/internal/httpapi"
	"github.com/dmehra2102/notely/internal/infrastructure/blob"
	"github.com/dmehra2102/notely/internal/infrastructure/config"
	"github.com/dmehra2102/notely/internal/infrastructure/search"
	"github.com/dmehra2102/notely/internal/infrastructure/sqlstore"
	"github.com/dmehra2102/notely/internal/interceptors"
	"github.com/dmehra2102/notely/internal/ordering"
	"github.com/dmehra2102/notely/pkg/auth"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the gRPC admin listener and the metrics endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer logger.Sync()
		return serve(cmd.Context(), cfg, logger)
	},
}

func serve(parent context.Context, cfg *config.Config, logger *zap.Logger) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting notely",
		zap.String("version", serviceVersion),
		zap.String("environment", cfg.Environment),
	)

	// Initialize OpenTelemetry
	if cfg.EnableTracing {
		shutdown, err := initTracer(ctx, cfg.JaegerEndpoint)
		if err != nil {
			return err
		}
		defer shutdown(context.Background())
	}

	// Initialize database
	dbCfg := cfg.GetDatabaseConfig()
	db, dialect, err := sqlstore.Open(ctx, dbCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if dbCfg.AutoMigrate {
		if err := sqlstore.Migrate(dialect, dbCfg.URL); err != nil {
			return err
		}
		logger.Info("Database migrations applied", zap.String("dialect", string(dialect)))
	}

	locker, closeLocker, err := initLocker(cfg, logger)
	if err != nil {
		return err
	}
	defer closeLocker()

	opts := []app.Option{
		app.WithRestorePolicy(app.RestorePolicy(cfg.RestorePositionPolicy)),
		app.WithLockWait(cfg.LockWait),
		app.WithMaxUploadBytes(cfg.MaxUploadBytes),
	}

	if cfg.S3Endpoint != "" {
		store, err := blob.NewS3Store(ctx, cfg.GetStorageConfig())
		if err != nil {
			return fmt.Errorf("failed to initialize object storage: %w", err)
		}
		opts = append(opts, app.WithBlobStore(store))
		logger.Info("Object storage enabled", zap.String("bucket", cfg.S3Bucket))
	} else {
		logger.Warn("S3_ENDPOINT not set, uploads are disabled")
	}

	if cfg.MeiliURL != "" {
		index := search.NewMeili(cfg.MeiliURL, cfg.MeiliAPIKey, logger)
		defer index.Close()
		opts = append(opts, app.WithPageIndex(index))
		logger.Info("Search index enabled", zap.String("url", cfg.MeiliURL))
	}

	repo := sqlstore.New(db, dialect, dbCfg.Timeout)
	svc := app.NewService(repo, locker, logger, opts...)
	handler := httpapi.NewHandler(svc, auth.NewSupabaseVerifier(cfg.SupabaseJWTSecret), logger)

	srvCfg := cfg.GetServerConfig()
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", srvCfg.Port),
		Handler:           http.TimeoutHandler(handler.Router(), srvCfg.RequestTimeout, `{"error":{"code":"TIMEOUT","message":"request timed out"}}`),
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", srvCfg.MetricsPort),
		Handler:           metricsMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcServer, err := initGRPCServer(cfg, logger)
	if err != nil {
		return err
	}

	// Register health service
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	// Register reflection for development
	if !cfg.IsProduction() || cfg.EnableReflection {
		reflection.Register(grpcServer)
	}

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", srvCfg.GRPCPort))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	errs := make(chan error, 3)
	go func() {
		logger.Info("HTTP server starting", zap.Int("port", srvCfg.Port))
		if err := serveHTTP(httpServer, srvCfg); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		logger.Info("Metrics server starting", zap.Int("port", srvCfg.MetricsPort))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("metrics server: %w", err)
		}
	}()
	go func() {
		logger.Info("gRPC admin server starting", zap.Int("port", srvCfg.GRPCPort))
		if err := grpcServer.Serve(lis); err != nil {
			errs <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutting down gracefully...")
	case runErr = <-errs:
		logger.Error("Server failed, shutting down", zap.Error(runErr))
	}

	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), srvCfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", zap.Error(err))
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Metrics shutdown incomplete", zap.Error(err))
	}

	done := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("Server stopped gracefully")
	case <-shutdownCtx.Done():
		logger.Warn("Shutdown timeout exceeded, forcing stop")
		grpcServer.Stop()
	}

	return runErr
}

func serveHTTP(srv *http.Server, cfg config.ServerConfig) error {
	if cfg.TLSEnabled {
		return srv.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
	}
	return srv.ListenAndServe()
}

// initLocker picks the Redis lock when REDIS_URL is set so several instances
// serialize on the same parents. A single instance uses the in-process mutex.
func initLocker(cfg *config.Config, logger *zap.Logger) (ordering.Locker, func(), error) {
	if cfg.RedisURL == "" {
		logger.Info("Using in-process ordering locks")
		return ordering.NewKeyedMutex(), func() {}, nil
	}

	locker, err := ordering.NewRedisLocker(cfg.RedisURL, cfg.LockTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize redis locker: %w", err)
	}
	logger.Info("Using redis ordering locks", zap.Duration("ttl", cfg.LockTTL))
	return locker, func() { _ = locker.Close() }, nil
}

func initGRPCServer(cfg *config.Config, logger *zap.Logger) (*grpc.Server, error) {
	opts := []grpc.ServerOption{
		grpc.KeepaliveParams(keepalive.ServerParameters{
			MaxConnectionIdle:     15 * time.Minute,
			MaxConnectionAge:      30 * time.Minute,
			MaxConnectionAgeGrace: 5 * time.Minute,
			Time:                  5 * time.Minute,
			Timeout:               1 * time.Minute,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             1 * time.Minute,
			PermitWithoutStream: true,
		}),

		grpc.MaxRecvMsgSize(4 * 1024 * 1024),
		grpc.MaxSendMsgSize(4 * 1024 * 1024),

		grpc.StatsHandler(otelgrpc.NewServerHandler()),

		grpc.ChainUnaryInterceptor(
			interceptors.RecoveryInterceptor(logger),
			interceptors.LoggingInterceptor(logger),
			interceptors.MetricsInterceptor(),
		),
		grpc.ChainStreamInterceptor(
			interceptors.StreamRecoveryInterceptor(logger),
			interceptors.StreamLoggingInterceptor(logger),
			interceptors.StreamMetricsInterceptor(),
		),
	}

	// TLS configuration for production
	if cfg.TLSEnabled {
		creds, err := credentials.NewServerTLSFromFile(cfg.TLSCertFile, cfg.TLSKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS credentials: %w", err)
		}
		opts = append(opts, grpc.Creds(creds))
	}

	return grpc.NewServer(opts...), nil
}

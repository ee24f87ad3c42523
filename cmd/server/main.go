// Command bagtrack-server starts the bagtrack gRPC server.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/and161185/bagtrack/internal/config"
	"github.com/and161185/bagtrack/internal/limiter"
	"github.com/and161185/bagtrack/internal/metrics"
	"github.com/and161185/bagtrack/internal/migrate"
	"github.com/and161185/bagtrack/internal/repository"
	"github.com/and161185/bagtrack/internal/repository/memory"
	"github.com/and161185/bagtrack/internal/repository/postgres"
	grpcserver "github.com/and161185/bagtrack/internal/server/grpc"
	"github.com/and161185/bagtrack/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main loads configuration, opens the store and serves gRPC until SIGINT/SIGTERM.
func main() {
	cfg, err := config.Load(os.Args[1:], ".env")
	if err != nil {
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(2)
	}

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
		zap.String("store", cfg.Store),
		zap.String("limiter", cfg.Limiter),
	)

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, lim, closeStore := openStore(ctx, cfg, logger)
	defer closeStore()

	m := metrics.New(prometheus.DefaultRegisterer)
	svc := service.NewServices(store, []byte(cfg.JWTKey), cfg.SessionTTL, lim, logger, m)

	if created, err := svc.Auth.EnsureAdmin(ctx, cfg.AdminPassword); err != nil {
		logger.Fatal("ensure admin", zap.Error(err))
	} else if created {
		logger.Info("administrator account created", zap.String("username", service.AdminUsername))
	}
	if cfg.Seed {
		seeded, err := svc.Seed(ctx, logger)
		if err != nil {
			logger.Fatal("seed", zap.Error(err))
		}
		logger.Info("seed", zap.Bool("loaded", seeded))
	}

	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			grpcserver.RecoverUnary(logger),
			grpcserver.LoggingUnary(logger),
			grpcserver.AuthUnary(svc.Auth),
		),
	}
	if cfg.TLSCert != "" {
		creds, err := credentials.NewServerTLSFromFile(cfg.TLSCert, cfg.TLSKey)
		if err != nil {
			logger.Fatal("failed to load TLS cert/key", zap.Error(err))
		}
		opts = append(opts, grpc.Creds(creds))
	} else {
		logger.Warn("serving without TLS")
	}
	s := grpc.NewServer(opts...)
	grpcserver.Register(s, grpcserver.New(svc, logger))

	// Health & reflection (dev)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	if cfg.Dev {
		reflection.Register(s)
	}

	lis, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		logger.Fatal("listen", zap.Error(err))
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr), zap.Bool("tls", cfg.TLSCert != ""))
		errCh <- s.Serve(lis)
	}()

	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Info("metrics listening", zap.String("addr", cfg.MetricsAddr))
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	// Wait for stop
	select {
	case <-ctx.Done():
		hs.Shutdown()
		done := make(chan struct{})
		go func() {
			s.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			s.Stop()
		}
		if metricsSrv != nil {
			shCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			_ = metricsSrv.Shutdown(shCtx)
			cancel()
		}
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		closeStore()
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}

// openStore opens the configured entity store and login limiter.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.Store, limiter.Limiter, func()) {
	var (
		store   repository.Store
		lim     limiter.Limiter
		closers []func()
	)

	switch cfg.Store {
	case config.StorePostgres:
		applied, err := migrate.Up(ctx, cfg.DSN)
		if err != nil {
			logger.Fatal("migrate up", zap.Error(err))
		}
		if v, err := migrate.Version(ctx, cfg.DSN); err == nil {
			logger.Info("schema ready", zap.Int("applied", applied), zap.Int64("version", v))
		}
		db, err := postgres.New(ctx, cfg.DSN)
		if err != nil {
			logger.Fatal("postgres pool", zap.Error(err))
		}
		closers = append(closers, db.Close)
		store = db.Repositories()
		if cfg.Limiter == config.LimiterPostgres {
			lim = limiter.NewPG(db.Pool, limiter.DefaultPolicy)
		}
	default:
		var mem *memory.Store
		if cfg.DataFile != "" {
			var err error
			if mem, err = memory.Open(cfg.DataFile); err != nil {
				logger.Fatal("open data file", zap.String("path", cfg.DataFile), zap.Error(err))
			}
		} else {
			mem = memory.New()
			logger.Warn("memory store without data file, state is lost on exit")
		}
		store = mem.Repositories()
	}

	switch cfg.Limiter {
	case config.LimiterRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("redis ping", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		closers = append(closers, func() { _ = rdb.Close() })
		lim = limiter.NewRedis(rdb, "", limiter.DefaultPolicy)
	case config.LimiterMemory:
		lim = limiter.NewMemory(limiter.DefaultPolicy)
	}

	var closed bool
	return store, lim, func() {
		if closed {
			return
		}
		closed = true
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
}

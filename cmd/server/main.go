// Command playqueue-server serves per-owner ordered queues over gRPC and HTTP.
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

	"go.uber.org/zap"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/and161185/playqueue/internal/api/queuev1"
	"github.com/and161185/playqueue/internal/auth"
	"github.com/and161185/playqueue/internal/config"
	"github.com/and161185/playqueue/internal/limiter"
	"github.com/and161185/playqueue/internal/migrate"
	"github.com/and161185/playqueue/internal/notify"
	"github.com/and161185/playqueue/internal/repository"
	"github.com/and161185/playqueue/internal/repository/memory"
	"github.com/and161185/playqueue/internal/repository/postgres"
	"github.com/and161185/playqueue/internal/repository/sqlite"
	grpcserver "github.com/and161185/playqueue/internal/server/grpc"
	"github.com/and161185/playqueue/internal/server/httpapi"
	"github.com/and161185/playqueue/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main parses configuration, opens the store and serves until a signal arrives.
func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(cfg.Level())
	logger, err := zcfg.Build()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("grpc", cfg.GRPCAddr),
		zap.String("http", cfg.HTTPAddr),
		zap.String("store", string(cfg.Store)),
	)

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, lim, closeRepo, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatal("open store", zap.Error(err))
	}
	defer closeRepo()

	var notifier notify.Notifier = notify.Nop{}
	if cfg.RedisURL != "" {
		rdb, err := notify.Dial(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer func() { _ = rdb.Close() }()
		notifier = notify.NewRedis(rdb, cfg.RedisChannel)
	}

	items := service.NewItemService(repo, notifier, logger, cfg.Limits())
	verifier := auth.NewVerifier([]byte(cfg.JWTKey))

	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			grpcserver.RecoverUnary(logger),
			grpcserver.LoggingUnary(logger),
			grpcserver.AuthUnary(verifier, lim),
		),
	}
	if cfg.TLS() {
		creds, err := credentials.NewServerTLSFromFile(cfg.TLSCert, cfg.TLSKey)
		if err != nil {
			logger.Fatal("failed to load TLS cert/key", zap.Error(err))
		}
		opts = append(opts, grpc.Creds(creds))
	}
	s := grpc.NewServer(opts...)
	queuev1.RegisterQueueServer(s, grpcserver.New(items))

	// Health & reflection (dev)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	if cfg.Dev {
		reflection.Register(s)
	}

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		logger.Fatal("listen", zap.Error(err))
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("grpc listening", zap.String("addr", cfg.GRPCAddr), zap.Bool("tls", cfg.TLS()))
		errCh <- s.Serve(lis)
	}()

	var hsrv *http.Server
	if cfg.HTTPAddr != "" {
		api := httpapi.NewServer(items, verifier, logger).WithLimiter(lim)
		hsrv = &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           api.Router(httpapi.Logging(logger)),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("http listening", zap.String("addr", cfg.HTTPAddr))
			if err := hsrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	// Wait for stop
	select {
	case <-ctx.Done():
		// graceful shutdown
		hs.Shutdown()
		if hsrv != nil {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = hsrv.Shutdown(sctx)
			cancel()
		}
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
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		closeRepo()
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}

// openStore runs migrations and opens the configured repository together with
// the failed authentication limiter. PostgreSQL shares the limiter between
// instances; other stores keep it in process.
func openStore(ctx context.Context, cfg config.Config) (repository.ItemRepository, limiter.Limiter, func(), error) {
	set, throttle := cfg.Throttle()
	var lim limiter.Limiter
	if throttle {
		lim = limiter.NewMemory(set)
	}

	switch cfg.Store {
	case config.StorePostgres:
		if err := migrate.Up(ctx, migrate.Postgres, cfg.DSN); err != nil {
			return nil, nil, nil, fmt.Errorf("migrate up: %w", err)
		}
		db, err := postgres.New(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, nil, err
		}
		if throttle {
			lim = limiter.NewPG(db.Pool, set)
		}
		return postgres.NewItemRepo(db), lim, db.Close, nil
	case config.StoreSQLite:
		r, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		return r, lim, func() { _ = r.Close() }, nil
	case config.StoreMemory:
		return memory.NewItemRepo(), lim, func() {}, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
}

// Package main is the entry point for the konditer API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"konditer/internal/app"
	"konditer/internal/config"
	"konditer/internal/core/clock"
	"konditer/internal/core/idempotency"
	"konditer/internal/domain/auth"
	"konditer/internal/infrastructure/cache"
	v1 "konditer/internal/infrastructure/http/v1"
	"konditer/internal/infrastructure/http/v1/handlers"
	"konditer/internal/infrastructure/jobs"
	"konditer/internal/infrastructure/observability"
	"konditer/internal/infrastructure/storage/postgres"
	"konditer/pkg/logger"
)

// memoryDrainInterval is how often the in-memory outbox is flushed.
const memoryDrainInterval = time.Second

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: !cfg.IsProduction(),
		Service:     cfg.ServiceName,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithLogger(ctx, log)

	if err := run(ctx, cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalw("server failed", "error", err)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	shutdownTracer, err := observability.InitTracer(ctx, observability.TracingConfig{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: cfg.ServiceName,
		Insecure:    !cfg.IsProduction(),
	})
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		_ = shutdownTracer(shutdownCtx)
	}()

	clk := clock.System{}
	metrics := observability.NewMetrics()
	checks := map[string]handlers.Pinger{}

	opts := app.Options{
		Clock:               clk,
		Observer:            metrics,
		LowStockRule:        cfg.LowStockRule,
		LowStockSuppressFor: cfg.LowStockSuppressFor,
	}

	var rdb *redis.Client
	if cfg.UseRedis() {
		rdb, err = cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rdb.Close()
		opts.Deduper = cache.NewDeduper(rdb, "")
		checks["redis"] = redisPinger{rdb}
	}

	var (
		backend app.Backend
		mem     *app.MemoryBackend
		store   idempotency.Store
	)
	if cfg.UseMemory() {
		log.Warn("DATABASE_URL is empty, using the in-memory backend")
		mem = app.NewMemoryBackend(clk)
		backend = mem.Backend
		if opts.Deduper == nil {
			opts.Deduper = mem.Deduper
		}
	} else {
		poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
		poolCfg.MaxConns = cfg.DatabaseMaxConns
		poolCfg.MinConns = cfg.DatabaseMinConns
		pool, err := postgres.NewPool(ctx, poolCfg)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()
		checks["postgres"] = pool

		pg, err := app.NewPostgresBackend(pool, clk)
		if err != nil {
			return err
		}
		backend = pg.Backend
		store = pg.Idempotency
	}
	if rdb != nil {
		store = cache.NewIdempotencyStore(rdb, idempotency.DefaultTTL)
	}

	svc, err := app.New(backend, opts)
	if err != nil {
		return fmt.Errorf("wire services: %w", err)
	}

	maintenanceKey, err := auth.NewMaintenanceKey(cfg.MaintenanceKeyHash)
	if err != nil {
		return fmt.Errorf("maintenance key: %w", err)
	}
	if !maintenanceKey.Enabled() {
		log.Warn("MAINTENANCE_KEY_HASH is empty, admin endpoints rely on capabilities only")
	}

	jwtCfg := auth.DefaultJWTConfig(cfg.JWTSecret)
	jwtCfg.Issuer = cfg.JWTIssuer
	jwtCfg.AccessTokenTTL = cfg.JWTTTL

	router := v1.NewRouter(v1.RouterConfig{
		Services:       svc,
		Logger:         log,
		Tokens:         auth.NewJWTService(jwtCfg, clk),
		MaintenanceKey: maintenanceKey,
		Idempotency:    store,
		Metrics:        metrics,
		Health:         checks,
		ServiceName:    cfg.ServiceName,
	})

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infow("server starting", "addr", cfg.HTTPAddr, "memory", cfg.UseMemory(), "redis", cfg.UseRedis())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if mem != nil {
		g.Go(func() error {
			drainMemoryOutbox(gctx, mem, jobs.NewDispatcher(jobs.Inline{Checker: svc.LowStock}))
			return nil
		})
	}
	return g.Wait()
}

// drainMemoryOutbox plays the role of the worker's outbox relay when there is
// no database to relay from.
func drainMemoryOutbox(ctx context.Context, mem *app.MemoryBackend, d *jobs.Dispatcher) {
	ticker := time.NewTicker(memoryDrainInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := jobs.DrainMemory(ctx, mem.Outbox, d); n > 0 {
				logger.Debug(ctx, "drained memory outbox", "count", n)
			}
		}
	}
}

type redisPinger struct{ client *redis.Client }

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

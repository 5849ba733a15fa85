// Package main is the entry point for the konditer background worker. It
// relays the transactional outbox, runs queued low-stock checks and schedules
// the nightly balance reconciliation.
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

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"konditer/internal/app"
	"konditer/internal/config"
	"konditer/internal/core/clock"
	"konditer/internal/infrastructure/cache"
	"konditer/internal/infrastructure/jobs"
	"konditer/internal/infrastructure/observability"
	"konditer/internal/infrastructure/storage/postgres"
	"konditer/pkg/logger"
)

const cleanupInterval = time.Hour

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
		Service:     cfg.ServiceName + "-worker",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if cfg.UseMemory() {
		log.Fatal("worker requires DATABASE_URL: the in-memory backend is drained by the server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithLogger(ctx, log)

	log.Info("starting konditer worker")
	if err := run(ctx, cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalw("worker failed", "error", err)
	}
	log.Info("worker stopped")
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	clk := clock.System{}
	metrics := observability.NewMetrics()

	poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
	poolCfg.MaxConns = cfg.DatabaseMaxConns
	poolCfg.MinConns = cfg.DatabaseMinConns
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	pg, err := app.NewPostgresBackend(pool, clk)
	if err != nil {
		return err
	}

	opts := app.Options{
		Clock:               clk,
		Observer:            metrics,
		LowStockRule:        cfg.LowStockRule,
		LowStockSuppressFor: cfg.LowStockSuppressFor,
	}
	if cfg.UseRedis() {
		rdb, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rdb.Close()
		opts.Deduper = cache.NewDeduper(rdb, "")
	}

	svc, err := app.New(pg.Backend, opts)
	if err != nil {
		return fmt.Errorf("wire services: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	var enqueuer jobs.Enqueuer = jobs.Inline{Checker: svc.LowStock}
	if cfg.UseRedis() {
		redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
		client := jobs.NewClient(redisOpts)
		defer client.Close()
		enqueuer = client

		h := &jobs.Handlers{LowStock: svc.LowStock, Reconcile: svc.Reconcile, Metrics: metrics}
		var cron []jobs.CronRegistration
		if cfg.ReconcileCron != "" {
			task, err := jobs.NewReconcileTask(time.Time{})
			if err != nil {
				return err
			}
			cron = append(cron, jobs.CronRegistration{Spec: cfg.ReconcileCron, Task: task})
		}
		worker, err := jobs.NewWorker(jobs.WorkerConfig{
			RedisOpts:   redisOpts,
			Logger:      log,
			Concurrency: cfg.WorkerConcurrency,
			Handlers:    h.TaskHandlers(),
			Cron:        cron,
		})
		if err != nil {
			return fmt.Errorf("create asynq worker: %w", err)
		}
		g.Go(func() error { return worker.Run(gctx) })
	} else {
		log.Warn("REDIS_ADDR is empty: low-stock checks run inline and reconciliation is not scheduled")
	}

	relay := postgres.NewOutboxRelay(pg.TxManager, cfg.OutboxBatchSize, jobs.NewDispatcher(enqueuer), clk)
	g.Go(func() error {
		relayOutbox(gctx, cfg, relay, pg.Idempotency)
		return nil
	})

	if cfg.WorkerMetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		server := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

// relayOutbox polls sys_outbox and periodically purges published messages and
// expired idempotency keys.
func relayOutbox(ctx context.Context, cfg *config.Config, relay *postgres.OutboxRelay, idem *postgres.IdempotencyStore) {
	log := logger.FromContext(ctx).WithComponent("outbox")

	ticker := time.NewTicker(cfg.OutboxPollInterval)
	defer ticker.Stop()
	cleanup := time.NewTicker(cleanupInterval)
	defer cleanup.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := relay.ProcessBatch(ctx)
			if err != nil {
				log.Errorw("outbox batch failed", "error", err)
				continue
			}
			if n > 0 {
				log.Debugw("relayed outbox batch", "count", n)
			}
		case <-cleanup.C:
			if n, err := relay.PurgePublished(ctx, cfg.OutboxRetention); err != nil {
				log.Warnw("purge outbox failed", "error", err)
			} else if n > 0 {
				log.Infow("purged published outbox messages", "count", n)
			}
			if n, err := idem.CleanupExpired(ctx); err != nil {
				log.Warnw("cleanup idempotency keys failed", "error", err)
			} else if n > 0 {
				log.Infow("cleaned up idempotency keys", "count", n)
			}
		}
	}
}

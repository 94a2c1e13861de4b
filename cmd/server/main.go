package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"ingestgate/internal/gate"
	httpapi "ingestgate/internal/http"
	ingesthandler "ingestgate/internal/ingest/handler"
	ingestmetrics "ingestgate/internal/ingest/metrics"
	ingestservice "ingestgate/internal/ingest/service"
	ingeststore "ingestgate/internal/ingest/store"
	insightservice "ingestgate/internal/insight/service"
	insightstore "ingestgate/internal/insight/store"
	partnermetrics "ingestgate/internal/partner/metrics"
	partnerservice "ingestgate/internal/partner/service"
	"ingestgate/internal/platform/config"
	"ingestgate/internal/platform/httpserver"
	"ingestgate/internal/platform/logger"
	platformmetrics "ingestgate/internal/platform/metrics"
	"ingestgate/internal/platform/postgres"
	"ingestgate/internal/platform/redis"
	"ingestgate/internal/ratelimit/admin"
	rlconfig "ingestgate/internal/ratelimit/config"
	rlhandler "ingestgate/internal/ratelimit/handler"
	rlmetrics "ingestgate/internal/ratelimit/metrics"
	"ingestgate/internal/ratelimit/service/requestlimit"
	"ingestgate/pkg/platform/audit/publishers/security"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("ingestgate stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}
	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	sinks, err := openAuditSinks(ctx, cfg, db, log)
	if err != nil {
		return err
	}
	defer sinks.close()

	pubOpts := []security.Option{
		security.WithLogger(log),
		security.WithMetrics(security.NewMetrics(reg)),
		security.WithWriteTimeout(cfg.Timeouts.AuditWrite),
		security.WithMirror(sinks.mirror),
	}
	if cfg.Audit.Async {
		pubOpts = append(pubOpts, security.WithAsync(cfg.Audit.BufferSize, cfg.Audit.BatchSize, cfg.Audit.FlushInterval))
	}
	publisher := security.New(sinks.primary, pubOpts...)

	budgets, err := loadBudgets(cfg.RateLimitFile)
	if err != nil {
		return err
	}
	holder := rlconfig.NewHolder(budgets)
	limiterMetrics := rlmetrics.New(reg)
	counters, janitor, err := openCounterStore(cfg, db, rdb, limiterMetrics, log)
	if err != nil {
		return err
	}
	limiter, err := requestlimit.New(counters,
		requestlimit.WithLogger(log),
		requestlimit.WithConfigHolder(holder),
		requestlimit.WithMetrics(limiterMetrics),
		requestlimit.WithCounterTimeout(cfg.Timeouts.CounterIncrement),
	)
	if err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	resets, err := admin.New(limiter,
		admin.WithLogger(log),
		admin.WithAuditPublisher(publisher),
		admin.WithMetrics(limiterMetrics),
	)
	if err != nil {
		return fmt.Errorf("rate limit admin: %w", err)
	}

	credentials, err := openCredentialStore(ctx, cfg, db, log)
	if err != nil {
		return err
	}
	resolver := partnerservice.New(credentials,
		partnerservice.WithLogger(log),
		partnerservice.WithMetrics(partnermetrics.New(reg)),
		partnerservice.WithLookupTimeout(cfg.Timeouts.CredentialLookup),
	)

	events, insights := openEventStores(db)
	deriver, err := insightservice.New(insights,
		insightservice.WithLogger(log),
		insightservice.WithWriteTimeout(cfg.Timeouts.InsightWrite),
	)
	if err != nil {
		return fmt.Errorf("insight deriver: %w", err)
	}
	ingest, err := ingestservice.New(events, deriver,
		ingestservice.WithLogger(log),
		ingestservice.WithEmitter(publisher),
		ingestservice.WithMetrics(ingestmetrics.New(reg)),
		ingestservice.WithWriteTimeout(cfg.Timeouts.EventWrite),
		ingestservice.WithReadTimeout(cfg.Timeouts.EventRead),
	)
	if err != nil {
		return fmt.Errorf("ingest service: %w", err)
	}

	checks := map[string]httpapi.Check{}
	if db != nil {
		checks["postgres"] = db.PingContext
	}
	if rdb != nil {
		checks["redis"] = rdb.Health
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Logger: log,
		Gate: gate.New(resolver, limiter,
			gate.WithLogger(log),
			gate.WithEmitter(publisher),
			gate.WithMetrics(gate.NewMetrics(reg)),
		),
		Ingest:         ingesthandler.New(ingest, log, ingesthandler.WithMaxBodyBytes(cfg.MaxBodyBytes)),
		Admin:          rlhandler.New(resets, log),
		AdminToken:     cfg.AdminToken,
		TrustProxy:     cfg.TrustProxy,
		AllowedOrigins: cfg.AllowedOrigins,
		Gatherer:       reg,
		HTTPMetrics:    platformmetrics.NewHTTP(reg),
		Checks:         checks,
	})
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting ingestgate", "addr", cfg.Addr, "env", cfg.Env, "counter_store", cfg.CounterStore(), "audit_sink", cfg.Audit.Sink)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Timeouts.Shutdown)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return publisher.Run(gctx)
	})
	if cfg.RateLimitFile != "" {
		watcher := rlconfig.NewWatcher(cfg.RateLimitFile, holder, log)
		g.Go(func() error {
			return watcher.Run(gctx)
		})
	}
	if janitor != nil {
		g.Go(func() error {
			runJanitor(gctx, janitor, log)
			return nil
		})
	}

	err = g.Wait()
	publisher.Flush(context.WithoutCancel(ctx))
	log.Info("ingestgate stopped")
	return err
}

func loadBudgets(path string) (*rlconfig.Config, error) {
	if path == "" {
		return rlconfig.DefaultConfig(), nil
	}
	budgets, err := rlconfig.Load(path)
	if err != nil {
		return nil, fmt.Errorf("rate limit config: %w", err)
	}
	return budgets, nil
}

// expiredCounterSweeper is implemented by counter stores that keep expired
// windows around until deleted.
type expiredCounterSweeper interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

const janitorInterval = time.Minute

func runJanitor(ctx context.Context, store expiredCounterSweeper, log *slog.Logger) {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.DeleteExpired(ctx)
			if err != nil {
				log.WarnContext(ctx, "expired counter cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				log.DebugContext(ctx, "expired counters removed", "count", n)
			}
		}
	}
}

func openEventStores(db *sql.DB) (ingestservice.EventStore, insightservice.Store) {
	if db == nil {
		return ingeststore.NewInMemory(), insightstore.NewInMemory()
	}
	return ingeststore.NewPostgres(db), insightstore.NewPostgres(db)
}

package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"omnigest/internal/compliance"
	"omnigest/internal/gateway"
	httpapi "omnigest/internal/http"
	"omnigest/internal/pipeline"
	"omnigest/internal/platform/config"
	"omnigest/internal/platform/httpserver"
	"omnigest/internal/platform/logger"
	"omnigest/internal/platform/metrics"
	platformredis "omnigest/internal/platform/redis"
	"omnigest/internal/purge/registry"
	"omnigest/internal/records"
	audit "omnigest/pkg/platform/audit"
	"omnigest/pkg/platform/audit/publisher"
	auditmemory "omnigest/pkg/platform/audit/store/memory"
	auditpostgres "omnigest/pkg/platform/audit/store/postgres"
	auditworker "omnigest/pkg/platform/audit/worker"
)

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Postgres backs both the record store and the audit outbox; without
	// it everything runs in memory.
	var (
		db          *sql.DB
		recordStore records.Store = records.NewInMemoryStore()
		auditStore  audit.Store   = auditmemory.NewInMemoryStore()
		outbox      audit.Outbox
	)
	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			log.Error("open database", slog.Any("error", err))
			os.Exit(1)
		}
		defer db.Close()
		recordStore = records.NewPostgresStore(db)
		pgAudit := auditpostgres.New(db)
		auditStore = pgAudit
		outbox = pgAudit
	}

	rdb, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	var purgeRegistry registry.Registry = registry.NewInMemoryRegistry()
	if rdb != nil {
		defer rdb.Close()
		purgeRegistry = registry.NewRedisRegistry(rdb.Client)
	}

	worker := auditworker.New(auditStore, 64)
	go func() {
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("audit worker stopped", slog.Any("error", err))
		}
	}()

	if outbox != nil && len(cfg.Kafka.Brokers) > 0 {
		relay, err := publisher.New(ctx, cfg.Kafka.Brokers, cfg.Kafka.AuditTopic, outbox, log)
		if err != nil {
			log.Error("start audit relay", slog.Any("error", err))
			os.Exit(1)
		}
		defer relay.Close()
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("audit relay stopped", slog.Any("error", err))
			}
		}()
	}

	policy := compliance.Policy{
		RetentionDays:      cfg.RetentionDays,
		MinNoticeYear:      cfg.MinNoticeYear,
		AuthorizedPurposes: compliance.DefaultPolicy().AuthorizedPurposes,
	}
	pipe := pipeline.New(pipeline.Config{
		Registry: purgeRegistry,
		Audit:    worker,
		Policy:   policy,
		Store:    recordStore,
		Metrics:  metrics.New(),
		Log:      log,
	})

	var sharer httpapi.Sharer
	if cfg.Gateway.BaseURL != "" {
		sharer = gateway.NewClient(gateway.Config{
			BaseURL:      cfg.Gateway.BaseURL,
			ClientID:     cfg.Gateway.ClientID,
			ClientSecret: cfg.Gateway.ClientSecret,
			CMID:         cfg.Gateway.CMID,
		}, log)
	}

	handler := httpapi.NewHandler(pipe, recordStore, auditStore, sharer, cfg.Workers, log).
		WithPseudonymSecret([]byte(cfg.PseudonymSecret))
	srv := httpserver.New(cfg.Addr, httpapi.NewRouter(handler))

	log.Info("starting omnigest", slog.String("addr", cfg.Addr))
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", slog.Any("error", err))
	}
}

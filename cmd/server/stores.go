package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	partnermodels "ingestgate/internal/partner/models"
	"ingestgate/internal/partner/secrets"
	partnerservice "ingestgate/internal/partner/service"
	partnerstore "ingestgate/internal/partner/store"
	"ingestgate/internal/platform/config"
	"ingestgate/internal/platform/redis"
	rlmetrics "ingestgate/internal/ratelimit/metrics"
	"ingestgate/internal/ratelimit/ports"
	"ingestgate/internal/ratelimit/store/bucket"
	id "ingestgate/pkg/domain"
	"ingestgate/pkg/platform/audit"
	"ingestgate/pkg/platform/audit/store/kafka"
	"ingestgate/pkg/platform/audit/store/memory"
	auditpostgres "ingestgate/pkg/platform/audit/store/postgres"
	"ingestgate/pkg/platform/audit/store/s3archive"
	"ingestgate/pkg/platform/circuit"
)

type auditSinks struct {
	primary audit.Sink
	mirror  audit.Sink
	close   func()
}

func openAuditSinks(ctx context.Context, cfg config.Server, db *sql.DB, log *slog.Logger) (*auditSinks, error) {
	sinks := &auditSinks{close: func() {}}

	switch cfg.Audit.Sink {
	case "", "memory":
		sinks.primary = memory.NewInMemoryStore()
	case "postgres":
		if db == nil {
			return nil, errors.New("AUDIT_SINK=postgres requires DATABASE_URL")
		}
		sinks.primary = auditpostgres.New(db)
	case "kafka":
		if len(cfg.Audit.KafkaBrokers) == 0 {
			return nil, errors.New("AUDIT_SINK=kafka requires KAFKA_BROKERS")
		}
		client, err := kafka.Dial(ctx, cfg.Audit.KafkaBrokers, cfg.Audit.KafkaTopic)
		if err != nil {
			return nil, err
		}
		sinks.primary = kafka.New(client, cfg.Audit.KafkaTopic)
		sinks.close = client.Close
	default:
		return nil, fmt.Errorf("unknown audit sink %q", cfg.Audit.Sink)
	}

	if cfg.Audit.S3Bucket != "" {
		client, err := s3archive.NewClient(ctx, cfg.Audit.S3Region)
		if err != nil {
			sinks.close()
			return nil, err
		}
		sinks.mirror = s3archive.New(client, cfg.Audit.S3Bucket, cfg.Audit.S3Prefix)
		log.Info("security event archive enabled", "bucket", cfg.Audit.S3Bucket, "prefix", cfg.Audit.S3Prefix)
	}
	return sinks, nil
}

// openCounterStore picks the shared counter store and fronts it with the
// resilient wrapper. The returned sweeper is non-nil when the store needs
// periodic cleanup.
func openCounterStore(
	cfg config.Server,
	db *sql.DB,
	rdb *redis.Client,
	m *rlmetrics.Metrics,
	log *slog.Logger,
) (ports.BucketStore, expiredCounterSweeper, error) {
	var (
		primary ports.BucketStore
		sweeper expiredCounterSweeper
	)
	switch store := cfg.CounterStore(); store {
	case "memory":
		return bucket.NewInMemoryBucketStore(), nil, nil
	case "redis":
		if rdb == nil {
			return nil, nil, errors.New("RATE_LIMIT_STORE=redis requires REDIS_URL")
		}
		primary = bucket.NewRedis(rdb.Client)
	case "postgres":
		if db == nil {
			return nil, nil, errors.New("RATE_LIMIT_STORE=postgres requires DATABASE_URL")
		}
		pg := bucket.NewPostgres(db)
		primary, sweeper = pg, pg
	default:
		return nil, nil, fmt.Errorf("unknown rate limit store %q", store)
	}

	breaker := circuit.New("ratelimit-store",
		circuit.WithFailureThreshold(cfg.RateLimit.FailureThreshold),
		circuit.WithSuccessThreshold(cfg.RateLimit.SuccessThreshold),
	)
	return bucket.NewResilient(primary, nil,
		bucket.WithBreaker(breaker),
		bucket.WithProbeInterval(cfg.RateLimit.ProbeInterval),
		bucket.WithResilientLogger(log),
		bucket.WithResilientMetrics(m),
	), sweeper, nil
}

func openCredentialStore(ctx context.Context, cfg config.Server, db *sql.DB, log *slog.Logger) (partnerservice.CredentialStore, error) {
	if db != nil {
		return partnerstore.NewPostgres(db), nil
	}
	store := partnerstore.NewInMemory()
	if cfg.BootstrapAPIKey == "" {
		log.Warn("no database and no bootstrap key configured, every request will be rejected as unauthenticated")
		return store, nil
	}
	if cfg.IsProduction() {
		return nil, errors.New("BOOTSTRAP_API_KEY is not allowed in production")
	}
	if err := seedPartner(ctx, store, cfg.BootstrapAPIKey); err != nil {
		return nil, err
	}
	log.Info("bootstrap partner credential loaded")
	return store, nil
}

func seedPartner(ctx context.Context, store *partnerstore.InMemory, rawKey string) error {
	keyID, secret, ok := partnermodels.ParseAPIKey(rawKey)
	if !ok {
		return errors.New("BOOTSTRAP_API_KEY must have the form <keyID>.<secret>")
	}
	hash, err := secrets.Hash(secret)
	if err != nil {
		return fmt.Errorf("hash bootstrap secret: %w", err)
	}
	partnerID := id.PartnerID(uuid.New())
	if err := store.CreatePartner(ctx, &partnermodels.Partner{ID: partnerID, Name: "bootstrap", Active: true}); err != nil {
		return fmt.Errorf("seed bootstrap partner: %w", err)
	}
	return store.CreateCredential(ctx, &partnermodels.Credential{
		ID:         id.CredentialID(uuid.New()),
		PartnerID:  partnerID,
		KeyID:      keyID,
		SecretHash: hash,
	})
}

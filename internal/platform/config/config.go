package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	strs "ingestgate/pkg/platform/strings"
)

// Server captures process-level configuration. Rate-limit budgets live in
// internal/ratelimit/config and are loaded separately.
type Server struct {
	Addr       string
	Env        string
	LogLevel   string
	AdminToken string

	// TrustProxy enables X-Forwarded-For / X-Real-IP client IP resolution.
	TrustProxy     bool
	AllowedOrigins []string
	MaxBodyBytes   int64

	// BootstrapAPIKey seeds one partner credential ("<keyID>.<secret>")
	// when no database is configured.
	BootstrapAPIKey string

	// RateLimitFile points at a YAML budget file; empty uses defaults.
	RateLimitFile string
	RateLimit     RateLimitConfig

	Database DatabaseConfig
	Redis    RedisConfig
	Audit    AuditConfig
	Timeouts Timeouts
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// RateLimitConfig selects the shared counter store and when to fall back to
// per-instance counters.
type RateLimitConfig struct {
	Store            string // redis | postgres | memory; empty picks redis when REDIS_URL is set
	FailureThreshold int
	SuccessThreshold int
	ProbeInterval    time.Duration
}

// AuditConfig selects where security events go.
type AuditConfig struct {
	Sink          string // memory | postgres | kafka
	Async         bool
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	// S3Bucket enables the archive mirror when set.
	S3Bucket string
	S3Prefix string
	S3Region string
}

// Timeouts bounds each external call made while handling a request.
type Timeouts struct {
	CredentialLookup time.Duration
	CounterIncrement time.Duration
	EventWrite       time.Duration
	EventRead        time.Duration
	InsightWrite     time.Duration
	AuditWrite       time.Duration
	Shutdown         time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Addr:           getEnv("INGESTGATE_ADDR", ":8080"),
		Env:            getEnv("ENVIRONMENT", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AdminToken:     os.Getenv("ADMIN_API_TOKEN"),
		TrustProxy:     getBool("TRUST_PROXY", false),
		AllowedOrigins: getList("CORS_ALLOWED_ORIGINS"),
		MaxBodyBytes:   int64(getInt("MAX_BODY_BYTES", 1<<20)),
		RateLimitFile:  os.Getenv("RATE_LIMIT_CONFIG"),

		BootstrapAPIKey: os.Getenv("BOOTSTRAP_API_KEY"),
		RateLimit: RateLimitConfig{
			Store:            strings.ToLower(os.Getenv("RATE_LIMIT_STORE")),
			FailureThreshold: getInt("RATE_LIMIT_BREAKER_FAILURES", 5),
			SuccessThreshold: getInt("RATE_LIMIT_BREAKER_SUCCESSES", 3),
			ProbeInterval:    getDuration("RATE_LIMIT_PROBE_INTERVAL", time.Second),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 20),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 2*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 500*time.Millisecond),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 500*time.Millisecond),
		},
		Audit: AuditConfig{
			Sink:          getEnv("AUDIT_SINK", "memory"),
			Async:         getBool("AUDIT_ASYNC", true),
			BufferSize:    getInt("AUDIT_BUFFER_SIZE", 4096),
			BatchSize:     getInt("AUDIT_BATCH_SIZE", 100),
			FlushInterval: getDuration("AUDIT_FLUSH_INTERVAL", time.Second),
			KafkaBrokers:  getList("KAFKA_BROKERS"),
			KafkaTopic:    getEnv("KAFKA_SECURITY_TOPIC", "ingestgate.security-events"),
			S3Bucket:      os.Getenv("AUDIT_ARCHIVE_BUCKET"),
			S3Prefix:      getEnv("AUDIT_ARCHIVE_PREFIX", "security-events"),
			S3Region:      getEnv("AWS_REGION", "us-east-1"),
		},
		Timeouts: Timeouts{
			CredentialLookup: getDuration("TIMEOUT_CREDENTIAL_LOOKUP", 2*time.Second),
			CounterIncrement: getDuration("TIMEOUT_COUNTER_INCREMENT", 250*time.Millisecond),
			EventWrite:       getDuration("TIMEOUT_EVENT_WRITE", 3*time.Second),
			EventRead:        getDuration("TIMEOUT_EVENT_READ", 2*time.Second),
			InsightWrite:     getDuration("TIMEOUT_INSIGHT_WRITE", 2*time.Second),
			AuditWrite:       getDuration("TIMEOUT_AUDIT_WRITE", time.Second),
			Shutdown:         getDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		},
	}
}

func (s Server) IsProduction() bool {
	return s.Env == "production"
}

// CounterStore resolves which rate-limit counter store to use.
func (s Server) CounterStore() string {
	if s.RateLimit.Store != "" {
		return s.RateLimit.Store
	}
	if s.Redis.URL != "" {
		return "redis"
	}
	return "memory"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}

func getList(key string) []string {
	return strs.SplitList(os.Getenv(key))
}

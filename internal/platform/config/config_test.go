package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"INGESTGATE_ADDR", "AUDIT_SINK", "TIMEOUT_EVENT_WRITE", "CORS_ALLOWED_ORIGINS", "MAX_BODY_BYTES"} {
		t.Setenv(k, "")
	}
	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "memory", cfg.Audit.Sink)
	assert.Equal(t, 3*time.Second, cfg.Timeouts.EventWrite)
	assert.Equal(t, int64(1<<20), cfg.MaxBodyBytes)
	assert.Nil(t, cfg.AllowedOrigins)
	assert.False(t, cfg.IsProduction())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("INGESTGATE_ADDR", ":9090")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("AUDIT_SINK", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("TIMEOUT_INSIGHT_WRITE", "750ms")
	t.Setenv("TIMEOUT_AUDIT_WRITE", "not-a-duration")
	t.Setenv("TRUST_PROXY", "true")

	cfg := FromEnv()

	assert.Equal(t, ":9090", cfg.Addr)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Audit.KafkaBrokers)
	assert.Equal(t, 750*time.Millisecond, cfg.Timeouts.InsightWrite)
	assert.Equal(t, time.Second, cfg.Timeouts.AuditWrite)
	assert.True(t, cfg.TrustProxy)
}

func TestCounterStore(t *testing.T) {
	assert.Equal(t, "memory", Server{}.CounterStore())
	assert.Equal(t, "redis", Server{Redis: RedisConfig{URL: "redis://localhost:6379"}}.CounterStore())
	assert.Equal(t, "postgres", Server{
		Redis:     RedisConfig{URL: "redis://localhost:6379"},
		RateLimit: RateLimitConfig{Store: "postgres"},
	}.CounterStore(), "explicit choice wins")
}

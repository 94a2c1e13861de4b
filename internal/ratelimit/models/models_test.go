package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "ingestgate/pkg/domain-errors"
)

func TestWindowStart(t *testing.T) {
	window := time.Minute
	base := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)

	t.Run("aligned to minute boundary", func(t *testing.T) {
		got := WindowStart(base.Add(42*time.Second+500*time.Millisecond), window)
		assert.True(t, got.Equal(base))
	})

	t.Run("boundary belongs to the new window", func(t *testing.T) {
		got := WindowStart(base.Add(window), window)
		assert.True(t, got.Equal(base.Add(window)))
	})

	t.Run("last millisecond belongs to the old window", func(t *testing.T) {
		got := WindowStart(base.Add(window-time.Millisecond), window)
		assert.True(t, got.Equal(base))
	})

	t.Run("window end", func(t *testing.T) {
		assert.True(t, WindowEnd(base.Add(time.Second), window).Equal(base.Add(window)))
	})
}

func TestRetryAfterSeconds(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 30, 10, 0, time.UTC)

	assert.Equal(t, 50, RetryAfterSeconds(now, now.Add(50*time.Second)))
	assert.Equal(t, 1, RetryAfterSeconds(now, now.Add(200*time.Millisecond)), "rounded up")
	assert.Equal(t, 1, RetryAfterSeconds(now, now.Add(-time.Second)), "floor of one second")
}

func TestApplyBurst(t *testing.T) {
	// steady 10, burst 5 -> budget 15
	tests := []struct {
		name      string
		remaining int
		want      int
	}{
		{"fresh window", 14, 4},
		{"burst exhausted", 10, 0},
		{"into steady units", 3, 0},
		{"nothing used", 15, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &RateLimitResult{Limit: 15, Remaining: tt.remaining}
			r.ApplyBurst(5)
			assert.Equal(t, tt.want, r.BurstRemaining)
		})
	}
}

func TestNewRateLimitKey(t *testing.T) {
	assert.Equal(t, "rl:ip:ingest:203.0.113.7", NewRateLimitKey(LimiterIP, "203.0.113.7", ClassIngest))
	assert.Equal(t, "rl:ip:read:2001_db8__1", NewRateLimitKey(LimiterIP, "2001:db8::1", ClassRead))
	assert.Equal(t, "rl:credential:ingest:p_admin", NewRateLimitKey(LimiterCredential, "p:admin", ClassIngest))
	assert.Equal(t, "rl:ip:ingest:x:1700000000000", WindowKey("rl:ip:ingest:x", 1700000000000))
}

func TestResetRateLimitRequest(t *testing.T) {
	t.Run("normalizes and validates", func(t *testing.T) {
		req := &ResetRateLimitRequest{Type: " IP ", Identifier: " 203.0.113.7 ", Class: "Ingest"}
		req.Normalize()
		require.NoError(t, req.Validate())
		assert.Equal(t, LimiterIP, req.Type)
		assert.Equal(t, []EndpointClass{ClassIngest}, req.Classes())
	})

	t.Run("missing fields are reported per field", func(t *testing.T) {
		err := (&ResetRateLimitRequest{}).Validate()
		require.Error(t, err)
		de, ok := dErrors.From(err)
		require.True(t, ok)
		assert.Equal(t, dErrors.CodeValidation, de.Code)
		assert.Equal(t, []string{"Required"}, de.Fields["type"])
		assert.Equal(t, []string{"Required"}, de.Fields["identifier"])
	})

	t.Run("unknown type", func(t *testing.T) {
		err := (&ResetRateLimitRequest{Type: "user_id", Identifier: "x"}).Validate()
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("empty class resets all", func(t *testing.T) {
		req := &ResetRateLimitRequest{Type: LimiterCredential, Identifier: "p"}
		assert.Len(t, req.Classes(), 3)
	})
}

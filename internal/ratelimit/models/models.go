package models

import (
	"math"
	"time"
)

// EndpointClass groups routes that share a rate-limit budget.
type EndpointClass string

const (
	ClassIngest EndpointClass = "ingest"
	ClassRead   EndpointClass = "read"
	ClassAdmin  EndpointClass = "admin"
)

func (c EndpointClass) IsValid() bool {
	switch c {
	case ClassIngest, ClassRead, ClassAdmin:
		return true
	}
	return false
}

// LimiterKind names the limiter that produced a result.
type LimiterKind string

const (
	LimiterIP         LimiterKind = "ip"
	LimiterCredential LimiterKind = "credential"
)

func (k LimiterKind) IsValid() bool {
	return k == LimiterIP || k == LimiterCredential
}

// RateLimitResult is the outcome of one conditional increment.
//
// Limit is the full per-window budget (steady + burst). Burst units are
// counted as consumed first, so BurstRemaining only reaches zero once
// Remaining drops to the steady rate or below.
type RateLimitResult struct {
	Allowed        bool
	Limit          int
	Remaining      int
	BurstRemaining int
	ResetAt        time.Time
	RetryAfter     int // seconds, only set when rejected
	Limiter        LimiterKind
	Degraded       bool
}

// ApplyBurst fills BurstRemaining for a budget made of steady + burst units.
func (r *RateLimitResult) ApplyBurst(burst int) {
	if r == nil || burst <= 0 {
		return
	}
	used := r.Limit - r.Remaining
	r.BurstRemaining = max(burst-used, 0)
}

// WindowStart aligns t to the start of its fixed window. Windows are
// multiples of the window length since the Unix epoch, so every instance
// agrees on the boundary regardless of when it started.
func WindowStart(t time.Time, window time.Duration) time.Time {
	ms := window.Milliseconds()
	if ms <= 0 {
		return t
	}
	now := t.UnixMilli()
	return time.UnixMilli(now - now%ms).In(t.Location())
}

// WindowEnd is the instant the window containing t rolls over.
func WindowEnd(t time.Time, window time.Duration) time.Time {
	return WindowStart(t, window).Add(window)
}

// RetryAfterSeconds rounds the wait until resetAt up to whole seconds, with
// a floor of one so clients never get "Retry-After: 0".
func RetryAfterSeconds(now, resetAt time.Time) int {
	secs := int(math.Ceil(resetAt.Sub(now).Seconds()))
	return max(secs, 1)
}

// Rejected builds the result for a request the store refused.
func Rejected(limit, current int, resetAt, now time.Time) *RateLimitResult {
	return &RateLimitResult{
		Allowed:    false,
		Limit:      limit,
		Remaining:  max(limit-current, 0),
		ResetAt:    resetAt,
		RetryAfter: RetryAfterSeconds(now, resetAt),
	}
}

// Admitted builds the result for a request the store counted.
func Admitted(limit, current int, resetAt time.Time) *RateLimitResult {
	return &RateLimitResult{
		Allowed:   true,
		Limit:     limit,
		Remaining: max(limit-current, 0),
		ResetAt:   resetAt,
	}
}

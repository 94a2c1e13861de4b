// Package audit defines the security audit record written for every denied
// or anomalous request, and the sink contract that stores it.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Kind names the reason a request was denied. The string values are the
// stable identifiers stored downstream and must not change.
type Kind string

const (
	KindMissingCredential Kind = "access denied: missing credential"
	KindInvalidCredential Kind = "access denied: invalid credential"
	KindRateLimitExceeded Kind = "rate limit exceeded"
	KindInvalidJSON       Kind = "invalid JSON"
	KindInvalidData       Kind = "access denied: invalid data"

	// Operator actions recorded for traceability.
	KindRateLimitReset Kind = "rate limit reset"
)

// Severity levels for SIEM routing.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

var kindSeverity = map[Kind]Severity{
	KindMissingCredential: SeverityWarning,
	KindInvalidCredential: SeverityWarning,
	KindRateLimitExceeded: SeverityWarning,
	KindInvalidJSON:       SeverityInfo,
	KindInvalidData:       SeverityInfo,
	KindRateLimitReset:    SeverityInfo,
}

// Severity returns the default severity for the kind. Unknown kinds are
// treated as warnings.
func (k Kind) Severity() Severity {
	if s, ok := kindSeverity[k]; ok {
		return s
	}
	return SeverityWarning
}

// SecurityEvent is one write-only record per rejected request.
type SecurityEvent struct {
	ID        uuid.UUID
	Timestamp time.Time
	Kind      Kind
	Severity  Severity

	// PartnerID is set once the credential has been resolved.
	PartnerID string
	IP        string
	UserAgent string
	// ClientClass and Bot are derived from UserAgent at publish time.
	ClientClass string
	Bot         bool

	// Detail is free-form diagnostic text, e.g. which limiter rejected.
	Detail    string
	RequestID string
}

// Emitter accepts security events from request-handling code. Emit never
// fails from the caller's point of view.
type Emitter interface {
	Emit(ctx context.Context, event SecurityEvent)
}

// Sink persists batches of security events.
type Sink interface {
	Write(ctx context.Context, events []SecurityEvent) error
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(ctx context.Context, event SecurityEvent)

func (f EmitterFunc) Emit(ctx context.Context, event SecurityEvent) {
	f(ctx, event)
}

// Discard drops every event.
var Discard Emitter = EmitterFunc(func(context.Context, SecurityEvent) {})

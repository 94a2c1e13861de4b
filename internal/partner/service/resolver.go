package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"ingestgate/internal/partner/metrics"
	"ingestgate/internal/partner/models"
	"ingestgate/internal/partner/secrets"
	dErrors "ingestgate/pkg/domain-errors"
	"ingestgate/pkg/platform/sentinel"
)

type CredentialStore interface {
	FindCredentialByKeyID(ctx context.Context, keyID string) (*models.Credential, error)
}

const (
	outcomeResolved = "resolved"
	outcomeRejected = "rejected"
	outcomeError    = "error"

	defaultLookupTimeout = 2 * time.Second
)

// ErrInvalidCredential is returned for every credential that does not
// resolve, whatever the reason, so callers cannot tell the cases apart.
var ErrInvalidCredential = dErrors.New(dErrors.CodeUnauthenticated, "Invalid API key")

// Resolver maps a presented API key to the owning partner.
type Resolver struct {
	store         CredentialStore
	logger        *slog.Logger
	metrics       *metrics.Metrics
	lookupTimeout time.Duration
	dummyHash     string
	now           func() time.Time
}

type Option func(*Resolver)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

func WithLookupTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.lookupTimeout = d
		}
	}
}

// WithDummyHash replaces the hash compared against for unknown key ids. It
// should share the cost factor of stored hashes.
func WithDummyHash(hash string) Option {
	return func(r *Resolver) { r.dummyHash = hash }
}

func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

func New(store CredentialStore, opts ...Option) *Resolver {
	r := &Resolver{
		store:         store,
		logger:        slog.Default(),
		lookupTimeout: defaultLookupTimeout,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.dummyHash == "" {
		r.dummyHash = secrets.DummyHash()
	}
	return r
}

// Resolve authenticates raw. Unknown, malformed, mismatched, revoked and
// inactive-partner keys all cost one bcrypt comparison and return
// ErrInvalidCredential. A store failure returns CodeInternal: the caller
// must fail closed.
func (r *Resolver) Resolve(ctx context.Context, raw string) (models.Identity, error) {
	start := time.Now()

	keyID, secret, ok := models.ParseAPIKey(raw)
	if !ok {
		r.burn(raw)
		r.metrics.ObserveResolve(start, outcomeRejected)
		return models.Identity{}, ErrInvalidCredential
	}

	lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.lookupTimeout)
	cred, err := r.store.FindCredentialByKeyID(lookupCtx, keyID)
	cancel()
	if errors.Is(err, sentinel.ErrNotFound) {
		r.burn(secret)
		r.metrics.ObserveResolve(start, outcomeRejected)
		return models.Identity{}, ErrInvalidCredential
	}
	if err != nil {
		r.metrics.ObserveResolve(start, outcomeError)
		r.logger.ErrorContext(ctx, "credential lookup failed", "error", err)
		return models.Identity{}, dErrors.Wrap(err, dErrors.CodeInternal, "credential lookup failed")
	}

	verifyErr := secrets.Verify(secret, cred.SecretHash)
	if verifyErr != nil || !cred.Usable(r.now()) {
		if verifyErr != nil && !errors.Is(verifyErr, secrets.ErrMismatch) {
			r.logger.WarnContext(ctx, "stored credential hash unusable",
				"credential_id", cred.ID.String(),
				"error", verifyErr,
			)
		}
		r.metrics.ObserveResolve(start, outcomeRejected)
		return models.Identity{}, ErrInvalidCredential
	}

	r.metrics.ObserveResolve(start, outcomeResolved)
	return models.Identity{PartnerID: cred.PartnerID, CredentialID: cred.ID}, nil
}

func (r *Resolver) burn(secret string) {
	_ = secrets.Verify(secret, r.dummyHash)
}

// Package security publishes SecurityEvents to an audit sink, either
// synchronously with a per-write timeout or through a bounded buffer that
// a background loop flushes in batches. Write failures are logged and
// counted, never returned to the request path.
package security

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	audit "ingestgate/pkg/platform/audit"
	request "ingestgate/pkg/platform/middleware/request"
	"ingestgate/pkg/platform/privacy"
)

const (
	defaultWriteTimeout  = 2 * time.Second
	defaultBatchSize     = 100
	defaultFlushInterval = time.Second
)

type Publisher struct {
	sink    audit.Sink
	mirrors []audit.Sink
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time

	writeTimeout time.Duration

	// async mode
	buffer        *RingBuffer
	batchSize     int
	flushInterval time.Duration
	wake          chan struct{}
}

type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) { p.metrics = m }
}

func WithWriteTimeout(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.writeTimeout = d
		}
	}
}

// WithAsync buffers up to capacity events and flushes them in batches of
// batchSize from Run.
func WithAsync(capacity, batchSize int, flushInterval time.Duration) Option {
	return func(p *Publisher) {
		p.buffer = NewRingBuffer(capacity)
		if batchSize > 0 {
			p.batchSize = batchSize
		}
		if flushInterval > 0 {
			p.flushInterval = flushInterval
		}
	}
}

// WithMirror adds a secondary sink that receives every batch written to the
// primary sink. Mirror failures are logged only.
func WithMirror(sink audit.Sink) Option {
	return func(p *Publisher) {
		if sink != nil {
			p.mirrors = append(p.mirrors, sink)
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Publisher) { p.now = now }
}

func New(sink audit.Sink, opts ...Option) *Publisher {
	p := &Publisher{
		sink:          sink,
		logger:        slog.Default(),
		now:           time.Now,
		writeTimeout:  defaultWriteTimeout,
		batchSize:     defaultBatchSize,
		flushInterval: defaultFlushInterval,
		wake:          make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit records event. In sync mode it blocks for at most the write timeout,
// independent of ctx cancellation.
func (p *Publisher) Emit(ctx context.Context, event audit.SecurityEvent) {
	p.complete(ctx, &event)
	p.metrics.incEmitted(string(event.Kind))

	if p.buffer == nil {
		p.write(ctx, []audit.SecurityEvent{event})
		return
	}
	if p.buffer.Push(event) {
		p.metrics.incOverwritten()
		p.logger.WarnContext(ctx, "security audit buffer full, oldest event overwritten")
	}
	pending := p.buffer.Len()
	p.metrics.setPending(pending)
	if pending >= p.batchSize {
		select {
		case p.wake <- struct{}{}:
		default:
		}
	}
}

func (p *Publisher) complete(ctx context.Context, event *audit.SecurityEvent) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now().UTC()
	}
	if event.Severity == "" {
		event.Severity = event.Kind.Severity()
	}
	if event.RequestID == "" {
		event.RequestID = request.GetRequestID(ctx)
	}
	if event.ClientClass == "" {
		event.ClientClass, event.Bot = describeClient(event.UserAgent)
	}
}

// Run flushes the async buffer until ctx is done, then drains what is left.
// In sync mode it only waits for ctx.
func (p *Publisher) Run(ctx context.Context) error {
	if p.buffer == nil {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.Flush(context.WithoutCancel(ctx))
			return nil
		case <-ticker.C:
			p.Flush(ctx)
		case <-p.wake:
			p.Flush(ctx)
		}
	}
}

// Flush writes every buffered event. No-op in sync mode.
func (p *Publisher) Flush(ctx context.Context) {
	if p.buffer == nil {
		return
	}
	for {
		batch := p.buffer.PopBatch(p.batchSize)
		if len(batch) == 0 {
			break
		}
		p.write(ctx, batch)
	}
	p.metrics.setPending(p.buffer.Len())
}

func (p *Publisher) write(ctx context.Context, batch []audit.SecurityEvent) {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.writeTimeout)
	defer cancel()

	if err := p.sink.Write(writeCtx, batch); err != nil {
		p.metrics.addWriteFailures(len(batch))
		p.logger.ErrorContext(ctx, "failed to persist security events",
			"error", err,
			"count", len(batch),
			"first_kind", string(batch[0].Kind),
			"ip_prefix", privacy.AnonymizeIP(batch[0].IP),
		)
	} else {
		p.metrics.addPersisted(len(batch))
	}

	for _, m := range p.mirrors {
		if err := m.Write(writeCtx, batch); err != nil {
			p.logger.WarnContext(ctx, "security event mirror write failed", "error", err, "count", len(batch))
		}
	}
}

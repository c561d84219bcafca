package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Locker serializes work on a key across goroutines or instances.
// Locks are not reentrant.
type Locker interface {
	// Lock blocks until the key is held or ctx is done
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// PeriodLockKey is the lock key for a billing period
func PeriodLockKey(periodID uuid.UUID) string {
	return "billing:period:" + periodID.String()
}

// CustomerLockKey is the lock key for a customer's money movements
func CustomerLockKey(customerID uuid.UUID) string {
	return "billing:customer:" + customerID.String()
}

type noopLocker struct{}

func (noopLocker) Lock(context.Context, string) (func(), error) {
	return func() {}, nil
}

// Metrics records billing business metrics
type Metrics interface {
	PeriodTransitioned(from, to string)
	ReadingSubmitted(status string)
	InvoicesGenerated(created, skipped int)
	PaymentRecorded(method string, allocated, toWallet decimal.Decimal)
	WalletOperation(txType, result string)
	ObserveOperation(operation string, elapsed time.Duration, err error)
}

// NoopMetrics discards all metrics
type NoopMetrics struct{}

func (NoopMetrics) PeriodTransitioned(string, string) {}
func (NoopMetrics) ReadingSubmitted(string) {}
func (NoopMetrics) InvoicesGenerated(int, int) {}
func (NoopMetrics) PaymentRecorded(string, decimal.Decimal, decimal.Decimal) {}
func (NoopMetrics) WalletOperation(string, string) {}
func (NoopMetrics) ObserveOperation(string, time.Duration, error) {}

// Option configures a billing service
type Option func(*deps)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(d *deps) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithLocker sets the locker used for per-period and per-customer locks
func WithLocker(locker Locker) Option {
	return func(d *deps) {
		if locker != nil {
			d.locker = locker
		}
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(metrics Metrics) Option {
	return func(d *deps) {
		if metrics != nil {
			d.metrics = metrics
		}
	}
}

// WithEventPublisher sets the domain event publisher
func WithEventPublisher(publisher shared.EventPublisher) Option {
	return func(d *deps) {
		d.publisher = publisher
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(d *deps) {
		if now != nil {
			d.now = now
		}
	}
}

// deps are the collaborators every billing service shares
type deps struct {
	scope     TransactionScope
	cfg       Config
	logger    *zap.Logger
	locker    Locker
	metrics   Metrics
	publisher shared.EventPublisher
	now       func() time.Time
}

func newDeps(scope TransactionScope, cfg Config, opts []Option) deps {
	d := deps{
		scope:   scope,
		cfg:     cfg.normalized(),
		logger:  zap.NewNop(),
		locker:  noopLocker{},
		metrics: NoopMetrics{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// publish sends and clears the pending events of the given aggregates.
// Publishing happens after commit; failures are logged, not returned.
func (d *deps) publish(ctx context.Context, sources ...shared.EventSource) {
	var events []shared.DomainEvent
	for _, src := range sources {
		if src == nil {
			continue
		}
		events = append(events, src.GetDomainEvents()...)
		src.ClearDomainEvents()
	}
	if d.publisher == nil || len(events) == 0 {
		return
	}
	if err := d.publisher.Publish(ctx, events...); err != nil {
		d.logger.Warn("failed to publish billing events", zap.Int("count", len(events)), zap.Error(err))
	}
}

// observe records operation latency: defer d.observe("op", time.Now(), &err)
func (d *deps) observe(operation string, started time.Time, err *error) {
	var e error
	if err != nil {
		e = *err
	}
	d.metrics.ObserveOperation(operation, time.Since(started), e)
}

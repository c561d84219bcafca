// Package scheduler runs periodic billing maintenance in the background.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/meterbill/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

var (
	ErrSchedulerNotRunning = errors.New("scheduler is not running")
	ErrInvalidConfig       = errors.New("invalid scheduler configuration")
)

// OverdueMarker flags open invoices whose due date has passed
type OverdueMarker interface {
	MarkOverdue(ctx context.Context, now time.Time) (int, error)
}

type OverdueSweeperConfig struct {
	Interval     time.Duration // zero disables the sweeper
	RunOnStart   bool
	SweepTimeout time.Duration
}

func DefaultOverdueSweeperConfig() OverdueSweeperConfig {
	return OverdueSweeperConfig{Interval: time.Hour, RunOnStart: true, SweepTimeout: 5 * time.Minute}
}

// OverdueSweeper calls MarkOverdue on a fixed interval. Sweeps never overlap:
// the ticker and TriggerImmediate both feed the same loop.
type OverdueSweeper struct {
	marker OverdueMarker
	log    *zap.Logger
	cfg    OverdueSweeperConfig
	now    func() time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	trigger chan struct{}

	lastRun   time.Time
	lastCount int
}

func NewOverdueSweeper(marker OverdueMarker, log *zap.Logger, cfg OverdueSweeperConfig) *OverdueSweeper {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.SweepTimeout <= 0 {
		cfg.SweepTimeout = DefaultOverdueSweeperConfig().SweepTimeout
	}
	return &OverdueSweeper{marker: marker, log: log, cfg: cfg, now: time.Now}
}

// Start launches the sweep loop. Starting a running sweeper is a no-op and a
// zero interval leaves it idle.
func (s *OverdueSweeper) Start(ctx context.Context) error {
	if s.cfg.Interval < 0 {
		return fmt.Errorf("%w: negative sweep interval", ErrInvalidConfig)
	}
	if s.cfg.Interval == 0 {
		s.log.Info("Overdue sweeper is disabled")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return nil
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.trigger = make(chan struct{}, 1)
	go s.loop(ctx, s.trigger, s.done)

	s.log.Info("Overdue sweeper started",
		zap.Duration("interval", s.cfg.Interval),
		zap.Bool("run_on_start", s.cfg.RunOnStart),
	)
	return nil
}

// Stop cancels the loop and waits for an in-flight sweep, up to ctx.
func (s *OverdueSweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done, s.trigger = nil, nil, nil
	s.mu.Unlock()
	if done == nil {
		return nil
	}

	cancel()
	select {
	case <-done:
		s.log.Info("Overdue sweeper stopped")
		return nil
	case <-ctx.Done():
		s.log.Warn("Overdue sweeper stop timed out")
		return ctx.Err()
	}
}

// TriggerImmediate queues a sweep. A sweep already queued absorbs the request.
func (s *OverdueSweeper) TriggerImmediate(ctx context.Context) error {
	s.mu.Lock()
	trigger := s.trigger
	s.mu.Unlock()
	if trigger == nil {
		return ErrSchedulerNotRunning
	}

	select {
	case trigger <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	return nil
}

func (s *OverdueSweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done != nil
}

// LastRun reports the as-of time of the last sweep and how many invoices it marked
func (s *OverdueSweeper) LastRun() (time.Time, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun, s.lastCount
}

func (s *OverdueSweeper) loop(ctx context.Context, trigger <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	if s.cfg.RunOnStart {
		s.sweep(ctx)
	}
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-trigger:
		}
		s.sweep(ctx)
	}
}

func (s *OverdueSweeper) sweep(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.SweepTimeout)
	defer cancel()

	asOf := s.now()
	began := time.Now()
	var (
		marked int
		err    error
	)
	telemetry.WithProfilingLabels(ctx, map[string]string{telemetry.ProfilingLabelOperation: "invoice.mark_overdue"}, func(ctx context.Context) {
		marked, err = s.marker.MarkOverdue(ctx, asOf)
	})

	s.mu.Lock()
	s.lastRun, s.lastCount = asOf, marked
	s.mu.Unlock()

	fields := []zap.Field{zap.Duration("duration", time.Since(began)), zap.Int("marked", marked)}
	switch {
	case err != nil:
		s.log.Error("Overdue sweep failed", append(fields, zap.Error(err))...)
	case marked > 0:
		s.log.Info("Overdue sweep completed", fields...)
	default:
		s.log.Debug("Overdue sweep completed", fields...)
	}
}

package instances

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/JaimeStill/rainn/pkg/lifecycle"
	"github.com/JaimeStill/rainn/pkg/metrics"
)

// SweepConfig controls retention sweeps. A zero StaleAfter disables reaping
// of abandoned RUNNING runs.
type SweepConfig struct {
	Interval   time.Duration
	Retention  time.Duration
	StaleAfter time.Duration
}

// Sweeper enforces run retention: expired runs are soft-deleted, old receipts
// are purged, and abandoned RUNNING runs are failed. Sweeps are rate-limited
// to one per interval no matter how often they are requested.
type Sweeper struct {
	sys     System
	cfg     SweepConfig
	metrics *metrics.Recorder
	logger  *slog.Logger
	now     func() time.Time

	mu      sync.Mutex
	last    time.Time
	running atomic.Bool
	wg      sync.WaitGroup
}

// SweeperOption configures a Sweeper.
type SweeperOption func(*Sweeper)

// WithClock replaces the sweeper's time source.
func WithClock(now func() time.Time) SweeperOption {
	return func(s *Sweeper) {
		s.now = now
	}
}

// NewSweeper creates a Sweeper over sys. rec may be nil.
func NewSweeper(
	sys System,
	cfg SweepConfig,
	rec *metrics.Recorder,
	logger *slog.Logger,
	opts ...SweeperOption,
) *Sweeper {
	s := &Sweeper{
		sys:     sys,
		cfg:     cfg,
		metrics: rec,
		logger:  logger.With("system", "sweeper"),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs due sweeps on the coordinator's ticker and waits for in-flight
// background sweeps during shutdown.
func (s *Sweeper) Start(lc *lifecycle.Coordinator) {
	lc.Tick(s.cfg.Interval, func(ctx context.Context) {
		if s.acquire() {
			defer s.running.Store(false)
			s.run(ctx)
		}
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		s.wg.Wait()
	})
}

// MaybeSweep starts a background sweep if the interval has elapsed since the
// last one and none is in progress. It reports whether a sweep was started.
func (s *Sweeper) MaybeSweep(ctx context.Context) bool {
	if !s.acquire() {
		return false
	}

	s.wg.Go(func() {
		defer s.running.Store(false)
		s.run(ctx)
	})
	return true
}

// Wait blocks until background sweeps started by MaybeSweep return.
func (s *Sweeper) Wait() {
	s.wg.Wait()
}

// Sweep performs one retention pass immediately, ignoring the rate limit.
func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	now := s.now()
	var result SweepResult
	var errs []error

	expired, err := s.sys.Expired(ctx, now)
	if err != nil {
		errs = append(errs, err)
	}
	for _, inst := range expired {
		if err := s.sys.Expire(ctx, inst.ID, now); err != nil {
			if !errors.Is(err, ErrRunning) && !errors.Is(err, ErrNotExpired) {
				errs = append(errs, fmt.Errorf("soft delete %s: %w", inst.ID, err))
			}
			continue
		}
		result.SoftDeleted++
	}

	purged, err := s.sys.Purge(ctx, now.Add(-s.cfg.Retention))
	if err != nil {
		errs = append(errs, err)
	}
	result.Purged = purged

	if s.cfg.StaleAfter > 0 {
		reaped, err := s.sys.ReapStale(ctx, now.Add(-s.cfg.StaleAfter))
		if err != nil {
			errs = append(errs, err)
		}
		result.Reaped = reaped
	}

	s.metrics.Swept(metrics.ActionSoftDeleted, result.SoftDeleted)
	s.metrics.Swept(metrics.ActionPurged, int(result.Purged))
	s.metrics.Swept(metrics.ActionReaped, int(result.Reaped))

	return result, errors.Join(errs...)
}

func (s *Sweeper) acquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if !s.last.IsZero() && now.Sub(s.last) < s.cfg.Interval {
		return false
	}
	if !s.running.CompareAndSwap(false, true) {
		return false
	}

	s.last = now
	return true
}

func (s *Sweeper) run(ctx context.Context) {
	result, err := s.Sweep(ctx)
	if err != nil {
		s.logger.Error("retention sweep failed", "error", err)
	}
	if result.SoftDeleted > 0 || result.Purged > 0 || result.Reaped > 0 {
		s.logger.Info(
			"retention sweep complete",
			"soft_deleted", result.SoftDeleted,
			"purged", result.Purged,
			"reaped", result.Reaped,
		)
	}
}

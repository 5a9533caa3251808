package scheduler

import (
	"context"
	"sync"
	"time"

	"diu-events-backend/internal/user/usecase"
	"diu-events-backend/pkg/obs"

	"go.uber.org/zap"
)

// TokenReaperScheduler runs the token reaper on a fixed interval
type TokenReaperScheduler struct {
	reaper   usecase.Reaper
	interval time.Duration
	log      *zap.Logger
	now      func() time.Time

	mu       sync.Mutex
	started  bool
	stopped  bool
	stopChan chan struct{}
	done     chan struct{}
}

// NewTokenReaperScheduler creates a new scheduler
func NewTokenReaperScheduler(reaper usecase.Reaper, interval time.Duration, log *zap.Logger) *TokenReaperScheduler {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &TokenReaperScheduler{
		reaper:   reaper,
		interval: interval,
		log:      log,
		now:      time.Now,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (s *TokenReaperScheduler) Interval() time.Duration {
	return s.interval
}

// Start begins the scheduler loop. The first sweep runs immediately.
// Calls after the first Start or after Stop do nothing.
func (s *TokenReaperScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped {
		return
	}
	s.started = true

	s.log.Info("starting token reaper", zap.Duration("interval", s.interval))

	go func() {
		defer close(s.done)

		s.RunOnce(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.RunOnce(ctx)
			case <-ctx.Done():
				s.log.Info("token reaper stopped", zap.Error(ctx.Err()))
				return
			case <-s.stopChan:
				s.log.Info("token reaper stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the scheduler and waits for a running sweep. It
// returns at once when Start was never called.
func (s *TokenReaperScheduler) Stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		close(s.stopChan)
		if !s.started {
			close(s.done)
		}
	}
	s.mu.Unlock()
	<-s.done
}

// RunOnce performs one sweep. Failures are logged and left for the next
// run; nothing is retried.
func (s *TokenReaperScheduler) RunOnce(ctx context.Context) {
	start := s.now()
	cleared, err := s.reaper.Sweep(ctx, start)
	obs.ReaperDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		obs.ReaperRuns.WithLabelValues("error").Inc()
		s.log.Error("error cleaning up tokens", zap.Error(err))
		return
	}

	obs.ReaperRuns.WithLabelValues("ok").Inc()
	if cleared > 0 {
		obs.TokensReaped.Add(float64(cleared))
		s.log.Info("cleaned up old FCM tokens", zap.Int("count", cleared))
	}
}

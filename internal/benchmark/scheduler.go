package benchmark

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Refreshable is anything the scheduler can drive.
type Refreshable interface {
	Refresh(ctx context.Context) RefreshResult
}

// Scheduler runs a benchmark refresh on a fixed interval.
type Scheduler struct {
	refresher  Refreshable
	interval   time.Duration
	runOnStart bool
	timeout    time.Duration
	logger     *zap.Logger

	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewScheduler creates a scheduler. Each cycle gets at most half the interval
// to finish.
func NewScheduler(refresher Refreshable, interval time.Duration, runOnStart bool, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		refresher:  refresher,
		interval:   interval,
		runOnStart: runOnStart,
		timeout:    interval / 2,
		logger:     logger,
		stopCh:     make(chan struct{}),
	}
}

// Start begins the background refresh loop.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.run()
	s.logger.Info("benchmark scheduler started",
		zap.Duration("interval", s.interval),
		zap.Bool("run_on_start", s.runOnStart),
	)
}

// Stop ends the loop and waits for an in-flight refresh.
func (s *Scheduler) Stop() {
	s.once.Do(func() { close(s.stopCh) })
	s.wg.Wait()
	s.logger.Info("benchmark scheduler stopped")
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	if s.runOnStart {
		s.tick()
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick()
		case <-s.stopCh:
			return
		}
	}
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	go func() {
		select {
		case <-s.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	s.refresher.Refresh(ctx)
}

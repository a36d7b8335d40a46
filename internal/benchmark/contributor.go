package benchmark

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/radiusdt/creatorpulse/internal/analytics"
	"github.com/radiusdt/creatorpulse/internal/metrics"
	"github.com/radiusdt/creatorpulse/internal/models"
	"github.com/radiusdt/creatorpulse/internal/storage"
	"go.uber.org/zap"
)

// Contribution outcomes.
const (
	ResultWritten   = "written"
	ResultGated     = "gated"
	ResultThrottled = "throttled"
	ResultDropped   = "dropped"
	ResultFailed    = "failed"
)

// ContributorConfig sizes the background worker pool.
type ContributorConfig struct {
	Workers   int
	QueueSize int
	// Timeout bounds one contribution, guard and insert included.
	Timeout time.Duration
}

type contributionJob struct {
	tenantID  string
	breakdown *analytics.Breakdown
}

// Contributor turns tenant aggregates into anonymized pool rows.
type Contributor struct {
	store   storage.ContributionStore
	guard   storage.ContributionGuard
	noiser  *Noiser
	logger  *zap.Logger
	metrics *metrics.Metrics
	cfg     ContributorConfig
	now     func() time.Time

	jobs   chan contributionJob
	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewContributor creates a contributor. guard and m may be nil.
func NewContributor(
	store storage.ContributionStore,
	guard storage.ContributionGuard,
	noiser *Noiser,
	logger *zap.Logger,
	m *metrics.Metrics,
	cfg ContributorConfig,
) *Contributor {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 64
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if noiser == nil {
		noiser = NewNoiser(nil)
	}

	return &Contributor{
		store:   store,
		guard:   guard,
		noiser:  noiser,
		logger:  logger,
		metrics: m,
		cfg:     cfg,
		now:     time.Now,
		jobs:    make(chan contributionJob, cfg.QueueSize),
		stopCh:  make(chan struct{}),
	}
}

// Start launches the worker pool.
func (c *Contributor) Start() {
	for i := 0; i < c.cfg.Workers; i++ {
		c.wg.Add(1)
		go c.worker()
	}
	c.logger.Info("benchmark contributor started", zap.Int("workers", c.cfg.Workers))
}

// Stop drains queued jobs and waits for workers to exit.
func (c *Contributor) Stop() {
	c.once.Do(func() {
		close(c.stopCh)
	})
	c.wg.Wait()
	c.logger.Info("benchmark contributor stopped")
}

// Submit queues a contribution and returns immediately. A full queue or a
// stopped contributor drops the job.
func (c *Contributor) Submit(tenantID string, b *analytics.Breakdown) {
	select {
	case <-c.stopCh:
		c.record(ResultDropped)
		return
	default:
	}

	select {
	case c.jobs <- contributionJob{tenantID: tenantID, breakdown: b}:
		if c.metrics != nil {
			c.metrics.SetQueueDepth(len(c.jobs))
		}
	default:
		c.logger.Warn("contribution queue full, dropping job")
		c.record(ResultDropped)
	}
}

func (c *Contributor) worker() {
	defer c.wg.Done()
	for {
		select {
		case job := <-c.jobs:
			c.run(job)
		case <-c.stopCh:
			for {
				select {
				case job := <-c.jobs:
					c.run(job)
				default:
					return
				}
			}
		}
	}
}

// run owns the error boundary of a queued job.
func (c *Contributor) run(job contributionJob) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("contribution panicked", zap.Any("error", r))
			c.record(ResultFailed)
		}
	}()

	if c.metrics != nil {
		c.metrics.SetQueueDepth(len(c.jobs))
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Timeout)
	defer cancel()

	if _, err := c.Contribute(ctx, job.tenantID, job.breakdown); err != nil {
		c.logger.Warn("benchmark contribution failed", zap.Error(err))
	}
}

// Contribute runs the sharing gate and writes one noised row per eligible
// platform. It returns the number of rows written.
func (c *Contributor) Contribute(ctx context.Context, tenantID string, b *analytics.Breakdown) (int, error) {
	if b == nil || !ShouldContribute(b, b.Totals.Count) {
		c.record(ResultGated)
		return 0, nil
	}

	eligible := EligiblePlatforms(b)
	if len(eligible) == 0 {
		c.record(ResultGated)
		return 0, nil
	}

	now := c.now().UTC()
	rows := make([]models.Contribution, 0, len(eligible))

	for _, snap := range eligible {
		if c.guard != nil {
			ok, err := c.guard.Acquire(ctx, tenantID, snap.Platform, now)
			if err != nil {
				c.logger.Warn("contribution guard unavailable, skipping platform",
					zap.String("platform", string(snap.Platform)),
					zap.Error(err),
				)
				c.record(ResultThrottled)
				continue
			}
			if !ok {
				c.record(ResultThrottled)
				continue
			}
		}

		rows = append(rows, c.sample(snap, now))
	}

	if len(rows) == 0 {
		return 0, nil
	}

	if err := c.store.InsertContributions(ctx, rows); err != nil {
		c.record(ResultFailed)
		c.release(ctx, tenantID, rows, now)
		return 0, fmt.Errorf("failed to store %d contributions: %w", len(rows), err)
	}

	for _, row := range rows {
		c.logger.Debug("benchmark contribution written",
			zap.String("platform", string(row.Platform)),
			zap.String("price_tier", string(row.PriceTier)),
		)
		c.record(ResultWritten)
	}
	return len(rows), nil
}

// release frees the guard slots of rows that were never stored so a later
// submission on the same day can retry.
func (c *Contributor) release(ctx context.Context, tenantID string, rows []models.Contribution, now time.Time) {
	if c.guard == nil {
		return
	}
	for _, row := range rows {
		if err := c.guard.Release(ctx, tenantID, row.Platform, now); err != nil {
			c.logger.Warn("failed to release contribution slot",
				zap.String("platform", string(row.Platform)),
				zap.Error(err),
			)
		}
	}
}

func (c *Contributor) sample(snap analytics.Snapshot, now time.Time) models.Contribution {
	return models.Contribution{
		ID:                  uuid.NewString(),
		Platform:            snap.Platform,
		PriceTier:           snap.PriceTier(),
		CPA:                 c.noiser.ApplyPtr(MetricCPA, snap.CPA()),
		CPC:                 c.noiser.ApplyPtr(MetricCPC, snap.CPC()),
		CPM:                 c.noiser.ApplyPtr(MetricCPM, snap.CPM()),
		ConversionRate:      c.noiser.ApplyPtr(MetricConversionRate, snap.ConversionRate()),
		ContentDeliveryRate: c.noiser.ApplyPtr(MetricContentDeliveryRate, snap.ContentDeliveryRate()),
		ViewsPerDollar:      c.noiser.ApplyPtr(MetricViewsPerDollar, snap.ViewsPerDollar()),
		RecordedAt:          now,
	}
}

func (c *Contributor) record(result string) {
	if c.metrics != nil {
		c.metrics.RecordContribution(result)
	}
}

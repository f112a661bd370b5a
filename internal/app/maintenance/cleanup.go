package maintenance

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/wavtrack/internal/cache"
	"github.com/charlesng35/wavtrack/internal/localstore"
	"github.com/charlesng35/wavtrack/pkg/logger"
)

const (
	defaultDeadLetterRetention = 30 * 24 * time.Hour
	defaultSweepSpec           = "@every 5m"
	defaultDeadLetterSpec      = "@daily"
)

// Cleaner coordinates background maintenance: sweeping expired cache entries
// and pruning old dead-lettered outbox entries.
type Cleaner struct {
	cache     *cache.TTLCache
	store     *localstore.Store
	cron      *cron.Cron
	now       func() time.Time
	log       *zap.Logger
	retention time.Duration

	sweepSchedule      string
	deadLetterSchedule string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for retention cutoffs.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithDeadLetterRetention adjusts how long dead letters are kept.
func WithDeadLetterRetention(d time.Duration) Option {
	return func(cleaner *Cleaner) {
		if d > 0 {
			cleaner.retention = d
		}
	}
}

// WithSweepSchedule overrides the cron specification for cache sweeps.
func WithSweepSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.sweepSchedule = spec
		}
	}
}

// WithDeadLetterSchedule overrides the cron specification for dead-letter pruning.
func WithDeadLetterSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.deadLetterSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner. A nil cache or store skips the matching job.
func NewCleaner(ttlCache *cache.TTLCache, store *localstore.Store, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		cache:              ttlCache,
		store:              store,
		now:                func() time.Time { return time.Now().UTC() },
		retention:          defaultDeadLetterRetention,
		sweepSchedule:      defaultSweepSpec,
		deadLetterSchedule: defaultDeadLetterSpec,
		log:                logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}
	return cleaner
}

// Start registers the jobs and launches the scheduler.
func (c *Cleaner) Start() error {
	if c.cache == nil && c.store == nil {
		return nil
	}

	if c.cache != nil {
		if _, err := c.cron.AddFunc(c.sweepSchedule, func() {
			if n := c.cache.Sweep(); n > 0 {
				c.log.Debug("swept expired cache entries", zap.Int("count", n))
			}
		}); err != nil {
			return err
		}
	}

	if c.store != nil {
		if _, err := c.cron.AddFunc(c.deadLetterSchedule, func() {
			if _, err := c.pruneDeadLetters(context.Background()); err != nil {
				c.log.Warn("dead letter pruning failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes every configured job sequentially.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.cache != nil {
		c.cache.Sweep()
	}

	if c.store != nil {
		if _, err := c.pruneDeadLetters(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}

func (c *Cleaner) pruneDeadLetters(ctx context.Context) (int64, error) {
	if c.store == nil {
		return 0, errors.New("prune dead letters: local store is required")
	}
	removed, err := c.store.PruneDeadLetters(ctx, c.now().Add(-c.retention))
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		c.log.Info("pruned dead letters", zap.Int64("count", removed))
	}
	return removed, nil
}

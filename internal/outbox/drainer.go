package outbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/charlesng35/wavtrack/internal/models"
	"github.com/charlesng35/wavtrack/internal/remote"
	appErrors "github.com/charlesng35/wavtrack/pkg/errors"
	"github.com/charlesng35/wavtrack/pkg/logger"
	"github.com/charlesng35/wavtrack/pkg/metrics"
)

// Trigger names what started a drain.
type Trigger string

const (
	TriggerStartup   Trigger = "startup"
	TriggerReconnect Trigger = "reconnect"
	TriggerSchedule  Trigger = "schedule"
	TriggerManual    Trigger = "manual"
)

// Queue is the durable outbox the drainer consumes.
type Queue interface {
	Pending(ctx context.Context, limit int) ([]models.OutboxEntry, error)
	Ack(ctx context.Context, id uint) error
	MarkFailed(ctx context.Context, id uint, cause error) (bool, error)
	Depth(ctx context.Context) (int64, error)
}

// Result summarises one drain pass.
type Result struct {
	Trigger      Trigger              `json:"trigger"`
	StartedAt    time.Time            `json:"started_at"`
	FinishedAt   time.Time            `json:"finished_at"`
	Applied      int                  `json:"applied"`
	Failed       int                  `json:"failed"`
	DeadLettered int                  `json:"dead_lettered"`
	Remaining    int64                `json:"remaining"`
	Errors       []string             `json:"errors,omitempty"`
	Entries      []models.OutboxEntry `json:"-"` // applied entries, in replay order
	Err          error                `json:"-"`
}

// Hook runs after every drain pass that got as far as listing the queue.
type Hook func(ctx context.Context, result Result)

// Drainer replays outbox entries against the remote store in FIFO order. A
// failed entry stays queued and the drain moves on to the next one. At most
// one drain runs at a time.
type Drainer struct {
	queue     Queue
	applier   remote.Applier
	limiter   *rate.Limiter
	batchSize int
	now       func() time.Time
	log       *zap.Logger

	running sync.Mutex

	mu    sync.RWMutex
	hooks []Hook
	last  *Result
}

// Option customises a Drainer.
type Option func(*Drainer)

// WithRateLimit paces replays to perSecond entries. Zero disables pacing.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(d *Drainer) {
		if perSecond <= 0 {
			d.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		d.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithBatchSize caps how many entries a single pass replays. Zero replays the whole queue.
func WithBatchSize(n int) Option {
	return func(d *Drainer) {
		if n >= 0 {
			d.batchSize = n
		}
	}
}

// WithClock overrides the time source used for result timestamps.
func WithClock(now func() time.Time) Option {
	return func(d *Drainer) {
		if now != nil {
			d.now = now
		}
	}
}

// WithHook registers a Hook at construction time.
func WithHook(h Hook) Option {
	return func(d *Drainer) {
		if h != nil {
			d.hooks = append(d.hooks, h)
		}
	}
}

// NewDrainer constructs a Drainer.
func NewDrainer(queue Queue, applier remote.Applier, opts ...Option) (*Drainer, error) {
	if queue == nil {
		return nil, errors.New("outbox drainer: queue is required")
	}
	if applier == nil {
		return nil, errors.New("outbox drainer: applier is required")
	}
	d := &Drainer{
		queue:   queue,
		applier: applier,
		now:     time.Now,
		log:     logger.WithModule("outbox"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// OnDrain registers a hook that runs after each drain pass.
func (d *Drainer) OnDrain(h Hook) {
	if h == nil {
		return
	}
	d.mu.Lock()
	d.hooks = append(d.hooks, h)
	d.mu.Unlock()
}

// LastResult returns the most recent drain result, if any.
func (d *Drainer) LastResult() (Result, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.last == nil {
		return Result{}, false
	}
	return *d.last, true
}

// Drain replays pending entries once. It returns ErrDrainInProgress when
// another drain is running. Per-entry failures do not fail the drain; they
// are reported through Result.Err and Result.Errors.
func (d *Drainer) Drain(ctx context.Context, trigger Trigger) (Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !d.running.TryLock() {
		return Result{}, appErrors.ErrDrainInProgress
	}
	defer d.running.Unlock()

	result := Result{Trigger: trigger, StartedAt: d.now().UTC()}
	timer := time.Now()

	entries, err := d.queue.Pending(ctx, d.batchSize)
	if err != nil {
		return result, fmt.Errorf("outbox drainer: list pending: %w", err)
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			result.Err = multierr.Append(result.Err, ctx.Err())
			break
		}
		if d.limiter != nil {
			if err := d.limiter.Wait(ctx); err != nil {
				result.Err = multierr.Append(result.Err, err)
				break
			}
		}
		d.replay(ctx, entry, &result)
	}

	if remaining, err := d.queue.Depth(ctx); err != nil {
		result.Err = multierr.Append(result.Err, err)
	} else {
		result.Remaining = remaining
	}
	result.FinishedAt = d.now().UTC()
	for _, err := range multierr.Errors(result.Err) {
		result.Errors = append(result.Errors, err.Error())
	}

	metrics.DrainDuration.WithLabelValues(string(trigger)).Observe(time.Since(timer).Seconds())
	if len(entries) > 0 {
		d.log.Info("outbox drained",
			zap.String("trigger", string(trigger)),
			zap.Int("applied", result.Applied),
			zap.Int("failed", result.Failed),
			zap.Int64("remaining", result.Remaining),
		)
	}

	d.mu.Lock()
	stored := result
	d.last = &stored
	hooks := append([]Hook(nil), d.hooks...)
	d.mu.Unlock()

	for _, hook := range hooks {
		hook(ctx, result)
	}
	return result, nil
}

func (d *Drainer) replay(ctx context.Context, entry models.OutboxEntry, result *Result) {
	kind := string(entry.RecordKind)

	if err := d.applier.Apply(ctx, entry); err != nil {
		result.Failed++
		result.Err = multierr.Append(result.Err, fmt.Errorf("entry %d: %w", entry.ID, err))

		deadLettered, markErr := d.queue.MarkFailed(ctx, entry.ID, err)
		if markErr != nil {
			result.Err = multierr.Append(result.Err, markErr)
		}
		if deadLettered {
			result.DeadLettered++
			metrics.OutboxReplays.WithLabelValues(kind, "dead_lettered").Inc()
		} else {
			metrics.OutboxReplays.WithLabelValues(kind, "failed").Inc()
		}

		d.log.Warn("outbox replay failed",
			zap.Uint("entry_id", entry.ID),
			zap.String("operation", string(entry.Operation)),
			zap.String("kind", kind),
			zap.Error(err),
		)
		return
	}

	// A failed ack leaves the entry queued; the next replay is an idempotent upsert or delete.
	if err := d.queue.Ack(ctx, entry.ID); err != nil {
		result.Err = multierr.Append(result.Err, err)
	}
	result.Applied++
	result.Entries = append(result.Entries, entry)
	metrics.OutboxReplays.WithLabelValues(kind, "applied").Inc()
}

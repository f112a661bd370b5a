package connectivity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/charlesng35/wavtrack/pkg/logger"
)

const (
	defaultProbeSchedule = "@every 15s"
	defaultProbeTimeout  = 3 * time.Second
)

// ProbeFunc returns nil when the remote store is reachable.
type ProbeFunc func(ctx context.Context) error

// Prober is a Monitor driven by periodically probing the remote store.
type Prober struct {
	*broadcaster

	probe    ProbeFunc
	schedule string
	timeout  time.Duration
	cron     *cron.Cron
	log      *zap.Logger

	mu      sync.Mutex
	started bool
}

// ProberOption customises a Prober.
type ProberOption func(*Prober)

// WithProbeSchedule overrides the cron schedule used for probing.
func WithProbeSchedule(spec string) ProberOption {
	return func(p *Prober) {
		if spec != "" {
			p.schedule = spec
		}
	}
}

// WithProbeTimeout bounds each probe.
func WithProbeTimeout(timeout time.Duration) ProberOption {
	return func(p *Prober) {
		if timeout > 0 {
			p.timeout = timeout
		}
	}
}

// WithProbeCron supplies the scheduler, letting callers share one cron instance.
func WithProbeCron(c *cron.Cron) ProberOption {
	return func(p *Prober) {
		if c != nil {
			p.cron = c
		}
	}
}

// WithProbeClock overrides the time source used for event timestamps.
func WithProbeClock(now func() time.Time) ProberOption {
	return func(p *Prober) {
		if now != nil {
			p.now = now
		}
	}
}

// NewProber constructs a Prober. The monitor reports offline until the first
// successful probe.
func NewProber(probe ProbeFunc, opts ...ProberOption) (*Prober, error) {
	if probe == nil {
		return nil, errors.New("connectivity: probe function is required")
	}
	p := &Prober{
		broadcaster: newBroadcaster(false),
		probe:       probe,
		schedule:    defaultProbeSchedule,
		timeout:     defaultProbeTimeout,
		log:         logger.WithModule("connectivity"),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.cron == nil {
		p.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}
	return p, nil
}

// Check runs the probe once and updates the reported state.
func (p *Prober) Check(ctx context.Context) bool {
	if ctx == nil {
		ctx = context.Background()
	}
	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.probe(probeCtx)
	online := err == nil
	if p.set(online) {
		if online {
			p.log.Info("remote store reachable")
		} else {
			p.log.Warn("remote store unreachable", zap.Error(err))
		}
	}
	return online
}

// Start probes immediately and then on the configured schedule.
func (p *Prober) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return nil
	}

	if _, err := p.cron.AddFunc(p.schedule, func() {
		p.Check(context.Background())
	}); err != nil {
		return fmt.Errorf("connectivity: schedule probe: %w", err)
	}

	p.Check(context.Background())
	p.cron.Start()
	p.started = true
	return nil
}

// Stop halts scheduled probes. The returned context is done once running probes finish.
func (p *Prober) Stop() context.Context {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	p.started = false
	return p.cron.Stop()
}

package outbox

import (
	"context"
	"errors"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/charlesng35/wavtrack/internal/connectivity"
	appErrors "github.com/charlesng35/wavtrack/pkg/errors"
	"github.com/charlesng35/wavtrack/pkg/logger"
)

const defaultDrainSpec = "@every 1m"

// Scheduler decides when the outbox drains: once at start-up when online, on
// every offline to online transition, and periodically while online.
type Scheduler struct {
	drainer  *Drainer
	monitor  connectivity.Monitor
	cron     *cron.Cron
	schedule string
	log      *zap.Logger

	mu          sync.Mutex
	started     bool
	unsubscribe func()
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// SchedulerOption customises a Scheduler.
type SchedulerOption func(*Scheduler)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) SchedulerOption {
	return func(s *Scheduler) {
		if c != nil {
			s.cron = c
		}
	}
}

// WithDrainSchedule overrides the cron specification for periodic drains.
// An explicit "off" disables periodic drains.
func WithDrainSchedule(spec string) SchedulerOption {
	return func(s *Scheduler) {
		if spec != "" {
			s.schedule = spec
		}
	}
}

// NewScheduler wires drainer to the connectivity monitor.
func NewScheduler(drainer *Drainer, monitor connectivity.Monitor, opts ...SchedulerOption) (*Scheduler, error) {
	if drainer == nil {
		return nil, errors.New("outbox scheduler: drainer is required")
	}
	if monitor == nil {
		return nil, errors.New("outbox scheduler: monitor is required")
	}
	s := &Scheduler{
		drainer:  drainer,
		monitor:  monitor,
		schedule: defaultDrainSpec,
		log:      logger.WithModule("outbox"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cron == nil {
		s.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}
	return s, nil
}

// Start drains immediately when online, then listens for reconnects and
// starts the periodic schedule.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	s.ctx, s.cancel = context.WithCancel(ctx)

	if s.schedule != "off" {
		if _, err := s.cron.AddFunc(s.schedule, func() {
			if s.monitor.Online() {
				s.run(TriggerSchedule)
			}
		}); err != nil {
			s.cancel()
			return err
		}
	}

	s.unsubscribe = s.monitor.Subscribe(func(event connectivity.Event) {
		if !event.Online {
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.run(TriggerReconnect)
		}()
	})

	if s.monitor.Online() {
		s.run(TriggerStartup)
	}

	s.cron.Start()
	s.started = true
	return nil
}

// Stop unsubscribes from the monitor, halts the schedule and waits for
// in-flight drains to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.unsubscribe()
	s.cancel()
	stopped := s.cron.Stop()
	s.mu.Unlock()

	<-stopped.Done()
	s.wg.Wait()
}

// RunOnce drains on demand.
func (s *Scheduler) RunOnce(ctx context.Context) (Result, error) {
	return s.drainer.Drain(ctx, TriggerManual)
}

func (s *Scheduler) run(trigger Trigger) {
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	_, err := s.drainer.Drain(ctx, trigger)
	switch {
	case err == nil:
	case errors.Is(err, appErrors.ErrDrainInProgress):
		s.log.Debug("drain skipped, another drain is running", zap.String("trigger", string(trigger)))
	default:
		s.log.Warn("outbox drain failed", zap.String("trigger", string(trigger)), zap.Error(err))
	}
}

package services

import (
	"context"
	"errors"
	"slices"

	"go.uber.org/zap"

	"github.com/charlesng35/wavtrack/internal/cache"
	"github.com/charlesng35/wavtrack/internal/models"
	"github.com/charlesng35/wavtrack/internal/outbox"
	appErrors "github.com/charlesng35/wavtrack/pkg/errors"
	"github.com/charlesng35/wavtrack/pkg/logger"
)

// SyncStatus describes the state of offline synchronisation.
type SyncStatus struct {
	Online      bool           `json:"online"`
	Depth       int64          `json:"depth"`
	DeadLetters int            `json:"dead_letters"`
	LastDrain   *outbox.Result `json:"last_drain,omitempty"`
	Cache       cache.Stats    `json:"cache"`
}

// SyncService exposes the outbox to operators and reacts to completed drains.
type SyncService struct {
	deps    Deps
	drainer *outbox.Drainer
	stats   *StatsService
	log     *zap.Logger
}

// NewSyncService constructs the sync service. stats may be nil.
func NewSyncService(deps Deps, drainer *outbox.Drainer, stats *StatsService) (*SyncService, error) {
	deps, err := deps.validate("sync service")
	if err != nil {
		return nil, err
	}
	if drainer == nil {
		return nil, errors.New("sync service: drainer is required")
	}
	return &SyncService{deps: deps, drainer: drainer, stats: stats, log: logger.WithModule("sync")}, nil
}

// Status reports connectivity, queue depth and the last drain.
func (s *SyncService) Status(ctx context.Context) (SyncStatus, error) {
	ctx = ensuredContext(ctx)
	depth, err := s.deps.Local.Depth(ctx)
	if err != nil {
		return SyncStatus{}, err
	}
	letters, err := s.deps.Local.DeadLetters(ctx)
	if err != nil {
		return SyncStatus{}, err
	}
	status := SyncStatus{
		Online:      s.deps.online(),
		Depth:       depth,
		DeadLetters: len(letters),
		Cache:       s.deps.Cache.Stats(),
	}
	if last, ok := s.drainer.LastResult(); ok {
		status.LastDrain = &last
	}
	return status, nil
}

// Pending lists queued entries in replay order.
func (s *SyncService) Pending(ctx context.Context, limit int) ([]models.OutboxEntry, error) {
	return s.deps.Local.Pending(ensuredContext(ctx), limit)
}

// DeadLetters lists entries that exhausted their replay attempts.
func (s *SyncService) DeadLetters(ctx context.Context) ([]models.OutboxEntry, error) {
	return s.deps.Local.DeadLetters(ensuredContext(ctx))
}

// Drain replays the outbox now. It refuses to run while offline so entries do
// not burn attempts against an unreachable store.
func (s *SyncService) Drain(ctx context.Context) (outbox.Result, error) {
	if !s.deps.online() {
		return outbox.Result{}, appErrors.ErrOffline
	}
	return s.drainer.Drain(ensuredContext(ctx), outbox.TriggerManual)
}

// Requeue returns a dead-lettered entry to the queue.
func (s *SyncService) Requeue(ctx context.Context, id uint) error {
	return s.deps.Local.Requeue(ensuredContext(ctx), id)
}

// AfterDrain invalidates cached reads touched by replayed entries and
// refreshes the statistics of their owners. Register it with Drainer.OnDrain.
func (s *SyncService) AfterDrain(ctx context.Context, result outbox.Result) {
	if len(result.Entries) == 0 {
		return
	}

	prefixes := map[string]struct{}{}
	users := map[string]struct{}{}
	for _, entry := range result.Entries {
		for _, prefix := range prefixesFor(entry) {
			prefixes[prefix] = struct{}{}
		}
		if entry.UserID != "" {
			users[entry.UserID] = struct{}{}
		}
	}
	for prefix := range prefixes {
		s.deps.Cache.DeletePrefix(prefix)
	}
	for userID := range users {
		s.stats.refresh(ctx, userID)
	}

	s.log.Info("outbox drained",
		zap.String("trigger", string(result.Trigger)),
		zap.Int("applied", result.Applied),
		zap.Int("failed", result.Failed),
		zap.Int64("remaining", result.Remaining))
}

func prefixesFor(entry models.OutboxEntry) []string {
	switch entry.RecordKind {
	case models.KindProjects:
		if entry.Operation == models.OpDelete {
			return append(slices.Clone(projectPrefixes), cascadePrefixes...)
		}
		return projectPrefixes
	case models.KindBeatActivities:
		return []string{PrefixChart, PrefixStats}
	case models.KindSessions:
		return []string{PrefixSessions, PrefixStats}
	case models.KindNotes:
		return []string{PrefixNotes}
	case models.KindSamples:
		return []string{PrefixSamples}
	default:
		return nil
	}
}

package localstore

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/wavtrack/internal/models"
	appErrors "github.com/charlesng35/wavtrack/pkg/errors"
	"github.com/charlesng35/wavtrack/pkg/metrics"
)

// Pending returns outbox entries awaiting replay in FIFO order. Dead-lettered
// entries are excluded. A non-positive limit returns every entry.
func (s *Store) Pending(ctx context.Context, limit int) ([]models.OutboxEntry, error) {
	query := s.db.WithContext(ensuredContext(ctx)).
		Where("dead_lettered_at IS NULL").
		Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var entries []models.OutboxEntry
	if err := query.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("local store: list outbox: %w", appErrors.ErrStorageUnavailable.WithInternal(err))
	}
	return entries, nil
}

// Ack removes a successfully replayed entry.
func (s *Store) Ack(ctx context.Context, id uint) error {
	if err := s.db.WithContext(ensuredContext(ctx)).Delete(&models.OutboxEntry{}, id).Error; err != nil {
		return fmt.Errorf("local store: ack outbox entry %d: %w", id, appErrors.ErrStorageUnavailable.WithInternal(err))
	}
	return nil
}

// MarkFailed records a failed replay. It reports whether the entry was
// dead-lettered because it reached the configured attempt limit.
func (s *Store) MarkFailed(ctx context.Context, id uint, cause error) (bool, error) {
	var deadLettered bool
	err := s.db.WithContext(ensuredContext(ctx)).Transaction(func(tx *gorm.DB) error {
		var entry models.OutboxEntry
		if err := tx.Take(&entry, id).Error; err != nil {
			return err
		}

		now := s.now().UTC()
		updates := map[string]interface{}{
			"attempts":        entry.Attempts + 1,
			"last_attempt_at": now,
		}
		if cause != nil {
			updates["last_error"] = cause.Error()
		}
		if s.maxAttempts > 0 && entry.Attempts+1 >= s.maxAttempts {
			updates["dead_lettered_at"] = now
			deadLettered = true
		}
		return tx.Model(&entry).Updates(updates).Error
	})
	if err != nil {
		return false, fmt.Errorf("local store: mark outbox entry %d failed: %w", id, appErrors.ErrStorageUnavailable.WithInternal(err))
	}

	if deadLettered {
		s.log.Warn("outbox entry dead-lettered",
			zap.Uint("entry_id", id),
			zap.Int("max_attempts", s.maxAttempts),
			zap.Error(cause),
		)
	}
	return deadLettered, nil
}

// Depth returns the number of entries awaiting replay and publishes it as a metric.
func (s *Store) Depth(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ensuredContext(ctx)).
		Model(&models.OutboxEntry{}).
		Where("dead_lettered_at IS NULL").
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("local store: count outbox: %w", appErrors.ErrStorageUnavailable.WithInternal(err))
	}
	metrics.OutboxDepth.Set(float64(n))
	return n, nil
}

// DeadLetters returns entries that exhausted their attempts, oldest first.
func (s *Store) DeadLetters(ctx context.Context) ([]models.OutboxEntry, error) {
	var entries []models.OutboxEntry
	err := s.db.WithContext(ensuredContext(ctx)).
		Where("dead_lettered_at IS NOT NULL").
		Order("id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("local store: list dead letters: %w", appErrors.ErrStorageUnavailable.WithInternal(err))
	}
	return entries, nil
}

// Requeue returns a dead-lettered entry to the pending queue with a fresh attempt count.
// The entry keeps its id, so it replays in its original position.
func (s *Store) Requeue(ctx context.Context, id uint) error {
	result := s.db.WithContext(ensuredContext(ctx)).
		Model(&models.OutboxEntry{}).
		Where("id = ? AND dead_lettered_at IS NOT NULL", id).
		Updates(map[string]interface{}{
			"dead_lettered_at": nil,
			"attempts":         0,
		})
	if result.Error != nil {
		return fmt.Errorf("local store: requeue outbox entry %d: %w", id, appErrors.ErrStorageUnavailable.WithInternal(result.Error))
	}
	if result.RowsAffected == 0 {
		return appErrors.ErrNotFound
	}
	return nil
}

// PruneDeadLetters deletes dead-lettered entries parked before cutoff.
func (s *Store) PruneDeadLetters(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ensuredContext(ctx)).
		Where("dead_lettered_at IS NOT NULL AND dead_lettered_at < ?", cutoff.UTC()).
		Delete(&models.OutboxEntry{})
	if result.Error != nil {
		return 0, fmt.Errorf("local store: prune dead letters: %w", appErrors.ErrStorageUnavailable.WithInternal(result.Error))
	}
	return result.RowsAffected, nil
}

package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/wavtrack/internal/models"
	appErrors "github.com/charlesng35/wavtrack/pkg/errors"
	"github.com/charlesng35/wavtrack/pkg/logger"
)

// Store persists record collections and the outbox of mutations that have not
// yet reached the remote store. Every Add, Update and Remove writes the record
// change and its outbox entry in one transaction.
type Store struct {
	db          *gorm.DB
	now         func() time.Time
	maxAttempts int
	log         *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for outbox timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMaxAttempts dead-letters entries after n failed replays. Zero retries forever.
func WithMaxAttempts(n int) Option {
	return func(s *Store) {
		if n >= 0 {
			s.maxAttempts = n
		}
	}
}

// New constructs a Store over an already migrated database handle.
func New(db *gorm.DB, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, errors.New("local store: db is required")
	}
	s := &Store{
		db:  db,
		now: time.Now,
		log: logger.WithModule("localstore"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// DB exposes the underlying handle for maintenance tasks.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func ensuredContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func unavailable(op string, kind models.Kind, err error) error {
	return fmt.Errorf("local store: %s %s: %w", op, kind, appErrors.ErrStorageUnavailable.WithInternal(err))
}

// Add persists rec and appends a create entry to the outbox.
func (s *Store) Add(ctx context.Context, rec models.Record) error {
	if rec == nil {
		return errors.New("local store: record is required")
	}
	err := s.db.WithContext(ensuredContext(ctx)).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(rec).Error; err != nil {
			return err
		}
		return s.appendOutbox(tx, models.OpCreate, rec.Kind(), rec.GetID(), rec.GetOwnerID(), rec)
	})
	if err != nil {
		return unavailable("add", rec.Kind(), err)
	}
	return nil
}

// Update upserts rec by id and appends an update entry to the outbox.
func (s *Store) Update(ctx context.Context, rec models.Record) error {
	if rec == nil {
		return errors.New("local store: record is required")
	}
	err := s.db.WithContext(ensuredContext(ctx)).Transaction(func(tx *gorm.DB) error {
		if err := upsert(tx, rec); err != nil {
			return err
		}
		return s.appendOutbox(tx, models.OpUpdate, rec.Kind(), rec.GetID(), rec.GetOwnerID(), rec)
	})
	if err != nil {
		return unavailable("update", rec.Kind(), err)
	}
	return nil
}

// Remove deletes the record with id and appends a delete entry to the outbox.
// Removing an id that is not stored locally still queues the delete.
func (s *Store) Remove(ctx context.Context, kind models.Kind, id string) error {
	model, err := kind.New()
	if err != nil {
		return err
	}
	if id == "" {
		return errors.New("local store: id is required")
	}
	err = s.db.WithContext(ensuredContext(ctx)).Transaction(func(tx *gorm.DB) error {
		var owners []string
		if err := tx.Model(model).Where("id = ?", id).Pluck("user_id", &owners).Error; err != nil {
			return err
		}
		owner := ""
		if len(owners) > 0 {
			owner = owners[0]
		}
		if err := tx.Where("id = ?", id).Delete(model).Error; err != nil {
			return err
		}
		return s.appendOutbox(tx, models.OpDelete, kind, id, owner, models.DeletePayload{ID: id})
	})
	if err != nil {
		return unavailable("remove", kind, err)
	}
	return nil
}

// Mirror upserts records that already exist remotely. No outbox entries are written.
func (s *Store) Mirror(ctx context.Context, recs ...models.Record) error {
	if len(recs) == 0 {
		return nil
	}
	err := s.db.WithContext(ensuredContext(ctx)).Transaction(func(tx *gorm.DB) error {
		for _, rec := range recs {
			if err := upsert(tx, rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return unavailable("mirror", recs[0].Kind(), err)
	}
	return nil
}

// Purge deletes a record locally without queueing a remote delete.
func (s *Store) Purge(ctx context.Context, kind models.Kind, id string) error {
	model, err := kind.New()
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ensuredContext(ctx)).Where("id = ?", id).Delete(model).Error; err != nil {
		return unavailable("purge", kind, err)
	}
	return nil
}

// PurgeProject deletes every local record attached to projectID without
// queueing remote deletes. The remote store removes them along with the project.
func (s *Store) PurgeProject(ctx context.Context, projectID string) error {
	err := s.db.WithContext(ensuredContext(ctx)).Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{&models.Sample{}, &models.StudioSession{}, &models.Note{}, &models.BeatActivity{}} {
			if err := tx.Where("project_id = ?", projectID).Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return unavailable("purge children of", models.KindProjects, err)
	}
	return nil
}

func upsert(tx *gorm.DB, rec models.Record) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(rec).Error
}

func (s *Store) appendOutbox(tx *gorm.DB, op models.Operation, kind models.Kind, id, owner string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode outbox payload: %w", err)
	}
	entry := models.OutboxEntry{
		Timestamp:  s.now().UTC(),
		Operation:  op,
		RecordKind: kind,
		RecordID:   id,
		UserID:     owner,
		Payload:    raw,
	}
	return tx.Create(&entry).Error
}

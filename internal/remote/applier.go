package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/wavtrack/internal/models"
	appErrors "github.com/charlesng35/wavtrack/pkg/errors"
)

// Applier replays a single outbox entry against the remote store.
type Applier interface {
	Apply(ctx context.Context, entry models.OutboxEntry) error
}

// ApplierFunc adapts a function to the Applier interface.
type ApplierFunc func(ctx context.Context, entry models.OutboxEntry) error

// Apply calls f.
func (f ApplierFunc) Apply(ctx context.Context, entry models.OutboxEntry) error {
	return f(ctx, entry)
}

// GormApplier writes outbox entries to the remote database.
type GormApplier struct {
	db *gorm.DB
}

// NewGormApplier constructs an applier over the remote database handle.
func NewGormApplier(db *gorm.DB) (*GormApplier, error) {
	if db == nil {
		return nil, errors.New("remote applier: db is required")
	}
	return &GormApplier{db: db}, nil
}

// Apply replays entry. Creates and updates are upserts keyed by id so a
// replay that already reached the remote store is harmless; deleting a
// missing row succeeds.
func (a *GormApplier) Apply(ctx context.Context, entry models.OutboxEntry) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var err error
	switch entry.Operation {
	case models.OpCreate, models.OpUpdate:
		err = a.upsert(ctx, entry)
	case models.OpDelete:
		err = a.delete(ctx, entry)
	default:
		err = fmt.Errorf("unknown operation %q", entry.Operation)
	}
	if err != nil {
		return fmt.Errorf("remote applier: %s %s %s: %w",
			entry.Operation, entry.RecordKind, entry.RecordID,
			appErrors.ErrRemoteWriteFailed.WithInternal(err))
	}
	return nil
}

func (a *GormApplier) upsert(ctx context.Context, entry models.OutboxEntry) error {
	rec, err := models.DecodeRecord(entry.RecordKind, entry.Payload)
	if err != nil {
		return err
	}
	if rec.GetID() == "" {
		return errors.New("payload is missing an id")
	}
	return a.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(rec).Error
}

func (a *GormApplier) delete(ctx context.Context, entry models.OutboxEntry) error {
	model, err := entry.RecordKind.New()
	if err != nil {
		return err
	}
	var payload models.DeletePayload
	if err := json.Unmarshal(entry.Payload, &payload); err != nil {
		return fmt.Errorf("decode delete payload: %w", err)
	}
	if payload.ID == "" {
		payload.ID = entry.RecordID
	}
	if payload.ID == "" {
		return errors.New("payload is missing an id")
	}
	if entry.RecordKind == models.KindProjects {
		return DeleteProject(ctx, a.db, payload.ID)
	}
	return a.db.WithContext(ctx).Where("id = ?", payload.ID).Delete(model).Error
}

// DeleteProject removes a project and every record attached to it in one transaction.
func DeleteProject(ctx context.Context, db *gorm.DB, id string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, child := range []interface{}{&models.Sample{}, &models.StudioSession{}, &models.Note{}, &models.BeatActivity{}} {
			if err := tx.Where("project_id = ?", id).Delete(child).Error; err != nil {
				return err
			}
		}
		return tx.Where("id = ?", id).Delete(&models.Project{}).Error
	})
}

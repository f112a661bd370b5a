package localstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	appErrors "github.com/charlesng35/wavtrack/pkg/errors"
)

// Index names a secondary attribute records can be looked up by.
type Index string

const (
	IndexUserID    Index = "user_id"
	IndexProjectID Index = "project_id"
	IndexDate      Index = "date"
)

// Query narrows a collection read. Zero fields do not filter.
type Query struct {
	UserID    string
	ProjectID string
	From      time.Time // inclusive, applies to the date column
	To        time.Time // exclusive, applies to the date column
	OrderBy   string
}

// Apply adds q's filters to db. The same query runs against the remote store.
func (q Query) Apply(db *gorm.DB) *gorm.DB {
	if q.UserID != "" {
		db = db.Where("user_id = ?", q.UserID)
	}
	if q.ProjectID != "" {
		db = db.Where("project_id = ?", q.ProjectID)
	}
	if !q.From.IsZero() {
		db = db.Where("date >= ?", q.From.UTC())
	}
	if !q.To.IsZero() {
		db = db.Where("date < ?", q.To.UTC())
	}
	if q.OrderBy != "" {
		db = db.Order(q.OrderBy)
	}
	return db
}

// All returns every record of type T matching q. T is a model struct such as
// models.Project.
func All[T any](ctx context.Context, s *Store, q Query) ([]T, error) {
	var out []T
	if err := q.Apply(s.db.WithContext(ensuredContext(ctx))).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("local store: list %T: %w", out, appErrors.ErrStorageUnavailable.WithInternal(err))
	}
	return out, nil
}

// ByID returns the record of type T with id, or ErrNotFound.
func ByID[T any](ctx context.Context, s *Store, id string) (*T, error) {
	var out T
	err := s.db.WithContext(ensuredContext(ctx)).Where("id = ?", id).Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, appErrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("local store: get %T: %w", out, appErrors.ErrStorageUnavailable.WithInternal(err))
	}
	return &out, nil
}

// ByIndex returns records of type T whose index column equals value.
func ByIndex[T any](ctx context.Context, s *Store, index Index, value any) ([]T, error) {
	switch index {
	case IndexUserID, IndexProjectID, IndexDate:
	default:
		return nil, fmt.Errorf("local store: unknown index %q", index)
	}

	var out []T
	err := s.db.WithContext(ensuredContext(ctx)).
		Where(fmt.Sprintf("%s = ?", index), value).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("local store: lookup %T by %s: %w", out, index, appErrors.ErrStorageUnavailable.WithInternal(err))
	}
	return out, nil
}

// Count returns the number of records of type T matching q.
func Count[T any](ctx context.Context, s *Store, q Query) (int64, error) {
	var (
		model T
		n     int64
	)
	if err := q.Apply(s.db.WithContext(ensuredContext(ctx)).Model(&model)).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("local store: count %T: %w", model, appErrors.ErrStorageUnavailable.WithInternal(err))
	}
	return n, nil
}

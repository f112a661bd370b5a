package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/wavtrack/internal/cache"
	"github.com/charlesng35/wavtrack/internal/connectivity"
	"github.com/charlesng35/wavtrack/internal/localstore"
	"github.com/charlesng35/wavtrack/internal/models"
)

// Cache key prefixes. Keys are built with cache.Key(prefix, discriminator).
const (
	PrefixProjects = "projects"
	PrefixProject  = "project"
	PrefixStats    = "stats"
	PrefixChart    = "chart"
	PrefixSessions = "sessions"
	PrefixNotes    = "notes"
	PrefixSamples  = "samples"
)

// Outcome reports where a mutation landed.
type Outcome string

const (
	// OutcomeApplied means the remote store accepted the write.
	OutcomeApplied Outcome = "applied"
	// OutcomeQueued means the write is stored locally and waits in the outbox.
	OutcomeQueued Outcome = "queued"
	// OutcomeSkipped means there was nothing to write.
	OutcomeSkipped Outcome = "skipped"
)

// Deps bundles the stores every data access service reads from and writes to.
type Deps struct {
	Remote  *gorm.DB
	Local   *localstore.Store
	Cache   *cache.TTLCache
	Monitor connectivity.Monitor
	Clock   func() time.Time
}

func (d Deps) validate(service string) (Deps, error) {
	switch {
	case d.Remote == nil:
		return d, errors.New(service + ": remote db is required")
	case d.Local == nil:
		return d, errors.New(service + ": local store is required")
	case d.Cache == nil:
		return d, errors.New(service + ": cache is required")
	case d.Monitor == nil:
		return d, errors.New(service + ": connectivity monitor is required")
	}
	if d.Clock == nil {
		d.Clock = func() time.Time { return time.Now().UTC() }
	}
	return d, nil
}

func (d Deps) online() bool {
	return d.Monitor.Online()
}

func (d Deps) now() time.Time {
	return d.Clock().UTC()
}

// source returns the database reads should hit right now.
func (d Deps) source() *gorm.DB {
	if d.online() {
		return d.Remote
	}
	return d.Local.DB()
}

func (d Deps) invalidate(prefixes ...string) {
	for _, prefix := range prefixes {
		d.Cache.DeletePrefix(prefix)
	}
}

func ensuredContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// asRecords converts a slice of model values into records for the local store.
func asRecords[T any, PT interface {
	*T
	models.Record
}](items []T) []models.Record {
	out := make([]models.Record, 0, len(items))
	for i := range items {
		out = append(out, PT(&items[i]))
	}
	return out
}

func logFields(userID string, fields ...zap.Field) []zap.Field {
	return append([]zap.Field{zap.String("user_id", userID)}, fields...)
}

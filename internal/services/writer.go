package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/charlesng35/wavtrack/internal/models"
	"github.com/charlesng35/wavtrack/internal/remote"
	appErrors "github.com/charlesng35/wavtrack/pkg/errors"
)

// writer routes record mutations. Online writes go to the remote store and are
// mirrored locally; offline writes land in the local store with an outbox entry.
type writer struct {
	deps Deps
	log  *zap.Logger
}

func (w writer) create(ctx context.Context, rec models.Record) (Outcome, error) {
	if !w.deps.online() {
		if err := w.deps.Local.Add(ctx, rec); err != nil {
			return "", err
		}
		return OutcomeQueued, nil
	}
	if err := w.deps.Remote.WithContext(ctx).Create(rec).Error; err != nil {
		return "", remoteFailure("create", rec.Kind(), err)
	}
	w.mirror(ctx, rec)
	return OutcomeApplied, nil
}

func (w writer) update(ctx context.Context, rec models.Record) (Outcome, error) {
	if !w.deps.online() {
		if err := w.deps.Local.Update(ctx, rec); err != nil {
			return "", err
		}
		return OutcomeQueued, nil
	}
	if err := w.deps.Remote.WithContext(ctx).Save(rec).Error; err != nil {
		return "", remoteFailure("update", rec.Kind(), err)
	}
	w.mirror(ctx, rec)
	return OutcomeApplied, nil
}

func (w writer) remove(ctx context.Context, kind models.Kind, id string) (Outcome, error) {
	if !w.deps.online() {
		if err := w.deps.Local.Remove(ctx, kind, id); err != nil {
			return "", err
		}
		if kind == models.KindProjects {
			if err := w.deps.Local.PurgeProject(ctx, id); err != nil {
				w.log.Warn("purge local project children failed", zap.String("project_id", id), zap.Error(err))
			}
		}
		return OutcomeQueued, nil
	}

	var err error
	if kind == models.KindProjects {
		err = remote.DeleteProject(ctx, w.deps.Remote, id)
	} else {
		var model models.Record
		if model, err = kind.New(); err == nil {
			err = w.deps.Remote.WithContext(ctx).Where("id = ?", id).Delete(model).Error
		}
	}
	if err != nil {
		return "", remoteFailure("delete", kind, err)
	}

	if err := w.deps.Local.Purge(ctx, kind, id); err != nil {
		w.log.Warn("purge local copy failed", zap.String("kind", string(kind)), zap.String("id", id), zap.Error(err))
	}
	if kind == models.KindProjects {
		if err := w.deps.Local.PurgeProject(ctx, id); err != nil {
			w.log.Warn("purge local project children failed", zap.String("project_id", id), zap.Error(err))
		}
	}
	return OutcomeApplied, nil
}

// mirror copies remote records into the local store so they stay readable offline.
func (w writer) mirror(ctx context.Context, recs ...models.Record) {
	if err := w.deps.Local.Mirror(ctx, recs...); err != nil {
		w.log.Warn("mirror to local store failed", zap.Error(err))
	}
}

func remoteFailure(op string, kind models.Kind, err error) error {
	return fmt.Errorf("%s %s: %w", op, kind, appErrors.ErrRemoteWriteFailed.WithInternal(err))
}

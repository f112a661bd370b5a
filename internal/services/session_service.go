package services

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/charlesng35/wavtrack/internal/auth"
	"github.com/charlesng35/wavtrack/internal/cache"
	"github.com/charlesng35/wavtrack/internal/localstore"
	"github.com/charlesng35/wavtrack/internal/models"
	appErrors "github.com/charlesng35/wavtrack/pkg/errors"
	"github.com/charlesng35/wavtrack/pkg/logger"
	"github.com/charlesng35/wavtrack/pkg/validator"
)

// SessionService manages studio sessions logged against projects.
type SessionService struct {
	deps   Deps
	writer writer
	stats  *StatsService
	log    *zap.Logger
}

// NewSessionService constructs the studio session service.
func NewSessionService(deps Deps, stats *StatsService) (*SessionService, error) {
	deps, err := deps.validate("session service")
	if err != nil {
		return nil, err
	}
	log := logger.WithModule("sessions")
	return &SessionService{deps: deps, writer: writer{deps: deps, log: log}, stats: stats, log: log}, nil
}

// CreateSessionInput captures a studio session.
type CreateSessionInput struct {
	ProjectID       string    `json:"project_id" validate:"required,max=36"`
	DurationMinutes int       `json:"duration_minutes" validate:"gte=0,lte=1440"`
	Date            time.Time `json:"date"`
	Notes           string    `json:"notes" validate:"max=5000"`
}

// ListByProject returns the caller's sessions for projectID, newest first.
func (s *SessionService) ListByProject(ctx context.Context, projectID string) ([]models.StudioSession, error) {
	if s == nil {
		return nil, errors.New("session service: service not initialised")
	}
	identity, err := auth.RequireIdentity(ctx)
	if err != nil {
		return nil, err
	}
	return listForProject[models.StudioSession](ensuredContext(ctx), s.deps, s.writer, s.log,
		PrefixSessions, identity.UserID, projectID, "date DESC")
}

// Create logs a studio session for the caller.
func (s *SessionService) Create(ctx context.Context, input CreateSessionInput) (*models.StudioSession, Outcome, error) {
	if s == nil {
		return nil, "", errors.New("session service: service not initialised")
	}
	identity, err := auth.RequireIdentity(ctx)
	if err != nil {
		return nil, "", err
	}
	ctx = ensuredContext(ctx)

	if err := validator.ValidateStruct(input); err != nil {
		return nil, "", appErrors.ErrBadRequest.WithInternal(err)
	}

	now := s.deps.now()
	date := input.Date
	if date.IsZero() {
		date = now
	}
	session := &models.StudioSession{
		OwnedModel: models.OwnedModel{
			BaseModel: models.BaseModel{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now},
			UserID:    identity.UserID,
		},
		ProjectID:       strings.TrimSpace(input.ProjectID),
		DurationMinutes: input.DurationMinutes,
		Date:            date.UTC(),
		Notes:           strings.TrimSpace(input.Notes),
	}

	outcome, err := s.writer.create(ctx, session)
	if err != nil {
		return nil, "", err
	}
	s.deps.invalidate(PrefixSessions, PrefixStats)
	s.stats.refresh(ctx, identity.UserID)
	return session, outcome, nil
}

// Delete removes one of the caller's sessions.
func (s *SessionService) Delete(ctx context.Context, id string) (Outcome, error) {
	if s == nil {
		return "", errors.New("session service: service not initialised")
	}
	identity, err := auth.RequireIdentity(ctx)
	if err != nil {
		return "", err
	}
	ctx = ensuredContext(ctx)

	if _, err := loadOwned[models.StudioSession](ctx, s.deps, identity.UserID, strings.TrimSpace(id)); err != nil {
		return "", err
	}
	outcome, err := s.writer.remove(ctx, models.KindSessions, strings.TrimSpace(id))
	if err != nil {
		return "", err
	}
	s.deps.invalidate(PrefixSessions, PrefixStats)
	s.stats.refresh(ctx, identity.UserID)
	return outcome, nil
}

// listForProject serves a per-project collection from cache, the remote store
// (mirroring locally) or the local store, in that order of preference.
func listForProject[T any, PT interface {
	*T
	models.Record
}](ctx context.Context, deps Deps, w writer, log *zap.Logger, prefix, userID, projectID, order string) ([]T, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, appErrors.NewBadRequest("project id is required")
	}

	key := cache.Key(prefix, userID+":"+projectID)
	if cached, ok := cache.GetAs[[]T](deps.Cache, key); ok {
		return slices.Clone(cached), nil
	}

	query := localstore.Query{UserID: userID, ProjectID: projectID, OrderBy: order}
	if deps.online() {
		var rows []T
		err := query.Apply(deps.Remote.WithContext(ctx)).Find(&rows).Error
		if err == nil {
			w.mirror(ctx, asRecords[T, PT](rows)...)
			deps.Cache.Set(key, slices.Clone(rows), 0)
			return rows, nil
		}
		log.Warn("list remote records failed, using local copy", logFields(userID, zap.String("project_id", projectID), zap.Error(err))...)
	}

	rows, err := localstore.All[T](ctx, deps.Local, query)
	if err != nil {
		log.Error("list local records failed", logFields(userID, zap.String("project_id", projectID), zap.Error(err))...)
		return []T{}, nil
	}
	return rows, nil
}

// loadOwned fetches a record by id from whichever store is reachable and
// checks that userID owns it.
func loadOwned[T any, PT interface {
	*T
	models.Record
}](ctx context.Context, deps Deps, userID, id string) (*T, error) {
	if id == "" {
		return nil, appErrors.NewBadRequest("id is required")
	}
	var row T
	err := deps.source().WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if err != nil {
		if isNotFound(err) {
			return nil, appErrors.ErrNotFound
		}
		if deps.online() {
			return nil, remoteFailure("load", PT(&row).Kind(), err)
		}
		return nil, appErrors.ErrStorageUnavailable.WithInternal(err)
	}
	if PT(&row).GetOwnerID() != userID {
		return nil, appErrors.ErrNotFound
	}
	return &row, nil
}

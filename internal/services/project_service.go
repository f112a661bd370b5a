package services

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/charlesng35/wavtrack/internal/auth"
	"github.com/charlesng35/wavtrack/internal/cache"
	"github.com/charlesng35/wavtrack/internal/localstore"
	"github.com/charlesng35/wavtrack/internal/models"
	appErrors "github.com/charlesng35/wavtrack/pkg/errors"
	"github.com/charlesng35/wavtrack/pkg/logger"
	"github.com/charlesng35/wavtrack/pkg/validator"
)

// projectPrefixes are invalidated by every project mutation.
var projectPrefixes = []string{PrefixProjects, PrefixProject, PrefixStats, PrefixChart}

// cascadePrefixes name the cached per-project lists a project delete empties.
var cascadePrefixes = []string{PrefixSessions, PrefixNotes, PrefixSamples}

// ProjectService reads and writes a user's projects.
type ProjectService struct {
	deps   Deps
	writer writer
	stats  *StatsService
	log    *zap.Logger
}

// NewProjectService constructs a project service. stats may be nil, in which
// case profile statistics are not refreshed after writes.
func NewProjectService(deps Deps, stats *StatsService) (*ProjectService, error) {
	deps, err := deps.validate("project service")
	if err != nil {
		return nil, err
	}
	log := logger.WithModule("projects")
	return &ProjectService{
		deps:   deps,
		writer: writer{deps: deps, log: log},
		stats:  stats,
		log:    log,
	}, nil
}

// CreateProjectInput captures the fields of a new project.
type CreateProjectInput struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description" validate:"max=5000"`
	Status      string   `json:"status" validate:"project_status"`
	BPM         int      `json:"bpm" validate:"omitempty,gte=20,lte=400"`
	Key         string   `json:"key" validate:"max=12"`
	Genre       string   `json:"genre" validate:"max=80"`
	Tags        []string `json:"tags" validate:"max=20,dive,max=40"`
}

// UpdateProjectInput describes mutable project fields. A nil pointer leaves the field unchanged.
type UpdateProjectInput struct {
	Title       *string   `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string   `json:"description" validate:"omitempty,max=5000"`
	Status      *string   `json:"status" validate:"omitempty,project_status"`
	BPM         *int      `json:"bpm" validate:"omitempty,gte=20,lte=400"`
	Key         *string   `json:"key" validate:"omitempty,max=12"`
	Genre       *string   `json:"genre" validate:"omitempty,max=80"`
	Tags        *[]string `json:"tags" validate:"omitempty,max=20,dive,max=40"`
}

// GetProjects lists the caller's projects, most recently updated first.
// Online results are mirrored into the local store and cached; offline the
// local copy is served. When neither store answers the list is empty.
func (s *ProjectService) GetProjects(ctx context.Context) ([]models.Project, error) {
	if s == nil {
		return nil, errors.New("project service: service not initialised")
	}
	identity, err := auth.RequireIdentity(ctx)
	if err != nil {
		return nil, err
	}
	ctx = ensuredContext(ctx)

	key := cache.Key(PrefixProjects, identity.UserID)
	if cached, ok := cache.GetAs[[]models.Project](s.deps.Cache, key); ok {
		return slices.Clone(cached), nil
	}

	query := localstore.Query{UserID: identity.UserID, OrderBy: "updated_at DESC"}
	if s.deps.online() {
		var projects []models.Project
		err := query.Apply(s.deps.Remote.WithContext(ctx)).Find(&projects).Error
		if err == nil {
			normaliseAll(projects)
			s.writer.mirror(ctx, asRecords(projects)...)
			s.deps.Cache.Set(key, slices.Clone(projects), 0)
			return projects, nil
		}
		s.log.Warn("list remote projects failed, using local copy", logFields(identity.UserID, zap.Error(err))...)
	}

	projects, err := localstore.All[models.Project](ctx, s.deps.Local, query)
	if err != nil {
		s.log.Error("list local projects failed", logFields(identity.UserID, zap.Error(err))...)
		return []models.Project{}, nil
	}
	normaliseAll(projects)
	return projects, nil
}

// GetProject returns one of the caller's projects or ErrNotFound.
func (s *ProjectService) GetProject(ctx context.Context, id string) (*models.Project, error) {
	if s == nil {
		return nil, errors.New("project service: service not initialised")
	}
	identity, err := auth.RequireIdentity(ctx)
	if err != nil {
		return nil, err
	}
	ctx = ensuredContext(ctx)

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, appErrors.NewBadRequest("project id is required")
	}

	key := cache.Key(PrefixProject, id)
	if cached, ok := cache.GetAs[models.Project](s.deps.Cache, key); ok && cached.UserID == identity.UserID {
		return &cached, nil
	}

	project, err := s.load(ctx, identity.UserID, id)
	if err != nil {
		return nil, err
	}
	if s.deps.online() {
		s.deps.Cache.Set(key, *project, 0)
	}
	return project, nil
}

// AddProject creates a project for the caller.
func (s *ProjectService) AddProject(ctx context.Context, input CreateProjectInput) (*models.Project, Outcome, error) {
	if s == nil {
		return nil, "", errors.New("project service: service not initialised")
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
	project := &models.Project{
		OwnedModel: models.OwnedModel{
			BaseModel: models.BaseModel{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now},
			UserID:    identity.UserID,
		},
		Title:       input.Title,
		Description: strings.TrimSpace(input.Description),
		Status:      models.ProjectStatus(input.Status),
		BPM:         input.BPM,
		Key:         strings.TrimSpace(input.Key),
		Genre:       strings.TrimSpace(input.Genre),
		Tags:        datatypes.JSONSlice[string](cleanTags(input.Tags)),
	}
	project.Normalise()

	outcome, err := s.writer.create(ctx, project)
	if err != nil {
		return nil, "", err
	}
	s.afterWrite(ctx, identity.UserID)
	return project, outcome, nil
}

// UpdateProject applies input to one of the caller's projects.
func (s *ProjectService) UpdateProject(ctx context.Context, id string, input UpdateProjectInput) (*models.Project, Outcome, error) {
	if s == nil {
		return nil, "", errors.New("project service: service not initialised")
	}
	identity, err := auth.RequireIdentity(ctx)
	if err != nil {
		return nil, "", err
	}
	ctx = ensuredContext(ctx)

	if err := validator.ValidateStruct(input); err != nil {
		return nil, "", appErrors.ErrBadRequest.WithInternal(err)
	}

	project, err := s.load(ctx, identity.UserID, strings.TrimSpace(id))
	if err != nil {
		return nil, "", err
	}

	if input.Title != nil {
		project.Title = *input.Title
	}
	if input.Description != nil {
		project.Description = strings.TrimSpace(*input.Description)
	}
	if input.Status != nil {
		project.Status = models.ProjectStatus(*input.Status)
	}
	if input.BPM != nil {
		project.BPM = *input.BPM
	}
	if input.Key != nil {
		project.Key = strings.TrimSpace(*input.Key)
	}
	if input.Genre != nil {
		project.Genre = strings.TrimSpace(*input.Genre)
	}
	if input.Tags != nil {
		project.Tags = datatypes.JSONSlice[string](cleanTags(*input.Tags))
	}
	project.Touch(s.deps.now())
	project.Normalise()

	outcome, err := s.writer.update(ctx, project)
	if err != nil {
		return nil, "", err
	}
	s.afterWrite(ctx, identity.UserID)
	return project, outcome, nil
}

// DeleteProject removes one of the caller's projects and everything attached to it.
func (s *ProjectService) DeleteProject(ctx context.Context, id string) (Outcome, error) {
	if s == nil {
		return "", errors.New("project service: service not initialised")
	}
	identity, err := auth.RequireIdentity(ctx)
	if err != nil {
		return "", err
	}
	ctx = ensuredContext(ctx)

	id = strings.TrimSpace(id)
	if _, err := s.load(ctx, identity.UserID, id); err != nil {
		return "", err
	}

	outcome, err := s.writer.remove(ctx, models.KindProjects, id)
	if err != nil {
		return "", err
	}
	s.deps.invalidate(cascadePrefixes...)
	s.afterWrite(ctx, identity.UserID)
	return outcome, nil
}

// load fetches a project owned by userID from whichever store is reachable.
func (s *ProjectService) load(ctx context.Context, userID, id string) (*models.Project, error) {
	if id == "" {
		return nil, appErrors.NewBadRequest("project id is required")
	}

	var (
		project *models.Project
		err     error
	)
	if s.deps.online() {
		var row models.Project
		err = s.deps.Remote.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Take(&row).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, appErrors.ErrNotFound
		case err != nil:
			return nil, remoteFailure("load", models.KindProjects, err)
		}
		project = &row
	} else {
		project, err = localstore.ByID[models.Project](ctx, s.deps.Local, id)
		if err != nil {
			return nil, err
		}
		if project.UserID != userID {
			return nil, appErrors.ErrNotFound
		}
	}
	project.Normalise()
	return project, nil
}

func (s *ProjectService) afterWrite(ctx context.Context, userID string) {
	s.deps.invalidate(projectPrefixes...)
	s.stats.refresh(ctx, userID)
}

func normaliseAll(projects []models.Project) {
	for i := range projects {
		projects[i].Normalise()
	}
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || slices.Contains(out, tag) {
			continue
		}
		out = append(out, tag)
	}
	return out
}

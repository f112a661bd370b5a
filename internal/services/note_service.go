package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/wavtrack/internal/auth"
	"github.com/charlesng35/wavtrack/internal/models"
	appErrors "github.com/charlesng35/wavtrack/pkg/errors"
	"github.com/charlesng35/wavtrack/pkg/logger"
	"github.com/charlesng35/wavtrack/pkg/validator"
)

// NoteService manages free text notes attached to projects.
type NoteService struct {
	deps   Deps
	writer writer
	log    *zap.Logger
}

// NewNoteService constructs the note service.
func NewNoteService(deps Deps) (*NoteService, error) {
	deps, err := deps.validate("note service")
	if err != nil {
		return nil, err
	}
	log := logger.WithModule("notes")
	return &NoteService{deps: deps, writer: writer{deps: deps, log: log}, log: log}, nil
}

// CreateNoteInput captures a project note.
type CreateNoteInput struct {
	ProjectID string `json:"project_id" validate:"required,max=36"`
	Title     string `json:"title" validate:"max=200"`
	Content   string `json:"content" validate:"required,max=20000"`
}

// ListByProject returns the caller's notes for projectID, newest first.
func (s *NoteService) ListByProject(ctx context.Context, projectID string) ([]models.Note, error) {
	if s == nil {
		return nil, errors.New("note service: service not initialised")
	}
	identity, err := auth.RequireIdentity(ctx)
	if err != nil {
		return nil, err
	}
	return listForProject[models.Note](ensuredContext(ctx), s.deps, s.writer, s.log,
		PrefixNotes, identity.UserID, projectID, "created_at DESC")
}

// Create adds a note for the caller.
func (s *NoteService) Create(ctx context.Context, input CreateNoteInput) (*models.Note, Outcome, error) {
	if s == nil {
		return nil, "", errors.New("note service: service not initialised")
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
	note := &models.Note{
		OwnedModel: models.OwnedModel{
			BaseModel: models.BaseModel{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now},
			UserID:    identity.UserID,
		},
		ProjectID: strings.TrimSpace(input.ProjectID),
		Title:     strings.TrimSpace(input.Title),
		Content:   input.Content,
	}

	outcome, err := s.writer.create(ctx, note)
	if err != nil {
		return nil, "", err
	}
	s.deps.invalidate(PrefixNotes)
	return note, outcome, nil
}

// Delete removes one of the caller's notes.
func (s *NoteService) Delete(ctx context.Context, id string) (Outcome, error) {
	if s == nil {
		return "", errors.New("note service: service not initialised")
	}
	identity, err := auth.RequireIdentity(ctx)
	if err != nil {
		return "", err
	}
	ctx = ensuredContext(ctx)

	id = strings.TrimSpace(id)
	if _, err := loadOwned[models.Note](ctx, s.deps, identity.UserID, id); err != nil {
		return "", err
	}
	outcome, err := s.writer.remove(ctx, models.KindNotes, id)
	if err != nil {
		return "", err
	}
	s.deps.invalidate(PrefixNotes)
	return outcome, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, appErrors.ErrNotFound)
}

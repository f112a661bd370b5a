package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/charlesng35/wavtrack/internal/auth"
	"github.com/charlesng35/wavtrack/internal/models"
	appErrors "github.com/charlesng35/wavtrack/pkg/errors"
	"github.com/charlesng35/wavtrack/pkg/logger"
	"github.com/charlesng35/wavtrack/pkg/validator"
)

// SampleService manages audio samples attached to projects. Only metadata is
// stored; FileURL points at wherever the audio lives.
type SampleService struct {
	deps   Deps
	writer writer
	log    *zap.Logger
}

// NewSampleService constructs the sample service.
func NewSampleService(deps Deps) (*SampleService, error) {
	deps, err := deps.validate("sample service")
	if err != nil {
		return nil, err
	}
	log := logger.WithModule("samples")
	return &SampleService{deps: deps, writer: writer{deps: deps, log: log}, log: log}, nil
}

// CreateSampleInput captures sample metadata.
type CreateSampleInput struct {
	ProjectID       string  `json:"project_id" validate:"required,max=36"`
	Name            string  `json:"name" validate:"required,max=200"`
	FileURL         string  `json:"file_url" validate:"omitempty,url,max=2048"`
	DurationSeconds float64 `json:"duration_seconds" validate:"gte=0"`
	BPM             int     `json:"bpm" validate:"omitempty,gte=20,lte=400"`
	Key             string  `json:"key" validate:"max=12"`
}

// ListByProject returns the caller's samples for projectID, newest first.
func (s *SampleService) ListByProject(ctx context.Context, projectID string) ([]models.Sample, error) {
	if s == nil {
		return nil, errors.New("sample service: service not initialised")
	}
	identity, err := auth.RequireIdentity(ctx)
	if err != nil {
		return nil, err
	}
	return listForProject[models.Sample](ensuredContext(ctx), s.deps, s.writer, s.log,
		PrefixSamples, identity.UserID, projectID, "created_at DESC")
}

// Create attaches a sample to one of the caller's projects.
func (s *SampleService) Create(ctx context.Context, input CreateSampleInput) (*models.Sample, Outcome, error) {
	if s == nil {
		return nil, "", errors.New("sample service: service not initialised")
	}
	identity, err := auth.RequireIdentity(ctx)
	if err != nil {
		return nil, "", err
	}
	ctx = ensuredContext(ctx)

	input.Name = strings.TrimSpace(input.Name)
	if err := validator.ValidateStruct(input); err != nil {
		return nil, "", appErrors.ErrBadRequest.WithInternal(err)
	}
	projectID := strings.TrimSpace(input.ProjectID)
	if _, err := loadOwned[models.Project](ctx, s.deps, identity.UserID, projectID); err != nil {
		return nil, "", err
	}

	now := s.deps.now()
	sample := &models.Sample{
		OwnedModel: models.OwnedModel{
			BaseModel: models.BaseModel{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now},
			UserID:    identity.UserID,
		},
		ProjectID:       projectID,
		Name:            input.Name,
		FileURL:         strings.TrimSpace(input.FileURL),
		DurationSeconds: input.DurationSeconds,
		BPM:             input.BPM,
		Key:             strings.TrimSpace(input.Key),
	}

	outcome, err := s.writer.create(ctx, sample)
	if err != nil {
		return nil, "", err
	}
	s.deps.invalidate(PrefixSamples)
	return sample, outcome, nil
}

// Delete removes one of the caller's samples.
func (s *SampleService) Delete(ctx context.Context, id string) (Outcome, error) {
	if s == nil {
		return "", errors.New("sample service: service not initialised")
	}
	identity, err := auth.RequireIdentity(ctx)
	if err != nil {
		return "", err
	}
	ctx = ensuredContext(ctx)

	id = strings.TrimSpace(id)
	if _, err := loadOwned[models.Sample](ctx, s.deps, identity.UserID, id); err != nil {
		return "", err
	}
	outcome, err := s.writer.remove(ctx, models.KindSamples, id)
	if err != nil {
		return "", err
	}
	s.deps.invalidate(PrefixSamples)
	return outcome, nil
}

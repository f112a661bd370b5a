package services

import (
	"context"
	"errors"
	"fmt"
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

// ChartRange selects the window a beat chart covers.
type ChartRange string

const (
	RangeDay   ChartRange = "day"
	RangeWeek  ChartRange = "week"
	RangeMonth ChartRange = "month"
	RangeYear  ChartRange = "year"
)

// ParseChartRange validates a range name. Empty defaults to week.
func ParseChartRange(raw string) (ChartRange, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return RangeWeek, nil
	}
	if !slices.Contains(validator.ChartRanges, raw) {
		return "", appErrors.NewBadRequest(fmt.Sprintf("unknown chart range %q", raw))
	}
	return ChartRange(raw), nil
}

// ChartPoint is one bucket of a beat chart.
type ChartPoint struct {
	Label string    `json:"label"`
	Start time.Time `json:"start"`
	Count int       `json:"count"`
}

// ActivityService records beat activity and aggregates it for charts.
type ActivityService struct {
	deps   Deps
	writer writer
	stats  *StatsService
	log    *zap.Logger
}

// NewActivityService constructs the beat activity service.
func NewActivityService(deps Deps, stats *StatsService) (*ActivityService, error) {
	deps, err := deps.validate("activity service")
	if err != nil {
		return nil, err
	}
	log := logger.WithModule("activity")
	return &ActivityService{deps: deps, writer: writer{deps: deps, log: log}, stats: stats, log: log}, nil
}

// RecordBeatInput describes beats produced for a project.
type RecordBeatInput struct {
	ProjectID string    `json:"project_id" validate:"required,max=36"`
	Count     int       `json:"count"`
	Date      time.Time `json:"date"`
}

// RecordBeatCreation appends a beat activity row. Non-positive counts are
// ignored and a zero date means now.
func (s *ActivityService) RecordBeatCreation(ctx context.Context, input RecordBeatInput) (*models.BeatActivity, Outcome, error) {
	if s == nil {
		return nil, "", errors.New("activity service: service not initialised")
	}
	identity, err := auth.RequireIdentity(ctx)
	if err != nil {
		return nil, "", err
	}
	ctx = ensuredContext(ctx)

	if input.Count <= 0 {
		return nil, OutcomeSkipped, nil
	}
	if err := validator.ValidateStruct(input); err != nil {
		return nil, "", appErrors.ErrBadRequest.WithInternal(err)
	}
	projectID := strings.TrimSpace(input.ProjectID)
	if _, err := loadOwned[models.Project](ctx, s.deps, identity.UserID, projectID); err != nil {
		return nil, "", err
	}

	now := s.deps.now()
	date := input.Date
	if date.IsZero() {
		date = now
	}
	activity := &models.BeatActivity{
		OwnedModel: models.OwnedModel{
			BaseModel: models.BaseModel{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now},
			UserID:    identity.UserID,
		},
		ProjectID: projectID,
		Date:      date.UTC(),
		Count:     input.Count,
	}

	outcome, err := s.writer.create(ctx, activity)
	if err != nil {
		return nil, "", err
	}
	s.deps.invalidate(PrefixChart, PrefixStats)
	s.stats.refresh(ctx, identity.UserID)
	return activity, outcome, nil
}

// GetBeatsDataForChart sums the caller's beat activity into the buckets of
// timeRange, optionally narrowed to projectID. Every bucket is present even
// when empty. Query failures are logged and yield zeroed buckets.
func (s *ActivityService) GetBeatsDataForChart(ctx context.Context, timeRange ChartRange, projectID string) ([]ChartPoint, error) {
	if s == nil {
		return nil, errors.New("activity service: service not initialised")
	}
	identity, err := auth.RequireIdentity(ctx)
	if err != nil {
		return nil, err
	}
	ctx = ensuredContext(ctx)

	if timeRange == "" {
		timeRange = RangeWeek
	}
	projectID = strings.TrimSpace(projectID)
	buckets, end, err := chartBuckets(timeRange, s.deps.now())
	if err != nil {
		return nil, err
	}

	scope := projectID
	if scope == "" {
		scope = "all"
	}
	// The window start keeps a cached chart from outliving its buckets.
	key := cache.Key(PrefixChart, strings.Join([]string{
		identity.UserID, string(timeRange), scope, buckets[0].Start.Format("2006-01-02"),
	}, ":"))
	if cached, ok := cache.GetAs[[]ChartPoint](s.deps.Cache, key); ok {
		return slices.Clone(cached), nil
	}

	online := s.deps.online()
	query := localstore.Query{
		UserID:    identity.UserID,
		ProjectID: projectID,
		From:      buckets[0].Start,
		To:        end,
	}
	var rows []models.BeatActivity
	if err := query.Apply(s.deps.source().WithContext(ctx)).Find(&rows).Error; err != nil {
		s.log.Warn("load beat activity failed", logFields(identity.UserID,
			zap.String("range", string(timeRange)), zap.Bool("online", online), zap.Error(err))...)
		return buckets, nil
	}

	for _, row := range rows {
		if idx := bucketIndex(buckets, end, row.Date); idx >= 0 {
			buckets[idx].Count += row.Count
		}
	}
	if online {
		s.deps.Cache.Set(key, slices.Clone(buckets), 0)
	}
	return buckets, nil
}

// chartBuckets lays out the empty buckets for r around now and returns the
// exclusive end of the last bucket.
func chartBuckets(r ChartRange, now time.Time) ([]ChartPoint, time.Time, error) {
	loc := now.Location()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	var (
		points []ChartPoint
		end    time.Time
	)
	switch r {
	case RangeDay:
		for i := 0; i < 8; i++ {
			start := midnight.Add(time.Duration(i*3) * time.Hour)
			points = append(points, ChartPoint{Label: start.Format("15:04"), Start: start})
		}
		end = midnight.AddDate(0, 0, 1)
	case RangeWeek:
		first := midnight.AddDate(0, 0, -6)
		for i := 0; i < 7; i++ {
			start := first.AddDate(0, 0, i)
			points = append(points, ChartPoint{Label: start.Format("Mon"), Start: start})
		}
		end = midnight.AddDate(0, 0, 1)
	case RangeMonth:
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		end = first.AddDate(0, 1, 0)
		for start := first; start.Before(end); start = start.AddDate(0, 0, 1) {
			points = append(points, ChartPoint{Label: start.Format("2"), Start: start})
		}
	case RangeYear:
		first := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, loc)
		for i := 0; i < 12; i++ {
			start := first.AddDate(0, i, 0)
			points = append(points, ChartPoint{Label: start.Format("Jan"), Start: start})
		}
		end = first.AddDate(1, 0, 0)
	default:
		return nil, time.Time{}, appErrors.NewBadRequest(fmt.Sprintf("unknown chart range %q", r))
	}
	return points, end, nil
}

// bucketIndex finds the bucket containing t, or -1 when t is outside the chart.
func bucketIndex(points []ChartPoint, end, t time.Time) int {
	if t.Before(points[0].Start) || !t.Before(end) {
		return -1
	}
	for i := len(points) - 1; i >= 0; i-- {
		if !t.Before(points[i].Start) {
			return i
		}
	}
	return -1
}

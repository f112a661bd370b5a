package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/wavtrack/internal/auth"
	"github.com/charlesng35/wavtrack/internal/cache"
	"github.com/charlesng35/wavtrack/internal/models"
	appErrors "github.com/charlesng35/wavtrack/pkg/errors"
	"github.com/charlesng35/wavtrack/pkg/logger"
)

// Stats are the dashboard aggregates for one user.
type Stats struct {
	TotalBeats        int `json:"total_beats"`
	CompletedProjects int `json:"completed_projects"`
	TotalProjects     int `json:"total_projects"`
	CompletionRate    int `json:"completion_rate"`
	TotalSessions     int `json:"total_sessions"`
	ProductivityScore int `json:"productivity_score"`
}

// ProductivityScore weights beats (up to 50), completed projects (up to 30)
// and sessions (up to 20). Negative inputs count as zero.
func ProductivityScore(totalBeats, completedProjects, totalSessions int) int {
	beats := math.Min(50, math.Round(float64(clampZero(totalBeats))/20*50))
	completed := math.Min(30, float64(clampZero(completedProjects)*5))
	sessions := math.Min(20, math.Round(float64(clampZero(totalSessions))/10*20))
	return int(beats + completed + sessions)
}

// CompletionRate returns completed/total as a rounded percentage, or 0 without projects.
func CompletionRate(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(clampZero(completed)) / float64(total) * 100))
}

func clampZero(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

// StatsService computes and publishes profile statistics.
type StatsService struct {
	deps Deps
	log  *zap.Logger
}

// NewStatsService constructs the statistics service.
func NewStatsService(deps Deps) (*StatsService, error) {
	deps, err := deps.validate("stats service")
	if err != nil {
		return nil, err
	}
	return &StatsService{deps: deps, log: logger.WithModule("stats")}, nil
}

// Compute aggregates statistics for userID from db. A failed sub-query counts as zero.
func (s *StatsService) Compute(ctx context.Context, db *gorm.DB, userID string) Stats {
	ctx = ensuredContext(ctx)
	q := db.WithContext(ctx)

	var beats struct{ Total int64 }
	if err := q.Model(&models.BeatActivity{}).
		Select("COALESCE(SUM(count), 0) AS total").
		Where("user_id = ?", userID).
		Scan(&beats).Error; err != nil {
		s.log.Warn("sum beat activity failed", logFields(userID, zap.Error(err))...)
		beats.Total = 0
	}

	var totalProjects, completedProjects, totalSessions int64
	if err := q.Model(&models.Project{}).Where("user_id = ?", userID).Count(&totalProjects).Error; err != nil {
		s.log.Warn("count projects failed", logFields(userID, zap.Error(err))...)
		totalProjects = 0
	}
	if err := q.Model(&models.Project{}).
		Where("user_id = ? AND status = ?", userID, models.StatusCompleted).
		Count(&completedProjects).Error; err != nil {
		s.log.Warn("count completed projects failed", logFields(userID, zap.Error(err))...)
		completedProjects = 0
	}
	if err := q.Model(&models.StudioSession{}).Where("user_id = ?", userID).Count(&totalSessions).Error; err != nil {
		s.log.Warn("count sessions failed", logFields(userID, zap.Error(err))...)
		totalSessions = 0
	}

	stats := Stats{
		TotalBeats:        int(beats.Total),
		CompletedProjects: int(completedProjects),
		TotalProjects:     int(totalProjects),
		TotalSessions:     int(totalSessions),
	}
	stats.CompletionRate = CompletionRate(stats.CompletedProjects, stats.TotalProjects)
	stats.ProductivityScore = ProductivityScore(stats.TotalBeats, stats.CompletedProjects, stats.TotalSessions)
	return stats
}

// Recompute aggregates the remote data for userID, upserts the profile row and
// refreshes the cached statistics.
func (s *StatsService) Recompute(ctx context.Context, userID string) (Stats, error) {
	if s == nil {
		return Stats{}, errors.New("stats service: service not initialised")
	}
	if userID == "" {
		return Stats{}, appErrors.ErrUnauthenticated
	}
	ctx = ensuredContext(ctx)

	stats := s.Compute(ctx, s.deps.Remote, userID)
	profile := models.Profile{
		ID:                userID,
		TotalBeats:        stats.TotalBeats,
		CompletedProjects: stats.CompletedProjects,
		TotalProjects:     stats.TotalProjects,
		CompletionRate:    stats.CompletionRate,
		TotalSessions:     stats.TotalSessions,
		ProductivityScore: stats.ProductivityScore,
		UpdatedAt:         s.deps.now(),
	}
	err := s.deps.Remote.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_beats", "completed_projects", "total_projects",
			"completion_rate", "total_sessions", "productivity_score", "updated_at",
		}),
	}).Create(&profile).Error
	if err != nil {
		return stats, fmt.Errorf("stats service: upsert profile: %w", appErrors.ErrRemoteWriteFailed.WithInternal(err))
	}

	s.deps.Cache.Set(cache.Key(PrefixStats, userID), stats, 0)
	return stats, nil
}

// refresh recomputes statistics after a write and only logs failures.
func (s *StatsService) refresh(ctx context.Context, userID string) {
	if s == nil || !s.deps.online() {
		return
	}
	if _, err := s.Recompute(ctx, userID); err != nil {
		s.log.Warn("recompute profile stats failed", logFields(userID, zap.Error(err))...)
	}
}

// GetStats returns the caller's statistics. Offline it aggregates the local store.
func (s *StatsService) GetStats(ctx context.Context) (Stats, error) {
	if s == nil {
		return Stats{}, errors.New("stats service: service not initialised")
	}
	identity, err := auth.RequireIdentity(ctx)
	if err != nil {
		return Stats{}, err
	}
	key := cache.Key(PrefixStats, identity.UserID)
	if cached, ok := cache.GetAs[Stats](s.deps.Cache, key); ok {
		return cached, nil
	}

	if !s.deps.online() {
		return s.Compute(ctx, s.deps.Local.DB(), identity.UserID), nil
	}
	stats := s.Compute(ctx, s.deps.Remote, identity.UserID)
	s.deps.Cache.Set(key, stats, 0)
	return stats, nil
}

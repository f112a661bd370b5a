package services

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/wavtrack/internal/cache"
	"github.com/charlesng35/wavtrack/internal/models"
	appErrors "github.com/charlesng35/wavtrack/pkg/errors"
)

func TestProductivityScore(t *testing.T) {
	cases := []struct {
		name                       string
		beats, completed, sessions int
		want                       int
	}{
		{name: "empty", want: 0},
		{name: "saturated exactly", beats: 20, completed: 6, sessions: 10, want: 100},
		{name: "half way", beats: 10, completed: 2, sessions: 5, want: 45},
		{name: "rounds beats", beats: 3, want: 8},
		{name: "negative inputs clamp", beats: -5, completed: -1, sessions: -3, want: 0},
		{name: "caps each term", beats: 1000, completed: 100, sessions: 100, want: 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ProductivityScore(tc.beats, tc.completed, tc.sessions)
			require.Equal(t, tc.want, got)
			require.GreaterOrEqual(t, got, 0)
			require.LessOrEqual(t, got, 100)
		})
	}
}

func TestCompletionRate(t *testing.T) {
	require.Zero(t, CompletionRate(0, 0))
	require.Equal(t, 33, CompletionRate(1, 3))
	require.Equal(t, 67, CompletionRate(2, 3))
	require.Equal(t, 100, CompletionRate(4, 4))
}

func seedStats(t *testing.T, f *fixture, userID string) {
	t.Helper()
	require.NoError(t, f.remote.Create(&models.Project{
		OwnedModel: models.OwnedModel{UserID: userID},
		Title:      "done",
		Status:     models.StatusCompleted,
	}).Error)
	require.NoError(t, f.remote.Create(&models.Project{
		OwnedModel: models.OwnedModel{UserID: userID},
		Title:      "wip",
		Status:     models.StatusInProgress,
	}).Error)
	for _, count := range []int{10, 20} {
		require.NoError(t, f.remote.Create(&models.BeatActivity{
			OwnedModel: models.OwnedModel{UserID: userID},
			ProjectID:  "p",
			Date:       wednesday,
			Count:      count,
		}).Error)
	}
	for i := 0; i < 4; i++ {
		require.NoError(t, f.remote.Create(&models.StudioSession{
			OwnedModel:      models.OwnedModel{UserID: userID},
			ProjectID:       "p",
			DurationMinutes: 30,
			Date:            wednesday,
		}).Error)
	}
}

func TestRecomputeUpsertsProfile(t *testing.T) {
	f := newFixture(t, true)
	_, stats := f.services(t)
	seedStats(t, f, "u1")
	seedStats(t, f, "u2")

	got, err := stats.Recompute(userCtx("u1"), "u1")
	require.NoError(t, err)
	require.Equal(t, Stats{
		TotalBeats:        30,
		CompletedProjects: 1,
		TotalProjects:     2,
		CompletionRate:    50,
		TotalSessions:     4,
		ProductivityScore: 50 + 5 + 8,
	}, got)

	var profile models.Profile
	require.NoError(t, f.remote.First(&profile, "id = ?", "u1").Error)
	require.Equal(t, 63, profile.ProductivityScore)
	require.True(t, wednesday.Equal(profile.UpdatedAt))

	_, err = stats.Recompute(userCtx("u1"), "u1")
	require.NoError(t, err)
	var rows int64
	require.NoError(t, f.remote.Model(&models.Profile{}).Count(&rows).Error)
	require.EqualValues(t, 1, rows, "recompute upserts a single row")

	cached, ok := cache.GetAs[Stats](f.cache, cache.Key(PrefixStats, "u1"))
	require.True(t, ok)
	require.Equal(t, got, cached)
}

func TestRecomputeRequiresUser(t *testing.T) {
	_, stats := newFixture(t, true).services(t)
	_, err := stats.Recompute(userCtx("u1"), "")
	require.ErrorIs(t, err, appErrors.ErrUnauthenticated)
}

func TestGetStatsOfflineUsesLocalStore(t *testing.T) {
	f := newFixture(t, false)
	projects, stats := f.services(t)
	ctx := userCtx("u1")

	_, _, err := projects.AddProject(ctx, CreateProjectInput{Title: "a", Status: "completed"})
	require.NoError(t, err)
	_, _, err = projects.AddProject(ctx, CreateProjectInput{Title: "b"})
	require.NoError(t, err)

	got, err := stats.GetStats(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, got.TotalProjects)
	require.Equal(t, 1, got.CompletedProjects)
	require.Equal(t, 50, got.CompletionRate)

	var profiles int64
	require.NoError(t, f.remote.Model(&models.Profile{}).Count(&profiles).Error)
	require.Zero(t, profiles, "offline writes leave the remote profile alone")
}

func TestComputeTreatsFailedQueriesAsZero(t *testing.T) {
	f := newFixture(t, true)
	_, stats := f.services(t)

	// Without the record tables every aggregate query fails.
	empty := newFixture(t, true)
	require.NoError(t, empty.remote.Migrator().DropTable(&models.BeatActivity{}, &models.Project{}, &models.StudioSession{}))

	got := stats.Compute(userCtx("u1"), empty.remote, "u1")
	require.Equal(t, Stats{}, got)
}

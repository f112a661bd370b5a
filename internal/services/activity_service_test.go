package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/wavtrack/internal/models"
	appErrors "github.com/charlesng35/wavtrack/pkg/errors"
)

func newActivityService(t *testing.T, f *fixture) *ActivityService {
	t.Helper()
	_, stats := f.services(t)
	svc, err := NewActivityService(f.deps, stats)
	require.NoError(t, err)
	return svc
}

func sumPoints(points []ChartPoint) int {
	total := 0
	for _, p := range points {
		total += p.Count
	}
	return total
}

func TestParseChartRange(t *testing.T) {
	r, err := ParseChartRange("")
	require.NoError(t, err)
	require.Equal(t, RangeWeek, r)

	r, err = ParseChartRange(" Month ")
	require.NoError(t, err)
	require.Equal(t, RangeMonth, r)

	_, err = ParseChartRange("decade")
	require.ErrorIs(t, err, appErrors.ErrBadRequest)
}

func TestChartBucketShapes(t *testing.T) {
	cases := []struct {
		r      ChartRange
		count  int
		first  string
		last   string
		endDay time.Time
	}{
		{RangeDay, 8, "00:00", "21:00", time.Date(2026, 3, 19, 0, 0, 0, 0, time.UTC)},
		{RangeWeek, 7, "Thu", "Wed", time.Date(2026, 3, 19, 0, 0, 0, 0, time.UTC)},
		{RangeMonth, 31, "1", "31", time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)},
		{RangeYear, 12, "Jan", "Dec", time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		t.Run(string(tc.r), func(t *testing.T) {
			points, end, err := chartBuckets(tc.r, wednesday)
			require.NoError(t, err)
			require.Len(t, points, tc.count)
			require.Equal(t, tc.first, points[0].Label)
			require.Equal(t, tc.last, points[len(points)-1].Label)
			require.True(t, tc.endDay.Equal(end))
			for _, p := range points {
				require.Zero(t, p.Count)
			}
		})
	}

	_, _, err := chartBuckets("fortnight", wednesday)
	require.ErrorIs(t, err, appErrors.ErrBadRequest)
}

func TestRecordBeatCreationSkipsNonPositiveCounts(t *testing.T) {
	f := newFixture(t, true)
	svc := newActivityService(t, f)

	activity, outcome, err := svc.RecordBeatCreation(userCtx("u1"), RecordBeatInput{ProjectID: "p1", Count: 0})
	require.NoError(t, err)
	require.Nil(t, activity)
	require.Equal(t, OutcomeSkipped, outcome)

	var rows int64
	require.NoError(t, f.remote.Model(&models.BeatActivity{}).Count(&rows).Error)
	require.Zero(t, rows)

	_, _, err = svc.RecordBeatCreation(userCtx("u1"), RecordBeatInput{Count: 2})
	require.ErrorIs(t, err, appErrors.ErrBadRequest, "project id is required")
}

func TestWeekChartSumsTrailingSevenDays(t *testing.T) {
	f := newFixture(t, true)
	svc := newActivityService(t, f)
	ctx := userCtx("u1")
	f.seedProject(t, "u1", "p1")
	f.seedProject(t, "u1", "p2")

	record := func(projectID string, count int, at time.Time) {
		_, _, err := svc.RecordBeatCreation(ctx, RecordBeatInput{ProjectID: projectID, Count: count, Date: at})
		require.NoError(t, err)
	}
	record("p1", 3, time.Time{})
	record("p1", 2, wednesday.AddDate(0, 0, -2))
	record("p1", 1, time.Date(2026, 3, 12, 1, 0, 0, 0, time.UTC))
	record("p1", 5, wednesday.AddDate(0, 0, -7))
	record("p2", 4, wednesday)

	points, err := svc.GetBeatsDataForChart(ctx, RangeWeek, "p1")
	require.NoError(t, err)
	require.Len(t, points, 7)
	require.Equal(t, 6, sumPoints(points))
	require.Equal(t, 1, points[0].Count)
	require.Equal(t, 2, points[4].Count)
	require.Equal(t, 3, points[6].Count)

	all, err := svc.GetBeatsDataForChart(ctx, RangeWeek, "")
	require.NoError(t, err)
	require.Equal(t, 10, sumPoints(all))

	other, err := svc.GetBeatsDataForChart(userCtx("u2"), RangeWeek, "")
	require.NoError(t, err)
	require.Len(t, other, 7)
	require.Zero(t, sumPoints(other))
}

func TestChartCacheIsInvalidatedByNewBeats(t *testing.T) {
	f := newFixture(t, true)
	svc := newActivityService(t, f)
	ctx := userCtx("u1")
	f.seedProject(t, "u1", "p1")

	points, err := svc.GetBeatsDataForChart(ctx, RangeDay, "p1")
	require.NoError(t, err)
	require.Zero(t, sumPoints(points))
	require.Len(t, f.cache.KeysByPrefix(PrefixChart), 1)

	_, outcome, err := svc.RecordBeatCreation(ctx, RecordBeatInput{ProjectID: "p1", Count: 4})
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, outcome)
	require.Empty(t, f.cache.KeysByPrefix(PrefixChart))

	points, err = svc.GetBeatsDataForChart(ctx, RangeDay, "p1")
	require.NoError(t, err)
	require.Equal(t, 4, points[5].Count, "15:00 falls in the sixth three hour bucket")
}

func TestChartQueryFailureReturnsZeroedBuckets(t *testing.T) {
	f := newFixture(t, true)
	svc := newActivityService(t, f)
	require.NoError(t, f.remote.Migrator().DropTable(&models.BeatActivity{}))

	points, err := svc.GetBeatsDataForChart(userCtx("u1"), RangeYear, "")
	require.NoError(t, err)
	require.Len(t, points, 12)
	require.Zero(t, sumPoints(points))
}

func TestOfflineBeatsQueueAndChartFromLocalStore(t *testing.T) {
	f := newFixture(t, false)
	svc := newActivityService(t, f)
	ctx := userCtx("u1")
	f.seedProject(t, "u1", "p1")

	_, outcome, err := svc.RecordBeatCreation(ctx, RecordBeatInput{ProjectID: "p1", Count: 7})
	require.NoError(t, err)
	require.Equal(t, OutcomeQueued, outcome)

	points, err := svc.GetBeatsDataForChart(ctx, RangeMonth, "p1")
	require.NoError(t, err)
	require.Len(t, points, 31)
	require.Equal(t, 7, points[17].Count)

	_, err = svc.GetBeatsDataForChart(context.Background(), RangeMonth, "p1")
	require.ErrorIs(t, err, appErrors.ErrUnauthenticated)
}

func TestRecordBeatCreationRequiresOwnedProject(t *testing.T) {
	f := newFixture(t, true)
	svc := newActivityService(t, f)
	f.seedProject(t, "u2", "theirs")

	_, _, err := svc.RecordBeatCreation(userCtx("u1"), RecordBeatInput{ProjectID: "missing", Count: 3})
	require.ErrorIs(t, err, appErrors.ErrNotFound)

	_, _, err = svc.RecordBeatCreation(userCtx("u1"), RecordBeatInput{ProjectID: "theirs", Count: 3})
	require.ErrorIs(t, err, appErrors.ErrNotFound)

	var rows int64
	require.NoError(t, f.remote.Model(&models.BeatActivity{}).Count(&rows).Error)
	require.Zero(t, rows)

	_, outcome, err := svc.RecordBeatCreation(userCtx("u2"), RecordBeatInput{ProjectID: "theirs", Count: 3})
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, outcome)
}

func TestChartCacheKeyFollowsTheCalendarDay(t *testing.T) {
	f := newFixture(t, true)
	now := wednesday
	f.deps.Clock = func() time.Time { return now }
	svc := newActivityService(t, f)
	ctx := userCtx("u1")
	f.seedProject(t, "u1", "p1")

	_, err := svc.GetBeatsDataForChart(ctx, RangeWeek, "p1")
	require.NoError(t, err)
	require.Equal(t, []string{"chart-u1:week:p1:2026-03-12"}, f.cache.KeysByPrefix(PrefixChart))

	// A beat written straight to the remote store bypasses invalidation.
	thursday := wednesday.Add(12 * time.Hour)
	require.NoError(t, f.remote.Create(&models.BeatActivity{
		OwnedModel: models.OwnedModel{UserID: "u1"},
		ProjectID:  "p1",
		Date:       thursday,
		Count:      5,
	}).Error)

	now = thursday
	points, err := svc.GetBeatsDataForChart(ctx, RangeWeek, "p1")
	require.NoError(t, err)
	require.Equal(t, "Thu", points[6].Label)
	require.Equal(t, 5, points[6].Count, "the next day reads fresh buckets")
	require.Len(t, f.cache.KeysByPrefix(PrefixChart), 2)
}

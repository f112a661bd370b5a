package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/wavtrack/internal/auth"
	"github.com/charlesng35/wavtrack/internal/cache"
	"github.com/charlesng35/wavtrack/internal/connectivity"
	"github.com/charlesng35/wavtrack/internal/database/testutil"
	"github.com/charlesng35/wavtrack/internal/localstore"
	"github.com/charlesng35/wavtrack/internal/models"
)

// wednesday is a fixed afternoon used as "now" by the fixtures.
var wednesday = time.Date(2026, time.March, 18, 15, 0, 0, 0, time.UTC)

type fixture struct {
	remote  *gorm.DB
	local   *localstore.Store
	cache   *cache.TTLCache
	monitor *connectivity.Manual
	deps    Deps
}

func newFixture(t *testing.T, online bool) *fixture {
	t.Helper()

	remoteDB := testutil.MustOpenTestDB(t, testutil.WithRemoteSchema())
	localDB := testutil.MustOpenTestDB(t, testutil.WithLocalSchema())

	clock := func() time.Time { return wednesday }
	local, err := localstore.New(localDB, localstore.WithClock(clock))
	require.NoError(t, err)

	f := &fixture{
		remote:  remoteDB,
		local:   local,
		cache:   cache.NewTTLCache(),
		monitor: connectivity.NewManual(online),
	}
	f.deps = Deps{
		Remote:  f.remote,
		Local:   f.local,
		Cache:   f.cache,
		Monitor: f.monitor,
		Clock:   clock,
	}
	return f
}

func (f *fixture) services(t *testing.T) (*ProjectService, *StatsService) {
	t.Helper()
	stats, err := NewStatsService(f.deps)
	require.NoError(t, err)
	projects, err := NewProjectService(f.deps, stats)
	require.NoError(t, err)
	return projects, stats
}

// seedProject stores a project owned by userID in both stores so lookups
// succeed whether the fixture is online or not.
func (f *fixture) seedProject(t *testing.T, userID, id string) {
	t.Helper()
	project := &models.Project{
		OwnedModel: models.OwnedModel{BaseModel: models.BaseModel{ID: id}, UserID: userID},
		Title:      "Seeded " + id,
		Status:     models.StatusIdea,
	}
	require.NoError(t, f.remote.Create(project).Error)
	require.NoError(t, f.local.Mirror(context.Background(), project))
}

func userCtx(userID string) context.Context {
	return auth.WithIdentity(context.Background(), auth.Identity{UserID: userID})
}

func ptr[T any](v T) *T {
	return &v
}

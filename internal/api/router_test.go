package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/wavtrack/internal/app"
	iauth "github.com/charlesng35/wavtrack/internal/auth"
	"github.com/charlesng35/wavtrack/internal/cache"
	"github.com/charlesng35/wavtrack/internal/connectivity"
	"github.com/charlesng35/wavtrack/internal/database/testutil"
	"github.com/charlesng35/wavtrack/internal/localstore"
	"github.com/charlesng35/wavtrack/internal/middleware"
	"github.com/charlesng35/wavtrack/internal/outbox"
	"github.com/charlesng35/wavtrack/internal/realtime"
	"github.com/charlesng35/wavtrack/internal/remote"
	"github.com/charlesng35/wavtrack/internal/services"
)

func testConfig() *app.Config {
	cfg := &app.Config{}
	cfg.Server.AllowedOrigins = []string{"http://localhost:5173"}
	cfg.Server.RateLimit = app.RateLimitConfig{Requests: 1000, Window: time.Minute}
	cfg.Monitoring.Prometheus = app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"}
	return cfg
}

func newTestRouter(t *testing.T, cfg *app.Config, online bool) (*gin.Engine, *iauth.JWTService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	remoteDB := testutil.MustOpenTestDB(t, testutil.WithRemoteSchema())
	localDB := testutil.MustOpenTestDB(t, testutil.WithLocalSchema())
	local, err := localstore.New(localDB)
	require.NoError(t, err)

	monitor := connectivity.NewManual(online)
	ttlCache := cache.NewTTLCache()
	deps := services.Deps{Remote: remoteDB, Local: local, Cache: ttlCache, Monitor: monitor}

	stats, err := services.NewStatsService(deps)
	require.NoError(t, err)
	projects, err := services.NewProjectService(deps, stats)
	require.NoError(t, err)
	sessions, err := services.NewSessionService(deps, stats)
	require.NoError(t, err)
	notes, err := services.NewNoteService(deps)
	require.NoError(t, err)
	samples, err := services.NewSampleService(deps)
	require.NoError(t, err)
	activity, err := services.NewActivityService(deps, stats)
	require.NoError(t, err)
	applier, err := remote.NewGormApplier(remoteDB)
	require.NoError(t, err)
	drainer, err := outbox.NewDrainer(local, applier)
	require.NoError(t, err)
	syncSvc, err := services.NewSyncService(deps, drainer, stats)
	require.NoError(t, err)

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "router-secret", Issuer: "wavtrack"})
	require.NoError(t, err)

	router, err := NewRouter(cfg, jwtSvc, Services{
		Projects: projects,
		Sessions: sessions,
		Notes:    notes,
		Samples:  samples,
		Activity: activity,
		Stats:    stats,
		Sync:     syncSvc,
		Cache:    ttlCache,
		Hub:      realtime.NewHub(realtime.Streams...),
		Monitor:  monitor,
		LocalDB:  localDB,
	})
	require.NoError(t, err)
	return router, jwtSvc
}

func serve(router http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRouterPublicAndProtectedRoutes(t *testing.T) {
	router, jwtSvc := newTestRouter(t, testConfig(), false)

	rec := serve(router, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), `"online":false`)
	require.Equal(t, "offline", rec.Header().Get(middleware.ConnectivityHeader))

	for _, path := range []string{"/api/projects", "/api/stats", "/api/sync/status", "/api/sync/events"} {
		rec = serve(router, http.MethodGet, path, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}

	token, err := jwtSvc.GenerateAccessToken(iauth.AccessTokenInput{UserID: "u1"})
	require.NoError(t, err)

	rec = serve(router, http.MethodGet, "/api/projects", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = serve(router, http.MethodGet, "/api/sync/status", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = serve(router, http.MethodGet, "/api/nope", token)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "NOT_FOUND")
}

func TestRouterMetricsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, testConfig(), true)

	rec := serve(router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "go_goroutines")

	cfg := testConfig()
	cfg.Monitoring.Prometheus.Enabled = false
	router, _ = newTestRouter(t, cfg, true)
	rec = serve(router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewRouterValidatesDependencies(t *testing.T) {
	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "x"})
	require.NoError(t, err)

	_, err = NewRouter(nil, jwtSvc, Services{})
	require.Error(t, err)
	_, err = NewRouter(testConfig(), nil, Services{})
	require.Error(t, err)
	_, err = NewRouter(testConfig(), jwtSvc, Services{})
	require.ErrorContains(t, err, "project service")
}

package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/wavtrack/internal/auth"
	"github.com/charlesng35/wavtrack/internal/cache"
	"github.com/charlesng35/wavtrack/internal/connectivity"
	"github.com/charlesng35/wavtrack/internal/database/testutil"
	"github.com/charlesng35/wavtrack/internal/localstore"
	"github.com/charlesng35/wavtrack/internal/middleware"
	"github.com/charlesng35/wavtrack/internal/models"
	"github.com/charlesng35/wavtrack/internal/outbox"
	"github.com/charlesng35/wavtrack/internal/remote"
	"github.com/charlesng35/wavtrack/internal/services"
	"github.com/charlesng35/wavtrack/pkg/response"
)

var afternoon = time.Date(2026, time.March, 18, 15, 0, 0, 0, time.UTC)

type harness struct {
	engine  *gin.Engine
	jwt     *auth.JWTService
	monitor *connectivity.Manual
	local   *localstore.Store
	cache   *cache.TTLCache
}

func newHarness(t *testing.T, online bool) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	remoteDB := testutil.MustOpenTestDB(t, testutil.WithRemoteSchema())
	localDB := testutil.MustOpenTestDB(t, testutil.WithLocalSchema())
	clock := func() time.Time { return afternoon }

	local, err := localstore.New(localDB, localstore.WithClock(clock))
	require.NoError(t, err)
	jwtSvc, err := auth.NewJWTService(auth.JWTConfig{Secret: "handler-secret", Clock: clock})
	require.NoError(t, err)

	h := &harness{
		jwt:     jwtSvc,
		monitor: connectivity.NewManual(online),
		local:   local,
		cache:   cache.NewTTLCache(),
	}
	deps := services.Deps{Remote: remoteDB, Local: local, Cache: h.cache, Monitor: h.monitor, Clock: clock}

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

	projectHandler := NewProjectHandler(projects)
	sessionHandler := NewStudioSessionHandler(sessions)
	noteHandler := NewNoteHandler(notes)
	sampleHandler := NewSampleHandler(samples)
	activityHandler := NewActivityHandler(activity, stats)
	syncHandler := NewSyncHandler(syncSvc, h.cache)

	engine := gin.New()
	api := engine.Group("/api", middleware.Auth(jwtSvc))
	api.GET("/projects", projectHandler.List)
	api.POST("/projects", projectHandler.Create)
	api.GET("/projects/:id", projectHandler.Get)
	api.PUT("/projects/:id", projectHandler.Update)
	api.DELETE("/projects/:id", projectHandler.Delete)
	api.GET("/projects/:id/sessions", sessionHandler.ListByProject)
	api.GET("/projects/:id/notes", noteHandler.ListByProject)
	api.GET("/projects/:id/samples", sampleHandler.ListByProject)
	api.POST("/sessions", sessionHandler.Create)
	api.DELETE("/sessions/:id", sessionHandler.Delete)
	api.POST("/notes", noteHandler.Create)
	api.DELETE("/notes/:id", noteHandler.Delete)
	api.POST("/samples", sampleHandler.Create)
	api.DELETE("/samples/:id", sampleHandler.Delete)
	api.POST("/beats", activityHandler.RecordBeats)
	api.GET("/charts/beats", activityHandler.Chart)
	api.GET("/stats", activityHandler.Stats)
	api.GET("/sync/status", syncHandler.Status)
	api.GET("/sync/pending", syncHandler.Pending)
	api.POST("/sync/drain", syncHandler.Drain)
	api.GET("/sync/dead-letters", syncHandler.DeadLetters)
	api.POST("/sync/dead-letters/:id/requeue", syncHandler.Requeue)
	api.GET("/cache/keys", syncHandler.CacheKeys)
	h.engine = engine
	return h
}

func (h *harness) token(t *testing.T, userID string) string {
	t.Helper()
	token, err := h.jwt.GenerateAccessToken(auth.AccessTokenInput{UserID: userID})
	require.NoError(t, err)
	return token
}

func (h *harness) do(t *testing.T, userID, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}
	req := httptest.NewRequest(method, path, &payload)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+h.token(t, userID))
	}
	rec := httptest.NewRecorder()
	h.engine.ServeHTTP(rec, req)
	return rec
}

// decodeInto unmarshals the envelope and its data payload.
func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, data any) response.Response {
	t.Helper()
	var raw struct {
		response.Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	if data != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return raw.Response
}

// createProject adds a project for userID through the API and returns its id.
func (h *harness) createProject(t *testing.T, userID, title string) string {
	t.Helper()
	rec := h.do(t, userID, http.MethodPost, "/api/projects", map[string]any{"title": title})
	require.Contains(t, []int{http.StatusCreated, http.StatusAccepted}, rec.Code, rec.Body.String())
	var project models.Project
	decodeInto(t, rec, &project)
	require.NotEmpty(t, project.ID)
	return project.ID
}

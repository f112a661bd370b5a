package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/wavtrack/internal/models"
	"github.com/charlesng35/wavtrack/internal/outbox"
	"github.com/charlesng35/wavtrack/internal/services"
)

func TestSyncHandlerStatusAndDrain(t *testing.T) {
	h := newHarness(t, false)

	rec := h.do(t, "u1", http.MethodPost, "/api/projects", map[string]any{"title": "Offline sketch"})
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = h.do(t, "u1", http.MethodGet, "/api/sync/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status services.SyncStatus
	decodeInto(t, rec, &status)
	require.False(t, status.Online)
	require.EqualValues(t, 1, status.Depth)

	rec = h.do(t, "u1", http.MethodGet, "/api/sync/pending?limit=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var pending []models.OutboxEntry
	decodeInto(t, rec, &pending)
	require.Len(t, pending, 1)
	require.Equal(t, models.KindProjects, pending[0].RecordKind)

	rec = h.do(t, "u1", http.MethodPost, "/api/sync/drain", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	h.monitor.SetOnline(true)
	rec = h.do(t, "u1", http.MethodPost, "/api/sync/drain", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result outbox.Result
	decodeInto(t, rec, &result)
	require.Equal(t, 1, result.Applied)

	depth, err := h.local.Depth(context.Background())
	require.NoError(t, err)
	require.Zero(t, depth)
}

func TestSyncHandlerRequeueValidation(t *testing.T) {
	h := newHarness(t, true)

	rec := h.do(t, "u1", http.MethodPost, "/api/sync/dead-letters/abc/requeue", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, "u1", http.MethodPost, "/api/sync/dead-letters/42/requeue", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, "u1", http.MethodGet, "/api/sync/dead-letters", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCacheKeysListsCallerKeysOnly(t *testing.T) {
	h := newHarness(t, true)
	h.cache.Set("chart-u1:week:all", []services.ChartPoint{}, 0)
	h.cache.Set("chart-u10:week:all", []services.ChartPoint{}, 0)
	h.cache.Set("chart-u1:day:p1", []services.ChartPoint{}, 0)

	rec := h.do(t, "u1", http.MethodGet, "/api/cache/keys?prefix=chart", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Keys    []string `json:"keys"`
		Counter int      `json:"counter"`
	}
	decodeInto(t, rec, &body)
	require.Equal(t, []string{"chart-u1:week:all", "chart-u1:day:p1"}, body.Keys)
	require.Equal(t, 3, body.Counter)

	rec = h.do(t, "u1", http.MethodGet, "/api/cache/keys", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/wavtrack/internal/cache"
	"github.com/charlesng35/wavtrack/internal/middleware"
	"github.com/charlesng35/wavtrack/internal/services"
	appErrors "github.com/charlesng35/wavtrack/pkg/errors"
	"github.com/charlesng35/wavtrack/pkg/response"
)

const maxPendingPage = 500

// SyncHandler exposes outbox state and manual drain controls.
type SyncHandler struct {
	svc   *services.SyncService
	cache *cache.TTLCache
}

// NewSyncHandler constructs the sync handler.
func NewSyncHandler(svc *services.SyncService, ttlCache *cache.TTLCache) *SyncHandler {
	return &SyncHandler{svc: svc, cache: ttlCache}
}

// Status handles GET /api/sync/status.
func (h *SyncHandler) Status(c *gin.Context) {
	status, err := h.svc.Status(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, status)
}

// Pending handles GET /api/sync/pending?limit=.
func (h *SyncHandler) Pending(c *gin.Context) {
	limit := parseIntQuery(c, "limit", 100)
	if limit <= 0 || limit > maxPendingPage {
		limit = maxPendingPage
	}
	entries, err := h.svc.Pending(requestContext(c), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, entries, &response.Meta{Total: len(entries)})
}

// DeadLetters handles GET /api/sync/dead-letters.
func (h *SyncHandler) DeadLetters(c *gin.Context) {
	entries, err := h.svc.DeadLetters(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, entries, &response.Meta{Total: len(entries)})
}

// Drain handles POST /api/sync/drain.
func (h *SyncHandler) Drain(c *gin.Context) {
	result, err := h.svc.Drain(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// Requeue handles POST /api/sync/dead-letters/:id/requeue.
func (h *SyncHandler) Requeue(c *gin.Context) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || id == 0 {
		response.Error(c, appErrors.NewBadRequest("invalid outbox entry id"))
		return
	}
	if err := h.svc.Requeue(requestContext(c), uint(id)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"requeued": id})
}

// CacheKeys handles GET /api/cache/keys?prefix=. Only keys scoped to the
// caller are listed.
func (h *SyncHandler) CacheKeys(c *gin.Context) {
	prefix := strings.TrimSpace(c.Query("prefix"))
	if prefix == "" {
		response.Error(c, appErrors.NewBadRequest("prefix is required"))
		return
	}
	userID := c.GetString(middleware.CtxUserIDKey)

	own := cache.Key(prefix, userID)
	keys := make([]string, 0)
	counter := 0
	if h.cache != nil {
		for _, key := range h.cache.KeysByPrefix(prefix) {
			if key == own || strings.HasPrefix(key, own+":") {
				keys = append(keys, key)
			}
		}
		counter = h.cache.CurrentCounter(prefix)
	}
	response.SuccessWithMeta(c, http.StatusOK, gin.H{
		"keys":    keys,
		"counter": counter,
	}, &response.Meta{Total: len(keys)})
}

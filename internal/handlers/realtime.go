package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/wavtrack/internal/middleware"
	"github.com/charlesng35/wavtrack/internal/realtime"
	appErrors "github.com/charlesng35/wavtrack/pkg/errors"
	"github.com/charlesng35/wavtrack/pkg/response"
)

// RealtimeHandler upgrades authenticated requests into sync event streams.
type RealtimeHandler struct {
	hub *realtime.Hub
}

// NewRealtimeHandler constructs a realtime handler.
func NewRealtimeHandler(hub *realtime.Hub) *RealtimeHandler {
	return &RealtimeHandler{hub: hub}
}

// Stream handles GET /api/sync/events?streams=a,b. With no streams named the
// client is subscribed to every stream the hub serves.
func (h *RealtimeHandler) Stream(c *gin.Context) {
	if h.hub == nil {
		response.Error(c, appErrors.ErrNotFound)
		return
	}

	userID := strings.TrimSpace(c.GetString(middleware.CtxUserIDKey))
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthenticated)
		return
	}

	streams := parseStreams(c.Query("streams"))
	if len(streams) == 0 {
		streams = realtime.Streams
	}
	for _, stream := range streams {
		if !h.hub.Allowed(stream) {
			response.Error(c, appErrors.NewBadRequest("unknown stream "+stream))
			return
		}
	}

	h.hub.Serve(userID, streams, c.Writer, c.Request)
}

func parseStreams(raw string) []string {
	parts := strings.Split(raw, ",")
	streams := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			streams = append(streams, part)
		}
	}
	return streams
}

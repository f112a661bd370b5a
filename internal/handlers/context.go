package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/wavtrack/internal/services"
	"github.com/charlesng35/wavtrack/pkg/response"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// writeOutcome answers a mutation. Writes that only reached the outbox are
// acknowledged with 202 and an offline marker.
func writeOutcome(c *gin.Context, status int, data any, outcome services.Outcome) {
	if outcome == services.OutcomeQueued {
		response.Accepted(c, data)
		return
	}
	if data == nil {
		c.Status(http.StatusNoContent)
		return
	}
	response.Success(c, status, data)
}

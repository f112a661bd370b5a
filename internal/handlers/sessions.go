package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/wavtrack/internal/services"
	"github.com/charlesng35/wavtrack/pkg/response"
)

// StudioSessionHandler exposes studio sessions logged against projects.
type StudioSessionHandler struct {
	svc *services.SessionService
}

// NewStudioSessionHandler constructs the studio session handler.
func NewStudioSessionHandler(svc *services.SessionService) *StudioSessionHandler {
	return &StudioSessionHandler{svc: svc}
}

// ListByProject handles GET /api/projects/:id/sessions.
func (h *StudioSessionHandler) ListByProject(c *gin.Context) {
	sessions, err := h.svc.ListByProject(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, sessions, &response.Meta{Total: len(sessions)})
}

// Create handles POST /api/sessions.
func (h *StudioSessionHandler) Create(c *gin.Context) {
	var req services.CreateSessionInput
	if !bindAndValidate(c, &req) {
		return
	}
	session, outcome, err := h.svc.Create(requestContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeOutcome(c, http.StatusCreated, session, outcome)
}

// Delete handles DELETE /api/sessions/:id.
func (h *StudioSessionHandler) Delete(c *gin.Context) {
	outcome, err := h.svc.Delete(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	writeOutcome(c, http.StatusOK, gin.H{"deleted": true}, outcome)
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/wavtrack/internal/services"
	"github.com/charlesng35/wavtrack/pkg/response"
)

// NoteHandler exposes project notes.
type NoteHandler struct {
	svc *services.NoteService
}

// NewNoteHandler constructs the note handler.
func NewNoteHandler(svc *services.NoteService) *NoteHandler {
	return &NoteHandler{svc: svc}
}

// ListByProject handles GET /api/projects/:id/notes.
func (h *NoteHandler) ListByProject(c *gin.Context) {
	notes, err := h.svc.ListByProject(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, notes, &response.Meta{Total: len(notes)})
}

// Create handles POST /api/notes.
func (h *NoteHandler) Create(c *gin.Context) {
	var req services.CreateNoteInput
	if !bindAndValidate(c, &req) {
		return
	}
	note, outcome, err := h.svc.Create(requestContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeOutcome(c, http.StatusCreated, note, outcome)
}

// Delete handles DELETE /api/notes/:id.
func (h *NoteHandler) Delete(c *gin.Context) {
	outcome, err := h.svc.Delete(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	writeOutcome(c, http.StatusOK, gin.H{"deleted": true}, outcome)
}

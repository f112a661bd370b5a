package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/wavtrack/internal/services"
	"github.com/charlesng35/wavtrack/pkg/response"
)

// SampleHandler exposes audio samples attached to projects.
type SampleHandler struct {
	svc *services.SampleService
}

// NewSampleHandler constructs the sample handler.
func NewSampleHandler(svc *services.SampleService) *SampleHandler {
	return &SampleHandler{svc: svc}
}

// ListByProject handles GET /api/projects/:id/samples.
func (h *SampleHandler) ListByProject(c *gin.Context) {
	samples, err := h.svc.ListByProject(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, samples, &response.Meta{Total: len(samples)})
}

// Create handles POST /api/samples.
func (h *SampleHandler) Create(c *gin.Context) {
	var req services.CreateSampleInput
	if !bindAndValidate(c, &req) {
		return
	}
	sample, outcome, err := h.svc.Create(requestContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeOutcome(c, http.StatusCreated, sample, outcome)
}

// Delete handles DELETE /api/samples/:id.
func (h *SampleHandler) Delete(c *gin.Context) {
	outcome, err := h.svc.Delete(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	writeOutcome(c, http.StatusOK, gin.H{"deleted": true}, outcome)
}

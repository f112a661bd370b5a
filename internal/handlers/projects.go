package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/wavtrack/internal/services"
	"github.com/charlesng35/wavtrack/pkg/response"
)

// ProjectHandler exposes project CRUD.
type ProjectHandler struct {
	svc *services.ProjectService
}

// NewProjectHandler constructs a project handler.
func NewProjectHandler(svc *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{svc: svc}
}

// List handles GET /api/projects.
func (h *ProjectHandler) List(c *gin.Context) {
	projects, err := h.svc.GetProjects(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, projects, &response.Meta{Total: len(projects)})
}

// Get handles GET /api/projects/:id.
func (h *ProjectHandler) Get(c *gin.Context) {
	project, err := h.svc.GetProject(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, project)
}

// Create handles POST /api/projects.
func (h *ProjectHandler) Create(c *gin.Context) {
	var req services.CreateProjectInput
	if !bindAndValidate(c, &req) {
		return
	}

	project, outcome, err := h.svc.AddProject(requestContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeOutcome(c, http.StatusCreated, project, outcome)
}

// Update handles PUT /api/projects/:id.
func (h *ProjectHandler) Update(c *gin.Context) {
	var req services.UpdateProjectInput
	if !bindAndValidate(c, &req) {
		return
	}

	project, outcome, err := h.svc.UpdateProject(requestContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeOutcome(c, http.StatusOK, project, outcome)
}

// Delete handles DELETE /api/projects/:id.
func (h *ProjectHandler) Delete(c *gin.Context) {
	outcome, err := h.svc.DeleteProject(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	writeOutcome(c, http.StatusOK, gin.H{"deleted": true}, outcome)
}

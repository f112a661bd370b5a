package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/wavtrack/internal/services"
	"github.com/charlesng35/wavtrack/pkg/response"
)

// ActivityHandler exposes beat recording, beat charts and statistics.
type ActivityHandler struct {
	activity *services.ActivityService
	stats    *services.StatsService
}

// NewActivityHandler constructs the activity handler.
func NewActivityHandler(activity *services.ActivityService, stats *services.StatsService) *ActivityHandler {
	return &ActivityHandler{activity: activity, stats: stats}
}

// RecordBeats handles POST /api/beats.
func (h *ActivityHandler) RecordBeats(c *gin.Context) {
	var req services.RecordBeatInput
	if !bindAndValidate(c, &req) {
		return
	}
	activity, outcome, err := h.activity.RecordBeatCreation(requestContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if outcome == services.OutcomeSkipped {
		response.Success(c, http.StatusOK, gin.H{"recorded": false})
		return
	}
	writeOutcome(c, http.StatusCreated, activity, outcome)
}

// Chart handles GET /api/charts/beats?range=&project_id=.
func (h *ActivityHandler) Chart(c *gin.Context) {
	timeRange, err := services.ParseChartRange(c.Query("range"))
	if err != nil {
		response.Error(c, err)
		return
	}
	projectID := strings.TrimSpace(c.Query("project_id"))
	points, err := h.activity.GetBeatsDataForChart(requestContext(c), timeRange, projectID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, points, &response.Meta{Total: len(points)})
}

// Stats handles GET /api/stats.
func (h *ActivityHandler) Stats(c *gin.Context) {
	stats, err := h.stats.GetStats(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, stats)
}

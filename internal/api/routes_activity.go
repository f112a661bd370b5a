package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/wavtrack/internal/handlers"
)

func registerActivityRoutes(api *gin.RouterGroup, svc Services) {
	handler := handlers.NewActivityHandler(svc.Activity, svc.Stats)

	api.POST("/beats", handler.RecordBeats)
	api.GET("/charts/beats", handler.Chart)
	api.GET("/stats", handler.Stats)
}

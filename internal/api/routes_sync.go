package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/wavtrack/internal/handlers"
)

func registerSyncRoutes(api *gin.RouterGroup, svc Services) {
	handler := handlers.NewSyncHandler(svc.Sync, svc.Cache)

	sync := api.Group("/sync")
	{
		sync.GET("/status", handler.Status)
		sync.GET("/pending", handler.Pending)
		sync.POST("/drain", handler.Drain)
		sync.GET("/dead-letters", handler.DeadLetters)
		sync.POST("/dead-letters/:id/requeue", handler.Requeue)
	}
	api.GET("/cache/keys", handler.CacheKeys)

	if svc.Hub != nil {
		sync.GET("/events", handlers.NewRealtimeHandler(svc.Hub).Stream)
	}
}

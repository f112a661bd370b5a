package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/wavtrack/internal/handlers"
)

func registerProjectRoutes(api *gin.RouterGroup, svc Services) {
	projectHandler := handlers.NewProjectHandler(svc.Projects)
	sessionHandler := handlers.NewStudioSessionHandler(svc.Sessions)
	noteHandler := handlers.NewNoteHandler(svc.Notes)
	sampleHandler := handlers.NewSampleHandler(svc.Samples)

	projects := api.Group("/projects")
	{
		projects.GET("", projectHandler.List)
		projects.POST("", projectHandler.Create)
		projects.GET("/:id", projectHandler.Get)
		projects.PUT("/:id", projectHandler.Update)
		projects.DELETE("/:id", projectHandler.Delete)
		projects.GET("/:id/sessions", sessionHandler.ListByProject)
		projects.GET("/:id/notes", noteHandler.ListByProject)
		projects.GET("/:id/samples", sampleHandler.ListByProject)
	}

	api.POST("/sessions", sessionHandler.Create)
	api.DELETE("/sessions/:id", sessionHandler.Delete)

	api.POST("/notes", noteHandler.Create)
	api.DELETE("/notes/:id", noteHandler.Delete)

	api.POST("/samples", sampleHandler.Create)
	api.DELETE("/samples/:id", sampleHandler.Delete)
}

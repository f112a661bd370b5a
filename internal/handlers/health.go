package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/wavtrack/internal/connectivity"
	"github.com/charlesng35/wavtrack/internal/database"
)

// Health reports whether the local store answers and whether the remote
// store is reachable. Only a failing local store makes the service unhealthy.
func Health(local *gorm.DB, monitor connectivity.Monitor) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(requestContext(c), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		payload := gin.H{"status": "ok", "checked_at": time.Now().UTC()}
		if monitor != nil {
			payload["online"] = monitor.Online()
		}
		if local != nil {
			if err := database.Ping(ctx, local); err != nil {
				status = http.StatusServiceUnavailable
				payload["status"] = "degraded"
				payload["local_store"] = err.Error()
			}
		}
		c.JSON(status, gin.H{"success": status == http.StatusOK, "data": payload})
	}
}

package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/wavtrack/internal/connectivity"
)

// ConnectivityHeader names the response header reporting remote reachability.
const ConnectivityHeader = "X-WavTrack-Connectivity"

// SecurityHeaders hardens JSON responses and, when a monitor is supplied,
// tells clients whether the server is currently working offline.
func SecurityHeaders(monitor connectivity.Monitor) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")
		c.Header("Cache-Control", "no-store")
		if monitor != nil {
			state := "offline"
			if monitor.Online() {
				state = "online"
			}
			c.Header(ConnectivityHeader, state)
		}
		c.Next()
	}
}

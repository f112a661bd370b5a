package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/charlesng35/wavtrack/internal/app"
	iauth "github.com/charlesng35/wavtrack/internal/auth"
	"github.com/charlesng35/wavtrack/internal/cache"
	"github.com/charlesng35/wavtrack/internal/connectivity"
	"github.com/charlesng35/wavtrack/internal/handlers"
	"github.com/charlesng35/wavtrack/internal/middleware"
	"github.com/charlesng35/wavtrack/internal/realtime"
	"github.com/charlesng35/wavtrack/internal/services"
)

// Services bundles everything the HTTP layer dispatches to.
type Services struct {
	Projects *services.ProjectService
	Sessions *services.SessionService
	Notes    *services.NoteService
	Samples  *services.SampleService
	Activity *services.ActivityService
	Stats    *services.StatsService
	Sync     *services.SyncService
	Cache    *cache.TTLCache
	Hub      *realtime.Hub
	Monitor  connectivity.Monitor
	LocalDB  *gorm.DB
}

func (s Services) validate() error {
	switch {
	case s.Projects == nil:
		return fmt.Errorf("project service must be provided")
	case s.Sessions == nil:
		return fmt.Errorf("session service must be provided")
	case s.Notes == nil:
		return fmt.Errorf("note service must be provided")
	case s.Samples == nil:
		return fmt.Errorf("sample service must be provided")
	case s.Activity == nil || s.Stats == nil:
		return fmt.Errorf("activity and stats services must be provided")
	case s.Sync == nil:
		return fmt.Errorf("sync service must be provided")
	case s.Monitor == nil:
		return fmt.Errorf("connectivity monitor must be provided")
	case s.LocalDB == nil:
		return fmt.Errorf("local database handle must be provided")
	}
	return nil
}

// NewRouter builds the Gin engine, wires middleware and registers routes.
func NewRouter(cfg *app.Config, jwt *iauth.JWTService, svc Services) (*gin.Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if err := svc.validate(); err != nil {
		return nil, err
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger("/health", cfg.Monitoring.Prometheus.Endpoint))
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders(svc.Monitor))
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins...))
	if limit := cfg.Server.RateLimit; limit.Requests > 0 {
		window := limit.Window
		if window <= 0 {
			window = time.Minute
		}
		r.Use(middleware.RateLimit(limit.Requests, window))
	}

	// Public
	r.GET("/health", handlers.Health(svc.LocalDB, svc.Monitor))
	if prom := cfg.Monitoring.Prometheus; prom.Enabled {
		endpoint := prom.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	api := r.Group("/api")
	api.Use(middleware.Auth(jwt))

	registerProjectRoutes(api, svc)
	registerActivityRoutes(api, svc)
	registerSyncRoutes(api, svc)

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}

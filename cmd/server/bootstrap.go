package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/wavtrack/internal/api"
	"github.com/charlesng35/wavtrack/internal/app"
	"github.com/charlesng35/wavtrack/internal/app/maintenance"
	iauth "github.com/charlesng35/wavtrack/internal/auth"
	"github.com/charlesng35/wavtrack/internal/cache"
	"github.com/charlesng35/wavtrack/internal/connectivity"
	"github.com/charlesng35/wavtrack/internal/database"
	"github.com/charlesng35/wavtrack/internal/localstore"
	"github.com/charlesng35/wavtrack/internal/outbox"
	"github.com/charlesng35/wavtrack/internal/realtime"
	"github.com/charlesng35/wavtrack/internal/remote"
	"github.com/charlesng35/wavtrack/internal/services"
	"github.com/charlesng35/wavtrack/pkg/logger"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	RemoteDB  *gorm.DB
	LocalDB   *gorm.DB
	Monitor   connectivity.Monitor
	Prober    *connectivity.Prober
	Scheduler *outbox.Scheduler
	Cleaner   *maintenance.Cleaner
	Router    *gin.Engine

	stopWatch func()
}

// bootstrapRuntime opens both stores, wires the sync machinery and services,
// and builds the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mode
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.RemoteDB, err = openRemote(cfg)
	if err != nil {
		return nil, err
	}
	stack.LocalDB, err = openLocal(cfg)
	if err != nil {
		return nil, err
	}

	local, err := localstore.New(stack.LocalDB, localstore.WithMaxAttempts(cfg.Sync.MaxAttempts))
	if err != nil {
		return nil, fmt.Errorf("initialise local store: %w", err)
	}

	if cfg.Sync.ForceOffline {
		log.Warn("remote writes disabled; running offline")
		stack.Monitor = connectivity.NewManual(false)
	} else {
		remoteDB := stack.RemoteDB
		stack.Prober, err = connectivity.NewProber(
			func(ctx context.Context) error { return database.Ping(ctx, remoteDB) },
			connectivity.WithProbeSchedule(cfg.Sync.ProbeSchedule),
			connectivity.WithProbeTimeout(cfg.Sync.ProbeTimeout),
		)
		if err != nil {
			return nil, fmt.Errorf("initialise connectivity prober: %w", err)
		}
		stack.Monitor = stack.Prober
	}

	ttlCache := cache.NewTTLCache(cache.WithDefaultTTL(cfg.Cache.DefaultTTL))
	deps := services.Deps{
		Remote:  stack.RemoteDB,
		Local:   local,
		Cache:   ttlCache,
		Monitor: stack.Monitor,
	}

	applier, err := remote.NewGormApplier(stack.RemoteDB)
	if err != nil {
		return nil, fmt.Errorf("initialise remote applier: %w", err)
	}
	drainer, err := outbox.NewDrainer(local, applier,
		outbox.WithRateLimit(cfg.Sync.ReplayRate, cfg.Sync.ReplayBurst),
		outbox.WithBatchSize(cfg.Sync.BatchSize),
	)
	if err != nil {
		return nil, fmt.Errorf("initialise outbox drainer: %w", err)
	}

	svc, err := buildServices(deps, drainer)
	if err != nil {
		return nil, err
	}

	hub := realtime.NewHub(realtime.Streams...)
	drainer.OnDrain(svc.Sync.AfterDrain)
	drainer.OnDrain(hub.DrainHook())
	stack.stopWatch = hub.WatchConnectivity(stack.Monitor)
	svc.Hub = hub
	svc.LocalDB = stack.LocalDB

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	stack.Router, err = api.NewRouter(cfg, jwtSvc, svc)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	stack.Scheduler, err = outbox.NewScheduler(drainer, stack.Monitor, outbox.WithDrainSchedule(cfg.Sync.DrainSchedule))
	if err != nil {
		return nil, fmt.Errorf("initialise outbox scheduler: %w", err)
	}
	if err := stack.Scheduler.Start(ctx); err != nil {
		return nil, fmt.Errorf("start outbox scheduler: %w", err)
	}
	if stack.Prober != nil {
		if err := stack.Prober.Start(); err != nil {
			return nil, err
		}
	}

	stack.Cleaner = maintenance.NewCleaner(ttlCache, local,
		maintenance.WithSweepSchedule(cfg.Maintenance.CacheSweepSchedule),
		maintenance.WithDeadLetterSchedule(cfg.Maintenance.DeadLetterSchedule),
		maintenance.WithDeadLetterRetention(cfg.Maintenance.DeadLetterRetention),
	)
	if err := stack.Cleaner.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	success = true
	return stack, nil
}

func buildServices(deps services.Deps, drainer *outbox.Drainer) (api.Services, error) {
	stats, err := services.NewStatsService(deps)
	if err != nil {
		return api.Services{}, err
	}
	projects, err := services.NewProjectService(deps, stats)
	if err != nil {
		return api.Services{}, err
	}
	sessions, err := services.NewSessionService(deps, stats)
	if err != nil {
		return api.Services{}, err
	}
	notes, err := services.NewNoteService(deps)
	if err != nil {
		return api.Services{}, err
	}
	samples, err := services.NewSampleService(deps)
	if err != nil {
		return api.Services{}, err
	}
	activity, err := services.NewActivityService(deps, stats)
	if err != nil {
		return api.Services{}, err
	}
	syncSvc, err := services.NewSyncService(deps, drainer, stats)
	if err != nil {
		return api.Services{}, err
	}
	return api.Services{
		Projects: projects,
		Sessions: sessions,
		Notes:    notes,
		Samples:  samples,
		Activity: activity,
		Stats:    stats,
		Sync:     syncSvc,
		Cache:    deps.Cache,
		Monitor:  deps.Monitor,
	}, nil
}

// Shutdown stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Prober != nil {
		<-s.Prober.Stop().Done()
	}
	if s.Scheduler != nil {
		s.Scheduler.Stop()
	}
	if s.stopWatch != nil {
		s.stopWatch()
	}

	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		if stopCtx != nil {
			ctx = stopCtx
		}
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}

	closeDatabase(s.LocalDB, log)
	closeDatabase(s.RemoteDB, log)
}

func openRemote(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Remote.DatabaseConfig()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open remote database: %w", err)
	}

	if cfg.Remote.AutoMigrate {
		if err := database.RemoteAutoMigrate(db); err != nil {
			closeDatabase(db, logger.WithModule("database"))
			return nil, fmt.Errorf("auto-migrate remote database: %w", err)
		}
	}

	log := logger.WithModule("database")
	log.Info("remote database connected", zap.String("driver", strings.ToLower(dbCfg.Driver)))
	return db, nil
}

func openLocal(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Local.DatabaseConfig()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	if err := database.LocalAutoMigrate(db); err != nil {
		closeDatabase(db, logger.WithModule("database"))
		return nil, fmt.Errorf("auto-migrate local store: %w", err)
	}

	logger.WithModule("database").Info("local store opened", zap.String("path", dbCfg.Path))
	return db, nil
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}
	if err := database.Close(db); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}

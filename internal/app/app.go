package app

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	dbpkg "github.com/yungbote/techwave-backend/internal/data/db"
	"github.com/yungbote/techwave-backend/internal/http"
	"github.com/yungbote/techwave-backend/internal/observability"
	"github.com/yungbote/techwave-backend/internal/platform/envutil"
	"github.com/yungbote/techwave-backend/internal/platform/logger"
	"github.com/yungbote/techwave-backend/internal/temporalx"
	"github.com/yungbote/techwave-backend/internal/temporalx/temporalworker"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Repos    Repos
	Clients  Clients
	Services Services
	Metrics  *observability.Metrics
	Server   *http.Server

	otelShutdown func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading configuration...")
	cfg, err := LoadConfig(log)
	if err != nil {
		log.Sync()
		return nil, err
	}

	theDB, err := openDB(log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}

	otelShutdown := observability.InitOTel(ctx, log, observability.LoadOtelConfig())
	metrics := observability.Init(log)

	clients, err := wireClients(ctx, log)
	if err != nil {
		closeDB(theDB)
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(theDB, log)
	serviceset := wireServices(theDB, log, cfg, reposet, clients, metrics)
	handlerset := wireHandlers(theDB, log, serviceset)
	middleware := wireMiddleware(log, serviceset)
	server := wireServer(log, cfg, clients, metrics, handlerset, middleware)

	return &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Repos:        reposet,
		Clients:      clients,
		Services:     serviceset,
		Metrics:      metrics,
		Server:       server,
		otelShutdown: otelShutdown,
	}, nil
}

func openDB(log *logger.Logger, cfg Config) (*gorm.DB, error) {
	switch cfg.DBDriver {
	case "sqlite":
		log.Warn("Using sqlite; row locks are unavailable and writers are serialized", "path", cfg.SQLitePath)
		db, err := dbpkg.OpenSQLite(cfg.SQLitePath, false)
		if err != nil {
			return nil, err
		}
		if err := dbpkg.Migrate(db); err != nil {
			closeDB(db)
			return nil, fmt.Errorf("sqlite migrate: %w", err)
		}
		return db, nil
	default:
		pg, err := dbpkg.NewPostgresService(log)
		if err != nil {
			return nil, fmt.Errorf("init postgres: %w", err)
		}
		if err := pg.AutoMigrateAll(); err != nil {
			_ = pg.Close()
			return nil, fmt.Errorf("postgres automigrate: %w", err)
		}
		return pg.DB(), nil
	}
}

func closeDB(db *gorm.DB) {
	if db == nil {
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// Run serves HTTP and, when enabled, the outbox relay and the Temporal worker until
// ctx is cancelled or one of them fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.Server.Run(gctx, a.Cfg.HTTPAddr)
	})

	if a.Cfg.RunRelay {
		g.Go(func() error {
			return a.Services.Relay.Run(gctx)
		})
	}

	if a.Cfg.RunWorker && a.Clients.Temporal != nil {
		runner, err := temporalworker.NewRunner(a.Log, a.Clients.Temporal, temporalx.LoadConfig(), a.Services.Orders, a.Metrics)
		if err != nil {
			return err
		}
		g.Go(func() error {
			if err := runner.Start(gctx); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return fmt.Errorf("temporal worker: %w", err)
			}
			<-gctx.Done()
			return nil
		})
	}

	if a.Metrics != nil {
		a.Metrics.StartPostgresCollector(gctx, a.Log, a.DB)
		if a.Clients.Redis != nil {
			a.Metrics.StartRedisCollector(gctx, a.Log, a.Clients.Redis)
		}
	}

	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.Clients.Close()
	if a.otelShutdown != nil {
		if err := a.otelShutdown(context.Background()); err != nil && a.Log != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	closeDB(a.DB)
	if a.Log != nil {
		a.Log.Sync()
	}
}

package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/edutools-backend/internal/artifacts"
	"github.com/yungbote/edutools-backend/internal/catalog"
	"github.com/yungbote/edutools-backend/internal/config"
	server "github.com/yungbote/edutools-backend/internal/http"
	"github.com/yungbote/edutools-backend/internal/jobs"
	"github.com/yungbote/edutools-backend/internal/observability"
	"github.com/yungbote/edutools-backend/internal/platform/logger"
	"github.com/yungbote/edutools-backend/internal/upload"
)

const serviceName = "edutools"

// Version is stamped at build time with -ldflags "-X .../internal/app.Version=...".
var Version = "dev"

type App struct {
	Log       *logger.Logger
	Cfg       *config.Config
	Metrics   *observability.Metrics
	Clients   Clients
	Artifacts artifacts.Store
	Runner    *jobs.Runner
	Router    *gin.Engine
	Server    *server.Server

	otelShutdown func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	log.Info("Starting edutools", "env", cfg.Env, "version", Version, "backend", cfg.Backend.Type)

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: serviceName,
		Environment: cfg.Env,
		Version:     Version,
	})

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics()
	}

	cat, err := catalog.Load()
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}

	store, err := resolveArtifactStore(ctx, log, cfg.Artifacts)
	if err != nil {
		clients.close(log)
		log.Sync()
		return nil, err
	}

	extractor := upload.New(log, upload.Config{MaxBytes: cfg.Upload.MaxBytes}, clients.Document, metrics)
	runner := jobs.NewRunner(log, clients.JobStore, clients.Backend, store, metrics, jobs.RunnerConfig{
		TTL:     cfg.Jobs.TTL.Duration,
		Workers: cfg.Jobs.Workers,
	})

	handlerset := wireHandlers(log, metrics, cat, clients, extractor, runner)
	router := wireRouter(log, cfg, metrics, handlerset)

	return &App{
		Log:          log,
		Cfg:          cfg,
		Metrics:      metrics,
		Clients:      clients,
		Artifacts:    store,
		Runner:       runner,
		Router:       router,
		Server:       wireServer(log, cfg, router),
		otelShutdown: otelShutdown,
	}, nil
}

// Run serves HTTP and processes video jobs until ctx is done or either one fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil || a.Runner == nil {
		return fmt.Errorf("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)

	a.Metrics.StartRedisCollector(gctx, a.Log, a.Clients.Redis, 15*time.Second)

	g.Go(func() error {
		return a.Runner.Run(gctx)
	})
	g.Go(func() error {
		return a.Server.Run(gctx)
	})
	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
		cancel()
	}
	if a.Artifacts != nil {
		if err := a.Artifacts.Close(); err != nil {
			a.Log.Warn("Artifact store close failed", "error", err)
		}
	}
	a.Clients.close(a.Log)
	a.Log.Sync()
}

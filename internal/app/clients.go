package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/edutools-backend/internal/config"
	"github.com/yungbote/edutools-backend/internal/generation"
	"github.com/yungbote/edutools-backend/internal/generation/gemini"
	"github.com/yungbote/edutools-backend/internal/generation/mock"
	"github.com/yungbote/edutools-backend/internal/generation/openai"
	"github.com/yungbote/edutools-backend/internal/jobs"
	"github.com/yungbote/edutools-backend/internal/platform/gcp"
	"github.com/yungbote/edutools-backend/internal/platform/logger"
)

type Clients struct {
	Backend  generation.Backend
	JobStore jobs.Store
	Redis    *goredis.Client
	Document gcp.Document
}

func wireClients(ctx context.Context, log *logger.Logger, cfg *config.Config) (Clients, error) {
	log.Info("Wiring clients...")

	backend, err := newBackend(log, cfg.Backend)
	if err != nil {
		return Clients{}, fmt.Errorf("init %s backend: %w", cfg.Backend.Type, err)
	}

	out := Clients{Backend: backend}

	// Job store
	switch cfg.Jobs.Store {
	case "redis":
		rs, err := jobs.NewRedisStore(ctx, log, cfg.Jobs.RedisAddr)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis job store: %w", err)
		}
		out.JobStore = rs
		out.Redis = rs.Client()
	default:
		out.JobStore = jobs.NewMemoryStore()
	}

	// Document AI
	if d := cfg.Upload.DocumentAI; d.Enabled() {
		doc, err := gcp.NewDocument(ctx, log, gcp.DocAIConfig{
			ProjectID:   d.ProjectID,
			Location:    d.Location,
			ProcessorID: d.ProcessorID,
		})
		if err != nil {
			out.close(log)
			return Clients{}, fmt.Errorf("init documentai: %w", err)
		}
		out.Document = doc
	}

	log.Info("Clients ready",
		"backend", backend.Name(),
		"job_store", cfg.Jobs.Store,
		"ocr", out.Document != nil,
	)
	return out, nil
}

func newBackend(log *logger.Logger, cfg config.BackendConfig) (generation.Backend, error) {
	poll := generation.PollConfig{
		Interval: cfg.VideoPollInterval.Duration,
		MaxWait:  cfg.VideoMaxWait.Duration,
	}
	switch cfg.Type {
	case "gemini":
		return gemini.New(log, gemini.Config{
			BaseURL:    cfg.BaseURL,
			APIKey:     cfg.APIKey,
			TextModel:  cfg.TextModel,
			ImageModel: cfg.ImageModel,
			VideoModel: cfg.VideoModel,
			Timeout:    cfg.Timeout.Duration,
			MaxRetries: cfg.MaxRetries,
			Poll:       poll,
		})
	case "openai":
		return openai.New(log, openai.Config{
			BaseURL:    cfg.BaseURL,
			APIKey:     cfg.APIKey,
			TextModel:  cfg.TextModel,
			ImageModel: cfg.ImageModel,
			VideoModel: cfg.VideoModel,
			Timeout:    cfg.Timeout.Duration,
			MaxRetries: cfg.MaxRetries,
			Poll:       poll,
		})
	case "", "mock":
		return mock.New()
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Type)
}

func (c Clients) close(log *logger.Logger) {
	if c.JobStore != nil {
		if err := c.JobStore.Close(); err != nil {
			log.Warn("Job store close failed", "error", err)
		}
	}
	if c.Document != nil {
		if err := c.Document.Close(); err != nil {
			log.Warn("Document AI close failed", "error", err)
		}
	}
}

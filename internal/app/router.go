package app

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/edutools-backend/internal/config"
	server "github.com/yungbote/edutools-backend/internal/http"
	"github.com/yungbote/edutools-backend/internal/observability"
	"github.com/yungbote/edutools-backend/internal/platform/logger"
)

func wireRouter(log *logger.Logger, cfg *config.Config, metrics *observability.Metrics, handlers Handlers) *gin.Engine {
	switch strings.ToLower(cfg.Env) {
	case "prod", "production":
		gin.SetMode(gin.ReleaseMode)
	}
	return server.NewRouter(server.RouterConfig{
		Log:             log,
		Metrics:         metrics,
		MetricsPath:     cfg.Metrics.Path,
		ServiceName:     serviceName,
		CORSOrigins:     cfg.HTTP.CORSOrigins,
		MaxRequestBytes: cfg.HTTP.MaxRequestBytes,
		HealthHandler:   handlers.Health,
		ToolHandler:     handlers.Tool,
		UploadHandler:   handlers.Upload,
		ExportHandler:   handlers.Export,
		VideoHandler:    handlers.Video,
	})
}

func wireServer(log *logger.Logger, cfg *config.Config, engine *gin.Engine) *server.Server {
	return server.NewServer(log, server.ServerConfig{
		Addr:              cfg.HTTP.Addr,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout.Duration,
		IdleTimeout:       cfg.HTTP.IdleTimeout.Duration,
		ShutdownTimeout:   cfg.HTTP.ShutdownTimeout.Duration,
	}, engine)
}

package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/edutools-backend/internal/http/handlers"
	httpMW "github.com/yungbote/edutools-backend/internal/http/middleware"
	"github.com/yungbote/edutools-backend/internal/observability"
	"github.com/yungbote/edutools-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	MetricsPath string
	ServiceName string

	CORSOrigins     []string
	MaxRequestBytes int64

	HealthHandler *httpH.HealthHandler
	ToolHandler   *httpH.ToolHandler
	UploadHandler *httpH.UploadHandler
	ExportHandler *httpH.ExportHandler
	VideoHandler  *httpH.VideoHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(httpMW.Recovery(cfg.Log))
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics, metricsPath(cfg.MetricsPath)))
	r.Use(httpMW.CORS(cfg.CORSOrigins))
	r.Use(httpMW.BodyLimit(cfg.MaxRequestBytes))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/healthz", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}

	// Metrics
	if cfg.Metrics != nil {
		r.GET(metricsPath(cfg.MetricsPath), gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	{
		// Catalog and generation
		if cfg.ToolHandler != nil {
			api.GET("/tools", cfg.ToolHandler.ListTools)
			api.GET("/tools/:id", cfg.ToolHandler.GetTool)
			api.GET("/categories", cfg.ToolHandler.ListCategories)
			api.POST("/tools/:id/prompt", cfg.ToolHandler.PreviewPrompt)
			api.POST("/tools/:id/generate", cfg.ToolHandler.Generate)
		}

		// Uploads
		if cfg.UploadHandler != nil {
			api.POST("/uploads/extract", cfg.UploadHandler.Extract)
		}

		// Exports
		if cfg.ExportHandler != nil {
			api.POST("/exports", cfg.ExportHandler.Export)
			api.POST("/exports/options", cfg.ExportHandler.Options)
		}

		// Videos
		if cfg.VideoHandler != nil {
			api.GET("/videos/:id", cfg.VideoHandler.GetVideo)
			api.GET("/videos/:id/content", cfg.VideoHandler.GetVideoContent)
		}
	}

	return r
}

func metricsPath(p string) string {
	if p == "" {
		return "/metrics"
	}
	return p
}

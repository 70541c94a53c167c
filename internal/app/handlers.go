package app

import (
	"github.com/yungbote/edutools-backend/internal/catalog"
	httpH "github.com/yungbote/edutools-backend/internal/http/handlers"
	"github.com/yungbote/edutools-backend/internal/jobs"
	"github.com/yungbote/edutools-backend/internal/observability"
	"github.com/yungbote/edutools-backend/internal/platform/logger"
	"github.com/yungbote/edutools-backend/internal/upload"
)

type Handlers struct {
	Health *httpH.HealthHandler
	Tool   *httpH.ToolHandler
	Upload *httpH.UploadHandler
	Export *httpH.ExportHandler
	Video  *httpH.VideoHandler
}

func wireHandlers(
	log *logger.Logger,
	metrics *observability.Metrics,
	cat *catalog.Catalog,
	clients Clients,
	extractor *upload.Extractor,
	runner *jobs.Runner,
) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health: httpH.NewHealthHandler(map[string]httpH.Pinger{"jobs": clients.JobStore}),
		Tool:   httpH.NewToolHandler(log, cat, clients.Backend, extractor, runner, metrics),
		Upload: httpH.NewUploadHandler(log, extractor),
		Export: httpH.NewExportHandler(log, metrics),
		Video:  httpH.NewVideoHandler(log, runner),
	}
}

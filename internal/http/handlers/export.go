package handlers

import (
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/edutools-backend/internal/export"
	"github.com/yungbote/edutools-backend/internal/http/response"
	"github.com/yungbote/edutools-backend/internal/observability"
	"github.com/yungbote/edutools-backend/internal/platform/apierr"
	"github.com/yungbote/edutools-backend/internal/platform/ctxutil"
	"github.com/yungbote/edutools-backend/internal/platform/logger"
	"github.com/yungbote/edutools-backend/internal/prompt"
)

const defaultExportTitle = "Document"

type exportRequest struct {
	Content string `json:"content"`
	Title   string `json:"title"`
	Format  string `json:"format"`
}

type ExportHandler struct {
	log     *logger.Logger
	metrics *observability.Metrics
}

func NewExportHandler(log *logger.Logger, metrics *observability.Metrics) *ExportHandler {
	return &ExportHandler{log: log.With("handler", "ExportHandler"), metrics: metrics}
}

// POST /api/exports
func (h *ExportHandler) Export(c *gin.Context) {
	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, bindError(err))
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		respondErr(c, &prompt.ValidationError{Field: "content", Message: "There is no content to export."})
		return
	}
	format, err := export.ParseFormat(req.Format)
	if err != nil {
		respondErr(c, &prompt.ValidationError{Field: "format", Message: err.Error()})
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = defaultExportTitle
	}

	art, err := export.Render(req.Content, title, format)
	if err != nil {
		h.metrics.IncExport(string(format), "error")
		if !errors.Is(err, export.ErrNoTable) {
			h.log.Error("Export failed", append(ctxutil.LogFields(c.Request.Context()), "format", string(format), "error", err)...)
		}
		respondErr(c, err)
		return
	}
	h.metrics.IncExport(string(format), "ok")

	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": art.Filename}))
	c.Data(http.StatusOK, art.ContentType, art.Body)
}

// POST /api/exports/options
func (h *ExportHandler) Options(c *gin.Context) {
	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, bindError(err))
		return
	}
	response.RespondOK(c, gin.H{"formats": export.Options(req.Content)})
}

func bindError(err error) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return err
	}
	return apierr.New(http.StatusBadRequest, "invalid_request", err)
}

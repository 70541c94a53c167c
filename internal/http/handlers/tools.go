package handlers

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/edutools-backend/internal/artifacts"
	"github.com/yungbote/edutools-backend/internal/catalog"
	"github.com/yungbote/edutools-backend/internal/document"
	"github.com/yungbote/edutools-backend/internal/export"
	"github.com/yungbote/edutools-backend/internal/generation"
	"github.com/yungbote/edutools-backend/internal/http/response"
	"github.com/yungbote/edutools-backend/internal/jobs"
	"github.com/yungbote/edutools-backend/internal/observability"
	"github.com/yungbote/edutools-backend/internal/platform/apierr"
	"github.com/yungbote/edutools-backend/internal/platform/ctxutil"
	"github.com/yungbote/edutools-backend/internal/platform/logger"
	"github.com/yungbote/edutools-backend/internal/prompt"
	"github.com/yungbote/edutools-backend/internal/upload"
)

// VideoJobs is the part of the job runner the HTTP layer uses.
type VideoJobs interface {
	Submit(ctx context.Context, toolID, prompt string) (*jobs.Job, error)
	Get(ctx context.Context, id string) (*jobs.Job, error)
	Content(ctx context.Context, id string) (*jobs.Job, *artifacts.Object, error)
}

type toolSummary struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Category    string             `json:"category"`
	Icon        string             `json:"icon,omitempty"`
	Output      catalog.OutputKind `json:"output"`
	FileUpload  bool               `json:"file_upload"`
}

func summarize(d *catalog.ToolDefinition) toolSummary {
	return toolSummary{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		Category:    d.Category,
		Icon:        d.Icon,
		Output:      d.Output,
		FileUpload:  d.FileUpload,
	}
}

type submission struct {
	Values       map[string]string `json:"values"`
	UploadedText string            `json:"uploaded_text,omitempty"`
}

type ToolHandler struct {
	log       *logger.Logger
	catalog   *catalog.Catalog
	backend   generation.Backend
	extractor *upload.Extractor
	videos    VideoJobs
	metrics   *observability.Metrics
}

func NewToolHandler(
	log *logger.Logger,
	cat *catalog.Catalog,
	backend generation.Backend,
	extractor *upload.Extractor,
	videos VideoJobs,
	metrics *observability.Metrics,
) *ToolHandler {
	return &ToolHandler{
		log:       log.With("handler", "ToolHandler"),
		catalog:   cat,
		backend:   backend,
		extractor: extractor,
		videos:    videos,
		metrics:   metrics,
	}
}

// GET /api/tools
func (h *ToolHandler) ListTools(c *gin.Context) {
	defs := h.catalog.List(c.Query("category"))
	out := make([]toolSummary, 0, len(defs))
	for _, d := range defs {
		out = append(out, summarize(d))
	}
	response.RespondOK(c, gin.H{"tools": out})
}

// GET /api/tools/:id
func (h *ToolHandler) GetTool(c *gin.Context) {
	def, err := h.catalog.Get(c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"tool": def})
}

// GET /api/categories
func (h *ToolHandler) ListCategories(c *gin.Context) {
	response.RespondOK(c, gin.H{"categories": h.catalog.Categories()})
}

// POST /api/tools/:id/prompt
func (h *ToolHandler) PreviewPrompt(c *gin.Context) {
	def, p, ok := h.assemble(c)
	if !ok {
		return
	}
	response.RespondOK(c, gin.H{"tool_id": def.ID, "prompt": p})
}

// POST /api/tools/:id/generate
func (h *ToolHandler) Generate(c *gin.Context) {
	def, p, ok := h.assemble(c)
	if !ok {
		return
	}
	switch def.Output {
	case catalog.OutputImage:
		h.generateImage(c, def, p)
	case catalog.OutputVideo:
		h.submitVideo(c, def, p)
	default:
		h.generateText(c, def, p)
	}
}

// assemble resolves the tool, reads the submission, validates it and builds the prompt.
// On failure it has already written the response.
func (h *ToolHandler) assemble(c *gin.Context) (*catalog.ToolDefinition, string, bool) {
	def, err := h.catalog.Get(c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return nil, "", false
	}
	sub, err := h.readSubmission(c, def)
	if err != nil {
		respondErr(c, err)
		return nil, "", false
	}
	if err := prompt.Validate(def, sub.Values, sub.UploadedText); err != nil {
		respondErr(c, err)
		return nil, "", false
	}
	p, err := prompt.Build(def, sub.Values, sub.UploadedText)
	if err != nil {
		h.log.Error("Prompt assembly failed", append(ctxutil.LogFields(c.Request.Context()), "tool_id", def.ID, "error", err)...)
		respondErr(c, err)
		return nil, "", false
	}
	return def, p, true
}

// readSubmission accepts a JSON body or a multipart form whose fields are input values and whose
// optional "file" part is extracted into uploaded text.
func (h *ToolHandler) readSubmission(c *gin.Context, def *catalog.ToolDefinition) (*submission, error) {
	mediaType, _, _ := mime.ParseMediaType(c.GetHeader("Content-Type"))
	if mediaType != "multipart/form-data" {
		var sub submission
		if err := c.ShouldBindJSON(&sub); err != nil && !errors.Is(err, io.EOF) {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				return nil, err
			}
			return nil, apierr.New(http.StatusBadRequest, "invalid_request", err)
		}
		if sub.UploadedText != "" && !def.FileUpload {
			return nil, &prompt.ValidationError{Field: "file", Message: "This tool does not accept file uploads."}
		}
		return &sub, nil
	}

	if err := c.Request.ParseMultipartForm(h.extractor.MaxBytes() + 1<<20); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, err
		}
		return nil, apierr.New(http.StatusBadRequest, "invalid_multipart_form", err)
	}
	form := c.Request.MultipartForm
	sub := &submission{Values: map[string]string{}}
	for k, v := range form.Value {
		if len(v) > 0 {
			sub.Values[k] = v[0]
		}
	}
	files := form.File["file"]
	if len(files) == 0 {
		return sub, nil
	}
	if !def.FileUpload {
		return nil, &prompt.ValidationError{Field: "file", Message: "This tool does not accept file uploads."}
	}
	fh := files[0]
	f, err := fh.Open()
	if err != nil {
		return nil, &upload.Error{Status: http.StatusBadRequest, Message: upload.MsgTextRead, Err: err}
	}
	defer f.Close()
	res, err := h.extractor.Extract(c.Request.Context(), fh.Filename, fh.Header.Get("Content-Type"), f)
	if err != nil {
		return nil, err
	}
	sub.UploadedText = res.Text
	return sub, nil
}

func (h *ToolHandler) generateText(c *gin.Context, def *catalog.ToolDefinition, p string) {
	ctx, span := observability.StartSpan(c.Request.Context(), "generate.text", attribute.String("tool.id", def.ID))
	defer span.End()

	start := time.Now()
	text, err := h.backend.GenerateText(ctx, p)
	h.metrics.ObserveGeneration(h.backend.Name(), def.ID, string(catalog.OutputText), observability.StatusLabel(err), time.Since(start))
	if err != nil {
		span.RecordError(err)
		respondErr(c, generation.Describe(generation.OpText, err))
		return
	}
	response.RespondOK(c, gin.H{
		"kind":      catalog.OutputText,
		"tool_id":   def.ID,
		"text":      text,
		"has_table": document.HasTable(text),
		"exports":   export.Options(text),
	})
}

func (h *ToolHandler) generateImage(c *gin.Context, def *catalog.ToolDefinition, p string) {
	ctx, span := observability.StartSpan(c.Request.Context(), "generate.image", attribute.String("tool.id", def.ID))
	defer span.End()

	start := time.Now()
	img, err := h.backend.GenerateImage(ctx, p)
	h.metrics.ObserveGeneration(h.backend.Name(), def.ID, string(catalog.OutputImage), observability.StatusLabel(err), time.Since(start))
	if err != nil {
		span.RecordError(err)
		respondErr(c, generation.Describe(generation.OpImage, err))
		return
	}
	response.RespondOK(c, gin.H{
		"kind":    catalog.OutputImage,
		"tool_id": def.ID,
		"image":   img,
	})
}

func (h *ToolHandler) submitVideo(c *gin.Context, def *catalog.ToolDefinition, p string) {
	job, err := h.videos.Submit(c.Request.Context(), def.ID, strings.TrimSpace(p))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.Header("Location", "/api/videos/"+job.ID)
	response.RespondAccepted(c, gin.H{
		"kind":    catalog.OutputVideo,
		"tool_id": def.ID,
		"job":     job,
	})
}

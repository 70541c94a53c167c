package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"

	"github.com/yungbote/edutools-backend/internal/observability"
	"github.com/yungbote/edutools-backend/internal/platform/gcp"
	"github.com/yungbote/edutools-backend/internal/platform/logger"
)

const (
	MimeText = "text/plain"
	MimePDF  = "application/pdf"

	DefaultMaxBytes int64 = 5 << 20
)

const (
	MsgUnsupported = "Unsupported file type. Please upload a .txt or .pdf file."
	MsgPDFParse    = "Failed to parse the PDF file. It might be corrupted or protected."
	MsgTextRead    = "Failed to read the text file."
)

// Error is a rejected upload. Message is shown to the user as is.
type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func unsupported() *Error {
	return &Error{Status: http.StatusUnsupportedMediaType, Message: MsgUnsupported}
}

type Result struct {
	Filename string `json:"filename,omitempty"`
	MimeType string `json:"mime_type"`
	Text     string `json:"text"`
	Pages    int    `json:"pages,omitempty"`
	OCR      bool   `json:"ocr,omitempty"`
}

type Config struct {
	MaxBytes int64
}

// Extractor turns an uploaded .txt or .pdf into plain text for prompt context.
type Extractor struct {
	log      *logger.Logger
	maxBytes int64
	ocr      gcp.Document
	metrics  *observability.Metrics
}

// New builds an Extractor. ocr may be nil, in which case image-only PDFs yield empty text.
func New(log *logger.Logger, cfg Config, ocr gcp.Document, metrics *observability.Metrics) *Extractor {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	return &Extractor{
		log:      log.With("service", "UploadExtractor"),
		maxBytes: cfg.MaxBytes,
		ocr:      ocr,
		metrics:  metrics,
	}
}

func (e *Extractor) MaxBytes() int64 { return e.maxBytes }

// Extract reads at most MaxBytes from r. declared is the client supplied content type and may be empty.
func (e *Extractor) Extract(ctx context.Context, filename, declared string, r io.Reader) (*Result, error) {
	res, err := e.extract(ctx, filename, declared, r)
	label := "unknown"
	if res != nil {
		label = res.MimeType
	}
	status := "ok"
	if err != nil {
		status = "rejected"
	}
	e.metrics.IncUpload(label, status)
	return res, err
}

func (e *Extractor) extract(ctx context.Context, filename, declared string, r io.Reader) (*Result, error) {
	data, err := io.ReadAll(io.LimitReader(r, e.maxBytes+1))
	if err != nil {
		return nil, &Error{Status: http.StatusBadRequest, Message: MsgTextRead, Err: err}
	}
	if int64(len(data)) > e.maxBytes {
		return nil, &Error{
			Status:  http.StatusRequestEntityTooLarge,
			Message: fmt.Sprintf("File is too large. The maximum size is %s.", humanBytes(e.maxBytes)),
		}
	}

	kind, err := Classify(declared, data)
	if err != nil {
		e.log.Info("Upload rejected", "filename", filename, "declared", declared, "detected", mimetype.Detect(data).String())
		return nil, err
	}

	res := &Result{Filename: filename, MimeType: kind}
	switch kind {
	case MimeText:
		if !utf8.Valid(data) {
			return nil, &Error{Status: http.StatusBadRequest, Message: MsgTextRead, Err: errors.New("invalid utf-8")}
		}
		res.Text = strings.TrimPrefix(string(data), "\ufeff")
		return res, nil
	default:
		text, pages, err := PDFText(data)
		if err != nil {
			e.log.Warn("PDF parse failed", "filename", filename, "error", err)
			return nil, &Error{Status: http.StatusBadRequest, Message: MsgPDFParse, Err: err}
		}
		res.Text, res.Pages = text, pages
		if strings.TrimSpace(text) == "" && e.ocr != nil {
			e.runOCR(ctx, res, data)
		}
		return res, nil
	}
}

func (e *Extractor) runOCR(ctx context.Context, res *Result, data []byte) {
	out, err := e.ocr.ProcessBytes(ctx, gcp.DocAIProcessBytesRequest{MimeType: MimePDF, Data: data})
	if err != nil {
		e.log.Warn("Document AI fallback failed",
			"filename", res.Filename,
			"quota_exceeded", gcp.IsQuotaExceeded(err),
			"error", err,
		)
		return
	}
	if text := out.Text(); text != "" {
		res.Text = text
		res.OCR = true
		if n := len(out.Pages); n > 0 {
			res.Pages = n
		}
	}
}

// Classify picks text/plain or application/pdf from the content and the declared type.
func Classify(declared string, data []byte) (string, error) {
	detected := mimetype.Detect(data)
	base := baseType(declared)

	if detected.Is(MimePDF) {
		if base == "" || base == MimePDF || base == "application/octet-stream" {
			return MimePDF, nil
		}
		return "", unsupported()
	}
	switch base {
	case MimeText:
		if len(data) == 0 || isText(detected) {
			return MimeText, nil
		}
		return "", &Error{Status: http.StatusBadRequest, Message: MsgTextRead, Err: fmt.Errorf("content looks like %s", detected.String())}
	case MimePDF:
		return "", &Error{Status: http.StatusBadRequest, Message: MsgPDFParse, Err: errors.New("missing PDF header")}
	case "", "application/octet-stream":
		if len(data) > 0 && detected.Is(MimeText) {
			return MimeText, nil
		}
	}
	return "", unsupported()
}

// isText accepts text/plain and anything detected as a more specific text format.
func isText(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		if m.Is(MimeText) {
			return true
		}
	}
	return false
}

// PDFText returns the plain text of every page, pages separated by a blank line.
func PDFText(data []byte) (text string, pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, pages, err = "", 0, fmt.Errorf("pdf: %v", r)
		}
	}()
	rd, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, err
	}
	pages = rd.NumPage()
	parts := make([]string, 0, pages)
	for i := 1; i <= pages; i++ {
		p := rd.Page(i)
		if p.V.IsNull() {
			continue
		}
		s, err := p.GetPlainText(nil)
		if err != nil {
			return "", 0, fmt.Errorf("page %d: %w", i, err)
		}
		parts = append(parts, strings.TrimSpace(s))
	}
	return strings.TrimSpace(strings.Join(parts, "\n\n")), pages, nil
}

func baseType(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	t, _, err := mime.ParseMediaType(v)
	if err != nil {
		return strings.ToLower(v)
	}
	return t
}

func humanBytes(n int64) string {
	if n >= 1<<20 && n%(1<<20) == 0 {
		return fmt.Sprintf("%d MB", n>>20)
	}
	if n >= 1<<10 && n%(1<<10) == 0 {
		return fmt.Sprintf("%d KB", n>>10)
	}
	return fmt.Sprintf("%d bytes", n)
}

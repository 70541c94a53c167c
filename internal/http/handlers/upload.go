package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/edutools-backend/internal/http/response"
	"github.com/yungbote/edutools-backend/internal/platform/apierr"
	"github.com/yungbote/edutools-backend/internal/platform/logger"
	"github.com/yungbote/edutools-backend/internal/upload"
)

type UploadHandler struct {
	log       *logger.Logger
	extractor *upload.Extractor
}

func NewUploadHandler(log *logger.Logger, extractor *upload.Extractor) *UploadHandler {
	return &UploadHandler{log: log.With("handler", "UploadHandler"), extractor: extractor}
}

// POST /api/uploads/extract
func (h *UploadHandler) Extract(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(h.extractor.MaxBytes() + 1<<20); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			respondErr(c, err)
			return
		}
		respondErr(c, apierr.New(http.StatusBadRequest, "invalid_multipart_form", err))
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		respondErr(c, apierr.WithParam(http.StatusBadRequest, "validation_error", "file", errors.New("A file is required.")))
		return
	}
	f, err := fh.Open()
	if err != nil {
		respondErr(c, &upload.Error{Status: http.StatusBadRequest, Message: upload.MsgTextRead, Err: err})
		return
	}
	defer f.Close()

	res, err := h.extractor.Extract(c.Request.Context(), fh.Filename, fh.Header.Get("Content-Type"), f)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.RespondOK(c, res)
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/edutools-backend/internal/catalog"
	"github.com/yungbote/edutools-backend/internal/export"
	"github.com/yungbote/edutools-backend/internal/generation"
	"github.com/yungbote/edutools-backend/internal/http/response"
	"github.com/yungbote/edutools-backend/internal/jobs"
	"github.com/yungbote/edutools-backend/internal/platform/apierr"
	"github.com/yungbote/edutools-backend/internal/prompt"
	"github.com/yungbote/edutools-backend/internal/upload"
)

var errInternal = errors.New("internal server error")

// toAPIError maps domain errors onto statuses and codes. Unknown errors become an opaque 500.
func toAPIError(err error) *apierr.Error {
	if ae, ok := apierr.As(err); ok {
		return ae
	}

	var (
		ve  *prompt.ValidationError
		ue  *upload.Error
		ge  *generation.Error
		mbe *http.MaxBytesError
	)
	switch {
	case errors.As(err, &ve):
		return apierr.WithParam(http.StatusBadRequest, "validation_error", ve.Field, err)
	case errors.Is(err, catalog.ErrNotFound):
		return apierr.New(http.StatusNotFound, "tool_not_found", err)
	case errors.Is(err, jobs.ErrNotFound):
		return apierr.New(http.StatusNotFound, "video_not_found", jobs.ErrNotFound)
	case errors.Is(err, jobs.ErrNotReady):
		return apierr.New(http.StatusConflict, "video_not_ready", err)
	case errors.Is(err, jobs.ErrQueueFull), errors.Is(err, jobs.ErrStopped):
		return apierr.New(http.StatusServiceUnavailable, "video_queue_unavailable", err)
	case errors.As(err, &ue):
		return apierr.WithParam(ue.Status, uploadCode(ue.Status), "file", errors.New(ue.Message))
	case errors.Is(err, export.ErrNoTable):
		return apierr.New(http.StatusUnprocessableEntity, "no_table", err)
	case errors.As(err, &ge):
		if ge.QuotaExceeded() {
			return apierr.New(http.StatusTooManyRequests, "quota_exceeded", errors.New(ge.Message))
		}
		return apierr.New(http.StatusBadGateway, "generation_failed", errors.New(ge.Message))
	case errors.As(err, &mbe):
		return apierr.New(http.StatusRequestEntityTooLarge, "request_too_large", errors.New("request body too large"))
	}
	return apierr.New(http.StatusInternalServerError, "internal_error", errInternal)
}

func uploadCode(status int) string {
	switch status {
	case http.StatusRequestEntityTooLarge:
		return "file_too_large"
	case http.StatusUnsupportedMediaType:
		return "unsupported_file_type"
	}
	return "invalid_file"
}

// respondErr writes err as an error envelope. Server side failures are attached to the gin context
// so the request log carries the real cause.
func respondErr(c *gin.Context, err error) {
	ae := toAPIError(err)
	if ae.Status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	response.RespondAPIError(c, ae)
}

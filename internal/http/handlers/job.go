package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/edutools-backend/internal/http/response"
	"github.com/yungbote/edutools-backend/internal/jobs"
	"github.com/yungbote/edutools-backend/internal/platform/apierr"
	"github.com/yungbote/edutools-backend/internal/platform/logger"
)

type VideoHandler struct {
	log    *logger.Logger
	videos VideoJobs
}

func NewVideoHandler(log *logger.Logger, videos VideoJobs) *VideoHandler {
	return &VideoHandler{log: log.With("handler", "VideoHandler"), videos: videos}
}

// GET /api/videos/:id
func (h *VideoHandler) GetVideo(c *gin.Context) {
	job, err := h.videos.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	out := gin.H{"job": job}
	if job.Status == jobs.StatusSucceeded {
		out["content_url"] = "/api/videos/" + job.ID + "/content"
	}
	response.RespondOK(c, out)
}

// GET /api/videos/:id/content
func (h *VideoHandler) GetVideoContent(c *gin.Context) {
	job, obj, err := h.videos.Content(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, jobs.ErrNotReady) && job != nil && job.Status == jobs.StatusFailed {
			respondErr(c, apierr.New(http.StatusConflict, "video_failed", errors.New(job.Error)))
			return
		}
		respondErr(c, err)
		return
	}
	defer obj.Body.Close()

	ct := obj.ContentType
	if ct == "" {
		ct = job.MimeType
	}
	c.Header("Cache-Control", "private, max-age=3600")
	c.DataFromReader(http.StatusOK, obj.Size, ct, obj.Body, map[string]string{
		"Content-Disposition": `inline; filename="` + job.ID + `"`,
		"X-Video-Job-Id":      job.ID,
	})
}

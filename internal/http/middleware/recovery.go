package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/edutools-backend/internal/http/response"
	"github.com/yungbote/edutools-backend/internal/platform/ctxutil"
	"github.com/yungbote/edutools-backend/internal/platform/logger"
)

var errInternal = errors.New("internal server error")

// Recovery turns a handler panic into a JSON 500.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.Nop()
	}
	return gin.CustomRecovery(func(c *gin.Context, rec any) {
		log.Error("Handler panic", append(ctxutil.LogFields(c.Request.Context()), "panic", rec, "path", c.Request.URL.Path)...)
		c.Abort()
		response.RespondError(c, http.StatusInternalServerError, "internal_error", errInternal)
	})
}

package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/edutools-backend/internal/observability"
)

const toolRoutePrefix = "/api/tools/:id"

// Metrics instruments API request counts and latency. Requests to skipPaths, such as the scrape
// endpoint itself, are not recorded.
func Metrics(m *observability.Metrics, skipPaths ...string) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	skip := make(map[string]bool, len(skipPaths))
	for _, p := range skipPaths {
		if p = strings.TrimSpace(p); p != "" {
			skip[p] = true
		}
	}
	return func(c *gin.Context) {
		if skip[c.Request.URL.Path] {
			c.Next()
			return
		}
		start := time.Now()
		m.ApiInflightInc()
		defer m.ApiInflightDec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		code := c.Writer.Status()
		m.ObserveAPI(c.Request.Method, route, toolLabel(route, code, c.Param("id")), strconv.Itoa(code), time.Since(start))
	}
}

// toolLabel keeps the tool id only for routes that resolved a catalog tool, so unknown ids
// cannot grow the label set.
func toolLabel(route string, status int, id string) string {
	if !strings.HasPrefix(route, toolRoutePrefix) || status == http.StatusNotFound {
		return ""
	}
	return id
}

package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/edutools-backend/internal/observability"
	"github.com/yungbote/edutools-backend/internal/platform/ctxutil"
)

func TestRecoveryReturnsJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Recovery(nil))
	r.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"code":"internal_error"`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestAttachTraceContextGeneratesIDs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())
	var td *ctxutil.TraceData
	r.GET("/", func(c *gin.Context) {
		td = ctxutil.GetTraceData(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if td == nil || td.RequestID == "" || td.TraceID == "" {
		t.Fatalf("trace data not attached: %+v", td)
	}
	if rec.Header().Get("X-Request-Id") != td.RequestID {
		t.Fatalf("response header does not match context request id")
	}
}

func TestAttachTraceContextCallerIDs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())
	var td *ctxutil.TraceData
	r.GET("/", func(c *gin.Context) {
		td = ctxutil.GetTraceData(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	cases := []struct {
		name     string
		header   string
		wantKept bool
	}{
		{name: "plain id kept", header: "req-123_abc.def", wantKept: true},
		{name: "spaces replaced", header: "evil value", wantKept: false},
		{name: "log injection replaced", header: "id\"} fake=1", wantKept: false},
		{name: "too long replaced", header: strings.Repeat("a", 200), wantKept: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("X-Request-Id", tc.header)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if td == nil {
				t.Fatalf("trace data not attached")
			}
			if kept := td.RequestID == tc.header; kept != tc.wantKept {
				t.Fatalf("request id %q: kept=%v want %v", td.RequestID, kept, tc.wantKept)
			}
			if rec.Header().Get("X-Request-Id") != td.RequestID {
				t.Fatalf("response header does not match context request id")
			}
		})
	}
}

func TestMetricsLabelsToolRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := observability.NewMetrics()
	r := gin.New()
	r.Use(Metrics(m, "/metrics"))
	r.POST("/api/tools/:id/generate", func(c *gin.Context) {
		if c.Param("id") == "missing" {
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusOK)
	})
	r.GET("/metrics", gin.WrapH(m.Handler()))

	for _, path := range []string{"/api/tools/quiz-generator/generate", "/api/tools/missing/generate", "/metrics"} {
		method := http.MethodPost
		if path == "/metrics" {
			method = http.MethodGet
		}
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(method, path, nil))
	}

	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	got := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "edutools_api_requests_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range metric.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			got[labels["route"]+"|"+labels["tool"]+"|"+labels["status"]] += metric.GetCounter().GetValue()
		}
	}
	want := map[string]float64{
		"/api/tools/:id/generate|quiz-generator|200": 1,
		"/api/tools/:id/generate||404":               1,
	}
	if len(got) != len(want) {
		t.Fatalf("series: got %v want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("series %q: got %v want %v (all %v)", k, got[k], v, got)
		}
	}
}

func TestBodyLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(BodyLimit(8))
	r.POST("/", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})

	cases := []struct {
		name   string
		body   string
		chunk  bool
		status int
	}{
		{"small", "tiny", false, http.StatusOK},
		{"declared too large", "this is too long", false, http.StatusRequestEntityTooLarge},
		{"streamed too large", "this is too long", true, http.StatusRequestEntityTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			if tc.chunk {
				req.ContentLength = -1
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("got %d want %d", rec.Code, tc.status)
			}
		})
	}
}

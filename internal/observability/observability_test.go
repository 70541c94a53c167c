package observability

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/x", "", "200", time.Second)
	m.ApiInflightInc()
	m.ApiInflightDec()
	m.ObserveGeneration("mock", "quiz-generator", "text", "ok", time.Second)
	m.IncExport("pdf", "ok")
	m.IncUpload("", "ok")
	m.IncVideoJob("succeeded")
	if m.Registry() != nil {
		t.Fatalf("nil metrics should have no registry")
	}
}

func TestMetricsCountAndExpose(t *testing.T) {
	m := NewMetrics()
	m.ObserveAPI("POST", "/api/exports", "", "200", 20*time.Millisecond)
	m.ObserveAPI("POST", "/api/exports", "", "200", 30*time.Millisecond)
	m.IncExport("xlsx", "no_table")
	m.IncVideoJob("failed")

	if got := testutil.ToFloat64(m.apiRequests.WithLabelValues("POST", "/api/exports", "", "200")); got != 2 {
		t.Fatalf("api requests: got %v want 2", got)
	}
	if got := testutil.ToFloat64(m.exports.WithLabelValues("xlsx", "no_table")); got != 1 {
		t.Fatalf("exports: got %v want 1", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`edutools_api_requests_total{method="POST",route="/api/exports",status="200"} 2`,
		`edutools_video_jobs_total{status="failed"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("exposition missing %q", want)
		}
	}
}

func TestStatusLabel(t *testing.T) {
	cases := map[string]struct {
		err  error
		want string
	}{
		"ok":    {nil, "ok"},
		"quota": {errors.New("The request could not be completed because the API quota has been exceeded."), "quota"},
		"other": {errors.New("boom"), "error"},
	}
	for name, tc := range cases {
		if got := StatusLabel(tc.err); got != tc.want {
			t.Fatalf("%s: got %q want %q", name, got, tc.want)
		}
	}
}

func TestOtelHeaders(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "a=1, b = 2 ,bad,=x")
	got := otelHeaders()
	if len(got) != 2 || got["a"] != "1" || got["b"] != "2" {
		t.Fatalf("got %v", got)
	}
}

func TestOtelSampleRatio(t *testing.T) {
	cases := map[string]float64{"": 0.1, "0.5": 0.5, "7": 1, "-1": 0, "nope": 0.1}
	for in, want := range cases {
		t.Setenv("OTEL_SAMPLER_RATIO", in)
		if got := otelSampleRatio(); got != want {
			t.Fatalf("%q: got %v want %v", in, got, want)
		}
	}
}

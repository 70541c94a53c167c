package openai

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/edutools-backend/internal/generation"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func response(status int, contentType, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     http.Header{"Content-Type": []string{contentType}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newTestClient(t *testing.T, rt roundTripperFunc) *Client {
	t.Helper()
	c, err := New(nil, Config{
		BaseURL:    "https://openai.test/v1",
		APIKey:     "sk-test",
		Poll:       generation.PollConfig{Interval: time.Millisecond, MaxWait: time.Second},
		HTTPClient: &http.Client{Transport: rt},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestGenerateText(t *testing.T) {
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Fatalf("auth header: %q", got)
		}
		return response(200, "application/json", `{"choices":[{"index":0,"message":{"role":"assistant","content":"## Plan"}}]}`), nil
	})
	got, err := c.GenerateText(context.Background(), "Plan a lesson")
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if got != "## Plan" {
		t.Fatalf("got %q", got)
	}
}

func TestGenerateTextQuota(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(*http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return response(429, "application/json", `{"error":{"message":"Rate limit reached","type":"requests","code":"rate_limit_exceeded"}}`), nil
	})
	c.maxRetries = 3
	_, err := c.GenerateText(context.Background(), "x")
	var ge *generation.Error
	if !errors.As(err, &ge) || ge.Message != generation.QuotaExceededMessage {
		t.Fatalf("expected quota error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls: got %d want 1", calls)
	}
}

func TestGenerateTextAPIError(t *testing.T) {
	c := newTestClient(t, func(*http.Request) (*http.Response, error) {
		return response(400, "application/json", `{"error":{"message":"Invalid model","type":"invalid_request_error"}}`), nil
	})
	_, err := c.GenerateText(context.Background(), "x")
	if err == nil || err.Error() != "API Error: Invalid model" {
		t.Fatalf("got %v", err)
	}
}

func TestGenerateImageB64(t *testing.T) {
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/v1/images/generations" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		return response(200, "application/json", `{"created":1,"data":[{"b64_json":"QUJD"}]}`), nil
	})
	img, err := c.GenerateImage(context.Background(), "a frog")
	if err != nil {
		t.Fatalf("GenerateImage: %v", err)
	}
	if img.URI != "data:image/png;base64,QUJD" {
		t.Fatalf("uri: %q", img.URI)
	}
}

func TestGenerateImageEmpty(t *testing.T) {
	c := newTestClient(t, func(*http.Request) (*http.Response, error) {
		return response(200, "application/json", `{"created":1,"data":[]}`), nil
	})
	_, err := c.GenerateImage(context.Background(), "a frog")
	if !errors.Is(err, generation.ErrNoImage) {
		t.Fatalf("expected ErrNoImage, got %v", err)
	}
}

func TestGenerateVideo(t *testing.T) {
	var polls int32
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/videos":
			if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
				t.Fatalf("expected multipart body, got %q", r.Header.Get("Content-Type"))
			}
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Fatalf("parse form: %v", err)
			}
			if r.FormValue("model") != "sora-2" || r.FormValue("prompt") != "tides" {
				t.Fatalf("unexpected form %v", r.MultipartForm.Value)
			}
			return response(200, "application/json", `{"id":"vid_1","status":"queued"}`), nil
		case r.URL.Path == "/v1/videos/vid_1":
			if atomic.AddInt32(&polls, 1) < 2 {
				return response(200, "application/json", `{"id":"vid_1","status":"in_progress"}`), nil
			}
			return response(200, "application/json", `{"id":"vid_1","status":"completed"}`), nil
		case r.URL.Path == "/v1/videos/vid_1/content":
			return response(200, "application/octet-stream", "\x00\x00\x00\x18ftypmp42rest"), nil
		}
		t.Fatalf("unexpected request %s %s", r.Method, r.URL)
		return nil, nil
	})
	v, err := c.GenerateVideo(context.Background(), "tides")
	if err != nil {
		t.Fatalf("GenerateVideo: %v", err)
	}
	if v.MimeType != "video/mp4" {
		t.Fatalf("mime: %q", v.MimeType)
	}
	if polls != 2 {
		t.Fatalf("polls: got %d want 2", polls)
	}
}

func TestGenerateVideoFailed(t *testing.T) {
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		if r.Method == http.MethodPost {
			return response(200, "application/json", `{"id":"vid_2","status":"queued"}`), nil
		}
		return response(200, "application/json", `{"id":"vid_2","status":"failed","error":{"message":"moderation_blocked"}}`), nil
	})
	_, err := c.GenerateVideo(context.Background(), "x")
	if err == nil || err.Error() != "API Error: moderation_blocked" {
		t.Fatalf("got %v", err)
	}
}

func TestSniffVideoMime(t *testing.T) {
	if got := sniffVideoMime([]byte{0x1A, 0x45, 0xDF, 0xA3, 0, 0}); got != "video/webm" {
		t.Fatalf("got %q", got)
	}
	if got := sniffVideoMime([]byte("\x00\x00\x00\x18ftypisom")); got != "video/mp4" {
		t.Fatalf("got %q", got)
	}
}

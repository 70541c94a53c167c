package gcp

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yungbote/edutools-backend/internal/platform/logger"
)

func newEmulatorBucket(t *testing.T, h http.HandlerFunc) *bucketService {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &bucketService{
		log:          logger.Nop(),
		storageMode:  ObjectStorageModeGCSEmulator,
		emulatorHost: srv.URL,
		bucket:       "edutools-media",
		httpClient:   srv.Client(),
	}
}

func TestEmulatorDownloadAndAttrs(t *testing.T) {
	bs := newEmulatorBucket(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() != "/storage/v1/b/edutools-media/o/videos%2Fjob-1.mp4" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("alt") == "media" {
			_, _ = w.Write([]byte("mp4-bytes"))
			return
		}
		_, _ = w.Write([]byte(`{"size":"9","contentType":"video/mp4","updated":"2025-01-02T03:04:05Z","etag":"abc"}`))
	})

	rc, err := bs.Download(context.Background(), "videos/job-1.mp4")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "mp4-bytes" {
		t.Fatalf("body: got=%q", body)
	}

	attrs, err := bs.Attrs(context.Background(), "videos/job-1.mp4")
	if err != nil {
		t.Fatalf("Attrs: %v", err)
	}
	if attrs.Size != 9 || attrs.ContentType != "video/mp4" || attrs.ETag != "abc" || attrs.Updated.Year() != 2025 {
		t.Fatalf("unexpected attrs: %+v", attrs)
	}
}

func TestEmulatorDownloadNotFound(t *testing.T) {
	bs := newEmulatorBucket(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	if _, err := bs.Download(context.Background(), "missing"); !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
}

package jobs

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/edutools-backend/internal/artifacts"
	"github.com/yungbote/edutools-backend/internal/generation"
	"github.com/yungbote/edutools-backend/internal/generation/mock"
)

func exerciseJobStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	id := uuid.NewString()
	if _, err := s.Get(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown job: expected ErrNotFound, got %v", err)
	}
	job := &Job{ID: id, ToolID: "video-explainer", Status: StatusPending, Prompt: "p", CreatedAt: now, UpdatedAt: now, ExpiresAt: now.Add(time.Minute)}
	if err := s.Create(ctx, job); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != StatusPending || got.Prompt != "p" || got.ToolID != "video-explainer" {
		t.Fatalf("unexpected job %+v", got)
	}

	got.Status = StatusFailed
	got.Error = "boom"
	got.ErrorStatus = 429
	if err := s.Update(ctx, got); err != nil {
		t.Fatalf("Update: %v", err)
	}
	again, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get after update: %v", err)
	}
	if again.Status != StatusFailed || again.Error != "boom" || again.ErrorStatus != 429 {
		t.Fatalf("update not persisted: %+v", again)
	}

	if err := s.Update(ctx, &Job{ID: uuid.NewString(), ExpiresAt: now.Add(time.Minute)}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update unknown: expected ErrNotFound, got %v", err)
	}
	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseJobStore(t, NewMemoryStore())
}

func TestMemoryStoreExpires(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()
	s.now = func() time.Time { return now }
	job := &Job{ID: "a", Status: StatusPending, ExpiresAt: now.Add(time.Minute)}
	if err := s.Create(context.Background(), job); err != nil {
		t.Fatalf("Create: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := s.Get(context.Background(), "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired job to be gone, got %v", err)
	}
}

func TestRedisStore(t *testing.T) {
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	s, err := NewRedisStore(context.Background(), nil, addr)
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	defer s.Close()
	exerciseJobStore(t, s)
}

func TestNewRedisStoreRequiresAddr(t *testing.T) {
	if _, err := NewRedisStore(context.Background(), nil, " "); err == nil {
		t.Fatalf("expected error for empty addr")
	}
}

func TestStatusTerminal(t *testing.T) {
	cases := map[Status]bool{
		StatusPending:   false,
		StatusRunning:   false,
		StatusSucceeded: true,
		StatusFailed:    true,
	}
	for s, want := range cases {
		if s.Terminal() != want {
			t.Fatalf("%s.Terminal() = %v", s, !want)
		}
	}
}

type stubBackend struct {
	mu    sync.Mutex
	calls int
	video func(ctx context.Context, prompt string) (generation.Video, error)
}

func (b *stubBackend) Name() string { return "stub" }

func (b *stubBackend) GenerateText(ctx context.Context, prompt string) (string, error) {
	return "", errors.New("not implemented")
}

func (b *stubBackend) GenerateImage(ctx context.Context, prompt string) (generation.Image, error) {
	return generation.Image{}, errors.New("not implemented")
}

func (b *stubBackend) GenerateVideo(ctx context.Context, prompt string) (generation.Video, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	return b.video(ctx, prompt)
}

func startRunner(t *testing.T, r *Runner) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = r.Run(ctx)
		close(done)
	}()
	return func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatalf("runner did not stop")
		}
	}
}

func waitTerminal(t *testing.T, r *Runner, id string) *Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := r.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if job.Status.Terminal() {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s never finished", id)
	return nil
}

func TestRunnerSucceedsWithMockBackend(t *testing.T) {
	backend, err := mock.New()
	if err != nil {
		t.Fatalf("mock.New: %v", err)
	}
	art := artifacts.NewMemoryStore()
	r := NewRunner(nil, NewMemoryStore(), backend, art, nil, RunnerConfig{Workers: 1})
	stop := startRunner(t, r)
	defer stop()

	job, err := r.Submit(context.Background(), "video-explainer", "A short clip about photosynthesis")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if job.Status != StatusPending {
		t.Fatalf("new job should be pending, got %s", job.Status)
	}

	done := waitTerminal(t, r, job.ID)
	if done.Status != StatusSucceeded {
		t.Fatalf("expected success, got %+v", done)
	}
	if done.MimeType != "video/mp4" || done.Size == 0 {
		t.Fatalf("unexpected media fields %+v", done)
	}

	_, obj, err := r.Content(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Content: %v", err)
	}
	defer obj.Body.Close()
	data, _ := io.ReadAll(obj.Body)
	if int64(len(data)) != done.Size {
		t.Fatalf("content size %d, job says %d", len(data), done.Size)
	}
}

func TestRunnerRecordsQuotaFailure(t *testing.T) {
	backend := &stubBackend{video: func(ctx context.Context, prompt string) (generation.Video, error) {
		return generation.Video{}, &generation.APIError{StatusCode: 429, Body: `{"error":{"code":429,"status":"RESOURCE_EXHAUSTED","message":"quota"}}`}
	}}
	r := NewRunner(nil, NewMemoryStore(), backend, artifacts.NewMemoryStore(), nil, RunnerConfig{Workers: 1})
	stop := startRunner(t, r)
	defer stop()

	job, err := r.Submit(context.Background(), "video-explainer", "p")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	done := waitTerminal(t, r, job.ID)
	if done.Status != StatusFailed {
		t.Fatalf("expected failure, got %s", done.Status)
	}
	if done.Error != generation.QuotaExceededMessage || done.ErrorStatus != 429 {
		t.Fatalf("unexpected error fields %q %d", done.Error, done.ErrorStatus)
	}
	if _, _, err := r.Content(context.Background(), job.ID); !errors.Is(err, ErrNotReady) {
		t.Fatalf("content of failed job: expected ErrNotReady, got %v", err)
	}
}

func TestRunnerRecoversFromPanic(t *testing.T) {
	backend := &stubBackend{video: func(ctx context.Context, prompt string) (generation.Video, error) {
		panic("backend exploded")
	}}
	r := NewRunner(nil, NewMemoryStore(), backend, artifacts.NewMemoryStore(), nil, RunnerConfig{Workers: 1})
	stop := startRunner(t, r)
	defer stop()

	job, err := r.Submit(context.Background(), "video-explainer", "p")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	done := waitTerminal(t, r, job.ID)
	if done.Status != StatusFailed || done.Error == "" {
		t.Fatalf("expected failed job with message, got %+v", done)
	}
}

func TestRunnerQueueFull(t *testing.T) {
	backend := &stubBackend{video: func(ctx context.Context, prompt string) (generation.Video, error) {
		return generation.Video{Data: []byte("x"), MimeType: "video/mp4"}, nil
	}}
	store := NewMemoryStore()
	// Not started, so the single queue slot stays occupied.
	r := NewRunner(nil, store, backend, artifacts.NewMemoryStore(), nil, RunnerConfig{QueueSize: 1})

	if _, err := r.Submit(context.Background(), "t", "one"); err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	if _, err := r.Submit(context.Background(), "t", "two"); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestRunnerShutdownFailsQueuedJobs(t *testing.T) {
	release := make(chan struct{})
	backend := &stubBackend{video: func(ctx context.Context, prompt string) (generation.Video, error) {
		select {
		case <-release:
		case <-ctx.Done():
			return generation.Video{}, ctx.Err()
		}
		return generation.Video{Data: []byte("x"), MimeType: "video/mp4"}, nil
	}}
	r := NewRunner(nil, NewMemoryStore(), backend, artifacts.NewMemoryStore(), nil, RunnerConfig{Workers: 1, QueueSize: 4})
	stop := startRunner(t, r)

	first, err := r.Submit(context.Background(), "t", "one")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	second, err := r.Submit(context.Background(), "t", "two")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	stop()
	close(release)

	for _, id := range []string{first.ID, second.ID} {
		job, err := r.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if job.Status != StatusFailed {
			t.Fatalf("job %s: expected failed after shutdown, got %s", id, job.Status)
		}
	}
	if _, err := r.Submit(context.Background(), "t", "three"); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped after shutdown, got %v", err)
	}
}

// createHookStore runs afterCreate once the job is persisted, before Submit enqueues it.
type createHookStore struct {
	Store
	afterCreate func(job *Job)
}

func (s *createHookStore) Create(ctx context.Context, job *Job) error {
	if err := s.Store.Create(ctx, job); err != nil {
		return err
	}
	if s.afterCreate != nil {
		s.afterCreate(job)
	}
	return nil
}

func TestRunnerSubmitDuringShutdown(t *testing.T) {
	store := &createHookStore{Store: NewMemoryStore()}
	r := NewRunner(nil, store, &stubBackend{}, artifacts.NewMemoryStore(), nil, RunnerConfig{Workers: 1, QueueSize: 4})
	stop := startRunner(t, r)
	// Give Run time to reach its select loop before shutdown races the submit.
	time.Sleep(20 * time.Millisecond)
	var lateID string
	store.afterCreate = func(job *Job) {
		lateID = job.ID
		stop()
	}

	job, err := r.Submit(context.Background(), "t", "late")
	if !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
	if job != nil {
		t.Fatalf("expected no job, got %+v", job)
	}
	if n := len(r.queue); n != 0 {
		t.Fatalf("queue: got %d stranded jobs", n)
	}

	late, err := r.Get(context.Background(), lateID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if late.Status != StatusFailed || late.Error != shuttingDownMessage {
		t.Fatalf("late job left as %s %q", late.Status, late.Error)
	}
}

func TestRunnerGetRejectsMalformedID(t *testing.T) {
	r := NewRunner(nil, NewMemoryStore(), &stubBackend{}, artifacts.NewMemoryStore(), nil, RunnerConfig{})
	if _, err := r.Get(context.Background(), "../etc/passwd"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestExtensionFor(t *testing.T) {
	cases := map[string]string{"video/mp4": ".mp4", "video/webm": ".webm", "VIDEO/QUICKTIME": ".mov", "": ".mp4"}
	for in, want := range cases {
		if got := extensionFor(in); got != want {
			t.Fatalf("extensionFor(%q) = %q, want %q", in, got, want)
		}
	}
}

package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/edutools-backend/internal/artifacts"
	"github.com/yungbote/edutools-backend/internal/generation"
	"github.com/yungbote/edutools-backend/internal/observability"
	"github.com/yungbote/edutools-backend/internal/platform/ctxutil"
	"github.com/yungbote/edutools-backend/internal/platform/logger"
)

var ErrNotReady = errors.New("video is not ready")

const shuttingDownMessage = "An error occurred during video generation: the server is shutting down"

const (
	DefaultTTL       = time.Hour
	DefaultWorkers   = 2
	DefaultQueueSize = 64
)

type RunnerConfig struct {
	TTL       time.Duration
	Workers   int
	QueueSize int
}

type queued struct {
	id    string
	trace *ctxutil.TraceData
}

// Runner executes video jobs on a bounded pool. Submit only enqueues; Run does the work.
type Runner struct {
	log       *logger.Logger
	store     Store
	backend   generation.Backend
	artifacts artifacts.Store
	metrics   *observability.Metrics

	ttl     time.Duration
	workers int
	queue   chan queued

	mu       sync.Mutex
	stopped  bool
	cleanups map[string]*time.Timer
	now      func() time.Time
}

func NewRunner(log *logger.Logger, store Store, backend generation.Backend, art artifacts.Store, metrics *observability.Metrics, cfg RunnerConfig) *Runner {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	return &Runner{
		log:       log.With("component", "VideoJobRunner"),
		store:     store,
		backend:   backend,
		artifacts: art,
		metrics:   metrics,
		ttl:       cfg.TTL,
		workers:   cfg.Workers,
		queue:     make(chan queued, cfg.QueueSize),
		cleanups:  map[string]*time.Timer{},
		now:       time.Now,
	}
}

// Submit stores a pending job and queues it.
func (r *Runner) Submit(ctx context.Context, toolID, prompt string) (*Job, error) {
	r.mu.Lock()
	stopped := r.stopped
	r.mu.Unlock()
	if stopped {
		return nil, ErrStopped
	}

	now := r.now().UTC()
	job := &Job{
		ID:        uuid.NewString(),
		ToolID:    toolID,
		Status:    StatusPending,
		Prompt:    prompt,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(r.ttl),
	}
	if err := r.store.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create video job: %w", err)
	}
	r.metrics.IncVideoJob(string(StatusPending))

	if err := r.enqueue(queued{id: job.ID, trace: ctxutil.GetTraceData(ctx)}); err != nil {
		msg := ErrQueueFull.Error()
		if errors.Is(err, ErrStopped) {
			msg = shuttingDownMessage
		}
		r.finish(ctx, job, StatusFailed, msg, 503)
		return nil, err
	}
	r.log.Info("Video job queued", append(ctxutil.LogFields(ctx), "job_id", job.ID, "tool_id", toolID)...)
	return job, nil
}

// enqueue holds mu so a job can never land in the queue after Run has drained it.
func (r *Runner) enqueue(q queued) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return ErrStopped
	}
	select {
	case r.queue <- q:
		return nil
	default:
		return ErrQueueFull
	}
}

func (r *Runner) Get(ctx context.Context, id string) (*Job, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	return r.store.Get(ctx, id)
}

// Content opens the finished media of a succeeded job.
func (r *Runner) Content(ctx context.Context, id string) (*Job, *artifacts.Object, error) {
	job, err := r.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if job.Status != StatusSucceeded {
		return job, nil, ErrNotReady
	}
	obj, err := r.artifacts.Get(ctx, job.ArtifactKey)
	if err != nil {
		if errors.Is(err, artifacts.ErrNotFound) {
			return job, nil, ErrNotFound
		}
		return job, nil, err
	}
	return job, obj, nil
}

// Run dispatches queued jobs until ctx is done, then waits for running jobs and fails the rest.
func (r *Runner) Run(ctx context.Context) error {
	r.log.Info("Starting video job runner", "workers", r.workers, "ttl", r.ttl.String())

	var g errgroup.Group
	g.SetLimit(r.workers)
	for {
		select {
		case <-ctx.Done():
			r.mu.Lock()
			r.stopped = true
			r.mu.Unlock()

			_ = g.Wait()
			r.drain()
			r.stopCleanups()
			r.log.Info("Video job runner stopped")
			return nil
		case q := <-r.queue:
			g.Go(func() error {
				r.process(ctx, q)
				return nil
			})
		}
	}
}

func (r *Runner) process(ctx context.Context, q queued) {
	if q.trace != nil {
		ctx = ctxutil.WithTraceData(ctx, q.trace)
	}
	log := r.log.With(append(ctxutil.LogFields(ctx), "job_id", q.id)...)
	if ctx.Err() != nil {
		r.abandon(q)
		return
	}

	job, err := r.store.Get(ctxutil.Detach(ctx), q.id)
	if err != nil {
		log.Warn("Video job vanished before it ran", "error", err)
		return
	}
	if job.Status != StatusPending {
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("Video job panic", "panic", rec)
			r.finish(ctx, job, StatusFailed, "An error occurred during video generation: unexpected error", 500)
		}
	}()

	job.Status = StatusRunning
	job.UpdatedAt = r.now().UTC()
	if err := r.store.Update(ctxutil.Detach(ctx), job); err != nil {
		log.Warn("Mark video job running failed", "error", err)
	}
	r.metrics.IncVideoJob(string(StatusRunning))

	ctx, span := observability.StartSpan(ctx, "video_job")
	defer span.End()

	start := r.now()
	video, err := r.backend.GenerateVideo(ctx, job.Prompt)
	r.metrics.ObserveGeneration(r.backend.Name(), job.ToolID, "video", observability.StatusLabel(err), r.now().Sub(start))
	if err != nil {
		ge := generation.Describe(generation.OpVideo, err)
		span.RecordError(ge)
		log.Warn("Video generation failed", "error", ge.Error(), "status", ge.Status)
		r.finish(ctx, job, StatusFailed, ge.Message, ge.Status)
		return
	}

	key := "videos/" + job.ID + extensionFor(video.MimeType)
	if err := r.artifacts.Put(ctx, key, video.MimeType, video.Data); err != nil {
		log.Error("Store video artifact failed", "error", err, "key", key)
		r.finish(ctx, job, StatusFailed, "An error occurred during video generation: could not store the video", 500)
		return
	}
	job.ArtifactKey = key
	job.MimeType = video.MimeType
	job.Size = int64(len(video.Data))
	r.finish(ctx, job, StatusSucceeded, "", 0)
	r.scheduleCleanup(job)
	log.Info("Video job succeeded", "bytes", job.Size, "mime_type", job.MimeType)
}

// finish records a terminal state. It runs detached so shutdown cancellation still gets persisted.
func (r *Runner) finish(ctx context.Context, job *Job, status Status, msg string, errStatus int) {
	job.Status = status
	job.Error = msg
	job.ErrorStatus = errStatus
	job.UpdatedAt = r.now().UTC()

	dctx, cancel := context.WithTimeout(ctxutil.Detach(ctx), 10*time.Second)
	defer cancel()
	if err := r.store.Update(dctx, job); err != nil {
		r.log.Warn("Persist video job state failed", "job_id", job.ID, "status", string(status), "error", err)
	}
	r.metrics.IncVideoJob(string(status))
}

// drain fails jobs that were queued but never started.
func (r *Runner) drain() {
	for {
		select {
		case q := <-r.queue:
			r.abandon(q)
		default:
			return
		}
	}
}

func (r *Runner) abandon(q queued) {
	ctx := context.Background()
	job, err := r.store.Get(ctx, q.id)
	if err != nil || job.Status != StatusPending {
		return
	}
	r.finish(ctx, job, StatusFailed, shuttingDownMessage, 503)
}

// scheduleCleanup removes the artifact once its job has expired.
func (r *Runner) scheduleCleanup(job *Job) {
	delay := job.ExpiresAt.Sub(r.now())
	if delay <= 0 {
		delay = time.Second
	}
	key := job.ArtifactKey
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleanups[job.ID] = time.AfterFunc(delay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := r.artifacts.Delete(ctx, key); err != nil {
			r.log.Warn("Delete expired video artifact failed", "key", key, "error", err)
		}
		r.mu.Lock()
		delete(r.cleanups, job.ID)
		r.mu.Unlock()
	})
}

func (r *Runner) stopCleanups() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, t := range r.cleanups {
		t.Stop()
		delete(r.cleanups, id)
	}
}

func extensionFor(mimeType string) string {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case "video/webm":
		return ".webm"
	case "video/quicktime":
		return ".mov"
	}
	return ".mp4"
}

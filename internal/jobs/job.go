package jobs

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound  = errors.New("job not found")
	ErrQueueFull = errors.New("video job queue is full")
	ErrStopped   = errors.New("job runner is not running")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Job is an asynchronous video generation. The prompt is kept so a failed job can be inspected,
// the media itself lives in the artifact store under ArtifactKey.
type Job struct {
	ID          string    `json:"id"`
	ToolID      string    `json:"tool_id"`
	Status      Status    `json:"status"`
	Prompt      string    `json:"-"`
	Error       string    `json:"error,omitempty"`
	ErrorStatus int       `json:"-"`
	ArtifactKey string    `json:"-"`
	MimeType    string    `json:"mime_type,omitempty"`
	Size        int64     `json:"size,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (j *Job) Expired(now time.Time) bool {
	return !j.ExpiresAt.IsZero() && !now.Before(j.ExpiresAt)
}

// Store persists jobs until they expire. Get returns ErrNotFound for unknown or expired ids.
type Store interface {
	Create(ctx context.Context, job *Job) error
	Get(ctx context.Context, id string) (*Job, error)
	Update(ctx context.Context, job *Job) error
	Ping(ctx context.Context) error
	Close() error
}

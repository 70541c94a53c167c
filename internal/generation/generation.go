package generation

import (
	"context"
	"strings"
	"time"
)

// Backend produces tool output from an assembled prompt.
type Backend interface {
	Name() string
	GenerateText(ctx context.Context, prompt string) (string, error)
	GenerateImage(ctx context.Context, prompt string) (Image, error)
	// GenerateVideo blocks until the backend operation finishes, polling internally.
	GenerateVideo(ctx context.Context, prompt string) (Video, error)
}

type Image struct {
	// URI is a data: URI or a remote URL.
	URI      string `json:"uri"`
	MimeType string `json:"mime_type"`
}

type Video struct {
	Data     []byte `json:"-"`
	MimeType string `json:"mime_type"`
	// SourceURI is where the backend served the media from, with credentials stripped.
	SourceURI string `json:"source_uri,omitempty"`
}

// PollConfig bounds video operation polling.
type PollConfig struct {
	Interval time.Duration
	MaxWait  time.Duration
}

const (
	DefaultPollInterval = 10 * time.Second
	DefaultMaxWait      = 10 * time.Minute
)

func (p PollConfig) withDefaults() PollConfig {
	if p.Interval <= 0 {
		p.Interval = DefaultPollInterval
	}
	if p.MaxWait <= 0 {
		p.MaxWait = DefaultMaxWait
	}
	return p
}

// Poll calls check every Interval until it reports done, ctx ends or MaxWait elapses.
// check runs once immediately.
func Poll(ctx context.Context, cfg PollConfig, check func(ctx context.Context) (bool, error)) error {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithTimeout(ctx, cfg.MaxWait)
	defer cancel()

	t := time.NewTicker(cfg.Interval)
	defer t.Stop()
	for {
		done, err := check(ctx)
		if err != nil {
			if ctx.Err() == context.DeadlineExceeded {
				return ErrVideoTimeout
			}
			return err
		}
		if done {
			return nil
		}
		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return ErrVideoTimeout
			}
			return ctx.Err()
		case <-t.C:
		}
	}
}

// DataURI encodes base64 image bytes the way clients render them inline.
func DataURI(mimeType, b64 string) string {
	mimeType = strings.TrimSpace(mimeType)
	if mimeType == "" {
		mimeType = "image/png"
	}
	return "data:" + mimeType + ";base64," + b64
}

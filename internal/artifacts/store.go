package artifacts

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"
)

var ErrNotFound = errors.New("artifact not found")

// Object is a stored artifact. Callers must close Body.
type Object struct {
	Key         string
	ContentType string
	Size        int64
	Updated     time.Time
	Body        io.ReadCloser
}

// Store holds generated media (finished videos) until clients download it.
type Store interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	Get(ctx context.Context, key string) (*Object, error)
	Delete(ctx context.Context, key string) error
	Close() error
}

// JoinKey prefixes key, collapsing duplicate slashes.
func JoinKey(prefix, key string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if prefix == "" {
		return key
	}
	return path.Join(prefix, key)
}

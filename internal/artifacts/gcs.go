package artifacts

import (
	"bytes"
	"context"
	"errors"

	"github.com/yungbote/edutools-backend/internal/platform/gcp"
)

// GCSStore keeps artifacts in a Cloud Storage bucket (or a fake-gcs emulator).
type GCSStore struct {
	bucket gcp.BucketService
	prefix string
}

func NewGCSStore(bucket gcp.BucketService, prefix string) *GCSStore {
	return &GCSStore{bucket: bucket, prefix: prefix}
}

func (s *GCSStore) Put(ctx context.Context, key, contentType string, data []byte) error {
	return s.bucket.Upload(ctx, JoinKey(s.prefix, key), contentType, bytes.NewReader(data))
}

func (s *GCSStore) Get(ctx context.Context, key string) (*Object, error) {
	full := JoinKey(s.prefix, key)
	attrs, err := s.bucket.Attrs(ctx, full)
	if err != nil {
		if errors.Is(err, gcp.ErrObjectNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	body, err := s.bucket.Download(ctx, full)
	if err != nil {
		if errors.Is(err, gcp.ErrObjectNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &Object{
		Key:         key,
		ContentType: attrs.ContentType,
		Size:        attrs.Size,
		Updated:     attrs.Updated,
		Body:        body,
	}, nil
}

func (s *GCSStore) Delete(ctx context.Context, key string) error {
	err := s.bucket.Delete(ctx, JoinKey(s.prefix, key))
	if errors.Is(err, gcp.ErrObjectNotFound) {
		return nil
	}
	return err
}

func (s *GCSStore) Close() error { return s.bucket.Close() }

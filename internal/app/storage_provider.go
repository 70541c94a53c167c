package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/edutools-backend/internal/artifacts"
	"github.com/yungbote/edutools-backend/internal/config"
	"github.com/yungbote/edutools-backend/internal/platform/gcp"
	"github.com/yungbote/edutools-backend/internal/platform/logger"
)

var (
	newBucketService = gcp.NewBucketService
	newS3Store       = artifacts.NewS3Store
)

type StorageProviderBootstrapErrorCode string

const (
	StorageProviderBootstrapErrorInvalidStore        StorageProviderBootstrapErrorCode = "invalid_store"
	StorageProviderBootstrapErrorMissingBucket       StorageProviderBootstrapErrorCode = "missing_bucket"
	StorageProviderBootstrapErrorInvalidEmulatorHost StorageProviderBootstrapErrorCode = "invalid_emulator_host"
	StorageProviderBootstrapErrorConnectFailed       StorageProviderBootstrapErrorCode = "connect_failed"
)

type StorageProviderBootstrapError struct {
	Code         StorageProviderBootstrapErrorCode
	Store        string
	Bucket       string
	EmulatorHost string
	Cause        error
}

func (e *StorageProviderBootstrapError) Error() string {
	if e == nil {
		return "artifact storage bootstrap failed"
	}
	return fmt.Sprintf(
		"artifact storage bootstrap failed (code=%s store=%q bucket=%q emulator_host=%q): %v",
		e.Code,
		e.Store,
		e.Bucket,
		e.EmulatorHost,
		e.Cause,
	)
}

func (e *StorageProviderBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// resolveArtifactStore builds the store finished videos are written to.
func resolveArtifactStore(ctx context.Context, log *logger.Logger, cfg config.ArtifactsConfig) (artifacts.Store, error) {
	store := strings.ToLower(strings.TrimSpace(cfg.Store))
	switch store {
	case "", "memory":
		log.Info("Artifact storage configured", "store", "memory")
		return artifacts.NewMemoryStore(), nil

	case "gcs":
		storageCfg, err := gcp.ResolveObjectStorageConfig(cfg.Bucket, cfg.EmulatorHost)
		if err != nil {
			return nil, classifyStorageProviderBootstrapError(cfg, err)
		}
		bucket, err := newBucketService(ctx, log, storageCfg)
		if err != nil {
			return nil, classifyStorageProviderBootstrapError(cfg, err)
		}
		log.Info("Artifact storage configured",
			"store", store,
			"mode", string(storageCfg.Mode),
			"bucket", storageCfg.Bucket,
			"emulator_host", storageCfg.EmulatorHost,
		)
		return artifacts.NewGCSStore(bucket, cfg.Prefix), nil

	case "s3":
		if strings.TrimSpace(cfg.Bucket) == "" {
			return nil, &StorageProviderBootstrapError{
				Code:  StorageProviderBootstrapErrorMissingBucket,
				Store: store,
				Cause: errors.New("s3 artifact store requires a bucket"),
			}
		}
		s3, err := newS3Store(ctx, log, artifacts.S3Config{
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Region:    cfg.S3.Region,
			UseSSL:    cfg.S3.UseSSL,
			Bucket:    cfg.Bucket,
			Prefix:    cfg.Prefix,
		})
		if err != nil {
			return nil, classifyStorageProviderBootstrapError(cfg, err)
		}
		log.Info("Artifact storage configured", "store", store, "endpoint", cfg.S3.Endpoint, "bucket", cfg.Bucket)
		return s3, nil
	}

	return nil, &StorageProviderBootstrapError{
		Code:  StorageProviderBootstrapErrorInvalidStore,
		Store: cfg.Store,
		Cause: fmt.Errorf("unknown artifact store %q (allowed: memory, gcs, s3)", cfg.Store),
	}
}

func classifyStorageProviderBootstrapError(cfg config.ArtifactsConfig, err error) error {
	if err == nil {
		return nil
	}
	out := &StorageProviderBootstrapError{
		Code:         StorageProviderBootstrapErrorConnectFailed,
		Store:        strings.ToLower(strings.TrimSpace(cfg.Store)),
		Bucket:       strings.TrimSpace(cfg.Bucket),
		EmulatorHost: strings.TrimSpace(cfg.EmulatorHost),
		Cause:        err,
	}
	var cfgErr *gcp.ObjectStorageConfigError
	if errors.As(err, &cfgErr) {
		switch cfgErr.Code {
		case gcp.ObjectStorageConfigErrorInvalidMode:
			out.Code = StorageProviderBootstrapErrorInvalidStore
		case gcp.ObjectStorageConfigErrorMissingBucket:
			out.Code = StorageProviderBootstrapErrorMissingBucket
		case gcp.ObjectStorageConfigErrorInvalidEmulatorHost:
			out.Code = StorageProviderBootstrapErrorInvalidEmulatorHost
		}
	}
	return out
}

// Package storage abstracts where job payloads live. Processing always
// operates on local paths; the worker stages bytes between local disk and
// the configured backend so the rest of the pipeline stays storage-agnostic.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/clearwm/clearwm-service/config"
	"github.com/clearwm/clearwm-service/infra"
)

var (
	// ErrNotFound is returned when a reference does not resolve to content.
	ErrNotFound = errors.New("storage object not found")
	// ErrNotDirectory is returned when a path segment of a save destination
	// already exists as a non-directory.
	ErrNotDirectory = errors.New("parent path is not a directory")
	// ErrSignedURLUnsupported is returned by the filesystem backend, which
	// has no notion of expiring access.
	ErrSignedURLUnsupported = errors.New("signed URLs are not supported by filesystem storage")
)

// Backend is the closed two-variant storage contract: a local filesystem
// tree or a MinIO-compatible object store, selected once at startup.
type Backend interface {
	Read(ctx context.Context, ref string) ([]byte, error)
	Exists(ctx context.Context, ref string) (bool, error)
	// Save writes content at ref, creating intermediate path segments as
	// needed and overwriting existing content.
	Save(ctx context.Context, ref string, data []byte) error
	// Delete removes content at ref. Deleting an absent ref is a no-op.
	Delete(ctx context.Context, ref string) error
	// SignedURL returns a time-limited read URL for ref. Remote only.
	SignedURL(ctx context.Context, ref string, ttl time.Duration) (string, error)
	// Remote reports whether payloads live off-host, which means the worker
	// must stage inputs and outputs through local temporary files.
	Remote() bool
}

// NewBackend selects the backend from configuration. The MinIO client is
// only required in remote mode.
func NewBackend(cfg *config.EnvConfig, minioClient *infra.MinioClient) Backend {
	if cfg.RemoteStorage() {
		return NewMinioBackend(minioClient, cfg.Storage.Bucket)
	}
	return NewFilesystemBackend()
}

package storage

import (
	"context"
	"errors"
	"time"

	"github.com/clearwm/clearwm-service/infra"
)

// MinioBackend stores payloads in a single bucket of a MinIO-compatible
// object store. References are object keys.
type MinioBackend struct {
	client *infra.MinioClient
	bucket string
}

func NewMinioBackend(client *infra.MinioClient, bucket string) *MinioBackend {
	return &MinioBackend{
		client: client,
		bucket: bucket,
	}
}

func (b *MinioBackend) Read(ctx context.Context, ref string) ([]byte, error) {
	data, err := b.client.GetObject(ctx, b.bucket, ref)
	if err != nil {
		if errors.Is(err, infra.ErrObjectNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (b *MinioBackend) Exists(ctx context.Context, ref string) (bool, error) {
	return b.client.HeadObject(ctx, b.bucket, ref)
}

func (b *MinioBackend) Save(ctx context.Context, ref string, data []byte) error {
	return b.client.PutObject(ctx, b.bucket, ref, data, "")
}

func (b *MinioBackend) Delete(ctx context.Context, ref string) error {
	return b.client.DeleteObject(ctx, b.bucket, ref)
}

func (b *MinioBackend) SignedURL(ctx context.Context, ref string, ttl time.Duration) (string, error) {
	return b.client.PresignedGetURL(ctx, b.bucket, ref, ttl)
}

func (b *MinioBackend) Remote() bool {
	return true
}

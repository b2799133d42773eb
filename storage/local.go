package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FilesystemBackend stores payloads directly on the local disk. References
// are filesystem paths.
type FilesystemBackend struct{}

func NewFilesystemBackend() *FilesystemBackend {
	return &FilesystemBackend{}
}

func (b *FilesystemBackend) Read(_ context.Context, ref string) ([]byte, error) {
	data, err := os.ReadFile(ref)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read %s: %w", ref, err)
	}
	return data, nil
}

func (b *FilesystemBackend) Exists(_ context.Context, ref string) (bool, error) {
	_, err := os.Stat(ref)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat %s: %w", ref, err)
	}
	return true, nil
}

func (b *FilesystemBackend) Save(_ context.Context, ref string, data []byte) error {
	dir := filepath.Dir(ref)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %s", ErrNotDirectory, dir)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDirectory, dir)
	}
	if err := os.WriteFile(ref, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", ref, err)
	}
	return nil
}

func (b *FilesystemBackend) Delete(_ context.Context, ref string) error {
	if err := os.Remove(ref); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %s: %w", ref, err)
	}
	return nil
}

func (b *FilesystemBackend) SignedURL(_ context.Context, _ string, _ time.Duration) (string, error) {
	return "", ErrSignedURLUnsupported
}

func (b *FilesystemBackend) Remote() bool {
	return false
}

package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilesystemRoundTrip(t *testing.T) {
	ctx := context.Background()
	backend := NewFilesystemBackend()
	ref := filepath.Join(t.TempDir(), "nested", "dir", "video.mp4")
	payload := []byte("fake video bytes")

	require.NoError(t, backend.Save(ctx, ref, payload))

	got, err := backend.Read(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	exists, err := backend.Exists(ctx, ref)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestFilesystemSaveOverwrites(t *testing.T) {
	ctx := context.Background()
	backend := NewFilesystemBackend()
	ref := filepath.Join(t.TempDir(), "video.mp4")

	require.NoError(t, backend.Save(ctx, ref, []byte("first")))
	require.NoError(t, backend.Save(ctx, ref, []byte("second")))

	got, err := backend.Read(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got)
}

func TestFilesystemReadMissing(t *testing.T) {
	backend := NewFilesystemBackend()
	_, err := backend.Read(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFilesystemSaveNonDirectoryParent(t *testing.T) {
	ctx := context.Background()
	backend := NewFilesystemBackend()
	dir := t.TempDir()

	// Occupy the parent segment with a regular file.
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	err := backend.Save(ctx, filepath.Join(blocker, "video.mp4"), []byte("data"))
	assert.ErrorIs(t, err, ErrNotDirectory)
}

func TestFilesystemDeleteIdempotent(t *testing.T) {
	ctx := context.Background()
	backend := NewFilesystemBackend()
	ref := filepath.Join(t.TempDir(), "video.mp4")

	require.NoError(t, backend.Save(ctx, ref, []byte("data")))
	require.NoError(t, backend.Delete(ctx, ref))

	exists, err := backend.Exists(ctx, ref)
	require.NoError(t, err)
	assert.False(t, exists)

	// Deleting again must not fail.
	require.NoError(t, backend.Delete(ctx, ref))
}

func TestFilesystemSignedURLUnsupported(t *testing.T) {
	backend := NewFilesystemBackend()
	_, err := backend.SignedURL(context.Background(), "anything", time.Hour)
	assert.ErrorIs(t, err, ErrSignedURLUnsupported)
	assert.False(t, backend.Remote())
}

func TestKeyLayout(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	at := time.Date(2025, 11, 2, 13, 4, 5, 0, time.UTC)

	assert.Equal(t,
		"uploads/6ba7b810-9dad-11d1-80b4-00c04fd430c8_clip.mp4",
		UploadKey("uploads", id, "clip.mp4"))

	filename := OutputFilename(id, at, ".mp4")
	assert.Equal(t, "6ba7b810-9dad-11d1-80b4-00c04fd430c8_20251102130405.mp4", filename)
	assert.Equal(t, "outputs/"+filename, OutputKey("outputs", filename))
}

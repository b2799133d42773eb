package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearwm/clearwm-service/config"
	"github.com/clearwm/clearwm-service/entity"
	"github.com/clearwm/clearwm-service/infra"
	"github.com/clearwm/clearwm-service/processor"
	"github.com/clearwm/clearwm-service/repository"
	"github.com/clearwm/clearwm-service/storage"
)

type fakeProcessor struct {
	run func(ctx context.Context, inputPath, outputPath string, report processor.ProgressFunc) error
}

func (f *fakeProcessor) Run(ctx context.Context, inputPath, outputPath string, report processor.ProgressFunc) error {
	return f.run(ctx, inputPath, outputPath, report)
}

// copyProcessor stands in for the watermark pipeline: it copies the input to
// the output and reports progress along the way.
func copyProcessor(reports ...int) *fakeProcessor {
	return &fakeProcessor{run: func(_ context.Context, inputPath, outputPath string, report processor.ProgressFunc) error {
		data, err := os.ReadFile(inputPath)
		if err != nil {
			return err
		}
		for _, pct := range reports {
			report(pct)
		}
		return os.WriteFile(outputPath, append([]byte("cleaned:"), data...), 0o644)
	}}
}

// memBackend is an in-memory stand-in for the object store.
type memBackend struct {
	mu      sync.Mutex
	objects map[string][]byte
	signed  int
}

func newMemBackend() *memBackend {
	return &memBackend{objects: make(map[string][]byte)}
}

func (b *memBackend) Read(_ context.Context, ref string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[ref]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (b *memBackend) Exists(_ context.Context, ref string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[ref]
	return ok, nil
}

func (b *memBackend) Save(_ context.Context, ref string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	b.objects[ref] = stored
	return nil
}

func (b *memBackend) Delete(_ context.Context, ref string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, ref)
	return nil
}

func (b *memBackend) SignedURL(_ context.Context, ref string, _ time.Duration) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.signed++
	return fmt.Sprintf("https://store.test/%s?sig=%d", ref, b.signed), nil
}

func (b *memBackend) Remote() bool { return true }

func testConfig(t *testing.T, mode string) *config.EnvConfig {
	t.Helper()
	cfg := &config.EnvConfig{}
	cfg.Storage.Mode = mode
	cfg.Storage.Bucket = "videos"
	cfg.Storage.UploadsPrefix = "uploads"
	cfg.Storage.OutputsPrefix = "outputs"
	cfg.Storage.SignedURLTTL = time.Hour
	cfg.Storage.WorkingDir = t.TempDir()
	cfg.Storage.UploadDir = filepath.Join(cfg.Storage.WorkingDir, "uploads")
	cfg.Grafana.ServiceName = "clearwm-test"
	return cfg
}

func newTestCleaner(t *testing.T, cfg *config.EnvConfig, backend storage.Backend, proc processor.VideoProcessor) (*Cleaner, repository.JobStore) {
	t.Helper()
	store := repository.NewMemoryJobRepository()
	logger := infra.InitLoggerClient(cfg)
	cleaner, err := NewCleaner(cfg, logger, nil, store, backend, proc)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, cleaner.Start(ctx))
	return cleaner, store
}

func writeInput(t *testing.T, cfg *config.EnvConfig, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(cfg.Storage.UploadDir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func waitForStatus(t *testing.T, cleaner *Cleaner, id uuid.UUID, want entity.JobStatus) *StatusResult {
	t.Helper()
	var result *StatusResult
	require.Eventually(t, func() bool {
		res, err := cleaner.GetStatus(context.Background(), id)
		if err != nil {
			return false
		}
		result = res
		return res.Status == want
	}, 3*time.Second, 10*time.Millisecond, "job never reached %s", want)
	return result
}

func TestLocalModeLifecycle(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, config.StorageModeLocal)
	cleaner, _ := newTestCleaner(t, cfg, storage.NewFilesystemBackend(), copyProcessor(25, 50, 75))

	id, err := cleaner.CreateJob(ctx)
	require.NoError(t, err)

	status, err := cleaner.GetStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusUploading, status.Status)
	assert.Equal(t, 0, status.Percentage)
	assert.Nil(t, status.DownloadURL)

	payload := []byte("ten megabytes of video, honest")
	inputPath := writeInput(t, cfg, id.String()+"/clip.mp4", payload)
	require.NoError(t, cleaner.QueueJob(ctx, id, inputPath))

	result := waitForStatus(t, cleaner, id, entity.StatusFinished)
	assert.Equal(t, 100, result.Percentage)
	require.NotNil(t, result.DownloadURL)
	assert.Equal(t, "/download/"+id.String(), *result.DownloadURL)

	outputPath, err := cleaner.GetOutputLocation(ctx, id)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(outputPath, cfg.Storage.WorkingDir))

	// The download reference resolves to the processor's declared output.
	got, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	assert.Equal(t, append([]byte("cleaned:"), payload...), got)
}

func TestLocalModeStagingIsNoOp(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, config.StorageModeLocal)
	cleaner, store := newTestCleaner(t, cfg, storage.NewFilesystemBackend(), copyProcessor())

	id, err := cleaner.CreateJob(ctx)
	require.NoError(t, err)
	inputPath := writeInput(t, cfg, id.String()+"/clip.mp4", []byte("bytes"))
	require.NoError(t, cleaner.QueueJob(ctx, id, inputPath))

	job, err := store.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, inputPath, job.InputPath, "local staging must not alter the path")

	// The original input file stays in place in local mode.
	waitForStatus(t, cleaner, id, entity.StatusFinished)
	_, err = os.Stat(inputPath)
	assert.NoError(t, err)
}

func TestRemoteModeRoundTrip(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, config.StorageModeRemote)
	backend := newMemBackend()
	cleaner, store := newTestCleaner(t, cfg, backend, copyProcessor(40, 90))

	id, err := cleaner.CreateJob(ctx)
	require.NoError(t, err)
	payload := []byte("remote video payload")
	inputPath := writeInput(t, cfg, id.String()+"/clip.mp4", payload)
	require.NoError(t, cleaner.QueueJob(ctx, id, inputPath))

	// The local upload copy is removed once the object store holds it.
	_, statErr := os.Stat(inputPath)
	assert.True(t, os.IsNotExist(statErr))

	job, err := store.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "uploads/"+id.String()+"_clip.mp4", job.InputPath)

	meta, err := job.Meta()
	require.NoError(t, err)
	assert.Equal(t, "clip.mp4", meta.OriginalFilename)

	result := waitForStatus(t, cleaner, id, entity.StatusFinished)
	assert.Equal(t, 100, result.Percentage)
	require.NotNil(t, result.DownloadURL)
	assert.Contains(t, *result.DownloadURL, "https://store.test/outputs/")

	// Signed URLs are generated fresh per call, never cached.
	second, err := cleaner.GetStatus(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, second.DownloadURL)
	assert.NotEqual(t, *result.DownloadURL, *second.DownloadURL)

	// Output object holds exactly the processed bytes.
	outputKey, err := cleaner.GetOutputLocation(ctx, id)
	require.NoError(t, err)
	stored, err := backend.Read(ctx, outputKey)
	require.NoError(t, err)
	assert.Equal(t, append([]byte("cleaned:"), payload...), stored)

	// No local temporaries remain after a successful remote run.
	assertNoTempFiles(t, cfg)
}

func TestProcessingFailureMarksErrorAndLoopContinues(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, config.StorageModeRemote)
	backend := newMemBackend()

	var calls int
	var mu sync.Mutex
	proc := &fakeProcessor{run: func(_ context.Context, inputPath, outputPath string, report processor.ProgressFunc) error {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			report(30)
			// Fail mid-run after leaving a partial output behind.
			_ = os.WriteFile(outputPath, []byte("partial"), 0o644)
			return errors.New("model exploded")
		}
		data, err := os.ReadFile(inputPath)
		if err != nil {
			return err
		}
		return os.WriteFile(outputPath, append([]byte("cleaned:"), data...), 0o644)
	}}

	cleaner, store := newTestCleaner(t, cfg, backend, proc)

	// J2 fails deliberately.
	j2, err := cleaner.CreateJob(ctx)
	require.NoError(t, err)
	input2 := writeInput(t, cfg, j2.String()+"/bad.mp4", []byte("doomed"))
	require.NoError(t, cleaner.QueueJob(ctx, j2, input2))

	result := waitForStatus(t, cleaner, j2, entity.StatusError)
	assert.Equal(t, 0, result.Percentage)
	assert.Nil(t, result.DownloadURL)

	outputPath, err := cleaner.GetOutputLocation(ctx, j2)
	require.NoError(t, err)
	assert.Empty(t, outputPath)

	// The failure detail is kept on the record, not in the status response.
	job, err := store.FindByID(ctx, j2)
	require.NoError(t, err)
	meta, err := job.Meta()
	require.NoError(t, err)
	assert.Contains(t, meta.ErrorDetail, "model exploded")

	// No stray temp files after the failure.
	assertNoTempFiles(t, cfg)

	// J3 still processes successfully afterwards.
	j3, err := cleaner.CreateJob(ctx)
	require.NoError(t, err)
	input3 := writeInput(t, cfg, j3.String()+"/good.mp4", []byte("fine"))
	require.NoError(t, cleaner.QueueJob(ctx, j3, input3))

	done := waitForStatus(t, cleaner, j3, entity.StatusFinished)
	assert.Equal(t, 100, done.Percentage)
}

func TestUnknownJobID(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, config.StorageModeLocal)
	cleaner, _ := newTestCleaner(t, cfg, storage.NewFilesystemBackend(), copyProcessor())

	unknown := uuid.New()
	_, err := cleaner.GetStatus(ctx, unknown)
	assert.ErrorIs(t, err, repository.ErrJobNotFound)

	_, err = cleaner.GetOutputLocation(ctx, unknown)
	assert.ErrorIs(t, err, repository.ErrJobNotFound)

	err = cleaner.QueueJob(ctx, unknown, "nowhere.mp4")
	assert.ErrorIs(t, err, repository.ErrJobNotFound)
}

func TestJobsProcessSequentiallyInOrder(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, config.StorageModeLocal)

	var mu sync.Mutex
	var order []string
	proc := &fakeProcessor{run: func(_ context.Context, inputPath, outputPath string, _ processor.ProgressFunc) error {
		mu.Lock()
		order = append(order, filepath.Base(inputPath))
		mu.Unlock()
		return os.WriteFile(outputPath, []byte("out"), 0o644)
	}}
	cleaner, _ := newTestCleaner(t, cfg, storage.NewFilesystemBackend(), proc)

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		id, err := cleaner.CreateJob(ctx)
		require.NoError(t, err)
		name := fmt.Sprintf("clip-%d.mp4", i)
		input := writeInput(t, cfg, id.String()+"/"+name, []byte("v"))
		require.NoError(t, cleaner.QueueJob(ctx, id, input))
		ids = append(ids, id)
	}

	for _, id := range ids {
		waitForStatus(t, cleaner, id, entity.StatusFinished)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"clip-0.mp4", "clip-1.mp4", "clip-2.mp4"}, order)
}

func assertNoTempFiles(t *testing.T, cfg *config.EnvConfig) {
	t.Helper()
	require.Eventually(t, func() bool {
		entries, err := os.ReadDir(cfg.Storage.UploadDir)
		if err != nil {
			return false
		}
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), "temp_") {
				return false
			}
		}
		working, err := os.ReadDir(cfg.Storage.WorkingDir)
		if err != nil {
			return false
		}
		for _, e := range working {
			if !e.IsDir() {
				return false
			}
		}
		return true
	}, 2*time.Second, 10*time.Millisecond, "temp files left behind")
}

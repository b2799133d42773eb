// Package worker hosts the single sequential consumer that drives every job
// from submission to its terminal state.
package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/clearwm/clearwm-service/config"
	"github.com/clearwm/clearwm-service/entity"
	"github.com/clearwm/clearwm-service/infra"
	"github.com/clearwm/clearwm-service/processor"
	"github.com/clearwm/clearwm-service/queue"
	"github.com/clearwm/clearwm-service/repository"
	"github.com/clearwm/clearwm-service/storage"
)

const statusCacheTTL = 10 * time.Minute

// StatusResult is the client-facing view of a job. DownloadURL is populated
// only for FINISHED jobs and, in remote mode, is generated fresh per call
// because signed URLs expire.
type StatusResult struct {
	Percentage  int              `json:"percentage"`
	Status      entity.JobStatus `json:"status"`
	DownloadURL *string          `json:"download_url"`
}

type cachedStatus struct {
	Status      entity.JobStatus `json:"status"`
	Percentage  int              `json:"percentage"`
	OutputPath  string           `json:"output_path"`
	DownloadURL string           `json:"download_url"`
}

// Cleaner owns the job lifecycle: it stages inputs, runs the processor,
// stages outputs and finalizes records. At most one job is in flight.
type Cleaner struct {
	cfg       *config.EnvConfig
	logger    *infra.LoggerClient
	cache     *infra.RedisClient
	jobs      repository.JobStore
	backend   storage.Backend
	queue     *queue.TaskQueue
	processor processor.VideoProcessor
	progress  *ProgressBridge
}

func NewCleaner(
	cfg *config.EnvConfig,
	logger *infra.LoggerClient,
	cache *infra.RedisClient,
	jobs repository.JobStore,
	backend storage.Backend,
	proc processor.VideoProcessor,
) (*Cleaner, error) {
	if err := os.MkdirAll(cfg.Storage.WorkingDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create working dir: %w", err)
	}
	if err := os.MkdirAll(cfg.Storage.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}

	return &Cleaner{
		cfg:       cfg,
		logger:    logger,
		cache:     cache,
		jobs:      jobs,
		backend:   backend,
		queue:     queue.New(),
		processor: proc,
		progress:  NewProgressBridge(jobs, logger),
	}, nil
}

// Start launches the progress listener and the worker loop. Both exit when
// the context is canceled.
func (c *Cleaner) Start(ctx context.Context) error {
	c.progress.Start(ctx)
	go c.run(ctx)
	c.logger.InfoWithContextf(ctx, "[Worker] Started, storage mode: %s", c.cfg.Storage.Mode)
	return nil
}

// CreateJob initializes a record in UPLOADING and returns its id.
func (c *Cleaner) CreateJob(ctx context.Context) (uuid.UUID, error) {
	job := &entity.Job{
		ID:     uuid.New(),
		Status: entity.StatusUploading,
	}
	if err := c.jobs.Create(ctx, job); err != nil {
		return uuid.Nil, fmt.Errorf("failed to create job record: %w", err)
	}
	c.logger.InfoWithContextf(ctx, "[Worker] Job %s created with UPLOADING status", job.ID)
	return job.ID, nil
}

// QueueJob stages the input, transitions the job to PROCESSING and places
// its handle on the queue. In local mode the input path is used as-is; in
// remote mode the file is uploaded under the uploads prefix first.
func (c *Cleaner) QueueJob(ctx context.Context, id uuid.UUID, localInputPath string) error {
	if _, err := c.jobs.FindByID(ctx, id); err != nil {
		return err
	}

	inputRef := localInputPath
	if c.backend.Remote() {
		data, err := os.ReadFile(localInputPath)
		if err != nil {
			return fmt.Errorf("failed to read input %s: %w", localInputPath, err)
		}
		key := storage.UploadKey(c.cfg.Storage.UploadsPrefix, id, filepath.Base(localInputPath))
		c.logger.InfoWithContextf(ctx, "[Worker] Uploading input for job %s to %s", id, key)
		if err := c.backend.Save(ctx, key, data); err != nil {
			return fmt.Errorf("failed to stage input: %w", err)
		}
		inputRef = key
		// The local copy is redundant once the object store holds the bytes.
		if err := os.Remove(localInputPath); err != nil {
			c.logger.WarningWithContextf(ctx, "[Worker] Failed to remove staged upload %s: %v", localInputPath, err)
		}
	}

	if err := c.jobs.SetProcessing(ctx, id, inputRef, filepath.Base(localInputPath)); err != nil {
		return err
	}
	c.queue.Enqueue(id, inputRef)
	c.logger.InfoWithContextf(ctx, "[Worker] Job %s queued for processing: %s", id, inputRef)
	return nil
}

// GetStatus returns the client view of a job. Unknown ids surface
// repository.ErrJobNotFound.
func (c *Cleaner) GetStatus(ctx context.Context, id uuid.UUID) (*StatusResult, error) {
	job, err := c.lookupJob(ctx, id)
	if err != nil {
		return nil, err
	}

	result := &StatusResult{
		Percentage: job.Percentage,
		Status:     job.Status,
	}

	if job.Status == entity.StatusFinished && job.OutputPath != "" {
		if c.backend.Remote() {
			signed, err := c.backend.SignedURL(ctx, job.OutputPath, c.cfg.Storage.SignedURLTTL)
			if err != nil {
				c.logger.ErrorWithContextf(ctx, err, "[Worker] Failed to sign URL for job %s", id)
			} else {
				result.DownloadURL = &signed
			}
		} else {
			url := job.DownloadURL
			result.DownloadURL = &url
		}
	}

	return result, nil
}

// GetOutputLocation returns the storage reference of a finished job's
// output, or an empty string when the job has none.
func (c *Cleaner) GetOutputLocation(ctx context.Context, id uuid.UUID) (string, error) {
	job, err := c.lookupJob(ctx, id)
	if err != nil {
		return "", err
	}
	return job.OutputPath, nil
}

// QueueDepth reports how many jobs are waiting plus the one in flight.
func (c *Cleaner) QueueDepth() int {
	return c.queue.Unfinished()
}

func (c *Cleaner) run(ctx context.Context) {
	c.logger.InfoWithContextf(ctx, "[Worker] Waiting for jobs...")
	for {
		item, err := c.queue.Dequeue(ctx)
		if err != nil {
			c.logger.InfoWithContextf(ctx, "[Worker] Shutting down: %v", err)
			return
		}
		c.handle(ctx, item)
	}
}

// handle processes one dequeued job and acknowledges it exactly once,
// whatever the outcome.
func (c *Cleaner) handle(ctx context.Context, item queue.Item) {
	defer c.queue.TaskDone()

	if err := c.processItem(ctx, item); err != nil {
		c.logger.ErrorWithContextf(ctx, err, "[Worker] Job %s failed", item.JobID)
		if markErr := c.jobs.MarkError(ctx, item.JobID, err.Error()); markErr != nil {
			c.logger.ErrorWithContextf(ctx, markErr, "[Worker] Failed to mark job %s as ERROR", item.JobID)
		}
		c.cacheStatus(ctx, item.JobID, entity.StatusError, 0, "", "")
	}
}

func (c *Cleaner) processItem(ctx context.Context, item queue.Item) (retErr error) {
	c.logger.InfoWithContextf(ctx, "[Worker] Processing job %s: %s", item.JobID, item.InputRef)

	ext := filepath.Ext(item.InputRef)
	remote := c.backend.Remote()

	var tempFiles []string
	defer func() {
		if retErr != nil {
			c.cleanupTemp(ctx, tempFiles)
		}
	}()

	// Stage input: remote payloads are downloaded to a local temporary, local
	// payloads are used in place.
	localInput := item.InputRef
	if remote {
		data, err := c.backend.Read(ctx, item.InputRef)
		if err != nil {
			return fmt.Errorf("failed to download input: %w", err)
		}
		localInput = filepath.Join(c.cfg.Storage.UploadDir, "temp_"+item.JobID.String()+ext)
		if err := os.WriteFile(localInput, data, 0o644); err != nil {
			return fmt.Errorf("failed to write local input: %w", err)
		}
		tempFiles = append(tempFiles, localInput)
		c.logger.InfoWithContextf(ctx, "[Worker] Downloaded input for job %s to %s", item.JobID, localInput)
	}

	outputFilename := storage.OutputFilename(item.JobID, time.Now(), ext)
	localOutput := filepath.Join(c.cfg.Storage.WorkingDir, outputFilename)
	if remote {
		tempFiles = append(tempFiles, localOutput)
	}

	// Processing has begun; bump off zero before the first callback lands.
	if err := c.jobs.UpdateProgress(ctx, item.JobID, 10); err != nil {
		c.logger.ErrorWithContextf(ctx, err, "[Worker] Failed to set initial progress for job %s", item.JobID)
	}

	report := c.progress.Reporter(item.JobID)
	if err := c.processor.Run(ctx, localInput, localOutput, report); err != nil {
		return fmt.Errorf("processing failed: %w", err)
	}

	// Stage output.
	finalOutput := localOutput
	downloadURL := ""
	if remote {
		data, err := os.ReadFile(localOutput)
		if err != nil {
			return fmt.Errorf("failed to read processed output: %w", err)
		}
		key := storage.OutputKey(c.cfg.Storage.OutputsPrefix, outputFilename)
		if err := c.backend.Save(ctx, key, data); err != nil {
			return fmt.Errorf("failed to upload output: %w", err)
		}
		finalOutput = key
		c.cleanupTemp(ctx, tempFiles)
		tempFiles = nil
		c.logger.InfoWithContextf(ctx, "[Worker] Uploaded output for job %s to %s", item.JobID, key)
	} else {
		downloadURL = "/download/" + item.JobID.String()
	}

	if err := c.jobs.MarkFinished(ctx, item.JobID, finalOutput, downloadURL); err != nil {
		return fmt.Errorf("failed to finalize job: %w", err)
	}
	c.cacheStatus(ctx, item.JobID, entity.StatusFinished, 100, finalOutput, downloadURL)

	c.logger.InfoWithContextf(ctx, "[Worker] Job %s completed, output: %s", item.JobID, finalOutput)
	return nil
}

// cleanupTemp removes local temporaries created during staging. Failures
// are logged, never propagated.
func (c *Cleaner) cleanupTemp(ctx context.Context, paths []string) {
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			c.logger.ErrorWithContextf(ctx, err, "[Worker] Failed to clean up temp file %s", path)
		}
	}
}

// lookupJob reads a job record, serving terminal states from the cache when
// one is configured. Download references are never cached.
func (c *Cleaner) lookupJob(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	if c.cache != nil {
		var cached cachedStatus
		if err := c.cache.Get(ctx, statusCacheKey(id), &cached); err == nil {
			return &entity.Job{
				ID:          id,
				Status:      cached.Status,
				Percentage:  cached.Percentage,
				OutputPath:  cached.OutputPath,
				DownloadURL: cached.DownloadURL,
			}, nil
		}
	}

	job, err := c.jobs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if job.Status.Terminal() {
		c.cacheStatus(ctx, id, job.Status, job.Percentage, job.OutputPath, job.DownloadURL)
	}
	return job, nil
}

// cacheStatus stores a terminal status snapshot. Terminal states never
// change, so the entry can only go stale by expiring.
func (c *Cleaner) cacheStatus(ctx context.Context, id uuid.UUID, status entity.JobStatus, percentage int, outputPath, downloadURL string) {
	if c.cache == nil || !status.Terminal() {
		return
	}
	cached := cachedStatus{
		Status:      status,
		Percentage:  percentage,
		OutputPath:  outputPath,
		DownloadURL: downloadURL,
	}
	if err := c.cache.Set(ctx, statusCacheKey(id), cached, statusCacheTTL); err != nil {
		c.logger.WarningWithContextf(ctx, "[Worker] Failed to cache status for job %s: %v", id, err)
	}
}

func statusCacheKey(id uuid.UUID) string {
	return "job_status:" + id.String()
}

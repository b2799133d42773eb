package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clearwm/clearwm-service/entity"
)

// MemoryJobRepository keeps job records in process memory. Used when no
// Postgres host is configured and throughout the test suite.
type MemoryJobRepository struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*entity.Job
}

func NewMemoryJobRepository() *MemoryJobRepository {
	return &MemoryJobRepository{
		jobs: make(map[uuid.UUID]*entity.Job),
	}
}

func (r *MemoryJobRepository) Create(_ context.Context, job *entity.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	stored := *job
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.jobs[job.ID] = &stored
	return nil
}

func (r *MemoryJobRepository) FindByID(_ context.Context, id uuid.UUID) (*entity.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	copied := *job
	return &copied, nil
}

func (r *MemoryJobRepository) SetProcessing(_ context.Context, id uuid.UUID, inputPath, originalName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	meta, err := entity.JobMetadata{OriginalFilename: originalName}.ToJSON()
	if err != nil {
		return err
	}
	job.Status = entity.StatusProcessing
	job.Percentage = 0
	job.InputPath = inputPath
	job.Metadata = meta
	job.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryJobRepository) UpdateProgress(_ context.Context, id uuid.UUID, percentage int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	if job.Status != entity.StatusProcessing || job.Percentage > percentage {
		return nil
	}
	job.Percentage = percentage
	job.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryJobRepository) MarkFinished(_ context.Context, id uuid.UUID, outputPath, downloadURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	job.Status = entity.StatusFinished
	job.Percentage = 100
	job.OutputPath = outputPath
	job.DownloadURL = downloadURL
	job.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryJobRepository) MarkError(_ context.Context, id uuid.UUID, detail string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	m, err := job.Meta()
	if err != nil {
		m = entity.JobMetadata{}
	}
	m.ErrorDetail = detail
	meta, err := m.ToJSON()
	if err != nil {
		return err
	}
	job.Status = entity.StatusError
	job.Percentage = 0
	job.Metadata = meta
	job.UpdatedAt = time.Now()
	return nil
}

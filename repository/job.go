package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clearwm/clearwm-service/entity"
)

// ErrJobNotFound is returned when a job id does not resolve to a record.
var ErrJobNotFound = errors.New("job not found")

// JobStore is the durable record of job identity, status, progress and
// result location. Point lookups and point updates only; each call is
// individually atomic at the record level.
type JobStore interface {
	Create(ctx context.Context, job *entity.Job) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Job, error)
	// SetProcessing records the staged input location and the original upload
	// filename, and moves the job to PROCESSING with percentage reset to 0.
	SetProcessing(ctx context.Context, id uuid.UUID, inputPath, originalName string) error
	// UpdateProgress overwrites the percentage of a PROCESSING job. Updates
	// that would decrease the percentage or touch a terminal job are ignored.
	UpdateProgress(ctx context.Context, id uuid.UUID, percentage int) error
	// MarkFinished moves a job to its FINISHED terminal state with
	// percentage 100 and the output location set.
	MarkFinished(ctx context.Context, id uuid.UUID, outputPath, downloadURL string) error
	// MarkError moves a job to its ERROR terminal state with percentage
	// reset to 0 and no output location. The failure detail is kept in the
	// job metadata, never in status responses.
	MarkError(ctx context.Context, id uuid.UUID, detail string) error
}

type JobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) Create(ctx context.Context, job *entity.Job) error {
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *JobRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	var job entity.Job
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return &job, nil
}

func (r *JobRepository) SetProcessing(ctx context.Context, id uuid.UUID, inputPath, originalName string) error {
	meta, err := entity.JobMetadata{OriginalFilename: originalName}.ToJSON()
	if err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Model(&entity.Job{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     entity.StatusProcessing,
			"percentage": 0,
			"input_path": inputPath,
			"metadata":   meta,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrJobNotFound
	}
	return nil
}

func (r *JobRepository) UpdateProgress(ctx context.Context, id uuid.UUID, percentage int) error {
	// Guarded update: terminal jobs and stale (lower) values are left alone.
	return r.db.WithContext(ctx).Model(&entity.Job{}).
		Where("id = ? AND status = ? AND percentage <= ?", id, entity.StatusProcessing, percentage).
		Update("percentage", percentage).Error
}

func (r *JobRepository) MarkFinished(ctx context.Context, id uuid.UUID, outputPath, downloadURL string) error {
	result := r.db.WithContext(ctx).Model(&entity.Job{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       entity.StatusFinished,
			"percentage":   100,
			"output_path":  outputPath,
			"download_url": downloadURL,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrJobNotFound
	}
	return nil
}

func (r *JobRepository) MarkError(ctx context.Context, id uuid.UUID, detail string) error {
	job, err := r.FindByID(ctx, id)
	if err != nil {
		return err
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
	result := r.db.WithContext(ctx).Model(&entity.Job{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     entity.StatusError,
			"percentage": 0,
			"metadata":   meta,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrJobNotFound
	}
	return nil
}

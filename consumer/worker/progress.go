package worker

import (
	"context"

	"github.com/google/uuid"

	"github.com/clearwm/clearwm-service/infra"
	"github.com/clearwm/clearwm-service/processor"
	"github.com/clearwm/clearwm-service/repository"
)

type progressUpdate struct {
	jobID      uuid.UUID
	percentage int
}

// ProgressBridge marshals progress callbacks from the processing context
// onto a single listener goroutine that owns the job store update. Per-job
// call order is preserved because one channel feeds one listener; under
// backpressure intermediate values are dropped rather than blocking the
// processor.
type ProgressBridge struct {
	jobs    repository.JobStore
	logger  *infra.LoggerClient
	updates chan progressUpdate
}

func NewProgressBridge(jobs repository.JobStore, logger *infra.LoggerClient) *ProgressBridge {
	return &ProgressBridge{
		jobs:    jobs,
		logger:  logger,
		updates: make(chan progressUpdate, 64),
	}
}

// Start launches the listener. It exits when the context is canceled.
func (b *ProgressBridge) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case update := <-b.updates:
				if err := b.jobs.UpdateProgress(ctx, update.jobID, update.percentage); err != nil {
					// Progress reporting must never abort processing.
					b.logger.ErrorWithContextf(ctx, err,
						"[Progress] Failed to update progress for job %s", update.jobID)
				}
			}
		}
	}()
}

// Reporter binds a job id to a callback the processor can invoke from its
// own execution context. The callback never blocks: when the channel is
// full the value is dropped and a later report supersedes it.
func (b *ProgressBridge) Reporter(jobID uuid.UUID) processor.ProgressFunc {
	return func(percentage int) {
		if percentage < 0 {
			percentage = 0
		}
		if percentage > 100 {
			percentage = 100
		}
		select {
		case b.updates <- progressUpdate{jobID: jobID, percentage: percentage}:
		default:
		}
	}
}

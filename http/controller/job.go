package controller

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clearwm/clearwm-service/entity"
	"github.com/clearwm/clearwm-service/repository"
	"github.com/clearwm/clearwm-service/utils"
)

// SubmitRemoveTask accepts a multipart video upload, creates the job record
// and hands the staged input to the worker queue.
func (ctrl *Controller) SubmitRemoveTask(c *gin.Context) {
	ctx := c.Request.Context()

	fileHeader, err := c.FormFile("video")
	if err != nil {
		ctrl.Infra.Logger.WarningWithContextf(ctx, "[Job] Submission without video file: %v", err)
		utils.JSON400(c, "video file is required")
		return
	}

	jobID, err := ctrl.Worker.CreateJob(ctx)
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Job] Failed to create job record")
		utils.JSON500(c, "failed to create job")
		return
	}

	// Path traversal guard: only the base name of the upload is kept.
	filename := filepath.Base(fileHeader.Filename)
	localPath := filepath.Join(ctrl.Config.EnvConfig.Storage.UploadDir, jobID.String(), filename)
	if err := c.SaveUploadedFile(fileHeader, localPath); err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Job] Failed to save upload for job %s", jobID)
		utils.JSON500(c, "failed to save upload")
		return
	}

	if err := ctrl.Worker.QueueJob(ctx, jobID, localPath); err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Job] Failed to queue job %s", jobID)
		utils.JSON500(c, "failed to queue job")
		return
	}

	ctrl.Infra.Logger.InfoWithContextf(ctx, "[Job] Job %s submitted (%s, %d bytes)", jobID, filename, fileHeader.Size)
	utils.JSON200(c, gin.H{"task_id": jobID.String()})
}

// GetResults reports percentage, status and (when finished) a download
// reference for a job.
func (ctrl *Controller) GetResults(c *gin.Context) {
	ctx := c.Request.Context()

	taskID := c.Query("task_id")
	jobID, err := uuid.Parse(taskID)
	if err != nil {
		utils.JSON400(c, "invalid task_id")
		return
	}

	result, err := ctrl.Worker.GetStatus(ctx, jobID)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			utils.JSON404(c, "task not found")
			return
		}
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Job] Failed to get status for job %s", jobID)
		utils.JSON500(c, "failed to get task status")
		return
	}

	utils.JSON200(c, result)
}

// Download serves a finished job's output: the local file directly in local
// mode, a redirect to a freshly signed URL in remote mode.
func (ctrl *Controller) Download(c *gin.Context) {
	ctx := c.Request.Context()

	jobID, err := uuid.Parse(c.Param("task_id"))
	if err != nil {
		utils.JSON400(c, "invalid task_id")
		return
	}

	result, err := ctrl.Worker.GetStatus(ctx, jobID)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			utils.JSON404(c, "task not found")
			return
		}
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Job] Failed to get status for job %s", jobID)
		utils.JSON500(c, "failed to get task status")
		return
	}

	if result.Status != entity.StatusFinished {
		utils.JSON404(c, "task output not available")
		return
	}

	if ctrl.Config.EnvConfig.RemoteStorage() {
		if result.DownloadURL == nil {
			utils.JSON500(c, "failed to generate download link")
			return
		}
		c.Redirect(http.StatusFound, *result.DownloadURL)
		return
	}

	outputPath, err := ctrl.Worker.GetOutputLocation(ctx, jobID)
	if err != nil || outputPath == "" {
		utils.JSON404(c, "task output not available")
		return
	}
	if _, err := os.Stat(outputPath); err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Job] Output file missing for job %s", jobID)
		utils.JSON404(c, "task output not available")
		return
	}
	c.FileAttachment(outputPath, filepath.Base(outputPath))
}

// Health is the liveness endpoint.
func (ctrl *Controller) Health(c *gin.Context) {
	utils.JSON200(c, gin.H{
		"status":  "healthy",
		"service": ctrl.Config.EnvConfig.Grafana.ServiceName,
	})
}

// Root describes the service.
func (ctrl *Controller) Root(c *gin.Context) {
	utils.JSON200(c, gin.H{
		"service": ctrl.Config.EnvConfig.Grafana.ServiceName,
		"endpoints": gin.H{
			"health":      "/health",
			"submit_task": "/submit_remove_task",
			"get_results": "/get_results",
			"download":    "/download/{task_id}",
		},
	})
}

package storage

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// UploadKey is the object key for a staged input:
// {uploadsPrefix}/{jobId}_{originalName}.
func UploadKey(prefix string, jobID uuid.UUID, originalName string) string {
	return fmt.Sprintf("%s/%s_%s", prefix, jobID, originalName)
}

// OutputFilename is {jobId}_{timestamp}{ext}; the timestamp keeps repeated
// runs over the same input from colliding.
func OutputFilename(jobID uuid.UUID, at time.Time, ext string) string {
	return fmt.Sprintf("%s_%s%s", jobID, at.Format("20060102150405"), ext)
}

// OutputKey is the object key for a finished output:
// {outputsPrefix}/{outputFilename}.
func OutputKey(prefix, filename string) string {
	return fmt.Sprintf("%s/%s", prefix, filename)
}

package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type JobStatus string

// Lifecycle states. UPLOADING is the transient state between record creation
// and the input being staged and queued. FINISHED and ERROR are terminal.
const (
	StatusUploading  JobStatus = "UPLOADING"
	StatusProcessing JobStatus = "PROCESSING"
	StatusFinished   JobStatus = "FINISHED"
	StatusError      JobStatus = "ERROR"
)

func (s JobStatus) Terminal() bool {
	return s == StatusFinished || s == StatusError
}

// Job is one unit of submitted work, tracked from creation to terminal state.
// Records are created once, mutated in place by the worker, and never deleted.
type Job struct {
	ID          uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	Status      JobStatus      `json:"status" gorm:"not null;index"`
	Percentage  int            `json:"percentage" gorm:"not null;default:0"`
	InputPath   string         `json:"input_path"`
	OutputPath  string         `json:"output_path,omitempty"`
	DownloadURL string         `json:"download_url,omitempty"`
	Metadata    datatypes.JSON `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// JobMetadata is the structured content of the metadata column. Error detail
// lives here so failures stay diagnosable without leaking through status
// responses.
type JobMetadata struct {
	OriginalFilename string `json:"original_filename,omitempty"`
	ErrorDetail      string `json:"error_detail,omitempty"`
}

func (m JobMetadata) ToJSON() (datatypes.JSON, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}

// Meta decodes the metadata column. An absent column decodes to the zero
// value.
func (j *Job) Meta() (JobMetadata, error) {
	var m JobMetadata
	if len(j.Metadata) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(j.Metadata, &m); err != nil {
		return JobMetadata{}, err
	}
	return m, nil
}

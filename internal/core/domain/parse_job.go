package domain

import "time"

type ParseJobStatus string

const (
	JobStatusQueued     ParseJobStatus = "queued"
	JobStatusProcessing ParseJobStatus = "processing"
	JobStatusSucceeded  ParseJobStatus = "succeeded"
	JobStatusFailed     ParseJobStatus = "failed"
)

// ParseJob is an asynchronous parse request. Exactly one of SourceURL and StorageKey is set.
type ParseJob struct {
	ID             string         `json:"id"`
	OrganizationID string         `json:"organizationId"`
	SourceURL      string         `json:"sourceUrl,omitempty"`
	StorageKey     string         `json:"-"`
	Filename       string         `json:"filename,omitempty"`
	Status         ParseJobStatus `json:"status"`
	ErrorCode      string         `json:"errorCode,omitempty"`
	Result         *ParseResult   `json:"result,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

func (j *ParseJob) Finished() bool {
	return j.Status == JobStatusSucceeded || j.Status == JobStatusFailed
}

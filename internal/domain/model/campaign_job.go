package model

import "time"

type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusSucceeded  JobStatus = "succeeded"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCanceled   JobStatus = "canceled"
)

// CampaignJob is one unit of work derived from a single submitted row.
// Payload holds the original row fields untouched; the engine only looks at
// it to locate the recording reference.
type CampaignJob struct {
	ID          string
	CampaignID  string
	RowIndex    int
	Payload     map[string]any
	Status      JobStatus
	Error       string
	CallAuditID string
	Retries     int
	DurationMs  *int64
	CreatedAt   time.Time
	StartedAt   *time.Time
	FinishedAt  *time.Time
}

// Terminal reports whether the job reached a final status.
func (j *CampaignJob) Terminal() bool {
	switch j.Status {
	case JobStatusSucceeded, JobStatusFailed, JobStatusCanceled:
		return true
	}
	return false
}

// recordingKeys are the payload fields checked, in order, for the remote
// audio reference.
var recordingKeys = []string{"recording_url", "audio_url", "url"}

// RecordingURL extracts the recording reference from the row payload.
// Returns "" when the row carries none.
func (j *CampaignJob) RecordingURL() string {
	for _, k := range recordingKeys {
		if v, ok := j.Payload[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// PayloadString returns a free-text payload field, or "" when absent.
func (j *CampaignJob) PayloadString(key string) string {
	if v, ok := j.Payload[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

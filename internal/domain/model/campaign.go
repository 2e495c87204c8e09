package model

import "time"

type CampaignStatus string

const (
	CampaignStatusPending             CampaignStatus = "pending"
	CampaignStatusRunning             CampaignStatus = "running"
	CampaignStatusCompleted           CampaignStatus = "completed"
	CampaignStatusCompletedWithErrors CampaignStatus = "completed_with_errors"
	CampaignStatusFailed              CampaignStatus = "failed"
	CampaignStatusCanceled            CampaignStatus = "canceled"
)

// Campaign groups one batch submission of call-audit jobs. Counters and
// ETASeconds are derived from job rows and treated as a cached snapshot;
// TotalJobs is fixed at creation.
type Campaign struct {
	ID             string
	Name           string
	Timezone       string
	CreatedBy      string
	Team           string
	ScorecardID    string
	SourceDocument string

	TotalJobs     int
	CompletedJobs int
	FailedJobs    int
	CanceledJobs  int
	ETASeconds    *int64

	Status     CampaignStatus
	CreatedAt  time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time
}

// Terminal reports whether the campaign can no longer change state.
func (c *Campaign) Terminal() bool {
	switch c.Status {
	case CampaignStatusCompleted, CampaignStatusCompletedWithErrors,
		CampaignStatusFailed, CampaignStatusCanceled:
		return true
	}
	return false
}

// RemainingJobs is the number of jobs not yet in a terminal status,
// according to the cached counters.
func (c *Campaign) RemainingJobs() int {
	return c.TotalJobs - (c.CompletedJobs + c.FailedJobs + c.CanceledJobs)
}

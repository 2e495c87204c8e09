// File: internal/usecase/report_uc.go
package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"call-audit-platform/internal/domain"
	"call-audit-platform/internal/domain/model"
	"call-audit-platform/internal/domain/ports/repository"
)

// JobReport pairs one job with its audit record, when it produced one.
type JobReport struct {
	Job   *model.CampaignJob
	Audit *model.CallAudit
}

// CampaignReport is the full read model for one campaign: the fresh
// snapshot plus every job in row order with its result.
type CampaignReport struct {
	Campaign *model.Campaign
	Jobs     []JobReport
}

type ReportUseCase struct {
	campaigns repository.CampaignRepository
	jobs      repository.CampaignJobRepository
	audits    repository.CallAuditRepository
	progress  *ProgressUseCase
	log       *zerolog.Logger
}

func NewReportUseCase(
	campaigns repository.CampaignRepository,
	jobs repository.CampaignJobRepository,
	audits repository.CallAuditRepository,
	progress *ProgressUseCase,
	logger *zerolog.Logger,
) *ReportUseCase {
	l := logger.With().Str("component", "ReportUseCase").Logger()
	return &ReportUseCase{campaigns: campaigns, jobs: jobs, audits: audits, progress: progress, log: &l}
}

// Report joins the campaign's jobs with their audits by job id.
func (uc *ReportUseCase) Report(ctx context.Context, callerID, campaignID string) (*CampaignReport, error) {
	c, err := uc.campaigns.FindByID(ctx, nil, campaignID)
	if err != nil {
		return nil, err
	}
	if c.CreatedBy != callerID {
		return nil, domain.ErrNotFound
	}
	c, err = uc.progress.Recompute(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	jobs, err := uc.jobs.ListByCampaign(ctx, nil, campaignID)
	if err != nil {
		return nil, err
	}
	audits, err := uc.audits.ListByCampaign(ctx, nil, campaignID)
	if err != nil {
		return nil, err
	}

	byJob := make(map[string]*model.CallAudit, len(audits))
	for _, a := range audits {
		byJob[a.JobID] = a
	}

	report := &CampaignReport{Campaign: c, Jobs: make([]JobReport, 0, len(jobs))}
	for _, j := range jobs {
		report.Jobs = append(report.Jobs, JobReport{Job: j, Audit: byJob[j.ID]})
	}
	return report, nil
}

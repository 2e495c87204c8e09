package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"call-audit-platform/internal/domain"
	"call-audit-platform/internal/domain/model"
	"call-audit-platform/internal/domain/ports/adapter"
	"call-audit-platform/internal/domain/ports/repository"
	"call-audit-platform/internal/infra/metrics"
)

// ProgressRecomputer refreshes a campaign's cached counters after a job
// reaches a terminal state. Satisfied by usecase.ProgressUseCase.
type ProgressRecomputer interface {
	Recompute(ctx context.Context, campaignID string) (*model.Campaign, error)
}

// Processor drains the job queue one cycle at a time. A cycle claims and
// processes jobs with the parallelism the controller allows right now and
// stops when the queue is empty or the cycle budget is spent.
type Processor struct {
	jobs       repository.CampaignJobRepository
	campaigns  repository.CampaignRepository
	scorecards repository.ScorecardRepository
	audits     repository.CallAuditRepository
	fetcher    adapter.RecordingFetcher
	analyzer   adapter.CallAnalyzer
	retry      *RetryPolicy
	progress   ProgressRecomputer
	controller *ConcurrencyController

	budgetMultiple int
	log            *zerolog.Logger
}

func NewProcessor(
	jobs repository.CampaignJobRepository,
	campaigns repository.CampaignRepository,
	scorecards repository.ScorecardRepository,
	audits repository.CallAuditRepository,
	fetcher adapter.RecordingFetcher,
	analyzer adapter.CallAnalyzer,
	retry *RetryPolicy,
	progress ProgressRecomputer,
	controller *ConcurrencyController,
	budgetMultiple int,
	logger *zerolog.Logger,
) *Processor {
	if budgetMultiple <= 0 {
		budgetMultiple = 5
	}
	l := logger.With().Str("component", "Processor").Logger()
	return &Processor{
		jobs:           jobs,
		campaigns:      campaigns,
		scorecards:     scorecards,
		audits:         audits,
		fetcher:        fetcher,
		analyzer:       analyzer,
		retry:          retry,
		progress:       progress,
		controller:     controller,
		budgetMultiple: budgetMultiple,
		log:            &l,
	}
}

// RunCycle runs one worker iteration and returns how many jobs it processed.
// Each of the allowed goroutines claims jobs one at a time, so a slow job
// never blocks its siblings from draining the queue.
func (p *Processor) RunCycle(ctx context.Context) int {
	start := time.Now()
	allowance := p.controller.AllowedParallelism()
	budget := int64(allowance * p.budgetMultiple)

	var processed int64
	var wg sync.WaitGroup
	for i := 0; i < allowance; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				if atomic.AddInt64(&processed, 1) > budget {
					atomic.AddInt64(&processed, -1)
					return
				}
				job, err := p.jobs.ClaimNextQueued(ctx)
				if err != nil {
					atomic.AddInt64(&processed, -1)
					if errors.Is(err, domain.ErrNotFound) {
						metrics.IncEmptyClaim()
					} else if ctx.Err() == nil {
						p.log.Error().Err(err).Msg("claim failed")
					}
					return
				}
				p.processJob(ctx, job)
			}
		}()
	}
	wg.Wait()

	n := int(atomic.LoadInt64(&processed))
	metrics.ObserveCycle(n, time.Since(start).Milliseconds())
	if n > 0 {
		p.log.Info().Int("jobs", n).Int("allowance", allowance).
			Dur("took", time.Since(start)).Msg("cycle finished")
	}
	return n
}

// RunCycles runs up to maxCycles back-to-back cycles, stopping early once a
// cycle finds the queue empty. Used by the manual trigger and the schedule.
func (p *Processor) RunCycles(ctx context.Context, maxCycles int) int {
	total := 0
	for i := 0; i < maxCycles; i++ {
		n := p.RunCycle(ctx)
		total += n
		if n == 0 || ctx.Err() != nil {
			break
		}
	}
	return total
}

// processJob runs one claimed job to a terminal state. Failures are recorded
// on the job row; they never abort the cycle. Terminal writes go through a
// background context so shutdown cannot strand a claimed job in 'processing'.
func (p *Processor) processJob(ctx context.Context, job *model.CampaignJob) {
	jlog := p.log.With().Str("job_id", job.ID).Str("campaign_id", job.CampaignID).Logger()
	start := time.Now()

	auditID, err := p.handleJob(ctx, job)
	elapsed := time.Since(start)

	bg := context.Background()
	if err != nil {
		metrics.IncJobProcessed(string(model.JobStatusFailed))
		if mErr := p.jobs.MarkFailed(bg, nil, job.ID, err.Error(), elapsed); mErr != nil {
			jlog.Error().Err(mErr).Msg("could not record job failure")
		}
		jlog.Error().Err(err).Dur("took", elapsed).Msg("job failed")
	} else {
		metrics.IncJobProcessed(string(model.JobStatusSucceeded))
		if mErr := p.jobs.MarkSucceeded(bg, nil, job.ID, auditID, elapsed); mErr != nil {
			jlog.Error().Err(mErr).Msg("could not record job success")
		}
		jlog.Info().Str("audit_id", auditID).Dur("took", elapsed).Msg("job succeeded")
	}

	if _, rErr := p.progress.Recompute(bg, job.CampaignID); rErr != nil {
		jlog.Warn().Err(rErr).Msg("progress recompute failed")
	}
}

// handleJob is the audit pipeline for a single job: resolve the scorecard,
// download the recording, run the analysis, persist the audit record.
func (p *Processor) handleJob(ctx context.Context, job *model.CampaignJob) (string, error) {
	campaign, err := p.campaigns.FindByID(ctx, nil, job.CampaignID)
	if err != nil {
		return "", fmt.Errorf("campaign lookup: %w", err)
	}

	scorecard, err := p.resolveScorecard(ctx, campaign)
	if err != nil {
		return "", fmt.Errorf("scorecard lookup: %w", err)
	}

	url := job.RecordingURL()
	if url == "" {
		return "", fmt.Errorf("row %d: %w", job.RowIndex, domain.ErrMissingRecording)
	}

	rec, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		return "", fmt.Errorf("fetch recording: %w", err)
	}

	var result *adapter.AnalysisResult
	err = p.retry.Do(ctx, func(ctx context.Context) error {
		r, aerr := p.analyzer.Analyze(ctx, adapter.AnalysisRequest{
			Recording:   rec.Data,
			ContentType: rec.ContentType,
			Criteria:    scorecard.Items,
			CampaignID:  campaign.ID,
			JobID:       job.ID,
			AgentName:   job.PayloadString("agent_name"),
		})
		result = r
		return aerr
	})
	if err != nil {
		return "", fmt.Errorf("analysis: %w", err)
	}

	audit := &model.CallAudit{
		ID:            ulid.Make().String(),
		CampaignID:    campaign.ID,
		JobID:         job.ID,
		AgentName:     job.PayloadString("agent_name"),
		CustomerPhone: job.PayloadString("customer_phone"),
		OverallScore:  result.OverallScore,
		Criteria:      result.Criteria,
		Transcript:    result.Transcript,
		Usage:         result.Usage,
		CreatedAt:     time.Now(),
	}
	if err := p.audits.Save(ctx, nil, audit); err != nil {
		return "", fmt.Errorf("save audit: %w", err)
	}
	return audit.ID, nil
}

// resolveScorecard falls back to the system default when the campaign does
// not link one (or links one that no longer exists).
func (p *Processor) resolveScorecard(ctx context.Context, campaign *model.Campaign) (*model.Scorecard, error) {
	if campaign.ScorecardID != "" {
		sc, err := p.scorecards.FindByID(ctx, nil, campaign.ScorecardID)
		if err == nil {
			return sc, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	return p.scorecards.FindDefault(ctx, nil)
}

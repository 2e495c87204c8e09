package sched

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"call-audit-platform/internal/domain/ports/repository"
	"call-audit-platform/internal/usecase"
)

// WorkerTrigger runs a bounded number of worker cycles; satisfied by
// worker.Processor.
type WorkerTrigger interface {
	RunCycles(ctx context.Context, maxCycles int) int
}

// Scheduler owns the cron entries: an optional scheduled worker run and a
// periodic reconciliation sweep that refreshes the snapshot of every
// unfinished campaign. The sweep repairs counters that drifted when a
// recompute after a job was lost.
type Scheduler struct {
	cron *cron.Cron
	log  *zerolog.Logger
}

func NewScheduler(
	workerSpec, reconcileSpec string,
	trigger WorkerTrigger,
	maxCycles int,
	campaigns repository.CampaignRepository,
	progress *usecase.ProgressUseCase,
	logger *zerolog.Logger,
) (*Scheduler, error) {
	l := logger.With().Str("component", "Scheduler").Logger()
	c := cron.New()

	if workerSpec != "" {
		_, err := c.AddFunc(workerSpec, func() {
			n := trigger.RunCycles(context.Background(), maxCycles)
			if n > 0 {
				l.Info().Int("jobs", n).Msg("scheduled worker run finished")
			}
		})
		if err != nil {
			return nil, err
		}
	}

	if reconcileSpec != "" {
		_, err := c.AddFunc(reconcileSpec, func() {
			ctx := context.Background()
			ids, err := campaigns.ListUnfinishedIDs(ctx, nil)
			if err != nil {
				l.Error().Err(err).Msg("reconcile sweep could not list campaigns")
				return
			}
			for _, id := range ids {
				if _, err := progress.Recompute(ctx, id); err != nil {
					l.Warn().Err(err).Str("campaign_id", id).Msg("reconcile recompute failed")
				}
			}
		})
		if err != nil {
			return nil, err
		}
	}

	return &Scheduler{cron: c, log: &l}, nil
}

func (s *Scheduler) Start() {
	s.log.Info().Msg("scheduler started")
	s.cron.Start()
}

// Stop halts scheduling and waits for running entries to return.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("scheduler stopped")
}

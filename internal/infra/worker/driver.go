package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

type cycleRunner interface {
	RunCycle(ctx context.Context) int
}

// Driver schedules cycles with an adaptive delay: productive cycles poll
// again after minDelay, idle cycles back off geometrically up to maxDelay.
type Driver struct {
	runner cycleRunner

	minDelay time.Duration
	maxDelay time.Duration
	factor   float64

	// workCtx scopes in-flight cycles. Cancelling Run's ctx stops scheduling
	// new cycles but lets the running one finish its claimed jobs.
	workCtx context.Context
	sleep   func(ctx context.Context, d time.Duration) error
	log     *zerolog.Logger
}

func NewDriver(runner cycleRunner, minDelay, maxDelay time.Duration, factor float64, logger *zerolog.Logger) *Driver {
	if minDelay <= 0 {
		minDelay = time.Second
	}
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	if factor <= 1 {
		factor = 2.0
	}
	l := logger.With().Str("component", "Driver").Logger()
	return &Driver{
		runner:   runner,
		minDelay: minDelay,
		maxDelay: maxDelay,
		factor:   factor,
		workCtx:  context.Background(),
		sleep:    sleepCtx,
		log:      &l,
	}
}

// Run loops until ctx is cancelled. Meant to be started in its own goroutine.
func (d *Driver) Run(ctx context.Context) {
	d.log.Info().Dur("min_delay", d.minDelay).Dur("max_delay", d.maxDelay).Msg("worker driver started")
	delay := d.minDelay
	for {
		if ctx.Err() != nil {
			d.log.Info().Msg("worker driver stopping")
			return
		}

		if n := d.runner.RunCycle(d.workCtx); n > 0 {
			delay = d.minDelay
		} else {
			delay = time.Duration(float64(delay) * d.factor)
			if delay > d.maxDelay {
				delay = d.maxDelay
			}
		}

		if err := d.sleep(ctx, delay); err != nil {
			d.log.Info().Msg("worker driver stopping")
			return
		}
	}
}

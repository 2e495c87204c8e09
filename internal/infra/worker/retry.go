package worker

import (
	"context"
	"time"

	"call-audit-platform/internal/domain"
	"call-audit-platform/internal/infra/metrics"
)

// RetryPolicy re-runs an operation when it fails with a rate-limit signal.
// Any other error is returned to the caller unchanged on the first attempt.
type RetryPolicy struct {
	maxRetries int
	baseDelay  time.Duration

	sleep func(ctx context.Context, d time.Duration) error
}

func NewRetryPolicy(maxRetries int, baseDelay time.Duration) *RetryPolicy {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	return &RetryPolicy{maxRetries: maxRetries, baseDelay: baseDelay, sleep: sleepCtx}
}

// Do runs fn up to 1+maxRetries times. Between attempts it waits the larger
// of the provider-suggested delay and the exponential backoff step.
func (p *RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		rl, ok := domain.AsRateLimited(err)
		if !ok || attempt >= p.maxRetries {
			return err
		}

		delay := p.baseDelay << attempt
		if rl.RetryAfter > delay {
			delay = rl.RetryAfter
		}
		metrics.IncAnalysisRetry()
		if serr := p.sleep(ctx, delay); serr != nil {
			return serr
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

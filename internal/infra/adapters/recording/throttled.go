package recording

import (
	"context"

	"call-audit-platform/internal/domain/ports/adapter"
	"call-audit-platform/internal/infra/ratelimit"
)

var _ adapter.RecordingFetcher = (*throttledFetcher)(nil)

type throttledFetcher struct {
	inner   adapter.RecordingFetcher
	limiter *ratelimit.SlidingWindow
}

// NewThrottledFetcher gates every fetch behind the sliding-window limiter.
func NewThrottledFetcher(inner adapter.RecordingFetcher, limiter *ratelimit.SlidingWindow) adapter.RecordingFetcher {
	if limiter == nil {
		return inner
	}
	return &throttledFetcher{inner: inner, limiter: limiter}
}

func (t *throttledFetcher) Fetch(ctx context.Context, url string) (*adapter.Recording, error) {
	if err := t.limiter.WaitForSlot(ctx); err != nil {
		return nil, err
	}
	return t.inner.Fetch(ctx, url)
}

package analysis

import (
	"context"

	"call-audit-platform/internal/domain/ports/adapter"
	"call-audit-platform/internal/infra/ratelimit"
)

// Compile-time check
var _ adapter.CallAnalyzer = (*throttledAnalyzer)(nil)

type throttledAnalyzer struct {
	inner   adapter.CallAnalyzer
	limiter *ratelimit.SlidingWindow
}

// NewThrottledAnalyzer gates every analysis call behind the sliding-window
// limiter shared by all workers in the process.
func NewThrottledAnalyzer(inner adapter.CallAnalyzer, limiter *ratelimit.SlidingWindow) adapter.CallAnalyzer {
	if limiter == nil {
		return inner
	}
	return &throttledAnalyzer{inner: inner, limiter: limiter}
}

func (t *throttledAnalyzer) Analyze(ctx context.Context, req adapter.AnalysisRequest) (*adapter.AnalysisResult, error) {
	if err := t.limiter.WaitForSlot(ctx); err != nil {
		return nil, err
	}
	return t.inner.Analyze(ctx, req)
}

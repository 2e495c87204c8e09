// File: internal/infra/ratelimit/sliding_window.go
package ratelimit

import (
	"context"
	"sync"
	"time"

	"call-audit-platform/internal/infra/metrics"
)

// SlidingWindow throttles calls to one external dependency class. At most
// maxRequests timestamped entries may fall inside any trailing window, not
// just aligned window boundaries. Construct one instance per dependency
// (analysis calls, recording fetches) and inject it where needed.
type SlidingWindow struct {
	name        string
	maxRequests int
	window      time.Duration

	mu     sync.Mutex
	stamps []time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewSlidingWindow(name string, maxRequests int, window time.Duration) *SlidingWindow {
	if maxRequests <= 0 {
		maxRequests = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &SlidingWindow{
		name:        name,
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
		sleep:       sleepCtx,
	}
}

// WaitForSlot blocks until the trailing window has room, then records an
// entry. Returns the context error if ctx is done first.
func (l *SlidingWindow) WaitForSlot(ctx context.Context) error {
	waited := false
	for {
		l.mu.Lock()
		now := l.now()
		l.prune(now)
		if len(l.stamps) < l.maxRequests {
			l.stamps = append(l.stamps, now)
			l.mu.Unlock()
			return nil
		}
		// The oldest entry leaving the window frees the next slot.
		wait := l.stamps[0].Add(l.window).Sub(now)
		l.mu.Unlock()

		if !waited {
			metrics.IncLimiterWait(l.name)
			waited = true
		}
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// prune drops entries older than the trailing window. Caller holds the lock.
func (l *SlidingWindow) prune(now time.Time) {
	i := 0
	for i < len(l.stamps) && now.Sub(l.stamps[i]) >= l.window {
		i++
	}
	if i > 0 {
		l.stamps = append(l.stamps[:0], l.stamps[i:]...)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		d = time.Millisecond
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

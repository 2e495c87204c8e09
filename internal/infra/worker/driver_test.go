package worker

import (
	"context"
	"testing"
	"time"
)

type scriptedRunner struct {
	results []int
	calls   int
}

func (s *scriptedRunner) RunCycle(ctx context.Context) int {
	if s.calls < len(s.results) {
		n := s.results[s.calls]
		s.calls++
		return n
	}
	s.calls++
	return 0
}

func runDriver(t *testing.T, runner *scriptedRunner, cycles int) []time.Duration {
	t.Helper()
	d := NewDriver(runner, time.Second, 8*time.Second, 2.0, testLogger())
	ctx, cancel := context.WithCancel(context.Background())

	var delays []time.Duration
	d.sleep = func(ctx context.Context, delay time.Duration) error {
		delays = append(delays, delay)
		if len(delays) >= cycles {
			cancel()
			return ctx.Err()
		}
		return nil
	}
	d.Run(ctx)
	return delays
}

func TestDriver_Run(t *testing.T) {
	t.Run("idle cycles back off geometrically up to the cap", func(t *testing.T) {
		delays := runDriver(t, &scriptedRunner{}, 5)
		want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second, 8 * time.Second, 8 * time.Second}
		if len(delays) != len(want) {
			t.Fatalf("delays = %v, want %v", delays, want)
		}
		for i := range want {
			if delays[i] != want[i] {
				t.Fatalf("delays[%d] = %v, want %v", i, delays[i], want[i])
			}
		}
	})

	t.Run("productive cycle resets the delay", func(t *testing.T) {
		// idle, idle, productive, idle
		delays := runDriver(t, &scriptedRunner{results: []int{0, 0, 3, 0}}, 4)
		want := []time.Duration{2 * time.Second, 4 * time.Second, time.Second, 2 * time.Second}
		for i := range want {
			if delays[i] != want[i] {
				t.Fatalf("delays[%d] = %v, want %v", i, delays[i], want[i])
			}
		}
	})

	t.Run("stops promptly on cancel", func(t *testing.T) {
		d := NewDriver(&scriptedRunner{}, time.Millisecond, time.Millisecond, 2.0, testLogger())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		done := make(chan struct{})
		go func() {
			d.Run(ctx)
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("driver did not stop after cancel")
		}
	})
}

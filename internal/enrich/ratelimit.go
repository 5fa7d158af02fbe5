package enrich

import (
	"context"
	"time"
)

// SleepWithContext blocks for the given duration, returning early if the
// context is cancelled.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// pacer enforces per-provider minimum intervals between outbound calls.
// Single-writer: only the job loop touches it.
type pacer struct {
	last map[string]time.Time
}

func newPacer() *pacer {
	return &pacer{last: make(map[string]time.Time)}
}

// wait sleeps until the provider's delay has elapsed since its last call,
// then stamps the call time.
func (p *pacer) wait(ctx context.Context, provider string, delay time.Duration) error {
	if last, ok := p.last[provider]; ok {
		if remaining := delay - time.Since(last); remaining > 0 {
			if err := SleepWithContext(ctx, remaining); err != nil {
				return err
			}
		}
	}
	p.last[provider] = time.Now()
	return nil
}

package fetch

import (
	"context"
	"log/slog"
	"time"
)

// Policy retries transient failures with linear backoff: the wait before
// retry N is BaseDelay multiplied by N. Context cancellation is honored
// between attempts.
type Policy struct {
	Attempts  int           // total attempts including the first. Default: 3.
	BaseDelay time.Duration // backoff unit. Default: 2s.
	Logger    *slog.Logger  // may be nil for silent retries.

	// sleep is swapped in tests to observe the backoff schedule.
	sleep func(context.Context, time.Duration) error
}

func (p *Policy) defaults() {
	if p.Attempts <= 0 {
		p.Attempts = 3
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 2 * time.Second
	}
	if p.sleep == nil {
		p.sleep = sleepCtx
	}
}

// Do runs fn until it succeeds or the attempt budget is spent. The last
// error is returned verbatim so callers can inspect it.
func (p Policy) Do(ctx context.Context, fn func(context.Context) error) error {
	p.defaults()
	var lastErr error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return lastErr
		}
		if attempt < p.Attempts {
			wait := p.BaseDelay * time.Duration(attempt)
			if p.Logger != nil {
				p.Logger.WarnContext(ctx, "retrying fetch",
					"attempt", attempt,
					"max_attempts", p.Attempts,
					"backoff_ms", wait.Milliseconds(),
					"error", lastErr)
			}
			if err := p.sleep(ctx, wait); err != nil {
				return lastErr
			}
		}
	}
	return lastErr
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

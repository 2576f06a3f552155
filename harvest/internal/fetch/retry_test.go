package fetch

import (
	"context"
	"errors"
	"testing"
	"time"
)

// WHAT: the backoff ladder is linear, base times attempt number.
// WHY: two transient failures before success must sleep base*1 then base*2.
func TestRetryLinearBackoff(t *testing.T) {
	var slept []time.Duration
	p := Policy{
		Attempts:  3,
		BaseDelay: 100 * time.Millisecond,
		sleep: func(_ context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		},
	}

	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}
	if len(slept) != len(want) {
		t.Fatalf("slept %v, want %v", slept, want)
	}
	for i := range want {
		if slept[i] != want[i] {
			t.Fatalf("sleep %d = %v, want %v", i, slept[i], want[i])
		}
	}
}

// WHAT: success on the first attempt never sleeps.
func TestRetryNoBackoffOnSuccess(t *testing.T) {
	p := Policy{
		Attempts:  3,
		BaseDelay: time.Hour,
		sleep: func(context.Context, time.Duration) error {
			t.Fatal("slept on immediate success")
			return nil
		},
	}
	if err := p.Do(context.Background(), func(context.Context) error { return nil }); err != nil {
		t.Fatalf("Do: %v", err)
	}
}

// WHAT: the budget exhausts and the last error surfaces.
func TestRetryExhaustion(t *testing.T) {
	sentinel := errors.New("still down")
	p := Policy{
		Attempts:  3,
		BaseDelay: time.Millisecond,
		sleep:     func(context.Context, time.Duration) error { return nil },
	}
	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("err = %v, want sentinel", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

// WHAT: a canceled context stops the loop between attempts.
// WHY: SIGINT during a long run must not burn the remaining retry budget.
func TestRetryRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{
		Attempts:  5,
		BaseDelay: time.Millisecond,
		sleep:     func(ctx context.Context, _ time.Duration) error { return ctx.Err() },
	}
	calls := 0
	err := p.Do(ctx, func(context.Context) error {
		calls++
		cancel()
		return errors.New("transient")
	})
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

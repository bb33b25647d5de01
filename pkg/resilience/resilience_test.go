package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/VSOCLabs/copilot-mvp/pkg/fn"
)

var errBoom = errors.New("boom")

func failing(_ context.Context) error    { return errBoom }
func succeeding(_ context.Context) error { return nil }

// --- circuit breaker ---

func TestBreakerTripsAfterThreshold(t *testing.T) {
	b := NewBreaker(BreakerOpts{Threshold: 3, Cooldown: time.Minute})

	for i := 0; i < 3; i++ {
		if err := b.Call(context.Background(), failing); !errors.Is(err, errBoom) {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if b.State() != "open" {
		t.Fatalf("state = %q, want open", b.State())
	}
	if err := b.Call(context.Background(), succeeding); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("open breaker should reject: %v", err)
	}
}

func TestBreakerSuccessResetsCount(t *testing.T) {
	b := NewBreaker(BreakerOpts{Threshold: 2, Cooldown: time.Minute})

	b.Call(context.Background(), failing)
	b.Call(context.Background(), succeeding)
	b.Call(context.Background(), failing)
	if b.State() != "closed" {
		t.Fatal("interleaved success should reset the failure count")
	}
}

func TestBreakerProbeRecovery(t *testing.T) {
	b := NewBreaker(BreakerOpts{Threshold: 1, Cooldown: time.Minute})
	now := time.Now()
	b.now = func() time.Time { return now }

	b.Call(context.Background(), failing)
	if b.State() != "open" {
		t.Fatal("breaker should be open")
	}

	now = now.Add(2 * time.Minute)
	if b.State() != "half-open" {
		t.Fatal("breaker should be half-open after the cooldown")
	}
	if err := b.Call(context.Background(), succeeding); err != nil {
		t.Fatalf("probe call: %v", err)
	}
	if b.State() != "closed" {
		t.Fatal("successful probe should close the breaker")
	}
}

func TestBreakerProbeFailureReopens(t *testing.T) {
	b := NewBreaker(BreakerOpts{Threshold: 1, Cooldown: time.Minute})
	now := time.Now()
	b.now = func() time.Time { return now }

	b.Call(context.Background(), failing)
	now = now.Add(2 * time.Minute)

	if err := b.Call(context.Background(), failing); !errors.Is(err, errBoom) {
		t.Fatalf("probe: %v", err)
	}
	if b.State() != "open" {
		t.Fatal("failed probe should reopen the breaker")
	}
}

func TestBreakerZeroOptsDefaults(t *testing.T) {
	b := NewBreaker(BreakerOpts{})
	if b.opts.Threshold != DefaultBreakerOpts.Threshold || b.opts.Cooldown != DefaultBreakerOpts.Cooldown {
		t.Fatalf("opts = %+v", b.opts)
	}
}

// --- rate limiter ---

func TestLimiterAllow(t *testing.T) {
	l := NewLimiter(LimiterOpts{Rate: 1, Burst: 2})
	if !l.Allow() || !l.Allow() {
		t.Fatal("burst tokens should be available")
	}
	if l.Allow() {
		t.Fatal("bucket should be drained")
	}
}

func TestLimiterCall(t *testing.T) {
	l := NewLimiter(LimiterOpts{Rate: 0.001, Burst: 1})
	if err := l.Call(context.Background(), succeeding); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if err := l.Call(context.Background(), succeeding); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("drained limiter should reject: %v", err)
	}
}

func TestLimiterWaitCancelled(t *testing.T) {
	l := NewLimiter(LimiterOpts{Rate: 0.001, Burst: 1})
	l.Allow() // drain

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx); err == nil {
		t.Fatal("wait should fail on context expiry")
	}
}

func TestLimiterStage(t *testing.T) {
	l := NewLimiter(LimiterOpts{Rate: 0.001, Burst: 1})
	stage := LimiterStage(l, func(_ context.Context, v int) fn.Result[int] { return fn.Ok(v) })

	if stage(context.Background(), 1).IsErr() {
		t.Fatal("first call should pass")
	}
	r := stage(context.Background(), 2)
	if _, err := r.Unwrap(); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("got %v", err)
	}
}

package fn

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"testing"
	"time"
)

// --- Result ---

func TestOkAndErr(t *testing.T) {
	r := Ok(42)
	if !r.IsOk() || r.IsErr() {
		t.Fatal("Ok should be ok")
	}
	v, err := r.Unwrap()
	if v != 42 || err != nil {
		t.Fatal("wrong unwrap")
	}

	e := Err[int](errors.New("fail"))
	if e.IsOk() || !e.IsErr() {
		t.Fatal("Err should be err")
	}
}

func TestFromPair(t *testing.T) {
	if FromPair(1, nil).IsErr() {
		t.Fatal("nil error should be Ok")
	}
	if FromPair(0, errors.New("x")).IsOk() {
		t.Fatal("non-nil error should be Err")
	}
}

// --- Stage composition ---

func TestThen(t *testing.T) {
	double := func(_ context.Context, v int) Result[int] { return Ok(v * 2) }
	toStr := func(_ context.Context, v int) Result[string] { return Ok(strconv.Itoa(v)) }

	r := Then(double, toStr)(context.Background(), 21)
	if v, _ := r.Unwrap(); v != "42" {
		t.Fatalf("got %q", v)
	}
}

func TestThenShortCircuits(t *testing.T) {
	boom := errors.New("boom")
	first := func(_ context.Context, _ int) Result[int] { return Err[int](boom) }
	called := false
	second := func(_ context.Context, v int) Result[int] { called = true; return Ok(v) }

	r := Then(first, second)(context.Background(), 1)
	if _, err := r.Unwrap(); !errors.Is(err, boom) {
		t.Fatal("error lost")
	}
	if called {
		t.Fatal("second stage should not run")
	}
}

func TestTapStage(t *testing.T) {
	var seen int
	tap := TapStage(func(_ context.Context, v int) { seen = v })
	if v, _ := tap(context.Background(), 5).Unwrap(); v != 5 || seen != 5 {
		t.Fatal("tap should pass through and observe")
	}
}

func TestTracedStagePassesThrough(t *testing.T) {
	stage := TracedStage("test", func(_ context.Context, v int) Result[int] { return Ok(v * 2) })
	if v, _ := stage(context.Background(), 4).Unwrap(); v != 8 {
		t.Fatal("traced stage changed the value")
	}
	failing := TracedStage("test", func(_ context.Context, _ int) Result[int] {
		return Err[int](errors.New("x"))
	})
	if failing(context.Background(), 1).IsOk() {
		t.Fatal("traced stage swallowed the error")
	}
}

// --- Retry ---

func TestRetrySucceedsEventually(t *testing.T) {
	var calls atomic.Int32
	opts := RetryOpts{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: time.Millisecond}

	r := Retry(context.Background(), opts, func(_ context.Context) Result[int] {
		if calls.Add(1) < 3 {
			return Err[int](errors.New("transient"))
		}
		return Ok(7)
	})
	if v, _ := r.Unwrap(); v != 7 || calls.Load() != 3 {
		t.Fatalf("v=%d calls=%d", v, calls.Load())
	}
}

func TestRetryExhausts(t *testing.T) {
	var calls atomic.Int32
	opts := RetryOpts{MaxAttempts: 2, InitialWait: time.Millisecond, MaxWait: time.Millisecond}

	r := Retry(context.Background(), opts, func(_ context.Context) Result[int] {
		calls.Add(1)
		return Err[int](errors.New("permanent"))
	})
	if r.IsOk() || calls.Load() != 2 {
		t.Fatalf("calls=%d", calls.Load())
	}
}

func TestRetryHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	opts := RetryOpts{MaxAttempts: 5, InitialWait: time.Hour, MaxWait: time.Hour}

	r := Retry(ctx, opts, func(_ context.Context) Result[int] {
		return Err[int](errors.New("x"))
	})
	if _, err := r.Unwrap(); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v", err)
	}
}

func TestRetryZeroAttemptsRunsOnce(t *testing.T) {
	var calls atomic.Int32
	Retry(context.Background(), RetryOpts{}, func(_ context.Context) Result[int] {
		calls.Add(1)
		return Err[int](errors.New("x"))
	})
	if calls.Load() != 1 {
		t.Fatalf("calls=%d", calls.Load())
	}
}

// --- slices ---

func TestMap(t *testing.T) {
	got := Map([]int{1, 2, 3}, strconv.Itoa)
	if len(got) != 3 || got[2] != "3" {
		t.Fatalf("got %v", got)
	}
}

func TestUnique(t *testing.T) {
	got := Unique([]string{"a", "b", "a", "c", "b"})
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("got %v", got)
	}
}

// Package resilience guards the engine's calls to slow external services:
// a consecutive-failure circuit breaker for vector index queries and a
// token bucket rate limiter for embedding calls.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned while the breaker is cooling down.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// BreakerOpts configures the circuit breaker.
type BreakerOpts struct {
	// Threshold is the consecutive-failure count that opens the breaker.
	Threshold int
	// Cooldown is how long the breaker rejects calls before letting a
	// single probe through.
	Cooldown time.Duration
}

// DefaultBreakerOpts: five consecutive index failures stop querying for
// thirty seconds, during which retrieval degrades to the empty-match path.
var DefaultBreakerOpts = BreakerOpts{
	Threshold: 5,
	Cooldown:  30 * time.Second,
}

// Breaker is a consecutive-failure circuit breaker. Closed until Threshold
// failures in a row; then open for Cooldown; then a single probe call
// decides whether it closes again or reopens.
type Breaker struct {
	mu       sync.Mutex
	opts     BreakerOpts
	failures int
	openedAt time.Time // zero while closed
	probing  bool
	now      func() time.Time // for testing
}

// NewBreaker creates a Breaker. Zero option fields fall back to defaults.
func NewBreaker(opts BreakerOpts) *Breaker {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultBreakerOpts.Threshold
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = DefaultBreakerOpts.Cooldown
	}
	return &Breaker{opts: opts, now: time.Now}
}

// State reports "closed", "open", or "half-open".
func (b *Breaker) State() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case b.openedAt.IsZero():
		return "closed"
	case b.now().Sub(b.openedAt) < b.opts.Cooldown:
		return "open"
	default:
		return "half-open"
	}
}

// Call runs f through the breaker: rejected with ErrCircuitOpen while
// open, counted toward the failure threshold otherwise.
func (b *Breaker) Call(ctx context.Context, f func(context.Context) error) error {
	if err := b.acquire(); err != nil {
		return err
	}
	err := f(ctx)
	b.settle(err)
	return err
}

// acquire admits the call, or rejects it while the breaker is open.
func (b *Breaker) acquire() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.openedAt.IsZero() {
		return nil
	}
	if b.now().Sub(b.openedAt) < b.opts.Cooldown {
		return ErrCircuitOpen
	}
	// Cooldown elapsed: one probe at a time.
	if b.probing {
		return ErrCircuitOpen
	}
	b.probing = true
	return nil
}

// settle records the call outcome. A failed probe, or Threshold
// consecutive failures, (re)opens the breaker.
func (b *Breaker) settle(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	probe := b.probing
	b.probing = false

	if err == nil {
		b.failures = 0
		b.openedAt = time.Time{}
		return
	}
	b.failures++
	if probe || b.failures >= b.opts.Threshold {
		b.openedAt = b.now()
		b.failures = 0
	}
}

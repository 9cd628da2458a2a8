// Package resilience provides a circuit breaker for flaky upstream calls.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ryanDing26/career-gpt/pkg/fn"
)

// State is the breaker position.
type State int

const (
	StateClosed   State = iota // calls flow
	StateOpen                  // calls rejected
	StateHalfOpen              // limited probe calls
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// BreakerOpts configures trip behaviour.
type BreakerOpts struct {
	// FailThreshold is the consecutive failure count that trips the breaker.
	FailThreshold int
	// Cooldown is how long the breaker stays open before probing.
	Cooldown time.Duration
	// HalfOpenMax is how many probe calls half-open admits.
	HalfOpenMax int
}

// DefaultBreakerOpts suit a remote inference API.
var DefaultBreakerOpts = BreakerOpts{
	FailThreshold: 5,
	Cooldown:      30 * time.Second,
	HalfOpenMax:   1,
}

// Breaker is a closed/open/half-open circuit breaker.
type Breaker struct {
	mu       sync.Mutex
	opts     BreakerOpts
	state    State
	failures int
	openedAt time.Time
	probes   int
	now      func() time.Time // for testing
}

// NewBreaker creates a Breaker; non-positive options fall back to defaults.
func NewBreaker(opts BreakerOpts) *Breaker {
	if opts.FailThreshold <= 0 {
		opts.FailThreshold = DefaultBreakerOpts.FailThreshold
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = DefaultBreakerOpts.Cooldown
	}
	if opts.HalfOpenMax <= 0 {
		opts.HalfOpenMax = DefaultBreakerOpts.HalfOpenMax
	}
	return &Breaker{opts: opts, now: time.Now}
}

// State reports the current position, transitioning open to half-open when
// the cooldown has elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current()
}

// current must be called with mu held.
func (b *Breaker) current() State {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.opts.Cooldown {
		b.state = StateHalfOpen
		b.probes = 0
	}
	return b.state
}

// admit reserves a slot for one call, or returns ErrCircuitOpen.
func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.current() {
	case StateOpen:
		return ErrCircuitOpen
	case StateHalfOpen:
		if b.probes >= b.opts.HalfOpenMax {
			return ErrCircuitOpen
		}
		b.probes++
	}
	return nil
}

// settle records a call outcome.
func (b *Breaker) settle(failed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if failed {
		b.failures++
		if b.state == StateHalfOpen || b.failures >= b.opts.FailThreshold {
			b.state = StateOpen
			b.openedAt = b.now()
			b.failures = 0
			b.probes = 0
		}
		return
	}
	if b.state == StateHalfOpen {
		b.state = StateClosed
	}
	b.failures = 0
}

// Call runs f through the breaker.
func (b *Breaker) Call(ctx context.Context, f func(context.Context) error) error {
	if err := b.admit(); err != nil {
		return err
	}
	err := f(ctx)
	b.settle(err != nil)
	return err
}

// CallResult runs a Result-returning function through the breaker.
func CallResult[T any](b *Breaker, ctx context.Context, f func(context.Context) fn.Result[T]) fn.Result[T] {
	if err := b.admit(); err != nil {
		return fn.Err[T](err)
	}
	r := f(ctx)
	b.settle(r.IsErr())
	return r
}

// BreakerStage wraps a pipeline stage with breaker protection.
func BreakerStage[In, Out any](b *Breaker, stage fn.Stage[In, Out]) fn.Stage[In, Out] {
	return func(ctx context.Context, in In) fn.Result[Out] {
		return CallResult(b, ctx, func(ctx context.Context) fn.Result[Out] {
			return stage(ctx, in)
		})
	}
}

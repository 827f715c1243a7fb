// Package breaker implements a per-collaborator circuit breaker guarding
// calls to external collaborators (embedder, vector store, reranker,
// external checkers) against cascading stalls.
package breaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gofer-dev/gofer/internal/logging"
)

// ErrOpen is returned when a call is rejected because the breaker is open.
var ErrOpen = errors.New("breaker: circuit open")

// State is one of the three circuit-breaker states.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Config controls the failure threshold and cooldown window.
type Config struct {
	// Name identifies the breaker in logs and audit events.
	Name string

	// FailureThreshold is the number of consecutive failures that trips
	// the breaker from Closed to Open.
	FailureThreshold int

	// Cooldown is how long the breaker stays Open before admitting a
	// single HalfOpen probe.
	Cooldown time.Duration
}

// Breaker guards calls to a single external collaborator.
type Breaker struct {
	cfg Config

	mu           sync.Mutex
	state        State
	failureCount int
	openUntil    time.Time
	probeInFlight bool
}

// New creates a breaker in the Closed state.
func New(cfg Config) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	return &Breaker{cfg: cfg, state: Closed}
}

// State returns the breaker's current state, resolving Open -> HalfOpen
// transition as a side effect of observing elapsed cooldown.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeArmHalfOpen()
	return b.state
}

// maybeArmHalfOpen must be called with b.mu held.
func (b *Breaker) maybeArmHalfOpen() {
	if b.state == Open && !time.Now().Before(b.openUntil) {
		b.state = HalfOpen
	}
}

// admit decides whether the caller may proceed, returning ErrOpen if not.
// Exactly one concurrent caller is admitted as a HalfOpen probe.
func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.maybeArmHalfOpen()

	switch b.state {
	case Closed:
		return nil
	case HalfOpen:
		if b.probeInFlight {
			return ErrOpen
		}
		b.probeInFlight = true
		return nil
	default: // Open
		return ErrOpen
	}
}

func (b *Breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	wasHalfOpen := b.state == HalfOpen
	b.state = Closed
	b.failureCount = 0
	b.probeInFlight = false

	if wasHalfOpen {
		logging.Breaker("breaker %q: probe succeeded, closing", b.cfg.Name)
		logging.AuditWithRequest("system", logging.CategoryBreaker).BreakerClosed(b.cfg.Name)
	}
}

func (b *Breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == HalfOpen {
		b.probeInFlight = false
		b.openUntil = time.Now().Add(b.cfg.Cooldown)
		b.state = Open
		logging.Breaker("breaker %q: probe failed, reopening for %v", b.cfg.Name, b.cfg.Cooldown)
		return
	}

	b.failureCount++
	if b.failureCount >= b.cfg.FailureThreshold {
		b.state = Open
		b.openUntil = time.Now().Add(b.cfg.Cooldown)
		logging.Breaker("breaker %q: tripped after %d failures, open until %v", b.cfg.Name, b.failureCount, b.openUntil)
		logging.AuditWithRequest("system", logging.CategoryBreaker).BreakerOpened(b.cfg.Name, b.failureCount)
	}
}

// Call runs op if the breaker admits the call, recording the outcome.
// Returns ErrOpen without running op if the breaker rejects the call.
func (b *Breaker) Call(ctx context.Context, op func(ctx context.Context) error) error {
	if err := b.admit(); err != nil {
		return err
	}

	err := op(ctx)
	if err != nil {
		b.recordFailure()
		return err
	}
	b.recordSuccess()
	return nil
}

// CallValue runs op, returning its value, mirroring Call's admission and
// outcome-recording semantics for collaborators that return a result.
func CallValue[T any](ctx context.Context, b *Breaker, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := b.admit(); err != nil {
		return zero, err
	}

	v, err := op(ctx)
	if err != nil {
		b.recordFailure()
		return zero, err
	}
	b.recordSuccess()
	return v, nil
}

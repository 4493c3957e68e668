package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// State is the breaker's position.
type State int

const (
	Closed   State = iota // requests pass through
	Open                  // requests fail fast
	HalfOpen              // probing recovery with a single request
)

// ErrOpen is returned when the breaker rejects a call without running it.
var ErrOpen = errors.New("circuit breaker open")

// Breaker trips after a run of consecutive failures and fails fast until a
// probe succeeds. It shields the snapshot recompute path from hammering a
// struggling database.
type Breaker struct {
	mu          sync.Mutex
	state       State
	failures    int
	maxFailures int
	cooldown    time.Duration
	openedAt    time.Time
}

// New creates a Breaker that opens after maxFailures consecutive errors and
// allows a probe call once cooldown has elapsed.
func New(maxFailures int, cooldown time.Duration) *Breaker {
	return &Breaker{state: Closed, maxFailures: maxFailures, cooldown: cooldown}
}

// Execute runs fn unless the breaker is open. The probe call in half-open
// state closes the breaker on success and re-opens it on failure.
func (b *Breaker) Execute(fn func() error) error {
	b.mu.Lock()
	if b.state == Open {
		if time.Since(b.openedAt) <= b.cooldown {
			b.mu.Unlock()
			return ErrOpen
		}
		b.state = HalfOpen
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.failures++
		b.openedAt = time.Now()
		if b.failures >= b.maxFailures || b.state == HalfOpen {
			b.state = Open
		}
		return err
	}
	b.failures = 0
	b.state = Closed
	return nil
}

// CurrentState returns the breaker's state.
func (b *Breaker) CurrentState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

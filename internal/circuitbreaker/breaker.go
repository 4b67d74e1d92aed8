// Package circuitbreaker guards calls to flaky upstreams, keyed by upstream
// name. A key trips open after a run of consecutive failures, rejects calls
// while open and admits a single trial call once the cool-down has passed.
package circuitbreaker

import (
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	StateClosed   State = iota // calls flow through
	StateOpen                  // calls are rejected
	StateHalfOpen              // one trial call in flight
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Defaults used when New receives non-positive values.
const (
	DefaultThreshold    = 5
	DefaultOpenDuration = 30 * time.Second
)

// Transition describes one state change of a key.
type Transition struct {
	Key  string
	From State
	To   State
	At   time.Time
}

type circuit struct {
	state    State
	failures int
	openedAt time.Time
}

// Breaker holds one circuit per key. Listeners registered with OnTransition
// run synchronously after the breaker's lock is released.
type Breaker struct {
	mu           sync.Mutex
	circuits     map[string]*circuit
	threshold    int
	openDuration time.Duration
	now          func() time.Time
	listeners    []func(Transition)
}

// New creates a circuit breaker.
func New(threshold int, openDuration time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if openDuration <= 0 {
		openDuration = DefaultOpenDuration
	}
	return &Breaker{
		circuits:     make(map[string]*circuit),
		threshold:    threshold,
		openDuration: openDuration,
		now:          time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (b *Breaker) WithClock(now func() time.Time) *Breaker {
	b.mu.Lock()
	b.now = now
	b.mu.Unlock()
	return b
}

// OnTransition adds a listener for state changes.
func (b *Breaker) OnTransition(fn func(Transition)) {
	b.mu.Lock()
	b.listeners = append(b.listeners, fn)
	b.mu.Unlock()
}

// Allow reports whether a call for key may proceed. The first call after
// the cool-down moves the circuit to half-open and is the only one admitted
// until its outcome is recorded.
func (b *Breaker) Allow(key string) bool {
	b.mu.Lock()
	c, ok := b.circuits[key]
	if !ok {
		b.mu.Unlock()
		return true
	}

	var (
		allowed bool
		tr      *Transition
	)
	switch c.state {
	case StateOpen:
		if b.now().Sub(c.openedAt) >= b.openDuration {
			tr = b.move(c, key, StateHalfOpen)
			allowed = true
		}
	case StateHalfOpen:
	default:
		allowed = true
	}
	b.mu.Unlock()

	b.notify(tr)
	return allowed
}

// RecordSuccess resets the failure run and closes a half-open circuit.
func (b *Breaker) RecordSuccess(key string) {
	b.mu.Lock()
	c, ok := b.circuits[key]
	if !ok {
		b.mu.Unlock()
		return
	}
	c.failures = 0
	var tr *Transition
	if c.state == StateHalfOpen {
		tr = b.move(c, key, StateClosed)
	}
	b.mu.Unlock()

	b.notify(tr)
}

// RecordFailure extends the failure run. A failed trial call reopens the
// circuit immediately; a closed circuit opens at the threshold.
func (b *Breaker) RecordFailure(key string) {
	b.mu.Lock()
	c, ok := b.circuits[key]
	if !ok {
		c = &circuit{state: StateClosed}
		b.circuits[key] = c
	}
	c.failures++

	var tr *Transition
	if c.state == StateHalfOpen || (c.state == StateClosed && c.failures >= b.threshold) {
		tr = b.move(c, key, StateOpen)
	}
	b.mu.Unlock()

	b.notify(tr)
}

// State returns the current state for a key.
func (b *Breaker) State(key string) State {
	b.mu.Lock()
	defer b.mu.Unlock()

	if c, ok := b.circuits[key]; ok {
		return c.state
	}
	return StateClosed
}

// OpenCount returns how many keys are not closed.
func (b *Breaker) OpenCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for _, c := range b.circuits {
		if c.state != StateClosed {
			n++
		}
	}
	return n
}

// move changes state. Caller holds b.mu.
func (b *Breaker) move(c *circuit, key string, to State) *Transition {
	if c.state == to {
		return nil
	}
	tr := &Transition{Key: key, From: c.state, To: to, At: b.now()}
	c.state = to
	if to == StateOpen {
		c.openedAt = tr.At
	}
	return tr
}

func (b *Breaker) notify(tr *Transition) {
	if tr == nil {
		return
	}
	b.mu.Lock()
	listeners := b.listeners
	b.mu.Unlock()
	for _, fn := range listeners {
		fn(*tr)
	}
}

package rpc

import (
	"fmt"
	"sync"
	"time"

	"parity-league/internal/protocol"
	"parity-league/models"
)

// Breaker states.
const (
	BreakerClosed   = "closed"
	BreakerOpen     = "open"
	BreakerHalfOpen = "half_open"
)

const (
	defaultBreakerThreshold = 5
	defaultBreakerCooldown  = 30 * time.Second
)

// Breaker is a per-target circuit breaker. Consecutive transport failures
// open the circuit; while open, calls fail fast without touching the wire.
// After the cooldown a single trial call is let through: success closes the
// circuit, failure re-opens it.
type Breaker struct {
	mu        sync.Mutex
	target    string
	threshold int
	cooldown  time.Duration
	failures  int
	state     string
	openedAt  time.Time
	trial     bool
	onChange  func(target, state string)
	now       func() time.Time
}

// NewBreaker returns a closed breaker for the given target. onChange, if
// non-nil, is invoked on every state transition.
func NewBreaker(target string, threshold int, cooldown time.Duration, onChange func(target, state string)) *Breaker {
	if threshold <= 0 {
		threshold = defaultBreakerThreshold
	}
	if cooldown <= 0 {
		cooldown = defaultBreakerCooldown
	}
	return &Breaker{
		target:    target,
		threshold: threshold,
		cooldown:  cooldown,
		state:     BreakerClosed,
		onChange:  onChange,
		now:       time.Now,
	}
}

// Allow reports whether a call to the target may proceed. While the circuit
// is open it returns a CONNECTION_REFUSED error without any network I/O.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		return nil
	case BreakerOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return protocol.Errorf(protocol.KindConnectionRefused, "circuit open for %s", b.target)
		}
		b.setState(BreakerHalfOpen)
		b.trial = true
		return nil
	case BreakerHalfOpen:
		if b.trial {
			return protocol.Errorf(protocol.KindConnectionRefused, "circuit half-open for %s, trial in flight", b.target)
		}
		b.trial = true
		return nil
	default:
		return fmt.Errorf("unknown breaker state %q", b.state)
	}
}

// Record feeds the outcome of a call back into the breaker. Only transport
// outcomes count: a domain error from a responsive peer is a success here.
func (b *Breaker) Record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if success {
		b.failures = 0
		b.trial = false
		if b.state != BreakerClosed {
			b.setState(BreakerClosed)
		}
		return
	}

	b.trial = false
	b.failures++
	if b.state == BreakerHalfOpen || (b.state == BreakerClosed && b.failures >= b.threshold) {
		b.openedAt = b.now()
		b.setState(BreakerOpen)
	}
}

// State returns the current breaker state.
func (b *Breaker) State() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// BreakerEvents adapts an event publisher into an OnBreakerChange hook.
// Open and half-open both surface as breaker.open; only a fully closed
// circuit publishes breaker.closed.
func BreakerEvents(tournamentID string, emit func(models.Event)) func(target, state string) {
	if emit == nil {
		return nil
	}
	return func(target, state string) {
		kind := models.EventBreakerOpen
		if state == BreakerClosed {
			kind = models.EventBreakerClosed
		}
		emit(models.NewEvent(kind, tournamentID, models.BreakerData{Target: target, State: state}))
	}
}

func (b *Breaker) setState(state string) {
	b.state = state
	if b.onChange != nil {
		go b.onChange(b.target, state)
	}
}

// Package circuitbreaker stops callers from hammering a dependency that is
// already failing, such as the indexer query API.
package circuitbreaker

import (
	"errors"
	"sync"
	"time"

	"github.com/emperorhan/oilube/internal/metrics"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

type Config struct {
	// Name labels the state gauge. Empty disables the gauge.
	Name string
	// FailureThreshold consecutive counted failures open the breaker. Default 5.
	FailureThreshold int
	// SuccessThreshold half-open successes close it again. Default 2.
	SuccessThreshold int
	// OpenTimeout is how long the breaker rejects calls before probing. Default 30s.
	OpenTimeout   time.Duration
	OnStateChange func(from, to State)
	Now           func() time.Time
}

// Breaker admits a single probe at a time while half-open; concurrent calls
// during a probe are rejected as if the breaker were open.
type Breaker struct {
	cfg Config

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	openedAt  time.Time
	probing   bool
}

func New(cfg Config) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	b := &Breaker{cfg: cfg}
	b.publish()
	return b
}

// Execute runs fn unless the breaker rejects the call. Errors for which
// countable returns false (a 404 from a healthy server, say) are returned
// as-is and count as successes. A nil countable counts every error.
func (b *Breaker) Execute(fn func() error, countable func(error) bool) error {
	probe, err := b.admit()
	if err != nil {
		return err
	}
	callErr := fn()
	b.settle(probe, callErr != nil && (countable == nil || countable(callErr)))
	return callErr
}

// State reports the current state, moving an expired open breaker to
// half-open.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.expireLocked()
	return b.state
}

func (b *Breaker) admit() (probe bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.expireLocked()
	switch b.state {
	case StateOpen:
		return false, ErrCircuitOpen
	case StateHalfOpen:
		if b.probing {
			return false, ErrCircuitOpen
		}
		b.probing = true
		return true, nil
	}
	return false, nil
}

func (b *Breaker) settle(probe, failed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if probe {
		b.probing = false
	}

	if failed {
		b.successes = 0
		b.failures++
		if b.state == StateHalfOpen || b.failures >= b.cfg.FailureThreshold {
			b.openedAt = b.cfg.Now()
			b.moveLocked(StateOpen)
		}
		return
	}

	b.failures = 0
	if b.state == StateHalfOpen {
		b.successes++
		if b.successes >= b.cfg.SuccessThreshold {
			b.moveLocked(StateClosed)
		}
	}
}

func (b *Breaker) expireLocked() {
	if b.state == StateOpen && b.cfg.Now().Sub(b.openedAt) >= b.cfg.OpenTimeout {
		b.moveLocked(StateHalfOpen)
	}
}

func (b *Breaker) moveLocked(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	b.successes = 0
	b.probing = false
	if to == StateClosed {
		b.failures = 0
	}
	b.publish()
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(from, to)
	}
}

func (b *Breaker) publish() {
	if b.cfg.Name != "" {
		metrics.CircuitBreakerState.WithLabelValues(b.cfg.Name).Set(float64(b.state))
	}
}

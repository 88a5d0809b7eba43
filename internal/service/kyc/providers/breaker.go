package providers

import (
	"sync"
	"time"
)

// CircuitState represents the state of a circuit breaker
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitConfig contains circuit breaker configuration
type CircuitConfig struct {
	FailureThreshold int
	RecoveryTimeout  time.Duration
	SuccessThreshold int
}

func (c *CircuitConfig) applyDefaults() {
	if c.FailureThreshold == 0 {
		c.FailureThreshold = 5
	}
	if c.RecoveryTimeout == 0 {
		c.RecoveryTimeout = 30 * time.Second
	}
	if c.SuccessThreshold == 0 {
		c.SuccessThreshold = 2
	}
}

type circuitBreaker struct {
	cfg CircuitConfig
	now func() time.Time

	mu              sync.Mutex
	state           CircuitState
	failureCount    int
	successCount    int
	lastFailureTime time.Time
}

func newCircuitBreaker(cfg CircuitConfig) *circuitBreaker {
	cfg.applyDefaults()
	return &circuitBreaker{cfg: cfg, now: time.Now}
}

// Allow reports whether a call may proceed. An open circuit moves to
// half-open once the recovery timeout has passed.
func (b *circuitBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitOpen && b.now().Sub(b.lastFailureTime) >= b.cfg.RecoveryTimeout {
		b.state = CircuitHalfOpen
		b.successCount = 0
	}
	return b.state != CircuitOpen
}

func (b *circuitBreaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *circuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitHalfOpen:
		b.successCount++
		if b.successCount >= b.cfg.SuccessThreshold {
			b.state = CircuitClosed
			b.failureCount = 0
		}
	case CircuitClosed:
		b.failureCount = 0
	}
}

func (b *circuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount++
	b.lastFailureTime = b.now()

	if b.state == CircuitHalfOpen || (b.state == CircuitClosed && b.failureCount >= b.cfg.FailureThreshold) {
		b.state = CircuitOpen
	}
}

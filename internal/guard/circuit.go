package guard

import (
	"fmt"
	"sync"
	"time"

	"github.com/octane/cashier/internal/domain"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

// CircuitBreaker protects a single upstream (the draw oracle). After
// failThreshold consecutive failures the circuit opens; after resetTimeout
// a single probe is allowed through.
type CircuitBreaker struct {
	mu            sync.Mutex
	state         CircuitState
	failures      int
	lastFailure   time.Time
	failThreshold int
	resetTimeout  time.Duration
}

// NewCircuitBreaker creates a circuit breaker with configurable thresholds.
func NewCircuitBreaker(failThreshold int, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		failThreshold: failThreshold,
		resetTimeout:  resetTimeout,
	}
}

// Check returns whether the circuit allows a request.
func (cb *CircuitBreaker) Check() domain.GuardResult {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitOpen {
		if time.Since(cb.lastFailure) > cb.resetTimeout {
			cb.state = CircuitHalfOpen
			return domain.GuardResult{Allowed: true}
		}
		return domain.GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("circuit open, resets in %s", cb.resetTimeout-time.Since(cb.lastFailure)),
			Guard:   "circuit_breaker",
		}
	}
	return domain.GuardResult{Allowed: true}
}

// RecordSuccess closes the circuit after a successful call.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = CircuitClosed
	cb.failures = 0
}

// RecordFailure counts a failed call, opening the circuit at the threshold.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailure = time.Now()
	if cb.failures >= cb.failThreshold || cb.state == CircuitHalfOpen {
		cb.state = CircuitOpen
	}
}

package db

import (
	"sync"
	"time"

	"github.com/nonsonwune/mdv-backend/pkg/config"
	pkgerrors "github.com/nonsonwune/mdv-backend/pkg/errors"
)

// BreakerState is the circuit breaker position.
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half_open"
)

// Breaker guards database access. Closed passes operations through and counts
// failures; once the failure threshold is reached it opens and fails fast
// until the recovery timeout elapses, then admits a bounded number of trial
// calls before closing again.
type Breaker struct {
	mu sync.Mutex

	failureThreshold int
	recoveryTimeout  time.Duration
	halfOpenMaxCalls int

	state          BreakerState
	failures       int
	openedAt       time.Time
	trialsAdmitted int
	trialSuccesses int

	now           func() time.Time
	onStateChange func(BreakerState)
}

// NewBreaker builds a circuit breaker from config. onStateChange may be nil.
func NewBreaker(cfg config.BreakerConfig, onStateChange func(BreakerState)) *Breaker {
	failureThreshold := cfg.FailureThreshold
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	recoveryTimeout := cfg.RecoveryTimeout
	if recoveryTimeout <= 0 {
		recoveryTimeout = 30 * time.Second
	}
	halfOpenMaxCalls := cfg.HalfOpenMaxCalls
	if halfOpenMaxCalls <= 0 {
		halfOpenMaxCalls = 1
	}
	return &Breaker{
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
		halfOpenMaxCalls: halfOpenMaxCalls,
		state:            BreakerClosed,
		now:              time.Now,
		onStateChange:    onStateChange,
	}
}

// State returns the current breaker position.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Allow reports whether an operation may proceed. Open circuits fail fast
// with a DEPENDENCY_ERROR until the recovery timeout elapses.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		return nil
	case BreakerOpen:
		if b.now().Sub(b.openedAt) < b.recoveryTimeout {
			return pkgerrors.New(pkgerrors.CodeDependency, "service unavailable")
		}
		b.transition(BreakerHalfOpen)
		b.trialsAdmitted = 1
		b.trialSuccesses = 0
		return nil
	default: // half-open
		if b.trialsAdmitted >= b.halfOpenMaxCalls {
			return pkgerrors.New(pkgerrors.CodeDependency, "service unavailable")
		}
		b.trialsAdmitted++
		return nil
	}
}

// RecordSuccess feeds back a successful operation.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		b.failures = 0
	case BreakerHalfOpen:
		b.trialSuccesses++
		if b.trialSuccesses >= b.halfOpenMaxCalls {
			b.transition(BreakerClosed)
			b.failures = 0
		}
	}
}

// RecordFailure feeds back a failed operation.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		b.failures++
		if b.failures >= b.failureThreshold {
			b.trip()
		}
	case BreakerHalfOpen:
		b.trip()
	}
}

func (b *Breaker) trip() {
	b.transition(BreakerOpen)
	b.openedAt = b.now()
	b.failures = 0
	b.trialsAdmitted = 0
	b.trialSuccesses = 0
}

func (b *Breaker) transition(next BreakerState) {
	if b.state == next {
		return
	}
	b.state = next
	if b.onStateChange != nil {
		b.onStateChange(next)
	}
}

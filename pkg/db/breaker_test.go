package db

import (
	"testing"
	"time"

	"github.com/nonsonwune/mdv-backend/pkg/config"
	pkgerrors "github.com/nonsonwune/mdv-backend/pkg/errors"
)

func newTestBreaker(threshold, halfOpenMax int, recovery time.Duration) (*Breaker, *time.Time, *[]BreakerState) {
	var transitions []BreakerState
	b := NewBreaker(config.BreakerConfig{
		FailureThreshold: threshold,
		RecoveryTimeout:  recovery,
		HalfOpenMaxCalls: halfOpenMax,
	}, func(state BreakerState) {
		transitions = append(transitions, state)
	})
	now := time.Now()
	b.now = func() time.Time { return now }
	return b, &now, &transitions
}

func TestBreakerOpensAtFailureThreshold(t *testing.T) {
	b, _, transitions := newTestBreaker(3, 1, 30*time.Second)

	for i := 0; i < 2; i++ {
		b.RecordFailure()
		if b.State() != BreakerClosed {
			t.Fatalf("failure %d must not trip the breaker", i+1)
		}
	}
	b.RecordFailure()
	if b.State() != BreakerOpen {
		t.Fatalf("expected open after threshold, got %s", b.State())
	}

	err := b.Allow()
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("open breaker must fail fast with DEPENDENCY_ERROR, got %v", err)
	}
	if len(*transitions) != 1 || (*transitions)[0] != BreakerOpen {
		t.Fatalf("unexpected transitions %v", *transitions)
	}
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b, _, _ := newTestBreaker(2, 1, 30*time.Second)

	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	if b.State() != BreakerClosed {
		t.Fatalf("success must reset the failure count, got %s", b.State())
	}
}

func TestBreakerHalfOpenAdmitsBoundedTrials(t *testing.T) {
	b, now, _ := newTestBreaker(1, 2, 30*time.Second)

	b.RecordFailure()
	if b.State() != BreakerOpen {
		t.Fatalf("expected open, got %s", b.State())
	}

	*now = now.Add(31 * time.Second)

	// First call after the recovery timeout flips to half-open and is admitted.
	if err := b.Allow(); err != nil {
		t.Fatalf("first trial: %v", err)
	}
	if b.State() != BreakerHalfOpen {
		t.Fatalf("expected half-open, got %s", b.State())
	}
	if err := b.Allow(); err != nil {
		t.Fatalf("second trial: %v", err)
	}
	if err := b.Allow(); err == nil {
		t.Fatal("trial budget exhausted, third call must fail fast")
	}
}

func TestBreakerClosesAfterSuccessfulTrials(t *testing.T) {
	b, now, transitions := newTestBreaker(1, 2, 30*time.Second)

	b.RecordFailure()
	*now = now.Add(31 * time.Second)

	for i := 0; i < 2; i++ {
		if err := b.Allow(); err != nil {
			t.Fatalf("trial %d: %v", i+1, err)
		}
		b.RecordSuccess()
	}
	if b.State() != BreakerClosed {
		t.Fatalf("expected closed after successful trials, got %s", b.State())
	}
	want := []BreakerState{BreakerOpen, BreakerHalfOpen, BreakerClosed}
	if len(*transitions) != len(want) {
		t.Fatalf("unexpected transitions %v", *transitions)
	}
	for i, state := range want {
		if (*transitions)[i] != state {
			t.Fatalf("transition %d: expected %s, got %s", i, state, (*transitions)[i])
		}
	}
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b, now, _ := newTestBreaker(1, 1, 30*time.Second)

	b.RecordFailure()
	*now = now.Add(31 * time.Second)

	if err := b.Allow(); err != nil {
		t.Fatalf("trial: %v", err)
	}
	b.RecordFailure()
	if b.State() != BreakerOpen {
		t.Fatalf("half-open failure must reopen, got %s", b.State())
	}
	if err := b.Allow(); err == nil {
		t.Fatal("reopened breaker must fail fast again")
	}
}

package cron

import (
	"context"
	"errors"
	"testing"
)

type fakeLock struct {
	acquired bool
	err      error
	releases int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) { return f.acquired, f.err }
func (f *fakeLock) Release(context.Context) error {
	f.releases++
	return nil
}

type fakeJob struct {
	name string
	runs int
	err  error
}

func (f *fakeJob) Name() string { return f.name }
func (f *fakeJob) Run(context.Context) error {
	f.runs++
	return f.err
}

func TestRunCycleSkipsWhenLockHeldElsewhere(t *testing.T) {
	t.Parallel()

	job := &fakeJob{name: "noop"}
	svc, err := NewService(ServiceParams{
		Logger:   newTestLogger(),
		Registry: NewRegistry(job),
		Lock:     &fakeLock{acquired: false},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("jobs must not run without the lock, got %d runs", job.runs)
	}
}

func TestRunCycleRunsAllJobsAndReleasesLock(t *testing.T) {
	t.Parallel()

	first := &fakeJob{name: "first", err: errors.New("boom")}
	second := &fakeJob{name: "second"}
	lock := &fakeLock{acquired: true}
	svc, err := NewService(ServiceParams{
		Logger:   newTestLogger(),
		Registry: NewRegistry(first, second),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	err = svc.runCycle(context.Background())
	if err == nil {
		t.Fatalf("expected the failing job's error to surface")
	}
	// a failing job must not stop the rest of the cycle
	if first.runs != 1 || second.runs != 1 {
		t.Fatalf("expected both jobs to run, got %d and %d", first.runs, second.runs)
	}
	if lock.releases != 1 {
		t.Fatalf("expected lock release, got %d", lock.releases)
	}
}

func TestRunCyclePropagatesLockErrors(t *testing.T) {
	t.Parallel()

	svc, err := NewService(ServiceParams{
		Logger: newTestLogger(),
		Lock:   &fakeLock{err: errors.New("redis down")},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if err := svc.runCycle(context.Background()); err == nil {
		t.Fatal("expected lock error")
	}
}

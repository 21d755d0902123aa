package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/nonsonwune/mdv-backend/pkg/logger"
)

type fakeSweeper struct {
	batches []int64
	calls   int
	err     error
}

func (f *fakeSweeper) SweepExpired(_ context.Context, batch int) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	if f.calls >= len(f.batches) {
		return 0, nil
	}
	expired := f.batches[f.calls]
	f.calls++
	_ = batch
	return expired, nil
}

func TestReservationSweepJobDrainsFullBatches(t *testing.T) {
	t.Parallel()

	sweeper := &fakeSweeper{batches: []int64{5, 5, 2}}
	job, err := NewReservationSweepJob(ReservationSweepJobParams{
		Logger:  newTestLogger(),
		Sweeper: sweeper,
		Batch:   5,
	})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	// two full batches force a third sweep that comes back short
	if sweeper.calls != 3 {
		t.Fatalf("expected 3 sweep calls, got %d", sweeper.calls)
	}
}

func TestReservationSweepJobPropagatesErrors(t *testing.T) {
	t.Parallel()

	job, err := NewReservationSweepJob(ReservationSweepJobParams{
		Logger:  newTestLogger(),
		Sweeper: &fakeSweeper{err: errors.New("db down")},
	})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

type fakePruner struct {
	cutoff  time.Time
	deleted int64
	err     error
}

func (f *fakePruner) DeletePublishedBefore(cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.deleted, f.err
}

func TestOutboxRetentionJobUsesConfiguredAge(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	pruner := &fakePruner{deleted: 7}
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger: newTestLogger(),
		Pruner: pruner,
		MaxAge: 48 * time.Hour,
		Now:    func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	want := now.Add(-48 * time.Hour)
	if !pruner.cutoff.Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, pruner.cutoff)
	}
}

func TestOutboxRetentionJobPropagatesErrors(t *testing.T) {
	t.Parallel()

	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger: newTestLogger(),
		Pruner: &fakePruner{err: errors.New("db down")},
	})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

type fakeBackfiller struct {
	created int
	err     error
	calls   int
}

func (f *fakeBackfiller) EnsureRecordsExist(context.Context) (int, error) {
	f.calls++
	return f.created, f.err
}

func TestInventorySyncJob(t *testing.T) {
	t.Parallel()

	backfiller := &fakeBackfiller{created: 3}
	job, err := NewInventorySyncJob(InventorySyncJobParams{
		Logger:     newTestLogger(),
		Backfiller: backfiller,
	})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if backfiller.calls != 1 {
		t.Fatalf("expected one backfill call, got %d", backfiller.calls)
	}
}

func TestJobConstructorsValidateDependencies(t *testing.T) {
	t.Parallel()

	if _, err := NewReservationSweepJob(ReservationSweepJobParams{Logger: newTestLogger()}); err == nil {
		t.Fatal("expected sweeper requirement")
	}
	if _, err := NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: newTestLogger()}); err == nil {
		t.Fatal("expected pruner requirement")
	}
	if _, err := NewInventorySyncJob(InventorySyncJobParams{Logger: newTestLogger()}); err == nil {
		t.Fatal("expected backfiller requirement")
	}
}

func newTestLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

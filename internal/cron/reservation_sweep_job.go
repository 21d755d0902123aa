package cron

import (
	"context"
	"fmt"

	"github.com/nonsonwune/mdv-backend/pkg/logger"
)

const defaultSweepBatch = 100

type reservationSweeper interface {
	SweepExpired(ctx context.Context, batch int) (int64, error)
}

// ReservationSweepJobParams configure the reservation sweep job.
type ReservationSweepJobParams struct {
	Logger  *logger.Logger
	Sweeper reservationSweeper
	Batch   int
}

// ReservationSweepJob reclaims expired stock holds so checkout availability
// recovers without manual intervention.
type ReservationSweepJob struct {
	logg    *logger.Logger
	sweeper reservationSweeper
	batch   int
}

// NewReservationSweepJob validates dependencies and builds the job.
func NewReservationSweepJob(params ReservationSweepJobParams) (*ReservationSweepJob, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sweeper == nil {
		return nil, fmt.Errorf("reservation sweeper required")
	}
	batch := params.Batch
	if batch <= 0 {
		batch = defaultSweepBatch
	}
	return &ReservationSweepJob{logg: params.Logger, sweeper: params.Sweeper, batch: batch}, nil
}

// Name identifies the job in logs and metrics.
func (j *ReservationSweepJob) Name() string { return "reservation_sweep" }

// Run expires overdue holds in batches until a batch comes back short.
func (j *ReservationSweepJob) Run(ctx context.Context) error {
	var total int64
	for {
		expired, err := j.sweeper.SweepExpired(ctx, j.batch)
		if err != nil {
			return fmt.Errorf("sweep expired reservations: %w", err)
		}
		total += expired
		if expired < int64(j.batch) {
			break
		}
	}
	if total > 0 {
		j.logg.Info(j.logg.WithField(ctx, "expired", total), "reservation sweep released holds")
	}
	return nil
}

package cron

import (
	"context"
	"fmt"

	"github.com/nonsonwune/mdv-backend/pkg/logger"
)

type inventoryBackfiller interface {
	EnsureRecordsExist(ctx context.Context) (int, error)
}

// InventorySyncJobParams configure the inventory sync job.
type InventorySyncJobParams struct {
	Logger     *logger.Logger
	Backfiller inventoryBackfiller
}

// InventorySyncJob backfills inventory records for variants created without
// one, so availability queries never miss a row.
type InventorySyncJob struct {
	logg       *logger.Logger
	backfiller inventoryBackfiller
}

// NewInventorySyncJob validates dependencies and builds the job.
func NewInventorySyncJob(params InventorySyncJobParams) (*InventorySyncJob, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Backfiller == nil {
		return nil, fmt.Errorf("inventory backfiller required")
	}
	return &InventorySyncJob{logg: params.Logger, backfiller: params.Backfiller}, nil
}

// Name identifies the job in logs and metrics.
func (j *InventorySyncJob) Name() string { return "inventory_sync" }

// Run creates missing inventory rows.
func (j *InventorySyncJob) Run(ctx context.Context) error {
	created, err := j.backfiller.EnsureRecordsExist(ctx)
	if err != nil {
		return fmt.Errorf("ensure inventory records: %w", err)
	}
	if created > 0 {
		j.logg.Info(j.logg.WithField(ctx, "created", created), "inventory sync backfilled records")
	}
	return nil
}

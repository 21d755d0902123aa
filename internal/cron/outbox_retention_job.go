package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/nonsonwune/mdv-backend/pkg/logger"
)

const defaultRetentionAge = 30 * 24 * time.Hour

type outboxPruner interface {
	DeletePublishedBefore(cutoff time.Time) (int64, error)
}

// OutboxRetentionJobParams configure the outbox retention job.
type OutboxRetentionJobParams struct {
	Logger *logger.Logger
	Pruner outboxPruner
	MaxAge time.Duration
	Now    func() time.Time
}

// OutboxRetentionJob prunes published outbox rows past the retention window.
type OutboxRetentionJob struct {
	logg   *logger.Logger
	pruner outboxPruner
	maxAge time.Duration
	now    func() time.Time
}

// NewOutboxRetentionJob validates dependencies and builds the job.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (*OutboxRetentionJob, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Pruner == nil {
		return nil, fmt.Errorf("outbox pruner required")
	}
	maxAge := params.MaxAge
	if maxAge <= 0 {
		maxAge = defaultRetentionAge
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &OutboxRetentionJob{logg: params.Logger, pruner: params.Pruner, maxAge: maxAge, now: now}, nil
}

// Name identifies the job in logs and metrics.
func (j *OutboxRetentionJob) Name() string { return "outbox_retention" }

// Run deletes published events older than the retention cutoff.
func (j *OutboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().Add(-j.maxAge)
	deleted, err := j.pruner.DeletePublishedBefore(cutoff)
	if err != nil {
		return fmt.Errorf("prune outbox: %w", err)
	}
	if deleted > 0 {
		j.logg.Info(j.logg.WithField(ctx, "deleted", deleted), "outbox retention pruned events")
	}
	return nil
}

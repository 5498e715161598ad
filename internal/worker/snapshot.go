package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/awstrack/awstrack/internal/domain/analytics"
	"github.com/awstrack/awstrack/internal/pkg/logger"
	"github.com/awstrack/awstrack/internal/services"
)

// SnapshotWorker periodically persists the aggregator's usage and cost
// profiles so history survives restarts of the in-memory store.
type SnapshotWorker struct {
	aggregator *services.Aggregator
	repo       analytics.SnapshotRepository
	schedule   string
	log        *logger.Logger

	cron *cron.Cron
}

// NewSnapshotWorker creates a worker that runs on the given cron schedule,
// e.g. "@hourly" or "*/30 * * * *".
func NewSnapshotWorker(aggregator *services.Aggregator, repo analytics.SnapshotRepository, schedule string, log *logger.Logger) *SnapshotWorker {
	return &SnapshotWorker{
		aggregator: aggregator,
		repo:       repo,
		schedule:   schedule,
		log:        log.WithComponent("snapshot_worker"),
	}
}

func (w *SnapshotWorker) Start() error {
	w.cron = cron.New()
	if _, err := w.cron.AddFunc(w.schedule, w.runOnce); err != nil {
		return err
	}
	w.cron.Start()
	w.log.With("schedule", w.schedule).Info("snapshot worker started")
	return nil
}

// Stop waits for an in-flight snapshot to finish.
func (w *SnapshotWorker) Stop() {
	if w.cron == nil {
		return
	}
	<-w.cron.Stop().Done()
	w.log.Info("snapshot worker stopped")
}

func (w *SnapshotWorker) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	takenAt := time.Now().UTC()
	users, costs := w.aggregator.Snapshot()
	if err := w.repo.SaveUsage(ctx, takenAt, users); err != nil {
		w.log.ErrorWithErr(err, "usage snapshot failed")
		return
	}
	if err := w.repo.SaveCosts(ctx, takenAt, costs); err != nil {
		w.log.ErrorWithErr(err, "cost snapshot failed")
		return
	}
	w.log.WithFields(map[string]interface{}{
		"users": len(users),
		"costs": len(costs),
	}).Debug("snapshot persisted")
}

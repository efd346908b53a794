package service

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"datashelf/internal/domain"
)

// Janitor runs the periodic integrity sweep: it removes grants whose
// account or dataset no longer exists. Such orphans can only appear when
// a crash interrupts a cascade between steps; under normal operation the
// sweep finds nothing.
type Janitor struct {
	cron   *cron.Cron
	grants domain.GrantRepository
	logger *slog.Logger
}

// NewJanitor creates a Janitor.
func NewJanitor(grants domain.GrantRepository, logger *slog.Logger) *Janitor {
	return &Janitor{
		cron:   cron.New(),
		grants: grants,
		logger: logger,
	}
}

// Start schedules the sweep on the given cron expression and starts the
// scheduler.
func (j *Janitor) Start(schedule string) error {
	_, err := j.cron.AddFunc(schedule, func() {
		if err := j.Sweep(context.Background()); err != nil {
			j.logger.Warn("integrity sweep failed", "error", err)
		}
	})
	if err != nil {
		return err
	}
	j.cron.Start()
	j.logger.Info("integrity sweep scheduled", "schedule", schedule)
	return nil
}

// Stop gracefully stops the scheduler.
func (j *Janitor) Stop() {
	j.cron.Stop()
}

// Sweep removes all orphaned grants. Exposed for on-demand invocation and
// tests.
func (j *Janitor) Sweep(ctx context.Context) error {
	orphans, err := j.grants.FindOrphans(ctx)
	if err != nil {
		return err
	}
	for _, g := range orphans {
		if err := j.grants.Remove(ctx, g.ID); err != nil {
			j.logger.Warn("remove orphaned grant", "grant", g.ID, "error", err)
			continue
		}
		j.logger.Info("orphaned grant removed",
			"grant", g.ID, "account", g.AccountID, "dataset", g.DatasetID)
	}
	return nil
}

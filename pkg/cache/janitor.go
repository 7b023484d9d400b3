package cache

import (
	"context"
	"fmt"

	"github.com/platinummonkey/noticias/pkg/observability"
	"github.com/robfig/cron/v3"
)

// DefaultCleanupSchedule runs the sweep every minute
const DefaultCleanupSchedule = "@every 1m"

// Cleaner drops stale entries and reports how many were removed
type Cleaner interface {
	CleanupExpired() int
}

// Janitor periodically calls CleanupExpired on a cache. The cache stays
// correct without it; the sweep only bounds memory held by stale entries.
type Janitor struct {
	cron    *cron.Cron
	target  Cleaner
	logger  *observability.Logger
	entryID cron.EntryID
}

// NewJanitor schedules target's sweep on a cron spec such as "@every 30s"
func NewJanitor(target Cleaner, schedule string, logger *observability.Logger) (*Janitor, error) {
	if schedule == "" {
		schedule = DefaultCleanupSchedule
	}
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	j := &Janitor{
		cron:   cron.New(),
		target: target,
		logger: logger.WithField("component", "cache_janitor"),
	}

	id, err := j.cron.AddFunc(schedule, j.Sweep)
	if err != nil {
		return nil, fmt.Errorf("invalid cleanup schedule %q: %w", schedule, err)
	}
	j.entryID = id

	return j, nil
}

// Sweep runs one cleanup pass
func (j *Janitor) Sweep() {
	defer observability.RecoverPanic(j.logger, "cache cleanup")

	if removed := j.target.CleanupExpired(); removed > 0 {
		j.logger.WithField("removed", removed).Debug("Expired cache entries removed")
	}
}

// Start begins running the schedule in the background
func (j *Janitor) Start() {
	j.cron.Start()
	j.logger.Info("Cache janitor started")
}

// Stop halts the schedule and waits for a running sweep to finish or ctx
// to expire
func (j *Janitor) Stop(ctx context.Context) error {
	select {
	case <-j.cron.Stop().Done():
		j.logger.Info("Cache janitor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Package retention implements the retention policy for finished analysis
// runs. Runs older than the store's TTL are archived to durable storage and
// purged from the hot store.
//
// The janitor runs as a background goroutine and respects context
// cancellation for graceful shutdown. Archiving is fail-safe: a run is NOT
// purged if archiving it fails.
package retention

import (
	"context"
	"time"

	"github.com/SaltyFrappuccino/AI-Mammoth-API/pkg/models"
	"github.com/rs/zerolog/log"
)

// DefaultInterval is how often the janitor sweeps the store.
const DefaultInterval = time.Hour

// RunPruner is the store-side surface the janitor needs: enumerate expired
// finished runs and delete them one by one.
type RunPruner interface {
	ExpiredRuns(ctx context.Context) ([]models.AnalysisRun, error)
	DeleteRun(ctx context.Context, id string) error
}

// Archiver persists a run before it leaves the hot store.
type Archiver interface {
	ArchiveRun(ctx context.Context, run *models.AnalysisRun) (string, error)
}

// CycleStats tracks what happened in a single retention sweep.
type CycleStats struct {
	Archived int
	Purged   int
	Errors   []error
}

// Janitor periodically archives and purges expired runs.
type Janitor struct {
	store    RunPruner
	archiver Archiver
	interval time.Duration
}

// NewJanitor creates a retention janitor that sweeps on the given interval.
// A nil archiver means purge-only. Intervals below a minute are clamped.
func NewJanitor(s RunPruner, a Archiver, interval time.Duration) *Janitor {
	if interval < time.Minute {
		interval = DefaultInterval
	}
	return &Janitor{store: s, archiver: a, interval: interval}
}

// Start runs the janitor in the calling goroutine until ctx is canceled.
func (j *Janitor) Start(ctx context.Context) {
	log.Info().
		Dur("interval", j.interval).
		Bool("archiving", j.archiver != nil).
		Msg("Retention janitor started")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	// Run once immediately on startup
	j.RunCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Retention janitor stopped")
			return
		case <-ticker.C:
			j.RunCycle(ctx)
		}
	}
}

// RunCycle performs one retention sweep.
func (j *Janitor) RunCycle(ctx context.Context) CycleStats {
	start := time.Now()
	var stats CycleStats

	expired, err := j.store.ExpiredRuns(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Retention janitor: failed to list expired runs")
		stats.Errors = append(stats.Errors, err)
		return stats
	}

	for _, run := range expired {
		if j.archiver != nil {
			path, err := j.archiver.ArchiveRun(ctx, &run)
			if err != nil {
				// Fail-safe: keep the run in the hot store.
				log.Warn().Err(err).Str("run_id", run.ID).Msg("Archive failed, run kept")
				stats.Errors = append(stats.Errors, err)
				continue
			}
			stats.Archived++
			log.Debug().Str("run_id", run.ID).Str("path", path).Msg("Run archived")
		}

		if err := j.store.DeleteRun(ctx, run.ID); err != nil {
			stats.Errors = append(stats.Errors, err)
			continue
		}
		stats.Purged++
	}

	if stats.Purged > 0 || stats.Archived > 0 {
		log.Info().
			Int("archived", stats.Archived).
			Int("purged", stats.Purged).
			Dur("elapsed", time.Since(start)).
			Msg("Retention cycle complete")
	}
	return stats
}

package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/lens/backend/internal/resultcache"
	"github.com/wonny/lens/backend/pkg/logger"
)

// DefaultSweepSchedule runs every 10 minutes
const DefaultSweepSchedule = "0 */10 * * * *"

// CacheSweeper removes expired result cache entries
type CacheSweeper interface {
	Sweep(ctx context.Context) (int64, error)
	Stats(ctx context.Context) (*resultcache.Stats, error)
}

// CacheSweepJob deletes expired evaluation results independently of lookups
type CacheSweepJob struct {
	cache    CacheSweeper
	schedule string
	logger   *logger.Logger
}

// NewCacheSweepJob creates a new cache sweep job
func NewCacheSweepJob(cache CacheSweeper, schedule string, log *logger.Logger) *CacheSweepJob {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	if log == nil {
		log = logger.Nop()
	}
	return &CacheSweepJob{
		cache:    cache,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *CacheSweepJob) Name() string {
	return "cache_sweep"
}

// Schedule returns the cron schedule
func (j *CacheSweepJob) Schedule() string {
	return j.schedule
}

// Run executes the sweep
func (j *CacheSweepJob) Run(ctx context.Context) error {
	j.logger.Debug("Starting scheduled cache sweep")

	removed, err := j.cache.Sweep(ctx)
	if err != nil {
		return fmt.Errorf("cache sweep: %w", err)
	}

	if removed > 0 {
		j.logger.WithField("removed", removed).Info("Cache sweep completed")
	}

	return nil
}

// CacheStatsJob logs cache occupancy
type CacheStatsJob struct {
	cache  CacheSweeper
	logger *logger.Logger
}

// NewCacheStatsJob creates a new cache stats job
func NewCacheStatsJob(cache CacheSweeper, log *logger.Logger) *CacheStatsJob {
	if log == nil {
		log = logger.Nop()
	}
	return &CacheStatsJob{cache: cache, logger: log}
}

// Name returns the job name
func (j *CacheStatsJob) Name() string {
	return "cache_stats"
}

// Schedule returns the cron schedule (hourly)
func (j *CacheStatsJob) Schedule() string {
	return "0 0 * * * *"
}

// Run logs the current cache stats
func (j *CacheStatsJob) Run(ctx context.Context) error {
	stats, err := j.cache.Stats(ctx)
	if err != nil {
		return fmt.Errorf("cache stats: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"backend":    stats.Backend,
		"entries":    stats.Entries,
		"expired":    stats.Expired,
		"total_hits": stats.TotalHits,
	}).Info("Result cache stats")

	return nil
}

package handlers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"subnetdash/internal/config"
	dbpkg "subnetdash/internal/db"
	"subnetdash/internal/overview"
)

// Store is the read surface of the results store used by handlers.
// *db.Store satisfies it.
type Store interface {
	Ping(ctx context.Context) error
	Environments(ctx context.Context, since time.Time) ([]string, error)
	OverallMetrics(ctx context.Context, since time.Time) ([]dbpkg.OverallAggregate, error)
	Leaderboard(ctx context.Context, since time.Time, limit int) ([]dbpkg.LeaderboardRow, error)
	TopMinersByEnv(ctx context.Context, env string, since time.Time, limit int) ([]dbpkg.LeaderboardRow, error)
	LiveEnvLeaderboard(ctx context.Context, env string, liveSince, scoringSince time.Time, limit int) ([]dbpkg.LeaderboardRow, error)
	PerformanceByEnv(ctx context.Context, since time.Time) ([]dbpkg.EnvPerformanceRow, error)
	ScoreDistribution(ctx context.Context, env string, since time.Time) ([]dbpkg.ScoreBucket, error)
	LatencyDistribution(ctx context.Context, env string, since time.Time) ([]dbpkg.LatencyBucket, error)
	ModelStats(ctx context.Context, models []string, since time.Time) (map[string]dbpkg.ModelStatsRow, error)
	DailyRollouts(ctx context.Context, since time.Time) ([]dbpkg.DailyRolloutRow, error)
	ResultsOverTime(ctx context.Context, since time.Time) ([]dbpkg.ResultsOverTimeRow, error)
	ActivityFeed(ctx context.Context, limit int) ([]dbpkg.RolloutRecord, error)
}

// Overview computes the subnet scoreboard. *overview.Aggregator satisfies it.
type Overview interface {
	Compute(ctx context.Context) (*overview.Result, error)
}

// Weights returns the upstream weights summary as raw JSON.
type Weights interface {
	Summary(ctx context.Context) ([]byte, error)
}

// Cache is the optional read-through cache. *cache.Client satisfies it.
type Cache interface {
	Health(ctx context.Context) error
}

// Deps is everything the handlers share. It is built once in main.
type Deps struct {
	Store    Store
	Overview Overview
	Weights  Weights
	Cache    Cache // nil when no cache is configured
	Cfg      *config.Config
	Log      *zap.Logger

	now func() time.Time
}

func (d *Deps) since(window time.Duration) time.Time {
	now := time.Now
	if d.now != nil {
		now = d.now
	}
	return now().Add(-window)
}

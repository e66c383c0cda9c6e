package db

import (
	"context"
	"strings"
	"time"
)

// Environments returns the distinct environment names seen since since,
// sorted ascending.
func (s *Store) Environments(ctx context.Context, since time.Time) ([]string, error) {
	var rows []struct {
		EnvName string `gorm:"column:env_name"`
	}
	if err := s.scan(ctx, environmentsQuery(since), &rows); err != nil {
		return nil, err
	}
	envs := make([]string, 0, len(rows))
	for _, r := range rows {
		envs = append(envs, r.EnvName)
	}
	return envs, nil
}

// EnvironmentMetrics returns per-(hotkey, model, revision, env) aggregates
// restricted to envs. An empty envs yields no rows without a round-trip.
func (s *Store) EnvironmentMetrics(ctx context.Context, since time.Time, envs []string) ([]EnvironmentAggregate, error) {
	if len(envs) == 0 {
		return nil, nil
	}
	var rows []EnvironmentAggregate
	if err := s.scan(ctx, environmentMetricsQuery(since, envs), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// OverallMetrics returns per-(hotkey, model, revision) aggregates collapsed
// over every environment.
func (s *Store) OverallMetrics(ctx context.Context, since time.Time) ([]OverallAggregate, error) {
	var rows []OverallAggregate
	if err := s.scan(ctx, overallMetricsQuery(since), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) Leaderboard(ctx context.Context, since time.Time, limit int) ([]LeaderboardRow, error) {
	var rows []LeaderboardRow
	if err := s.scan(ctx, leaderboardQuery(since, limit), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) TopMinersByEnv(ctx context.Context, env string, since time.Time, limit int) ([]LeaderboardRow, error) {
	var rows []LeaderboardRow
	if err := s.scan(ctx, topMinersByEnvQuery(env, since, limit), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) LiveEnvLeaderboard(ctx context.Context, env string, liveSince, scoringSince time.Time, limit int) ([]LeaderboardRow, error) {
	var rows []LeaderboardRow
	if err := s.scan(ctx, liveEnvLeaderboardQuery(env, liveSince, scoringSince, limit), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) PerformanceByEnv(ctx context.Context, since time.Time) ([]EnvPerformanceRow, error) {
	var rows []EnvPerformanceRow
	if err := s.scan(ctx, performanceByEnvQuery(since), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) ScoreDistribution(ctx context.Context, env string, since time.Time) ([]ScoreBucket, error) {
	var rows []ScoreBucket
	if err := s.scan(ctx, scoreDistributionQuery(env, since), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) LatencyDistribution(ctx context.Context, env string, since time.Time) ([]LatencyBucket, error) {
	var rows []LatencyBucket
	if err := s.scan(ctx, latencyDistributionQuery(env, since), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// ModelKey normalizes a model name the way stored names are matched.
func ModelKey(model string) string {
	return strings.ToLower(strings.TrimSpace(model))
}

// ModelStats returns the latest aggregate per matched model, keyed by ModelKey.
func (s *Store) ModelStats(ctx context.Context, models []string, since time.Time) (map[string]ModelStatsRow, error) {
	seen := make(map[string]bool, len(models))
	keys := make([]string, 0, len(models))
	for _, m := range models {
		k := ModelKey(m)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	out := make(map[string]ModelStatsRow, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	var rows []ModelStatsRow
	if err := s.scan(ctx, modelStatsQuery(keys, since), &rows); err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.ModelKey] = r
	}
	return out, nil
}

func (s *Store) DailyRollouts(ctx context.Context, since time.Time) ([]DailyRolloutRow, error) {
	var rows []DailyRolloutRow
	if err := s.scan(ctx, dailyRolloutsQuery(since), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) ResultsOverTime(ctx context.Context, since time.Time) ([]ResultsOverTimeRow, error) {
	var rows []ResultsOverTimeRow
	if err := s.scan(ctx, resultsOverTimeQuery(since), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// ActivityFeed returns the newest limit rollouts.
func (s *Store) ActivityFeed(ctx context.Context, limit int) ([]RolloutRecord, error) {
	var rows []activityRow
	if err := s.scan(ctx, activityFeedQuery(limit), &rows); err != nil {
		return nil, err
	}
	out := make([]RolloutRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Record())
	}
	return out, nil
}

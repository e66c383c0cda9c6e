package db

import (
	"time"
)

// ScaledEnvironment reports scores in -100..100 instead of 0..1.
const ScaledEnvironment = "agentgym:sciworld"

// normalizedScoreSQL maps every score onto 0..1. It is the single place the
// ScaledEnvironment point-fix lives; every cross-environment average uses it.
const normalizedScoreSQL = `(CASE WHEN env_name = '` + ScaledEnvironment + `' THEN (score + 100.0) / 200.0 ELSE score END)::float8`

// successPercentSQL is a rate over a non-empty group, so no division by zero.
const successPercentSQL = `AVG(CASE WHEN success THEN 100.0 ELSE 0.0 END)::float8`

const (
	scoreBuckets         = 20
	latencyBucketSeconds = 5
)

// query is a named, fully parameterized statement. Only constant SQL text is
// ever concatenated; every caller-supplied value travels in args.
type query struct {
	name string
	sql  string
	args []any
}

func environmentsQuery(since time.Time) query {
	return query{
		name: "environments",
		sql: `SELECT DISTINCT env_name
FROM rollouts
WHERE ingested_at >= ? AND env_name IS NOT NULL
ORDER BY env_name ASC`,
		args: []any{since},
	}
}

func environmentMetricsQuery(since time.Time, envs []string) query {
	return query{
		name: "environment_metrics",
		sql: `SELECT hotkey, model, revision, env_name,
	COUNT(*) AS rollout_count,
	AVG(` + normalizedScoreSQL + `)::float8 AS avg_score,
	AVG(latency_seconds)::float8 AS avg_latency,
	` + successPercentSQL + ` AS success_rate_percent
FROM rollouts
WHERE ingested_at >= ? AND env_name IN ?
GROUP BY hotkey, model, revision, env_name`,
		args: []any{since, envs},
	}
}

func overallMetricsQuery(since time.Time) query {
	return query{
		name: "overall_metrics",
		sql: `SELECT hotkey, model, revision,
	MAX(uid) AS uid,
	COUNT(*) AS total_rollouts,
	AVG(` + normalizedScoreSQL + `)::float8 AS overall_avg_score,
	` + successPercentSQL + ` AS success_rate_percent,
	AVG(latency_seconds)::float8 AS avg_latency,
	MAX(ingested_at) AS last_rollout_at,
	(ARRAY_AGG(extra::text ORDER BY ingested_at DESC) FILTER (WHERE extra IS NOT NULL))[1] AS latest_extra,
	JSON_AGG(extra::text ORDER BY ingested_at DESC) FILTER (WHERE extra::text LIKE '%chute_id%') AS chute_extras
FROM rollouts
WHERE ingested_at >= ? AND env_name IS NOT NULL
GROUP BY hotkey, model, revision`,
		args: []any{since},
	}
}

const leaderboardSelect = `SELECT hotkey, MAX(uid) AS uid, model, revision,
	COUNT(*) AS total_rollouts,
	AVG(` + normalizedScoreSQL + `)::float8 * 100 AS avg_score,
	` + successPercentSQL + ` AS success_rate_percent,
	AVG(latency_seconds)::float8 AS avg_latency,
	MAX(ingested_at) AS last_rollout_at
FROM rollouts
`

const leaderboardOrder = `GROUP BY hotkey, model, revision
ORDER BY avg_score DESC NULLS LAST, total_rollouts DESC, hotkey ASC
LIMIT ?`

func leaderboardQuery(since time.Time, limit int) query {
	return query{
		name: "leaderboard",
		sql:  leaderboardSelect + "WHERE ingested_at >= ?\n" + leaderboardOrder,
		args: []any{since, limit},
	}
}

func topMinersByEnvQuery(env string, since time.Time, limit int) query {
	return query{
		name: "top_miners_by_env",
		sql:  leaderboardSelect + "WHERE env_name = ? AND ingested_at >= ?\n" + leaderboardOrder,
		args: []any{env, since, limit},
	}
}

// liveEnvLeaderboardQuery ranks miners seen in env since liveSince by their
// stats since scoringSince.
func liveEnvLeaderboardQuery(env string, liveSince, scoringSince time.Time, limit int) query {
	return query{
		name: "live_env_leaderboard",
		sql: leaderboardSelect + `WHERE env_name = ? AND ingested_at >= ?
	AND EXISTS (
		SELECT 1 FROM rollouts live
		WHERE live.env_name = rollouts.env_name
			AND live.ingested_at >= ?
			AND live.hotkey = rollouts.hotkey
			AND live.model = rollouts.model
			AND live.revision IS NOT DISTINCT FROM rollouts.revision
	)
` + leaderboardOrder,
		args: []any{env, scoringSince, liveSince, limit},
	}
}

func performanceByEnvQuery(since time.Time) query {
	return query{
		name: "performance_by_env",
		sql: `SELECT env_name,
	COUNT(*) AS total_rollouts,
	AVG(` + normalizedScoreSQL + `)::float8 * 100 AS avg_score,
	` + successPercentSQL + ` AS success_rate_percent,
	AVG(latency_seconds)::float8 AS avg_latency,
	COUNT(DISTINCT hotkey) AS miners
FROM rollouts
WHERE ingested_at >= ? AND env_name IS NOT NULL
GROUP BY env_name
ORDER BY env_name ASC`,
		args: []any{since},
	}
}

func scoreDistributionQuery(env string, since time.Time) query {
	return query{
		name: "score_distribution",
		sql: `SELECT b.bucket,
	b.bucket::float8 / ? AS range_start,
	(b.bucket + 1)::float8 / ? AS range_end,
	COUNT(*) AS count
FROM (
	SELECT LEAST(GREATEST(FLOOR(` + normalizedScoreSQL + ` * ?), 0), ? - 1)::int AS bucket
	FROM rollouts
	WHERE env_name = ? AND ingested_at >= ? AND score IS NOT NULL
) b
GROUP BY b.bucket
ORDER BY b.bucket ASC`,
		args: []any{float64(scoreBuckets), float64(scoreBuckets), float64(scoreBuckets), float64(scoreBuckets), env, since},
	}
}

func latencyDistributionQuery(env string, since time.Time) query {
	return query{
		name: "latency_distribution",
		sql: `SELECT b.bucket * ? AS range_start,
	(b.bucket + 1) * ? AS range_end,
	COUNT(*) AS count
FROM (
	SELECT FLOOR(GREATEST(latency_seconds, 0) / ?)::float8 AS bucket
	FROM rollouts
	WHERE env_name = ? AND ingested_at >= ? AND latency_seconds IS NOT NULL
) b
GROUP BY b.bucket
ORDER BY b.bucket ASC`,
		args: []any{float64(latencyBucketSeconds), float64(latencyBucketSeconds), float64(latencyBucketSeconds), env, since},
	}
}

// modelStatsQuery matches models case- and whitespace-insensitively; keys
// must already be normalized with ModelKey.
func modelStatsQuery(keys []string, since time.Time) query {
	return query{
		name: "model_stats",
		sql: `SELECT LOWER(TRIM(model)) AS model_key,
	(ARRAY_AGG(model ORDER BY ingested_at DESC))[1] AS model,
	(ARRAY_AGG(hotkey ORDER BY ingested_at DESC))[1] AS hotkey,
	(ARRAY_AGG(revision ORDER BY ingested_at DESC))[1] AS revision,
	COUNT(*) AS total_rollouts,
	AVG(` + normalizedScoreSQL + `)::float8 * 100 AS avg_score,
	` + successPercentSQL + ` AS success_rate_percent,
	AVG(latency_seconds)::float8 AS avg_latency,
	MAX(ingested_at) AS last_rollout_at
FROM rollouts
WHERE ingested_at >= ? AND LOWER(TRIM(model)) IN ?
GROUP BY LOWER(TRIM(model))`,
		args: []any{since, keys},
	}
}

func dailyRolloutsQuery(since time.Time) query {
	return query{
		name: "daily_rollouts_by_model",
		sql: `SELECT date_trunc('day', ingested_at AT TIME ZONE 'UTC') AS day, model, COUNT(*) AS rollouts
FROM rollouts
WHERE ingested_at >= ?
GROUP BY 1, model
ORDER BY 1 ASC, model ASC`,
		args: []any{since},
	}
}

func resultsOverTimeQuery(since time.Time) query {
	return query{
		name: "results_over_time",
		sql: `SELECT date_trunc('day', ingested_at AT TIME ZONE 'UTC') AS day, env_name,
	AVG(` + normalizedScoreSQL + `)::float8 * 100 AS avg_score,
	COUNT(*) AS rollouts
FROM rollouts
WHERE ingested_at >= ? AND env_name IS NOT NULL
GROUP BY 1, env_name
ORDER BY 1 ASC, env_name ASC`,
		args: []any{since},
	}
}

func activityFeedQuery(limit int) query {
	return query{
		name: "activity_feed",
		sql: `SELECT ingested_at, hotkey, uid, model, revision, env_name, score, success, latency_seconds, extra::text AS extra
FROM rollouts
ORDER BY ingested_at DESC
LIMIT ?`,
		args: []any{limit},
	}
}

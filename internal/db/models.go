package db

import (
	"time"

	"gorm.io/datatypes"
)

// TableRollouts is the external append-only results table.
const TableRollouts = "rollouts"

// RolloutRecord is one evaluation attempt as written by the ingestion
// process. Rows are immutable; this service only reads them.
type RolloutRecord struct {
	IngestedAt time.Time `gorm:"column:ingested_at;index" json:"ingested_at"`

	// Hotkey is the miner identity. UID is its registration slot, which can
	// change across re-registrations, so it is never used as identity.
	Hotkey string `gorm:"column:hotkey;index" json:"hotkey"`
	UID    int64  `gorm:"column:uid" json:"uid"`

	Model    string  `gorm:"column:model" json:"model"`
	Revision *string `gorm:"column:revision" json:"revision"`
	EnvName  string  `gorm:"column:env_name;index" json:"env_name"`

	Score          *float64 `gorm:"column:score" json:"score"`
	Success        bool     `gorm:"column:success" json:"success"`
	LatencySeconds *float64 `gorm:"column:latency_seconds" json:"latency_seconds"`

	// Extra holds deployment metadata (GPU type, pricing, chute id). It may
	// be absent or malformed; read it through ParseExtra.
	Extra datatypes.JSON `gorm:"column:extra" json:"extra,omitempty"`
}

func (RolloutRecord) TableName() string { return TableRollouts }

// EnvironmentAggregate is the finest-grained overview aggregate, keyed by
// (hotkey, model, revision, env_name).
type EnvironmentAggregate struct {
	Hotkey             string   `gorm:"column:hotkey" json:"hotkey"`
	Model              string   `gorm:"column:model" json:"model"`
	Revision           *string  `gorm:"column:revision" json:"revision"`
	EnvName            string   `gorm:"column:env_name" json:"env_name"`
	RolloutCount       int64    `gorm:"column:rollout_count" json:"rollout_count"`
	AvgScore           *float64 `gorm:"column:avg_score" json:"avg_score"`
	AvgLatency         *float64 `gorm:"column:avg_latency" json:"avg_latency"`
	SuccessRatePercent float64  `gorm:"column:success_rate_percent" json:"success_rate_percent"`
}

// OverallAggregate collapses every environment of one (hotkey, model, revision).
// Scores are 0..1 normalized, not yet scaled to percent.
type OverallAggregate struct {
	Hotkey             string    `gorm:"column:hotkey"`
	Model              string    `gorm:"column:model"`
	Revision           *string   `gorm:"column:revision"`
	UID                int64     `gorm:"column:uid"`
	TotalRollouts      int64     `gorm:"column:total_rollouts"`
	OverallAvgScore    *float64  `gorm:"column:overall_avg_score"`
	SuccessRatePercent float64   `gorm:"column:success_rate_percent"`
	AvgLatency         *float64  `gorm:"column:avg_latency"`
	LastRolloutAt      time.Time `gorm:"column:last_rollout_at"`

	// LatestExtra is the newest non-null extra as raw text. ChuteExtras is a
	// JSON array of the raw extras mentioning a chute id, newest first.
	LatestExtra *string `gorm:"column:latest_extra"`
	ChuteExtras *string `gorm:"column:chute_extras"`
}

// LeaderboardRow is one miner/model/revision in a ranked view.
type LeaderboardRow struct {
	Hotkey             string    `gorm:"column:hotkey" json:"hotkey"`
	UID                int64     `gorm:"column:uid" json:"uid"`
	Model              string    `gorm:"column:model" json:"model"`
	Revision           *string   `gorm:"column:revision" json:"revision"`
	TotalRollouts      int64     `gorm:"column:total_rollouts" json:"total_rollouts"`
	AvgScore           *float64  `gorm:"column:avg_score" json:"avg_score"`
	SuccessRatePercent float64   `gorm:"column:success_rate_percent" json:"success_rate_percent"`
	AvgLatency         *float64  `gorm:"column:avg_latency" json:"avg_latency"`
	LastRolloutAt      time.Time `gorm:"column:last_rollout_at" json:"last_rollout_at"`
}

// EnvPerformanceRow summarizes one environment.
type EnvPerformanceRow struct {
	EnvName            string   `gorm:"column:env_name" json:"env_name"`
	TotalRollouts      int64    `gorm:"column:total_rollouts" json:"total_rollouts"`
	AvgScore           *float64 `gorm:"column:avg_score" json:"avg_score"`
	SuccessRatePercent float64  `gorm:"column:success_rate_percent" json:"success_rate_percent"`
	AvgLatency         *float64 `gorm:"column:avg_latency" json:"avg_latency"`
	Miners             int64    `gorm:"column:miners" json:"miners"`
}

// ScoreBucket is one bin of the normalized score histogram.
type ScoreBucket struct {
	Bucket     int     `gorm:"column:bucket" json:"bucket"`
	RangeStart float64 `gorm:"column:range_start" json:"range_start"`
	RangeEnd   float64 `gorm:"column:range_end" json:"range_end"`
	Count      int64   `gorm:"column:count" json:"count"`
}

// LatencyBucket is one bin of the latency histogram, in seconds.
type LatencyBucket struct {
	RangeStart float64 `gorm:"column:range_start" json:"range_start_seconds"`
	RangeEnd   float64 `gorm:"column:range_end" json:"range_end_seconds"`
	Count      int64   `gorm:"column:count" json:"count"`
}

// ModelStatsRow is the latest aggregate for one normalized model name.
type ModelStatsRow struct {
	ModelKey           string    `gorm:"column:model_key" json:"-"`
	Model              string    `gorm:"column:model" json:"model"`
	Hotkey             string    `gorm:"column:hotkey" json:"hotkey"`
	Revision           *string   `gorm:"column:revision" json:"revision"`
	TotalRollouts      int64     `gorm:"column:total_rollouts" json:"total_rollouts"`
	AvgScore           *float64  `gorm:"column:avg_score" json:"avg_score"`
	SuccessRatePercent float64   `gorm:"column:success_rate_percent" json:"success_rate_percent"`
	AvgLatency         *float64  `gorm:"column:avg_latency" json:"avg_latency"`
	LastRolloutAt      time.Time `gorm:"column:last_rollout_at" json:"last_rollout_at"`
}

// DailyRolloutRow counts rollouts of one model on one UTC day.
type DailyRolloutRow struct {
	Day      time.Time `gorm:"column:day" json:"day"`
	Model    string    `gorm:"column:model" json:"model"`
	Rollouts int64     `gorm:"column:rollouts" json:"rollouts"`
}

// ResultsOverTimeRow is the daily average of one environment.
type ResultsOverTimeRow struct {
	Day      time.Time `gorm:"column:day" json:"day"`
	EnvName  string    `gorm:"column:env_name" json:"env_name"`
	AvgScore *float64  `gorm:"column:avg_score" json:"avg_score"`
	Rollouts int64     `gorm:"column:rollouts" json:"rollouts"`
}

// activityRow is scanned with extra as text; see Record.
type activityRow struct {
	IngestedAt     time.Time `gorm:"column:ingested_at"`
	Hotkey         string    `gorm:"column:hotkey"`
	UID            int64     `gorm:"column:uid"`
	Model          string    `gorm:"column:model"`
	Revision       *string   `gorm:"column:revision"`
	EnvName        string    `gorm:"column:env_name"`
	Score          *float64  `gorm:"column:score"`
	Success        bool      `gorm:"column:success"`
	LatencySeconds *float64  `gorm:"column:latency_seconds"`
	Extra          *string   `gorm:"column:extra"`
}

// Record converts a scanned row, keeping extra only when it is valid JSON.
func (r activityRow) Record() RolloutRecord {
	rec := RolloutRecord{
		IngestedAt:     r.IngestedAt,
		Hotkey:         r.Hotkey,
		UID:            r.UID,
		Model:          r.Model,
		Revision:       r.Revision,
		EnvName:        r.EnvName,
		Score:          r.Score,
		Success:        r.Success,
		LatencySeconds: r.LatencySeconds,
	}
	if r.Extra != nil && validJSON(*r.Extra) {
		rec.Extra = datatypes.JSON(*r.Extra)
	}
	return rec
}

// Package overview computes the subnet scoreboard: one row per
// (hotkey, model, revision) with a score column per environment active in
// the lookback window and an eligibility verdict.
package overview

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"subnetdash/internal/db"
)

// Source is the slice of the results store the aggregator reads.
type Source interface {
	Environments(ctx context.Context, since time.Time) ([]string, error)
	EnvironmentMetrics(ctx context.Context, since time.Time, envs []string) ([]db.EnvironmentAggregate, error)
	OverallMetrics(ctx context.Context, since time.Time) ([]db.OverallAggregate, error)
}

// Aggregator is stateless between calls; environments are rediscovered on
// every Compute.
type Aggregator struct {
	src    Source
	window time.Duration
	now    func() time.Time
	log    *zap.Logger
}

func New(src Source, window time.Duration, log *zap.Logger) *Aggregator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Aggregator{src: src, window: window, now: time.Now, log: log}
}

// Result is one computed scoreboard.
type Result struct {
	Since   time.Time
	Columns []Column
	Rows    []Row
}

// Row is one SubnetOverviewRow. Scores holds every column alias; absent
// environments map to nil.
type Row struct {
	Hotkey             string
	UID                int64
	Model              string
	Revision           *string
	Eligible           bool
	TotalRollouts      int64
	OverallAvgScore    *float64
	SuccessRatePercent float64
	AvgLatency         *float64
	LastRolloutAt      time.Time
	ChuteID            *string
	Scores             map[string]*float64
}

func (r Row) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(reservedKeys)+len(r.Scores))
	for alias, v := range r.Scores {
		if reservedKeys[alias] {
			continue
		}
		out[alias] = v
	}
	out["hotkey"] = r.Hotkey
	out["uid"] = r.UID
	out["model"] = r.Model
	out["revision"] = r.Revision
	out["eligible"] = r.Eligible
	out["total_rollouts"] = r.TotalRollouts
	out["overall_avg_score"] = r.OverallAvgScore
	out["success_rate_percent"] = r.SuccessRatePercent
	out["avg_latency"] = r.AvgLatency
	out["last_rollout_at"] = r.LastRolloutAt.UTC().Format(time.RFC3339)
	out["chute_id"] = r.ChuteID
	return sonic.Marshal(out)
}

type groupKey struct {
	hotkey      string
	model       string
	revision    string
	hasRevision bool
}

func keyOf(hotkey, model string, revision *string) groupKey {
	k := groupKey{hotkey: hotkey, model: model}
	if revision != nil {
		k.revision = *revision
		k.hasRevision = true
	}
	return k
}

// Compute runs discovery, base metrics, eligibility and the pivot. Any
// store error aborts the whole computation.
func (a *Aggregator) Compute(ctx context.Context) (*Result, error) {
	since := a.now().Add(-a.window)

	envs, err := a.src.Environments(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("discover environments: %w", err)
	}
	cols, conflicts := Columns(envs)
	for _, c := range conflicts {
		a.log.Warn("environment column conflict",
			zap.String("env", c.Env),
			zap.String("alias", c.Alias),
			zap.String("reason", c.Reason))
	}
	environmentsGauge.Set(float64(len(cols)))

	base, err := a.src.EnvironmentMetrics(ctx, since, envs)
	if err != nil {
		return nil, fmt.Errorf("environment metrics: %w", err)
	}
	overall, err := a.src.OverallMetrics(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("overall metrics: %w", err)
	}

	bars := Bars(base)
	counts := make(map[groupKey]map[string]int64)
	scores := make(map[groupKey]map[string]*float64)
	for _, m := range base {
		k := keyOf(m.Hotkey, m.Model, m.Revision)
		if counts[k] == nil {
			counts[k] = make(map[string]int64)
			scores[k] = make(map[string]*float64)
		}
		counts[k][m.EnvName] = m.RolloutCount
		scores[k][m.EnvName] = percent(m.AvgScore)
	}

	rows := make([]Row, 0, len(overall))
	for _, o := range overall {
		k := keyOf(o.Hotkey, o.Model, o.Revision)
		row := Row{
			Hotkey:             o.Hotkey,
			UID:                o.UID,
			Model:              o.Model,
			Revision:           o.Revision,
			Eligible:           Eligible(counts[k], bars),
			TotalRollouts:      o.TotalRollouts,
			OverallAvgScore:    percent(o.OverallAvgScore),
			SuccessRatePercent: clampPercent(o.SuccessRatePercent),
			AvgLatency:         o.AvgLatency,
			LastRolloutAt:      o.LastRolloutAt,
			Scores:             make(map[string]*float64, len(cols)),
		}
		if id := o.ChuteID(); id != "" {
			row.ChuteID = &id
		}
		for _, c := range cols {
			row.Scores[c.Alias] = scores[k][c.Env]
		}
		rows = append(rows, row)
	}
	SortRows(rows)

	return &Result{Since: since, Columns: cols, Rows: rows}, nil
}

// SortRows orders by overall score desc (nulls last), then total rollouts
// desc, then hotkey, model and revision ascending (null revision first).
func SortRows(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		switch {
		case a.OverallAvgScore == nil && b.OverallAvgScore != nil:
			return false
		case a.OverallAvgScore != nil && b.OverallAvgScore == nil:
			return true
		case a.OverallAvgScore != nil && *a.OverallAvgScore != *b.OverallAvgScore:
			return *a.OverallAvgScore > *b.OverallAvgScore
		}
		if a.TotalRollouts != b.TotalRollouts {
			return a.TotalRollouts > b.TotalRollouts
		}
		if a.Hotkey != b.Hotkey {
			return a.Hotkey < b.Hotkey
		}
		if a.Model != b.Model {
			return a.Model < b.Model
		}
		switch {
		case a.Revision == nil:
			return b.Revision != nil
		case b.Revision == nil:
			return false
		}
		return *a.Revision < *b.Revision
	})
}

func percent(v *float64) *float64 {
	if v == nil {
		return nil
	}
	p := *v * 100
	return &p
}

func clampPercent(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}

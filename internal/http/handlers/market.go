package handlers

import (
	"sort"

	"github.com/valyala/fasthttp"

	dbpkg "subnetdash/internal/db"
)

type gpuShare struct {
	GPU          string  `json:"gpu"`
	Miners       int64   `json:"miners"`
	SharePercent float64 `json:"share_percent"`
}

type minerEfficiency struct {
	Hotkey         string   `json:"hotkey"`
	UID            int64    `json:"uid"`
	Model          string   `json:"model"`
	Revision       *string  `json:"revision"`
	TotalRollouts  int64    `json:"total_rollouts"`
	AvgScore       *float64 `json:"avg_score"`
	AvgLatency     *float64 `json:"avg_latency"`
	ScorePerSecond *float64 `json:"score_per_second"`
}

type minerCostEfficiency struct {
	Hotkey             string   `json:"hotkey"`
	UID                int64    `json:"uid"`
	Model              string   `json:"model"`
	Revision           *string  `json:"revision"`
	AvgScore           *float64 `json:"avg_score"`
	PricePerHour       *float64 `json:"price_per_hour"`
	ScorePerDollarHour *float64 `json:"score_per_dollar_hour"`
}

// latestPerMiner keeps, per hotkey, the deployment with the newest rollout.
func latestPerMiner(rows []dbpkg.OverallAggregate) []dbpkg.OverallAggregate {
	latest := make(map[string]dbpkg.OverallAggregate, len(rows))
	for _, r := range rows {
		cur, ok := latest[r.Hotkey]
		if !ok || r.LastRolloutAt.After(cur.LastRolloutAt) ||
			(r.LastRolloutAt.Equal(cur.LastRolloutAt) && r.Model < cur.Model) {
			latest[r.Hotkey] = r
		}
	}
	out := make([]dbpkg.OverallAggregate, 0, len(latest))
	for _, r := range latest {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hotkey < out[j].Hotkey })
	return out
}

// gpuMarketShare counts each miner once under the first GPU type of its
// latest deployment. Miners without GPU metadata are left out.
func gpuMarketShare(rows []dbpkg.OverallAggregate) []gpuShare {
	counts := make(map[string]int64)
	var total int64
	for _, r := range latestPerMiner(rows) {
		gpus := dbpkg.ParseExtra(r.LatestExtra).GPUs
		if len(gpus) == 0 {
			continue
		}
		counts[gpus[0]]++
		total++
	}
	out := make([]gpuShare, 0, len(counts))
	for gpu, n := range counts {
		out = append(out, gpuShare{GPU: gpu, Miners: n, SharePercent: float64(n) * 100 / float64(total)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Miners != out[j].Miners {
			return out[i].Miners > out[j].Miners
		}
		return out[i].GPU < out[j].GPU
	})
	return out
}

func minerEfficiencies(rows []dbpkg.OverallAggregate) []minerEfficiency {
	out := make([]minerEfficiency, 0, len(rows))
	for _, r := range rows {
		score := scaled(r.OverallAvgScore)
		out = append(out, minerEfficiency{
			Hotkey:         r.Hotkey,
			UID:            r.UID,
			Model:          r.Model,
			Revision:       r.Revision,
			TotalRollouts:  r.TotalRollouts,
			AvgScore:       score,
			AvgLatency:     r.AvgLatency,
			ScorePerSecond: ratio(score, r.AvgLatency),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return lessNullsLast(out[i].ScorePerSecond, out[j].ScorePerSecond, out[i].Hotkey, out[j].Hotkey)
	})
	return out
}

func minerCostEfficiencies(rows []dbpkg.OverallAggregate) []minerCostEfficiency {
	out := make([]minerCostEfficiency, 0, len(rows))
	for _, r := range rows {
		score := scaled(r.OverallAvgScore)
		price := dbpkg.ParseExtra(r.LatestExtra).PricePerHour
		out = append(out, minerCostEfficiency{
			Hotkey:             r.Hotkey,
			UID:                r.UID,
			Model:              r.Model,
			Revision:           r.Revision,
			AvgScore:           score,
			PricePerHour:       price,
			ScorePerDollarHour: ratio(score, price),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return lessNullsLast(out[i].ScorePerDollarHour, out[j].ScorePerDollarHour, out[i].Hotkey, out[j].Hotkey)
	})
	return out
}

func scaled(v *float64) *float64 {
	if v == nil {
		return nil
	}
	s := *v * 100
	return &s
}

// ratio is nil unless both sides are known and the divisor is positive.
func ratio(num, den *float64) *float64 {
	if num == nil || den == nil || *den <= 0 {
		return nil
	}
	r := *num / *den
	return &r
}

func lessNullsLast(a, b *float64, ka, kb string) bool {
	switch {
	case a == nil && b == nil:
		return ka < kb
	case a == nil:
		return false
	case b == nil:
		return true
	case *a != *b:
		return *a > *b
	}
	return ka < kb
}

func GPUMarketShare(d *Deps) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		rows, err := d.Store.OverallMetrics(ctx, d.since(d.Cfg.OverviewWindow))
		if err != nil {
			serverError(ctx, d, err)
			return
		}
		jsonResponse(ctx, fasthttp.StatusOK, gpuMarketShare(rows))
	}
}

func MinerEfficiency(d *Deps) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		rows, err := d.Store.OverallMetrics(ctx, d.since(d.Cfg.OverviewWindow))
		if err != nil {
			serverError(ctx, d, err)
			return
		}
		jsonResponse(ctx, fasthttp.StatusOK, minerEfficiencies(rows))
	}
}

func MinerCostEfficiency(d *Deps) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		rows, err := d.Store.OverallMetrics(ctx, d.since(d.Cfg.OverviewWindow))
		if err != nil {
			serverError(ctx, d, err)
			return
		}
		jsonResponse(ctx, fasthttp.StatusOK, minerCostEfficiencies(rows))
	}
}

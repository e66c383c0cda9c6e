package handlers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbpkg "subnetdash/internal/db"
)

func strp(s string) *string { return &s }
func f64p(f float64) *float64 { return &f }

func TestGPUMarketShare(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := []dbpkg.OverallAggregate{
		// hk1 moved from an a100 deployment to an h100 one; only the latest counts.
		{Hotkey: "hk1", Model: "old", LastRolloutAt: t0,
			LatestExtra: strp(`{"miner_chute":{"node_selector":{"supported_gpus":["a100"]}}}`)},
		{Hotkey: "hk1", Model: "new", LastRolloutAt: t0.Add(time.Hour),
			LatestExtra: strp(`{"miner_chute":{"node_selector":{"supported_gpus":["H100","a100"]}}}`)},
		{Hotkey: "hk2", Model: "m", LastRolloutAt: t0,
			LatestExtra: strp(`{"miner_chute":{"node_selector":{"supported_gpus":["a100"]}}}`)},
		{Hotkey: "hk3", Model: "m", LastRolloutAt: t0,
			LatestExtra: strp(`{"miner_chute":{"node_selector":{"supported_gpus":[" h100 "]}}}`)},
		{Hotkey: "hk4", Model: "m", LastRolloutAt: t0, LatestExtra: strp(`not json`)},
		{Hotkey: "hk5", Model: "m", LastRolloutAt: t0},
	}

	got := gpuMarketShare(rows)
	require.Len(t, got, 2)
	assert.Equal(t, "h100", got[0].GPU)
	assert.EqualValues(t, 2, got[0].Miners)
	assert.InDelta(t, 66.666, got[0].SharePercent, 1e-2)
	assert.Equal(t, "a100", got[1].GPU)
	assert.InDelta(t, 33.333, got[1].SharePercent, 1e-2)
}

func TestGPUMarketShareEmpty(t *testing.T) {
	got := gpuMarketShare(nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestMinerEfficiencies(t *testing.T) {
	rows := []dbpkg.OverallAggregate{
		{Hotkey: "slow", OverallAvgScore: f64p(0.8), AvgLatency: f64p(40)},
		{Hotkey: "fast", OverallAvgScore: f64p(0.5), AvgLatency: f64p(5)},
		{Hotkey: "zero-latency", OverallAvgScore: f64p(0.9), AvgLatency: f64p(0)},
		{Hotkey: "no-latency", OverallAvgScore: f64p(0.9)},
	}
	got := minerEfficiencies(rows)
	require.Len(t, got, 4)
	assert.Equal(t, "fast", got[0].Hotkey)
	assert.InDelta(t, 10.0, *got[0].ScorePerSecond, 1e-9)
	assert.Equal(t, "slow", got[1].Hotkey)
	assert.InDelta(t, 2.0, *got[1].ScorePerSecond, 1e-9)
	assert.Nil(t, got[2].ScorePerSecond)
	assert.Nil(t, got[3].ScorePerSecond)
	assert.Equal(t, "no-latency", got[2].Hotkey)
}

func TestMinerCostEfficiencies(t *testing.T) {
	priced := func(p string) *string {
		return strp(`{"miner_chute":{"current_estimated_price":{"usd":{"hour":` + p + `}}}}`)
	}
	rows := []dbpkg.OverallAggregate{
		{Hotkey: "cheap", OverallAvgScore: f64p(0.5), LatestExtra: priced("0.5")},
		{Hotkey: "pricey", OverallAvgScore: f64p(0.9), LatestExtra: priced("9")},
		{Hotkey: "free", OverallAvgScore: f64p(0.9), LatestExtra: priced("0")},
		{Hotkey: "bad", OverallAvgScore: f64p(0.9), LatestExtra: priced(`"1.0"`)},
	}
	got := minerCostEfficiencies(rows)
	require.Len(t, got, 4)
	assert.Equal(t, "cheap", got[0].Hotkey)
	assert.InDelta(t, 100.0, *got[0].ScorePerDollarHour, 1e-9)
	assert.Equal(t, "pricey", got[1].Hotkey)
	assert.InDelta(t, 10.0, *got[1].ScorePerDollarHour, 1e-9)

	assert.Equal(t, "bad", got[2].Hotkey)
	assert.Nil(t, got[2].PricePerHour)
	assert.Equal(t, "free", got[3].Hotkey)
	require.NotNil(t, got[3].PricePerHour)
	assert.Nil(t, got[3].ScorePerDollarHour)
}

package overview

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"

	"subnetdash/internal/db"
)

func TestBar(t *testing.T) {
	assert.InDelta(t, 150.0, Bar(0), 1e-9)
	assert.InDelta(t, 160.0, Bar(1000), 1e-9)
	assert.InDelta(t, 250.0, Bar(10000), 1e-9)
}

func TestBars(t *testing.T) {
	bars := Bars([]db.EnvironmentAggregate{
		{Hotkey: "a", EnvName: "SAT", RolloutCount: 200},
		{Hotkey: "b", EnvName: "SAT", RolloutCount: 1000},
		{Hotkey: "a", EnvName: "ABD", RolloutCount: 10000},
	})
	assert.Len(t, bars, 2)
	assert.InDelta(t, 160.0, bars["SAT"], 1e-9)
	assert.InDelta(t, 250.0, bars["ABD"], 1e-9)
}

func TestEligible(t *testing.T) {
	bars := map[string]float64{"SAT": 160, "ABD": 250}

	tests := []struct {
		name   string
		counts map[string]int64
		want   bool
	}{
		{"meets every attempted env", map[string]int64{"SAT": 200, "ABD": 300}, true},
		{"one env under its bar", map[string]int64{"SAT": 200, "ABD": 200}, false},
		{"exactly at the bar", map[string]int64{"SAT": 160}, true},
		{"unattempted envs are ignored", map[string]int64{"SAT": 161}, true},
		{"nothing attempted", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Eligible(tt.counts, bars))
		})
	}
}

func TestEligibleScenario(t *testing.T) {
	// A has max 200 (bar 152), B has max 10 (bar 150.1).
	metrics := []db.EnvironmentAggregate{
		{Hotkey: "h1", Model: "m1", EnvName: "A", RolloutCount: 200},
		{Hotkey: "h1", Model: "m1", EnvName: "B", RolloutCount: 10},
	}
	bars := Bars(metrics)
	assert.InDelta(t, 152.0, bars["A"], 1e-9)
	assert.InDelta(t, 150.1, bars["B"], 1e-9)
	assert.False(t, Eligible(map[string]int64{"A": 200, "B": 10}, bars))
	assert.True(t, Eligible(map[string]int64{"A": 200}, bars))
}

func TestEligibleIsMonotonic(t *testing.T) {
	bars := map[string]float64{"SAT": 160}
	for n := int64(0); n < 400; n += 7 {
		if Eligible(map[string]int64{"SAT": n}, bars) {
			assert.True(t, Eligible(map[string]int64{"SAT": n + 1}, bars), "count %d", n+1)
		}
	}
}

func TestEligibleIsMonotonicWhenOwnCountsMoveTheBar(t *testing.T) {
	others := []db.EnvironmentAggregate{
		{Hotkey: "other", Model: "m", EnvName: "SAT", RolloutCount: 400},
		{Hotkey: "other", Model: "m", EnvName: "ABD", RolloutCount: 170},
	}
	eligibleAt := func(sat, abd int64) bool {
		metrics := append(slices.Clone(others),
			db.EnvironmentAggregate{Hotkey: "hk", Model: "m", EnvName: "SAT", RolloutCount: sat},
			db.EnvironmentAggregate{Hotkey: "hk", Model: "m", EnvName: "ABD", RolloutCount: abd},
		)
		return Eligible(map[string]int64{"SAT": sat, "ABD": abd}, Bars(metrics))
	}

	for sat := int64(100); sat <= 20000; sat += 97 {
		for abd := int64(100); abd <= 20000; abd += 389 {
			if !eligibleAt(sat, abd) {
				continue
			}
			assert.True(t, eligibleAt(sat+1, abd), "sat %d abd %d", sat+1, abd)
			assert.True(t, eligibleAt(sat, abd+1), "sat %d abd %d", sat, abd+1)
			assert.True(t, eligibleAt(sat*2, abd*3), "sat %d abd %d", sat*2, abd*3)
		}
	}
	// Once hk is the busiest participant in both envs its own counts set
	// the bars, and it must still clear them.
	assert.True(t, eligibleAt(10000, 10000))
}

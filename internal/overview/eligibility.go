package overview

import (
	"subnetdash/internal/db"
)

const (
	// EligibilityFloor is the fixed minimum rollouts per attempted environment.
	EligibilityFloor = 150.0
	// EligibilityShare is the fraction of the busiest participant's volume
	// added on top of the floor.
	EligibilityShare = 0.01
)

// Bar returns the minimum rollout count for an environment whose busiest
// (hotkey, model, revision) has maxRollouts.
func Bar(maxRollouts int64) float64 {
	return EligibilityFloor + EligibilityShare*float64(maxRollouts)
}

// Bars computes the per-environment bar from base metrics.
func Bars(metrics []db.EnvironmentAggregate) map[string]float64 {
	maxima := make(map[string]int64)
	for _, m := range metrics {
		if m.RolloutCount > maxima[m.EnvName] {
			maxima[m.EnvName] = m.RolloutCount
		}
	}
	bars := make(map[string]float64, len(maxima))
	for env, n := range maxima {
		bars[env] = Bar(n)
	}
	return bars
}

// Eligible reports whether every attempted environment meets its bar.
// With no attempted environments it is vacuously true.
func Eligible(counts map[string]int64, bars map[string]float64) bool {
	for env, n := range counts {
		if float64(n) < bars[env] {
			return false
		}
	}
	return true
}

package overview

import (
	"regexp"
	"strings"
)

var safeAlias = regexp.MustCompile(`^[a-z0-9_]+$`)

// Column pairs a discovered environment with the output key its scores
// are published under.
type Column struct {
	Env   string `json:"env"`
	Alias string `json:"alias"`
}

// reservedKeys are the fixed fields of a Row. An environment whose alias
// equals one of them is reported and never overrides the fixed field.
var reservedKeys = map[string]bool{
	"hotkey":               true,
	"uid":                  true,
	"model":                true,
	"revision":             true,
	"eligible":             true,
	"total_rollouts":       true,
	"overall_avg_score":    true,
	"success_rate_percent": true,
	"avg_latency":          true,
	"last_rollout_at":      true,
	"chute_id":             true,
}

// Alias lowercases env and replaces every character outside [a-z0-9] with '_'.
func Alias(env string) string {
	var b strings.Builder
	b.Grow(len(env))
	for _, r := range strings.ToLower(env) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// Conflict records an environment whose alias cannot be published as-is.
type Conflict struct {
	Env    string
	Alias  string
	Reason string
}

// Columns builds the pivot column list from discovered environments, in
// input order. Aliases that fail the safety predicate are dropped. Two
// environments sharing an alias both stay; the later one wins at pivot
// time, matching the collision behavior of the dashboard this replaces.
func Columns(envs []string) ([]Column, []Conflict) {
	cols := make([]Column, 0, len(envs))
	var conflicts []Conflict
	owner := make(map[string]string, len(envs))
	for _, env := range envs {
		alias := Alias(env)
		switch {
		case !safeAlias.MatchString(alias):
			conflicts = append(conflicts, Conflict{Env: env, Alias: alias, Reason: "unsafe alias"})
			continue
		case reservedKeys[alias]:
			conflicts = append(conflicts, Conflict{Env: env, Alias: alias, Reason: "shadows fixed field"})
		case owner[alias] != "":
			conflicts = append(conflicts, Conflict{Env: env, Alias: alias, Reason: "collides with " + owner[alias]})
		}
		owner[alias] = env
		cols = append(cols, Column{Env: env, Alias: alias})
	}
	return cols, conflicts
}

package db

import (
	"strings"

	"github.com/bytedance/sonic"
)

// Extra is the deployment metadata recovered from a rollout's extra blob.
// Every field degrades to its zero value when the path is missing, the
// blob is not JSON, or a value has an unexpected type.
type Extra struct {
	ChuteID      string
	GPUs         []string
	PricePerHour *float64
}

// ParseExtra decodes raw extra text. It never fails.
func ParseExtra(raw *string) Extra {
	var out Extra
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return out
	}
	var doc any
	if err := sonic.UnmarshalString(*raw, &doc); err != nil {
		return out
	}

	if s, ok := lookup(doc, "miner_chute", "chute_id").(string); ok {
		out.ChuteID = strings.TrimSpace(s)
	}
	if list, ok := lookup(doc, "miner_chute", "node_selector", "supported_gpus").([]any); ok {
		for _, v := range list {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				out.GPUs = append(out.GPUs, strings.ToLower(strings.TrimSpace(s)))
			}
		}
	}
	if f, ok := lookup(doc, "miner_chute", "current_estimated_price", "usd", "hour").(float64); ok && f >= 0 {
		out.PricePerHour = &f
	}
	return out
}

// ChuteID returns the chute id of the newest candidate extra that carries a
// usable miner_chute.chute_id, or "" when none does.
func (o OverallAggregate) ChuteID() string {
	if o.ChuteExtras == nil {
		return ""
	}
	var candidates []*string
	if err := sonic.UnmarshalString(*o.ChuteExtras, &candidates); err != nil {
		return ""
	}
	for _, raw := range candidates {
		if id := ParseExtra(raw).ChuteID; id != "" {
			return id
		}
	}
	return ""
}

// lookup walks nested objects; any mismatch yields nil.
func lookup(doc any, path ...string) any {
	cur := doc
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[key]
	}
	return cur
}

func validJSON(s string) bool {
	var v any
	return sonic.UnmarshalString(s, &v) == nil
}

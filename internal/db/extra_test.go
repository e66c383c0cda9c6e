package db

import (
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExtra(t *testing.T) {
	full := `{"miner_chute":{"chute_id":" c-1 ","node_selector":{"supported_gpus":["H100"," a100 ",3,""]},
		"current_estimated_price":{"usd":{"hour":1.25}}}}`
	s := func(v string) *string { return &v }

	tests := []struct {
		name  string
		raw   *string
		want  Extra
		price *float64
	}{
		{name: "nil", raw: nil},
		{name: "blank", raw: s("  ")},
		{name: "invalid json", raw: s(`{"miner_chute":`)},
		{name: "not an object", raw: s(`[1,2,3]`)},
		{name: "wrong types", raw: s(`{"miner_chute":{"chute_id":7,"node_selector":"x","current_estimated_price":{"usd":{"hour":"1"}}}}`)},
		{name: "negative price", raw: s(`{"miner_chute":{"current_estimated_price":{"usd":{"hour":-1}}}}`)},
		{name: "full", raw: s(full), want: Extra{ChuteID: "c-1", GPUs: []string{"h100", "a100"}}, price: func() *float64 { f := 1.25; return &f }()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseExtra(tt.raw)
			assert.Equal(t, tt.want.ChuteID, got.ChuteID)
			assert.Equal(t, tt.want.GPUs, got.GPUs)
			if tt.price == nil {
				assert.Nil(t, got.PricePerHour)
			} else {
				require.NotNil(t, got.PricePerHour)
				assert.InDelta(t, *tt.price, *got.PricePerHour, 1e-9)
			}
		})
	}
}

func TestActivityRowRecord(t *testing.T) {
	valid := `{"miner_chute":{"chute_id":"c"}}`
	broken := `{oops`

	rec := activityRow{Hotkey: "hk", EnvName: "SAT", Extra: &valid}.Record()
	assert.JSONEq(t, valid, string(rec.Extra))

	rec = activityRow{Hotkey: "hk", Extra: &broken}.Record()
	assert.Nil(t, rec.Extra)

	rec = activityRow{Hotkey: "hk"}.Record()
	assert.Nil(t, rec.Extra)
	assert.Equal(t, "hk", rec.Hotkey)
}

func TestOverallAggregateChuteID(t *testing.T) {
	candidates := func(raws ...*string) *string {
		b, err := sonic.MarshalString(raws)
		require.NoError(t, err)
		return &b
	}
	s := func(v string) *string { return &v }

	tests := []struct {
		name   string
		extras *string
		want   string
	}{
		{name: "no candidates", extras: nil},
		{name: "not an array", extras: s(`{"miner_chute":{"chute_id":"c1"}}`)},
		{name: "newest wins", extras: candidates(s(`{"miner_chute":{"chute_id":"c2"}}`), s(`{"miner_chute":{"chute_id":"c1"}}`)), want: "c2"},
		{name: "newest has null id", extras: candidates(s(`{"miner_chute":{"chute_id":null}}`), s(`{"miner_chute":{"chute_id":"c1"}}`)), want: "c1"},
		{name: "top-level id is ignored", extras: candidates(s(`{"chute_id":"top"}`), s(`{"miner_chute":{"chute_id":"c1"}}`)), want: "c1"},
		{name: "malformed and blank skipped", extras: candidates(s(`{oops`), nil, s(`{"miner_chute":{"chute_id":"  "}}`), s(`{"miner_chute":{"chute_id":"c0"}}`)), want: "c0"},
		{name: "none usable", extras: candidates(s(`{"miner_chute":{"chute_id":7}}`))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OverallAggregate{ChuteExtras: tt.extras}.ChuteID())
		})
	}
}

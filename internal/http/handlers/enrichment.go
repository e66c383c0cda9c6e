package handlers

import (
	"math"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	dbpkg "subnetdash/internal/db"
)

type enrichmentItem struct {
	UID   int64
	Model string
}

type enrichmentRow struct {
	UID   int64                `json:"uid"`
	Model string               `json:"model"`
	Found bool                 `json:"found"`
	Stats *dbpkg.ModelStatsRow `json:"stats"`
}

// parseEnrichmentItems decodes {items:[{uid, model}]}. Only an unparsable
// body is an error; items without a non-negative integer uid and a
// non-blank model are dropped.
func parseEnrichmentItems(body []byte) ([]enrichmentItem, error) {
	var doc map[string]any
	if err := sonic.Unmarshal(body, &doc); err != nil {
		return nil, err
	}
	list, _ := doc["items"].([]any)
	items := make([]enrichmentItem, 0, len(list))
	for _, raw := range list {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		uid, ok := m["uid"].(float64)
		if !ok || uid < 0 || uid != math.Trunc(uid) || uid > math.MaxInt32 {
			continue
		}
		model, _ := m["model"].(string)
		model = strings.TrimSpace(model)
		if model == "" {
			continue
		}
		items = append(items, enrichmentItem{UID: int64(uid), Model: model})
	}
	return items, nil
}

// LiveEnrichment attaches the latest aggregate stats of each item's model,
// matched case- and whitespace-insensitively. One row per valid item.
func LiveEnrichment(d *Deps) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		items, err := parseEnrichmentItems(ctx.PostBody())
		if err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "Invalid JSON body")
			return
		}
		if len(items) == 0 {
			jsonResponse(ctx, fasthttp.StatusOK, []enrichmentRow{})
			return
		}

		models := make([]string, 0, len(items))
		for _, it := range items {
			models = append(models, it.Model)
		}
		stats, err := d.Store.ModelStats(ctx, models, d.since(d.Cfg.OverviewWindow))
		if err != nil {
			serverError(ctx, d, err, zap.Int("items", len(items)))
			return
		}

		out := make([]enrichmentRow, 0, len(items))
		for _, it := range items {
			row := enrichmentRow{UID: it.UID, Model: it.Model}
			if s, ok := stats[dbpkg.ModelKey(it.Model)]; ok {
				row.Found = true
				row.Stats = &s
			}
			out = append(out, row)
		}
		jsonResponse(ctx, fasthttp.StatusOK, out)
	}
}

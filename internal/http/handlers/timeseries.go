package handlers

import (
	"github.com/valyala/fasthttp"
)

// DailyRolloutsByModel counts rollouts per model per UTC day.
func DailyRolloutsByModel(d *Deps) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		rows, err := d.Store.DailyRollouts(ctx, d.since(d.Cfg.DailyWindow))
		if err != nil {
			serverError(ctx, d, err)
			return
		}
		jsonResponse(ctx, fasthttp.StatusOK, nonNil(rows))
	}
}

// ResultsOverTime averages normalized scores per environment per UTC day.
func ResultsOverTime(d *Deps) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		rows, err := d.Store.ResultsOverTime(ctx, d.since(d.Cfg.OverviewWindow))
		if err != nil {
			serverError(ctx, d, err)
			return
		}
		jsonResponse(ctx, fasthttp.StatusOK, nonNil(rows))
	}
}

// ActivityFeed returns the newest rollouts, most recent first.
func ActivityFeed(d *Deps) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		rows, err := d.Store.ActivityFeed(ctx, d.Cfg.ActivityLimit)
		if err != nil {
			serverError(ctx, d, err)
			return
		}
		jsonResponse(ctx, fasthttp.StatusOK, nonNil(rows))
	}
}

package handlers

import (
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// ScoreDistribution buckets normalized scores of one environment into
// twenty equal bins over 0..1. Empty bins are omitted.
func ScoreDistribution(d *Deps) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		env, ok := requireEnv(ctx)
		if !ok {
			return
		}
		rows, err := d.Store.ScoreDistribution(ctx, env, d.since(d.Cfg.OverviewWindow))
		if err != nil {
			serverError(ctx, d, err, zap.String("env", env))
			return
		}
		jsonResponse(ctx, fasthttp.StatusOK, nonNil(rows))
	}
}

// LatencyDistribution buckets latencies of one environment in 5s bins.
func LatencyDistribution(d *Deps) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		env, ok := requireEnv(ctx)
		if !ok {
			return
		}
		rows, err := d.Store.LatencyDistribution(ctx, env, d.since(d.Cfg.OverviewWindow))
		if err != nil {
			serverError(ctx, d, err, zap.String("env", env))
			return
		}
		jsonResponse(ctx, fasthttp.StatusOK, nonNil(rows))
	}
}

package handlers

import (
	"github.com/valyala/fasthttp"
)

// SubnetOverview serves the pivoted scoreboard as a JSON array. Column keys
// vary with the environments active in the window.
func SubnetOverview(d *Deps) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		res, err := d.Overview.Compute(ctx)
		if err != nil {
			serverError(ctx, d, err)
			return
		}
		jsonResponse(ctx, fasthttp.StatusOK, nonNil(res.Rows))
	}
}

func Environments(d *Deps) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		envs, err := d.Store.Environments(ctx, d.since(d.Cfg.OverviewWindow))
		if err != nil {
			serverError(ctx, d, err)
			return
		}
		jsonResponse(ctx, fasthttp.StatusOK, nonNil(envs))
	}
}

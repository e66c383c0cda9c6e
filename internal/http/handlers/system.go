package handlers

import (
	"fmt"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	httpctx "subnetdash/internal/http/ctx"
)

// WeightsSummary proxies the upstream weights service through the cache.
// Upstream failures are 500s; nothing is substituted.
func WeightsSummary(d *Deps) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		body, err := d.Weights.Summary(ctx)
		if err != nil {
			serverError(ctx, d, err)
			return
		}
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetContentType("application/json")
		ctx.SetBody(body)
	}
}

func Healthz() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("ok")
	}
}

// Readyz reports whether a pooled store connection can be acquired and,
// when a cache is configured, whether it answers.
func Readyz(d *Deps) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if err := d.Store.Ping(ctx); err != nil {
			d.Log.Warn("readiness check failed", zap.String("component", "store"), zap.Error(err))
			errResponse(ctx, fasthttp.StatusServiceUnavailable, "Results store unavailable")
			return
		}
		if d.Cache != nil {
			if err := d.Cache.Health(ctx); err != nil {
				d.Log.Warn("readiness check failed", zap.String("component", "cache"), zap.Error(err))
				errResponse(ctx, fasthttp.StatusServiceUnavailable, "Cache unavailable")
				return
			}
		}
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("ok")
	}
}

func NotFound() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		errResponse(ctx, fasthttp.StatusNotFound, "Not found")
	}
}

// MethodNotAllowed runs after the router has set the Allow header.
func MethodNotAllowed() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		errResponse(ctx, fasthttp.StatusMethodNotAllowed,
			fmt.Sprintf("Method %s not allowed", ctx.Method()))
	}
}

// Panic turns a recovered handler panic into a logged 500.
func Panic(d *Deps) func(*fasthttp.RequestCtx, any) {
	return func(ctx *fasthttp.RequestCtx, rcv any) {
		d.Log.Error("handler panic",
			zap.String("endpoint", httpctx.Endpoint(ctx)),
			zap.String("request_id", httpctx.RequestIDFromCtx(ctx)),
			zap.Any("panic", rcv),
			zap.Stack("stack"))

		body := map[string]any{"message": internalErrorMessage}
		if d.Cfg != nil && d.Cfg.Development() {
			body["error"] = fmt.Sprint(rcv)
		}
		ctx.ResetBody()
		jsonResponse(ctx, fasthttp.StatusInternalServerError, body)
	}
}

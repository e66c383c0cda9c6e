package middleware

import (
	"github.com/valyala/fasthttp"
)

// CORS allows browser dashboards on other origins to read the API. With
// allowOrigin "*" the request origin is echoed back.
func CORS(allowOrigin string) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			h := &ctx.Response.Header
			origin := string(ctx.Request.Header.Peek("Origin"))
			switch {
			case allowOrigin == "*" && origin != "":
				h.Set("Access-Control-Allow-Origin", origin)
			case allowOrigin != "":
				h.Set("Access-Control-Allow-Origin", allowOrigin)
			}
			h.Set("Vary", "Origin")
			h.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Expose-Headers", "X-Request-ID")

			if ctx.IsOptions() {
				ctx.SetStatusCode(fasthttp.StatusNoContent)
				return
			}
			next(ctx)
		}
	}
}

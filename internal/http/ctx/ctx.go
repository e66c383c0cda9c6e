package ctx

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
)

const (
	RequestIDKey = "requestID"

	// RequestIDHeader is accepted from clients and echoed on every response.
	RequestIDHeader = "X-Request-ID"

	unmatchedEndpoint = "unmatched"
)

func SetRequestID(ctx *fasthttp.RequestCtx, id string) {
	ctx.SetUserValue(RequestIDKey, id)
}

func RequestIDFromCtx(ctx *fasthttp.RequestCtx) string {
	v, _ := ctx.UserValue(RequestIDKey).(string)
	return v
}

// Endpoint returns the matched route pattern (e.g. /live-env-leaderboard/{env})
// so metric labels stay bounded. The router must have SaveMatchedRoutePath set.
func Endpoint(ctx *fasthttp.RequestCtx) string {
	if v, ok := ctx.UserValue(router.MatchedRoutePathParam).(string); ok && v != "" {
		return v
	}
	return unmatchedEndpoint
}

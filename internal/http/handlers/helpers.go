package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	dbpkg "subnetdash/internal/db"
	httpctx "subnetdash/internal/http/ctx"
)

const (
	internalErrorMessage = "Internal server error"
	maxLoggedSQL         = 256
)

// envParamNames are accepted for env-scoped endpoints, in lookup order.
var envParamNames = []string{"env", "ENV", "Env", "env_name", "environment"}

func jsonResponse(ctx *fasthttp.RequestCtx, code int, data any) {
	body, err := sonic.Marshal(data)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`{"message":"` + internalErrorMessage + `"}`)
		return
	}
	ctx.SetStatusCode(code)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}

func errResponse(ctx *fasthttp.RequestCtx, code int, msg string) {
	jsonResponse(ctx, code, map[string]any{"message": msg})
}

// serverError logs err once with request context and replies 500. The
// underlying error is only echoed in development mode.
func serverError(ctx *fasthttp.RequestCtx, d *Deps, err error, fields ...zap.Field) {
	fields = append(fields,
		zap.String("endpoint", httpctx.Endpoint(ctx)),
		zap.String("request_id", httpctx.RequestIDFromCtx(ctx)),
		zap.Error(err),
	)
	var qe *dbpkg.QueryError
	if errors.As(err, &qe) {
		fields = append(fields, zap.String("query", qe.Name), zap.String("sql", qe.Truncated(maxLoggedSQL)))
	}
	d.Log.Error("request failed", fields...)

	body := map[string]any{"message": internalErrorMessage}
	if d.Cfg != nil && d.Cfg.Development() {
		body["error"] = err.Error()
		body["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	}
	jsonResponse(ctx, fasthttp.StatusInternalServerError, body)
}

// envQueryParam returns the first non-blank env variant from the query string.
func envQueryParam(ctx *fasthttp.RequestCtx) (string, bool) {
	args := ctx.QueryArgs()
	for _, name := range envParamNames {
		if v := strings.TrimSpace(string(args.Peek(name))); v != "" {
			return v, true
		}
	}
	return "", false
}

// requireEnv replies 400 when no env variant is present.
func requireEnv(ctx *fasthttp.RequestCtx) (string, bool) {
	env, ok := envQueryParam(ctx)
	if !ok {
		errResponse(ctx, fasthttp.StatusBadRequest, "Missing required query parameter: env")
	}
	return env, ok
}

// nonNil keeps empty results encoding as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

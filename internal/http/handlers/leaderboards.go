package handlers

import (
	"net/url"
	"strings"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

func Leaderboard(d *Deps) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		rows, err := d.Store.Leaderboard(ctx, d.since(d.Cfg.OverviewWindow), d.Cfg.LeaderboardLimit)
		if err != nil {
			serverError(ctx, d, err)
			return
		}
		jsonResponse(ctx, fasthttp.StatusOK, nonNil(rows))
	}
}

func TopMinersByEnv(d *Deps) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		env, ok := requireEnv(ctx)
		if !ok {
			return
		}
		rows, err := d.Store.TopMinersByEnv(ctx, env, d.since(d.Cfg.OverviewWindow), d.Cfg.LeaderboardLimit)
		if err != nil {
			serverError(ctx, d, err, zap.String("env", env))
			return
		}
		jsonResponse(ctx, fasthttp.StatusOK, nonNil(rows))
	}
}

// LiveEnvLeaderboard ranks miners that produced rollouts in env within the
// live window, using their stats over the longer scoring window. env comes
// from the path still percent-encoded; it is decoded, then uppercased.
func LiveEnvLeaderboard(d *Deps) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		raw, _ := ctx.UserValue("env").(string)
		decoded, err := url.PathUnescape(raw)
		if err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "Malformed path parameter: env")
			return
		}
		env := strings.ToUpper(strings.TrimSpace(decoded))
		if env == "" {
			errResponse(ctx, fasthttp.StatusBadRequest, "Missing required path parameter: env")
			return
		}
		liveSince := d.since(d.Cfg.LiveWindow)
		scoringSince := d.since(d.Cfg.ScoringWindow)
		rows, err := d.Store.LiveEnvLeaderboard(ctx, env, liveSince, scoringSince, d.Cfg.LeaderboardLimit)
		if err != nil {
			serverError(ctx, d, err, zap.String("env", env))
			return
		}
		jsonResponse(ctx, fasthttp.StatusOK, nonNil(rows))
	}
}

func PerformanceByEnv(d *Deps) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		rows, err := d.Store.PerformanceByEnv(ctx, d.since(d.Cfg.OverviewWindow))
		if err != nil {
			serverError(ctx, d, err)
			return
		}
		jsonResponse(ctx, fasthttp.StatusOK, nonNil(rows))
	}
}

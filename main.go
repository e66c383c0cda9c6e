package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fasthttp/router"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"subnetdash/internal/cache"
	"subnetdash/internal/config"
	"subnetdash/internal/db"
	"subnetdash/internal/http/handlers"
	appmw "subnetdash/internal/http/middleware"
	"subnetdash/internal/logging"
	"subnetdash/internal/overview"
	"subnetdash/internal/weights"
)

const shutdownTimeout = 15 * time.Second

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := db.Connect(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to connect database", zap.Error(err))
	}
	store := db.NewStore(gdb, cfg.QueryTimeout)

	var weightsCache weights.Cache
	var readinessCache handlers.Cache
	var redisClient *cache.Client
	if cfg.RedisAddr != "" {
		redisClient, err = cache.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
		if err != nil {
			logger.Fatal("failed to connect cache", zap.Error(err))
		}
		weightsCache = redisClient
		readinessCache = redisClient
	}

	if err := handlers.InitPrometheusMetrics(prometheus.DefaultRegisterer, collectors()...); err != nil {
		logger.Fatal("failed to register metrics", zap.Error(err))
	}

	overview.NewWatcher(store, cfg.OverviewWindow, cfg.EnvWatchInterval, logger).Start(ctx)

	deps := &handlers.Deps{
		Store:    store,
		Overview: overview.New(store, cfg.OverviewWindow, logger),
		Weights:  weights.NewClient(cfg.WeightsURL, cfg.WeightsTimeout, cfg.WeightsTTL, weightsCache, logger),
		Cache:    readinessCache,
		Cfg:      cfg,
		Log:      logger,
	}

	r := router.New()
	r.SaveMatchedRoutePath = true
	r.NotFound = handlers.NotFound()
	r.MethodNotAllowed = handlers.MethodNotAllowed()
	r.PanicHandler = handlers.Panic(deps)

	r.GET("/healthz", handlers.Healthz())
	r.GET("/readyz", handlers.Readyz(deps))
	r.GET("/metrics", handlers.MetricsHandler(prometheus.DefaultGatherer))

	r.GET("/subnet-overview", handlers.SubnetOverview(deps))
	r.GET("/environments", handlers.Environments(deps))
	r.GET("/leaderboard", handlers.Leaderboard(deps))
	r.GET("/performance-by-env", handlers.PerformanceByEnv(deps))
	r.GET("/live-env-leaderboard/", handlers.LiveEnvLeaderboard(deps))
	r.GET("/live-env-leaderboard/{env}", handlers.LiveEnvLeaderboard(deps))
	r.GET("/score-distribution-by-env", handlers.ScoreDistribution(deps))
	r.GET("/latency-distribution-by-env", handlers.LatencyDistribution(deps))
	r.GET("/top-miners-by-env", handlers.TopMinersByEnv(deps))
	r.POST("/live-enrichment", handlers.LiveEnrichment(deps))
	r.GET("/gpu-market-share", handlers.GPUMarketShare(deps))
	r.GET("/miner-efficiency", handlers.MinerEfficiency(deps))
	r.GET("/miner-cost-efficiency", handlers.MinerCostEfficiency(deps))
	r.GET("/daily-rollouts-by-model", handlers.DailyRolloutsByModel(deps))
	r.GET("/results-over-time", handlers.ResultsOverTime(deps))
	r.GET("/activity-feed", handlers.ActivityFeed(deps))
	r.GET("/weights-summary", handlers.WeightsSummary(deps))

	// Global middleware chain: request id, access log, metrics, CORS, then router
	handler := appmw.RequestID(appmw.AccessLog(logger)(appmw.Metrics(appmw.CORS(cfg.CORSOrigin)(r.Handler))))

	server := &fasthttp.Server{
		Handler:            handler,
		Name:               "subnetdash",
		ReadTimeout:        30 * time.Second,
		WriteTimeout:       60 * time.Second,
		IdleTimeout:        2 * time.Minute,
		MaxRequestBodySize: 1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("subnetdash listening", zap.String("addr", cfg.ListenAddr))
		errCh <- server.ListenAndServe(cfg.ListenAddr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
	if err := store.Close(); err != nil {
		logger.Warn("close results store", zap.Error(err))
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Warn("close cache", zap.Error(err))
		}
	}
}

func collectors() []prometheus.Collector {
	var cs []prometheus.Collector
	cs = append(cs, db.Collectors()...)
	cs = append(cs, overview.Collectors()...)
	cs = append(cs, appmw.Collectors()...)
	return cs
}

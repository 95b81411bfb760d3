package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/inkbridge/inkbridge-backend/api/routes"
	"github.com/inkbridge/inkbridge-backend/internal/compositor"
	"github.com/inkbridge/inkbridge-backend/internal/forward"
	paymentwebhook "github.com/inkbridge/inkbridge-backend/internal/webhooks/payment"
	"github.com/inkbridge/inkbridge-backend/pkg/config"
	"github.com/inkbridge/inkbridge-backend/pkg/db"
	"github.com/inkbridge/inkbridge-backend/pkg/forwardlog"
	"github.com/inkbridge/inkbridge-backend/pkg/logger"
	"github.com/inkbridge/inkbridge-backend/pkg/metrics"
	"github.com/inkbridge/inkbridge-backend/pkg/migrate"
	"github.com/inkbridge/inkbridge-backend/pkg/recordstore"
	"github.com/inkbridge/inkbridge-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap forward log store", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing forward log store", err)
		}
	}()

	if err := migrate.MaybeRun(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to migrate forward log schema", err)
		os.Exit(1)
	}

	var redisPinger routes.Pinger
	var webhookGuard *paymentwebhook.IdempotencyGuard
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		redisPinger = redisClient

		webhookGuard, err = paymentwebhook.NewIdempotencyGuard(redisClient, cfg.Redis.WebhookTTL, "payment-webhook")
		if err != nil {
			logg.Error(context.Background(), "failed to create webhook guard", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "redis not configured, webhook dedupe disabled")
	}

	geometry, err := compositor.LoadTable(cfg.Compositor.GeometryPath)
	if err != nil {
		logg.Error(context.Background(), "failed to load geometry table", err)
		os.Exit(1)
	}

	engine, err := compositor.NewEngine(compositor.EngineParams{
		Renderer: compositor.NewRenderer(geometry, cfg.Compositor.CanvasSize),
		Fetcher:  compositor.NewHTTPFetcher(cfg.Compositor.FetchTimeout),
		Logger:   logg,
		Workers:  cfg.Compositor.RenderWorkers,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create compositor engine", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	forwardMetrics := metrics.NewForwardMetrics(registry)

	forwardService, err := forward.NewService(forward.ServiceParams{
		Logger:      logg,
		Store:       recordstore.NewClient(cfg.RecordStore, logg),
		Log:         forwardlog.NewRepository(dbClient.DB()),
		Renderer:    engine,
		Metrics:     forwardMetrics,
		DefaultRate: cfg.Discount.DefaultRate(),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create forward service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	routerParams := routes.RouterParams{
		Config:       cfg,
		Logger:       logg,
		DBPinger:     dbClient,
		OrderService: forwardService,
		Forwarder:    forwardService,
		Metrics:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}
	if redisPinger != nil {
		routerParams.RedisPinger = redisPinger
	}
	if webhookGuard != nil {
		routerParams.WebhookGuard = webhookGuard
	}

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(routerParams),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

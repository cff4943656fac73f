package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/angelmondragon/storefront-backend/api"
	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/routes"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/stores"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/dcap"
	"github.com/angelmondragon/storefront-backend/pkg/instance"
	"github.com/angelmondragon/storefront-backend/pkg/kvstore"
	"github.com/angelmondragon/storefront-backend/pkg/livedatanow"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
	"github.com/angelmondragon/storefront-backend/pkg/security"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	var closers []func() error
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			err = multierr.Append(err, closers[i]())
		}
	}()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		return err
	}
	closers = append(closers, redisClient.Close)

	readiness := map[string]controllers.Pinger{"redis": redisClient}

	var store kvstore.Store
	var bus cart.Bus
	switch cfg.KV.Backend {
	case config.KVBackendSQL:
		dbClient, err := db.New(ctx, cfg.DB, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap database", err)
			return err
		}
		closers = append(closers, dbClient.Close)
		if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
			logg.Error(ctx, "failed to run dev migrations", err)
			return err
		}
		readiness["db"] = dbClient
		store = kvstore.NewSQL(dbClient.DB())
		bus = cart.NewRedisBus(redisClient, instance.GetID())
	case config.KVBackendMemory:
		store = kvstore.NewMemory()
		bus = cart.NewLocalBus()
	default:
		store = kvstore.NewRedis(redisClient, cfg.KV.TTL)
		bus = cart.NewRedisBus(redisClient, instance.GetID())
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	upstreamMetrics := metrics.NewUpstreamMetrics(registry)

	upstream, err := livedatanow.NewClient(cfg.Upstream, livedatanow.WithObserver(upstreamMetrics))
	if err != nil {
		logg.Error(ctx, "failed to create upstream client", err)
		return err
	}
	payments := dcap.NewClient(cfg.Payment, dcap.WithObserver(upstreamMetrics))

	sealer, err := security.NewSealer(cfg.Security)
	if err != nil {
		logg.Error(ctx, "failed to create token sealer", err)
		return err
	}
	if !sealer.Enabled() {
		logg.Warn(ctx, "token sealing disabled, upstream tokens are stored in plaintext")
	}

	storeService, err := stores.NewService(upstream, redisClient, cfg.Store, logg)
	if err != nil {
		return err
	}

	authManager, err := auth.NewManager(auth.ManagerParams{
		Store:      store,
		Upstream:   upstream,
		Sealer:     sealer,
		Logger:     logg,
		OTPEnabled: cfg.FeatureFlags.OTPLogin,
	})
	if err != nil {
		logg.Error(ctx, "failed to create auth manager", err)
		return err
	}

	cartService, err := cart.NewService(store, bus, logg, cart.WithSortedModifierIdentity(cfg.Cart.SortModifiers))
	if err != nil {
		logg.Error(ctx, "failed to create cart service", err)
		return err
	}

	catalogService, err := catalog.NewService(upstream, cfg.Cart.TaxRate, logg)
	if err != nil {
		logg.Error(ctx, "failed to create catalog service", err)
		return err
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Sessions: authManager,
		Carts:    cartService,
		Orders:   upstream,
		Metrics:  metrics.NewCheckoutMetrics(registry),
		Logger:   logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create checkout service", err)
		return err
	}

	handler := routes.NewRouter(routes.Dependencies{
		Config:      cfg,
		Logger:      logg,
		RateLimiter: redisClient,
		Idempotency: redisClient,
		Readiness:   readiness,
		Metrics:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		Upstream:    upstream,
		Payments:    payments,
		Stores:      storeService,
		Auth:        authManager,
		Carts:       cartService,
		CartBus:     bus,
		Checkout:    checkoutService,
		Catalog:     catalogService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	server := api.NewServer(":"+port, handler, logg)

	ctx = logg.WithFields(ctx, map[string]any{
		"env":        cfg.App.Env,
		"addr":       server.Addr(),
		"instance":   instance.GetID(),
		"kv_backend": cfg.KV.Backend,
	})
	logg.Info(ctx, "starting api server")

	return server.Run(ctx)
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/angelmondragon/storefront-backend/internal/cli"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/dcap"
	"github.com/angelmondragon/storefront-backend/pkg/kvstore"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(2)
	}
	logg := logger.New(logger.Options{
		ServiceName: "storefrontctl",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Output:      os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCommand(cli.Deps{
		Device:   cfg.Device,
		Store:    storeOpener(cfg, logg),
		Purger:   purgerOpener(cfg, logg),
		Payments: func() cli.KeyAcquirer { return dcap.NewClient(cfg.Payment) },
	})
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func storeOpener(cfg *config.Config, logg *logger.Logger) func(context.Context) (kvstore.Store, func() error, error) {
	return func(ctx context.Context) (kvstore.Store, func() error, error) {
		switch cfg.KV.Backend {
		case config.KVBackendSQL:
			client, err := db.New(ctx, cfg.DB, logg)
			if err != nil {
				return nil, nil, err
			}
			return kvstore.NewSQL(client.DB()), client.Close, nil
		case config.KVBackendMemory:
			return nil, nil, fmt.Errorf("the memory backend lives inside the api process")
		default:
			client, err := redis.New(ctx, cfg.Redis, logg)
			if err != nil {
				return nil, nil, err
			}
			return kvstore.NewRedis(client, cfg.KV.TTL), client.Close, nil
		}
	}
}

func purgerOpener(cfg *config.Config, logg *logger.Logger) func(context.Context) (cli.Purger, func() error, error) {
	if cfg.KV.Backend != config.KVBackendSQL {
		return nil
	}
	return func(ctx context.Context) (cli.Purger, func() error, error) {
		client, err := db.New(ctx, cfg.DB, logg)
		if err != nil {
			return nil, nil, err
		}
		return kvstore.NewSQL(client.DB()), client.Close, nil
	}
}

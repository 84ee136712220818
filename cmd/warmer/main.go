package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"staybook/internal/adapters/marketplace"
	"staybook/internal/adapters/observability"
	redisad "staybook/internal/adapters/redis"
	"staybook/internal/app"
	"staybook/internal/domain"
	"staybook/internal/querycache"
	"staybook/internal/shared"
)

func main() {
	cfg, err := shared.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	// initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.RedisAddr == "" {
		log.Fatal().Msg("REDIS_ADDR is required: warming a private cache has no effect")
	}
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cache.Close()
	if err := cache.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("redis ping failed")
	}

	api, err := marketplace.NewAPI(marketplace.Endpoints{
		Users:          cfg.UsersAPI,
		Properties:     cfg.PropertiesAPI,
		Bookings:       cfg.BookingsAPI,
		Vendors:        cfg.VendorsAPI,
		VendorServices: cfg.VendorServicesAPI,
		RPS:            cfg.UpstreamRPS,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize upstream clients")
	}

	log.Info().
		Strs("locations", cfg.WarmLocations).
		Int("workers", cfg.WarmWorkers).
		Msg("warmer starting")

	search := app.NewSearchService(api, querycache.New[domain.SearchPage]("search", cache, cfg.CacheTTL()))
	n, err := app.Warm(ctx, search, cfg.WarmLocations, cfg.WarmWorkers)
	if err != nil {
		log.Fatal().Err(err).Int("warmed", n).Msg("warming interrupted")
	}
	log.Info().Int("warmed", n).Int("requested", len(cfg.WarmLocations)).Msg("warming completed")
}

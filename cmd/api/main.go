package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alicebob/miniredis/v2"
	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	server "staybook/internal/adapters/http_server"
	"staybook/internal/adapters/marketplace"
	"staybook/internal/adapters/mq"
	"staybook/internal/adapters/observability"
	"staybook/internal/adapters/payments"
	redisad "staybook/internal/adapters/redis"
	"staybook/internal/app"
	"staybook/internal/domain"
	"staybook/internal/querycache"
	"staybook/internal/shared"
	mysqlrepo "staybook/internal/storage/mysql"
	"staybook/internal/wizard"
)

func main() {
	cfg, err := shared.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, observability.MetricsHandler(reg))

	// cache backend
	backend, closeBackend := openRedis(ctx, cfg)
	defer closeBackend()

	ttl := cfg.CacheTTL()
	searchCache := querycache.New[domain.SearchPage]("search", backend, ttl)
	propCache := querycache.New[domain.Property]("property", backend, ttl)
	bookingCache := querycache.New[domain.Page[domain.Booking]]("bookings", backend, ttl)
	couponCache := querycache.New[[]domain.Coupon]("coupons", backend, ttl)
	serviceCache := querycache.New[[]domain.VendorService]("services", backend, ttl)
	experienceCache := querycache.New[domain.Page[domain.Experience]]("experiences", backend, ttl)

	// cross-instance invalidation
	origin := cfg.InstanceID
	if origin == "" {
		origin = uuid.NewString()
	}
	var pub domain.EventPublisher
	var consumer *mq.Consumer
	if cfg.AMQPURL != "" {
		p, err := mq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Fatal().Err(err).Msg("amqp publisher")
		}
		defer p.Close()
		pub = p
		if consumer, err = mq.NewConsumer(cfg.AMQPURL, cfg.AMQPExchange, "", []string{mq.RoutingInvalidate}); err != nil {
			log.Fatal().Err(err).Msg("amqp consumer")
		}
		defer consumer.Close()
	} else {
		log.Warn().Msg("AMQP_URL is empty; cache invalidation stays local to this instance")
	}
	inv := app.NewInvalidator(origin, pub, searchCache, propCache, bookingCache, couponCache, serviceCache, experienceCache)
	if consumer != nil {
		go func() {
			err := consumer.Run(ctx, func(ctx context.Context, body []byte) error {
				err := inv.Handle(ctx, body)
				if errors.Is(err, app.ErrBadEvent) {
					return fmt.Errorf("%w: %v", mq.ErrPoison, err)
				}
				return err
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("invalidation consumer stopped")
			}
		}()
	}

	// upstream
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

	// ledger + payments
	var (
		ledger domain.LedgerRepository
		paySvc *app.PaymentService
	)
	if cfg.MySQLDSN != "" {
		db, err := mysqlrepo.Open(ctx, cfg.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("mysql")
		}
		defer closeDB(db)
		log.Info().Msg("database connection ok")
		ledger = mysqlrepo.New(db)
	} else {
		log.Warn().Msg("MYSQL_DSN is empty; orphaned images are only logged and payments are disabled")
	}

	props := app.NewPropertyService(api, propCache, inv, ledger)
	experiences := app.NewExperienceService(api, experienceCache)
	bookings := app.NewBookingService(api, props, experiences, bookingCache, inv)
	vendors := app.NewVendorService(api, couponCache, serviceCache, inv)
	if ledger != nil && cfg.OmiseSecretKey != "" {
		provider, err := payments.New(cfg.OmisePublicKey, cfg.OmiseSecretKey)
		if err != nil {
			log.Fatal().Err(err).Msg("omise client")
		}
		paySvc = app.NewPaymentService(provider, api, ledger, inv)
	}

	// http
	srv := server.New()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{
		Search:      app.NewSearchService(api, searchCache),
		Properties:  props,
		Experiences: experiences,
		Bookings:    bookings,
		Payments:    paySvc,
		Vendors:     vendors,
		Wizards:     app.NewWizardService(wizard.NewCacheStore(backend, cfg.DraftTTL()), bookings, props, vendors, wizard.OpenDir(cfg.UploadDir)),
		Refresher:   api,
	})

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Str("instance", origin).Msg("API listening")
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("API stopped")
}

// openRedis connects to REDIS_ADDR, or starts an in-process server when it
// is unset so a developer can run the API alone.
func openRedis(ctx context.Context, cfg shared.Config) (*redisad.Cache, func()) {
	if cfg.RedisAddr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			log.Fatal().Err(err).Msg("embedded redis")
		}
		log.Warn().Str("addr", mr.Addr()).Msg("REDIS_ADDR is empty; using embedded redis")
		c := redisad.New(mr.Addr(), "", 0)
		return c, func() { _ = c.Close(); mr.Close() }
	}
	c := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if err := c.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("redis ping failed")
	}
	return c, func() { _ = c.Close() }
}

func closeDB(db *sql.DB) {
	if err := db.Close(); err != nil {
		log.Warn().Err(err).Msg("db close")
	}
}

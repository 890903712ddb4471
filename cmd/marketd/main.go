// Command marketd serves the marketplace API the storefront talks to.
//
// @title                       Marketplace API
// @version                     1.0
// @description                 Product submission, moderation and catalog for the vendor marketplace.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/rs/zerolog"

	"github.com/vendorhub/storefront/internal/api"
	"github.com/vendorhub/storefront/internal/api/handler"
	"github.com/vendorhub/storefront/internal/core/ports"
	"github.com/vendorhub/storefront/internal/core/service"
	"github.com/vendorhub/storefront/internal/infrastructure/db/memory"
	"github.com/vendorhub/storefront/internal/infrastructure/db/mongo"
	"github.com/vendorhub/storefront/internal/infrastructure/db/redis"
	"github.com/vendorhub/storefront/internal/infrastructure/queue"
	"github.com/vendorhub/storefront/internal/pkg/config"
	"github.com/vendorhub/storefront/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

type stores struct {
	products ports.ProductRepository
	users    ports.UserRepository
	audit    ports.AuditRepository
	idem     ports.IdempotencyStore
	checks   map[string]handler.Pinger
	closers  []func(context.Context) error
}

func main() {
	envFile := flag.String("env", ".env", "optional .env file")
	flag.Parse()

	ctx := context.Background()
	cfg, err := config.LoadServer(ctx, *envFile)
	if err != nil {
		l := logger.Init(logger.Options{Level: "error"})
		l.Fatal().Err(err).Msg("load config")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.Env == "development",
		Output:  os.Stdout,
		Service: "marketd",
	})

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open stores")
	}

	dispatcher := queue.NewDispatcher(cfg.Workers, st.audit, logger.Component("audit"))
	dispatcher.Start()

	router := api.NewRouter(api.Deps{
		Products:  service.NewProductService(st.products, st.idem, st.audit, dispatcher, logger.Component("products")),
		Auth:      service.NewAuthService(st.users, cfg.JWTSecret, cfg.TokenTTL),
		JWTSecret: cfg.JWTSecret,
		Checks:    st.checks,
		Log:       logger.Component("http"),
	})

	go func() {
		log.Info().Str("port", cfg.Port).Str("store", cfg.Store).Msg("marketd listening")
		if err := router.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	wait := gfshutdown.GracefulShutdown(ctx, shutdownTimeout, map[string]gfshutdown.Operation{
		// Ordered: no request may enqueue after the dispatcher closes.
		"marketd": func(ctx context.Context) error {
			var errs []error
			if err := router.Shutdown(ctx); err != nil {
				errs = append(errs, err)
			}
			if err := dispatcher.Close(ctx); err != nil {
				errs = append(errs, err)
			}
			for _, closeFn := range st.closers {
				if err := closeFn(ctx); err != nil {
					errs = append(errs, err)
				}
			}
			return errors.Join(errs...)
		},
	})

	code := <-wait
	log.Info().Int("exit_code", code).Msg("marketd stopped")
	os.Exit(code)
}

func openStores(ctx context.Context, cfg *config.Server, log zerolog.Logger) (*stores, error) {
	st := &stores{checks: map[string]handler.Pinger{}}

	switch cfg.Store {
	case config.StoreMongo:
		client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		if err := mongo.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		st.products = mongo.NewProductRepository(db)
		st.users = mongo.NewUserRepository(db)
		st.audit = mongo.NewAuditRepository(db)
		st.checks["mongodb"] = handler.PingFunc(func(ctx context.Context) error { return client.Ping(ctx, nil) })
		st.closers = append(st.closers, client.Disconnect)
		log.Info().Str("database", cfg.Mongo.Database).Msg("using mongodb store")
	default:
		st.products = memory.NewProductRepository()
		st.users = memory.NewUserRepository()
		st.audit = memory.NewAuditRepository()
		log.Warn().Msg("using in-memory store, data is lost on exit")
	}

	if cfg.Redis.Addr == "" {
		st.idem = memory.NewIdempotencyStore()
		return st, nil
	}
	rdb, err := redis.Connect(ctx, redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Name:     "marketd-idempotency",
	})
	if err != nil {
		for _, closeFn := range st.closers {
			_ = closeFn(ctx)
		}
		return nil, err
	}
	st.idem = redis.NewIdempotencyStore(rdb)
	st.checks["redis"] = handler.PingFunc(func(ctx context.Context) error { return redis.Ping(ctx, rdb, 0) })
	st.closers = append(st.closers, func(context.Context) error { return rdb.Close() })
	return st, nil
}

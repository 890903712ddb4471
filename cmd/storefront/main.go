// Command storefront is the marketplace client: one-shot commands for
// scripting and an interactive shell that keeps a cart for the session.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/vendorhub/storefront/internal/core/domain"
	"github.com/vendorhub/storefront/internal/core/ports"
	"github.com/vendorhub/storefront/internal/core/storefront"
	"github.com/vendorhub/storefront/internal/infrastructure/backend"
	"github.com/vendorhub/storefront/internal/infrastructure/db/redis"
	"github.com/vendorhub/storefront/internal/infrastructure/storage/file"
	"github.com/vendorhub/storefront/internal/infrastructure/storage/memory"
	redisstore "github.com/vendorhub/storefront/internal/infrastructure/storage/redis"
	"github.com/vendorhub/storefront/internal/infrastructure/storage/sqlite"
	"github.com/vendorhub/storefront/internal/pkg/config"
	"github.com/vendorhub/storefront/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	global := flag.NewFlagSet("storefront", flag.ContinueOnError)
	envFile := global.String("env", ".env", "optional .env file")
	ephemeral := global.Bool("ephemeral", false, "keep the session in memory only")
	global.Usage = func() {
		fmt.Fprintf(global.Output(), "usage: storefront [-env file] [-ephemeral] <command> [args]\n\n%s", usage)
	}
	if err := global.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadStorefront(ctx, *envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *ephemeral {
		cfg.Session.Backend = config.SessionMemory
	}

	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.LogPretty, Service: "storefront"})

	storage, err := openSessionStorage(ctx, cfg, logger.Component("storage"))
	if err != nil {
		log.Error().Err(err).Str("backend", cfg.Session.Backend).Msg("open session storage")
		fmt.Fprintln(os.Stderr, "cannot open session storage:", err)
		return 1
	}
	defer func() {
		if err := storage.Close(); err != nil {
			log.Warn().Err(err).Msg("close session storage")
		}
	}()

	client, err := backend.New(backend.Config{
		BaseURL:    cfg.APIURL,
		Timeout:    cfg.Timeout,
		RejectMode: backend.RejectMode(cfg.RejectMode),
	}, logger.Component("backend"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	app := storefront.NewApp(client, storage, log)
	app.Start(ctx)

	c := newCLI(app, os.Stdin, os.Stdout)
	args := global.Args()
	if len(args) == 0 {
		args = []string{"shell"}
	}
	if err := c.run(ctx, args); err != nil {
		if errors.Is(err, errUsage) {
			return 2
		}
		fmt.Fprintln(os.Stderr, "error:", domain.UserMessage(err))
		return 1
	}
	return 0
}

func openSessionStorage(ctx context.Context, cfg *config.Storefront, log zerolog.Logger) (ports.KeyValueStore, error) {
	switch cfg.Session.Backend {
	case config.SessionMemory:
		return memory.New(), nil
	case config.SessionRedis:
		rdb, err := redis.Connect(ctx, redis.Config{
			Addr:     cfg.Session.RedisAddr,
			Password: cfg.Session.RedisPassword,
			DB:       cfg.Session.RedisDB,
			Name:     "storefront-session",
		})
		if err != nil {
			return nil, err
		}
		return redisstore.New(rdb, redisstore.DefaultPrefix, true), nil
	}

	path, err := cfg.SessionPath()
	if err != nil {
		return nil, err
	}
	if cfg.Session.Backend == config.SessionSQLite {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create session dir: %w", err)
		}
		return sqlite.New(ctx, sqlite.Config{Path: path}, log)
	}
	return file.New(file.Config{Path: path}, log)
}

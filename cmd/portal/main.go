// Command portal is the command line client of the client portal. It keeps
// its session in a local store between invocations and talks either to the
// API server or to an in-process backend over the same store.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/clientdesk/portal/internal/cli"
	"github.com/clientdesk/portal/internal/core/ports"
	redisdb "github.com/clientdesk/portal/internal/infrastructure/db/redis"
	"github.com/clientdesk/portal/internal/infrastructure/local"
	"github.com/clientdesk/portal/internal/infrastructure/remote"
	"github.com/clientdesk/portal/internal/infrastructure/store"
	"github.com/clientdesk/portal/internal/pkg/config"
	"github.com/clientdesk/portal/internal/pkg/token"
	"github.com/clientdesk/portal/internal/session"
	"github.com/clientdesk/portal/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.LoadPortal(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: true, Output: os.Stderr})

	kv, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer closeStore()

	app := newApp(cfg, kv)
	if err := app.Run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, cli.ErrUsage) {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		return 1
	}
	return 0
}

func newApp(cfg *config.PortalConfig, kv ports.KVStore) *cli.App {
	notifier := cli.Notifier(os.Stdout)
	log := logger.Component("session")

	if cfg.Backend == config.BackendRemote {
		client := remote.New(cfg.APIURL, cfg.Timeout)
		var manager *session.Manager
		directory := remote.NewDirectory(client, tokenOf(func() string { return manager.Token() }), logger.Component("directory"))
		manager = session.NewManager(client, directory, kv, notifier, log)
		return cli.NewApp(manager, directory, os.Stdin, os.Stdout)
	}

	directory := local.NewDirectory(kv, logger.Component("directory"))
	backend := local.NewBackend(kv, token.NewIssuer(cfg.Secret, 0), cfg.Latency, logger.Component("backend"))
	manager := session.NewManager(backend, directory, kv, notifier, log)
	return cli.NewApp(manager, directory, os.Stdin, os.Stdout)
}

func openStore(ctx context.Context, cfg *config.PortalConfig) (ports.KVStore, func(), error) {
	switch cfg.Store {
	case config.StoreMemory:
		return store.NewMemoryStore(), func() {}, nil
	case config.StoreRedis:
		rdb, err := redisdb.Connect(ctx, redisdb.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, nil, err
		}
		return redisdb.NewStore(rdb, cfg.Redis.Prefix), func() { _ = rdb.Close() }, nil
	default:
		s, err := store.OpenSQLite(ctx, cfg.StatePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			if err := s.Close(); err != nil {
				l := logger.Get()
				l.Warn().Err(err).Msg("close state store")
			}
		}, nil
	}
}

type tokenOf func() string

func (f tokenOf) Token() string { return f() }

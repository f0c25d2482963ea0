// Command server runs the client portal API.
//
//	@title						Client Portal API
//	@version					1.0
//	@description				Accounts, session tokens and the client directory behind the client portal.
//	@BasePath					/api
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clientdesk/portal/internal/api"
	"github.com/clientdesk/portal/internal/api/handler"
	"github.com/clientdesk/portal/internal/core/service"
	mongodb "github.com/clientdesk/portal/internal/infrastructure/db/mongo"
	redisdb "github.com/clientdesk/portal/internal/infrastructure/db/redis"
	"github.com/clientdesk/portal/internal/infrastructure/queue"
	"github.com/clientdesk/portal/internal/pkg/config"
	"github.com/clientdesk/portal/internal/pkg/token"
	"github.com/clientdesk/portal/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.Production(),
		Service: "portal-api",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		Timeout:  cfg.Mongo.Timeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo unavailable")
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = mongoClient.Disconnect(disconnectCtx)
	}()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Timeout:  cfg.Redis.Timeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis unavailable")
	}
	defer rdb.Close()

	users := mongodb.NewUserRepository(db)
	clients := mongodb.NewClientRepository(db)
	if err := mongodb.EnsureIndexes(ctx, users, clients); err != nil {
		log.Fatal().Err(err).Msg("index creation failed")
	}

	directory := service.NewDirectoryService(clients, logger.Component("directory"))

	workersCtx, stopWorkers := context.WithCancel(context.Background())
	dispatcher := queue.NewDispatcher(cfg.DirectoryWorkers, directory, logger.Component("dispatcher"))
	dispatcher.Start(workersCtx)

	auth := service.NewAuthService(
		users,
		token.NewIssuer(cfg.JWTSecret, cfg.TokenTTL),
		dispatcher,
		redisdb.NewRevocationList(rdb),
		logger.Component("auth"),
	)

	e := api.NewRouter(api.Deps{
		Auth:      auth,
		Directory: directory,
		Probes: map[string]handler.Probe{
			"mongodb": func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) },
			"redis":   func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
		Log: logger.Component("http"),
	})

	go func() {
		log.Info().Str("port", cfg.Port).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server stopped unexpectedly")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}

	// pending directory upserts are applied before the databases close
	stopWorkers()
	dispatcher.Wait()
}

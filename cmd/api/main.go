// @title                       Meter API
// @version                     1.0
// @description                 Access-controlled management of users, locations and utility meters.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/utilityops/meter-api/internal/api"
	"github.com/utilityops/meter-api/internal/core/auth"
	"github.com/utilityops/meter-api/internal/core/ports"
	"github.com/utilityops/meter-api/internal/core/service"
	mongodb "github.com/utilityops/meter-api/internal/infrastructure/db/mongo"
	redisdb "github.com/utilityops/meter-api/internal/infrastructure/db/redis"
	ophttp "github.com/utilityops/meter-api/internal/infrastructure/http"
	"github.com/utilityops/meter-api/internal/infrastructure/http/handlers"
	"github.com/utilityops/meter-api/internal/infrastructure/queue"
	"github.com/utilityops/meter-api/internal/pkg/config"
	"github.com/utilityops/meter-api/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		bootLog := logger.Init(logger.Options{})
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "meter-api",
		Env:     cfg.Env,
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server exited with error")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	// --- Record store ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		Timeout:  cfg.Mongo.Timeout,
	})
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := mongoClient.Disconnect(dctx); err != nil {
			log.Warn().Err(err).Msg("mongo disconnect failed")
		}
	}()

	store := mongodb.NewStore(db)
	if err := store.EnsureIndexes(ctx); err != nil {
		return err
	}
	log.Info().Str("database", cfg.Mongo.Database).Msg("mongo connected")

	// --- Login throttle ---
	rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		return err
	}
	defer rdb.Close()
	throttle := redisdb.NewLoginThrottle(rdb, redisdb.ThrottleConfig{
		MaxAttempts: cfg.Login.MaxAttempts,
		Window:      cfg.Login.LockoutWindow,
	})
	log.Info().Str("addr", cfg.Redis.Addr).Msg("redis connected")

	// --- Authentication ---
	hasher := auth.NewHasher(auth.HasherConfig{Cost: cfg.Auth.BcryptCost})
	codec, err := auth.NewTokenCodec(auth.TokenConfig{
		Secret:    []byte(cfg.Auth.JWTSecret),
		TTL:       cfg.Auth.TokenTTL,
		Algorithm: cfg.Auth.JWTAlgorithm,
	})
	if err != nil {
		return err
	}
	credentials := store.Credentials()
	authn := auth.NewAuthenticator(credentials, hasher, codec, log)

	// --- Services ---
	authService := service.NewAuthService(authn, throttle, log)
	userService := service.NewUserService(store.Users, store.Locations, hasher, log)
	locationService := service.NewLocationService(store.Locations, credentials, log)
	meterService := service.NewMeterService(store.Meters, store.Locations, store.Readings, log)
	readingService := service.NewReadingService(store.Meters, store.Readings, credentials, log)

	if cfg.Admin.Enabled() {
		admin, created, err := userService.Bootstrap(ctx, ports.CreateUserInput{
			Name:     cfg.Admin.Name,
			Email:    cfg.Admin.Email,
			Password: cfg.Admin.Password,
		})
		if err != nil {
			return err
		}
		if created {
			log.Info().Int64("user_id", admin.ID).Msg("initial admin created")
		}
	}

	// --- Batch reading workers ---
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()
	dispatcher := queue.NewDispatcher(cfg.Reading.Workers, readingService, log)
	dispatcher.Start(workerCtx)

	// --- HTTP ---
	e := api.NewRouter(api.Services{
		Auth:      authService,
		Users:     userService,
		Locations: locationService,
		Meters:    meterService,
		Readings:  dispatcher,
	}, api.Options{Log: log})
	ophttp.RegisterOperational(e, ophttp.Operational{
		Checks:  []handlers.DependencyCheck{ophttp.MongoCheck(db), ophttp.RedisCheck(rdb)},
		Swagger: !cfg.IsProduction(),
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown failed")
	}

	// Accepted batches finish before the store connections close.
	dispatcher.Close()
	drained := make(chan struct{})
	go func() {
		dispatcher.Wait()
		close(drained)
	}()
	select {
	case <-drained:
		log.Info().Msg("reading workers drained")
	case <-shutdownCtx.Done():
		cancelWorkers()
		log.Warn().Msg("reading workers did not drain before timeout")
	}
	return nil
}

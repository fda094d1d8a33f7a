package main

import (
	"callgate/backend/internal/api/handler"
	"callgate/backend/internal/auth"
	"callgate/backend/internal/config"
	"callgate/backend/internal/logging"
	"callgate/backend/internal/media"
	"callgate/backend/internal/notify"
	"callgate/backend/internal/rooms"
	"callgate/backend/internal/storage"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

func setupDependencies(ctx context.Context, cfg config.Config) (*gorm.DB, *redis.Client) {
	// 1. Database
	db, err := storage.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect database")
	}

	// 2. Migrations
	if err := storage.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// 3. Redis, only when events are shared between replicas
	if !cfg.RedisEnabled() {
		log.Info().Msg("Database ready, migrations complete. Redis disabled.")
		return db, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("Failed to connect Redis")
	}

	log.Info().Msg("Database and Redis connections established, migrations complete.")
	return db, rdb
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)
	if cfg.JWTSecret == config.DefaultJWTSecret {
		logger.Warn().Msg("JWT_SECRET is the development default, set it before deploying")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Dependencies
	db, rdb := setupDependencies(ctx, cfg)
	store := storage.NewStorageService(db)

	// 2. Call events
	hub := notify.NewHub()
	go hub.Run()

	var events notify.Publisher = hub
	if rdb != nil {
		relay := notify.NewRedisRelay(rdb, hub)
		events = relay
		go func() {
			if err := relay.Listen(ctx); err != nil {
				logger.Error().Err(err).Msg("Call event relay stopped")
			}
		}()
	}

	// 3. Services
	authSvc := auth.NewService(store, cfg.JWTSecret, cfg.JWTTTL, cfg.BcryptCost)
	minter := media.NewLiveKitMinter(cfg.LiveKitAPIKey, cfg.LiveKitAPISecret, cfg.LiveKitTokenTTL)
	roomSvc := rooms.NewService(store, minter, events, cfg.LiveKitClientURL)

	// 4. HTTP
	gin.SetMode(gin.ReleaseMode)
	h := handler.NewHandler(authSvc, roomSvc, hub, logger, cfg.CORSOrigins)

	server := &http.Server{
		Addr:           cfg.Addr(),
		Handler:        h.NewRouter(cfg.APIPrefix),
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		MaxHeaderBytes: config.MaxHeaderBytes,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("Backend server running")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	hub.Stop()
	if rdb != nil {
		rdb.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	logger.Info().Msg("Server exited")
}

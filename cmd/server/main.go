package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"learnhub/config"
	"learnhub/internal/database"
	"learnhub/internal/logger"
	"learnhub/internal/middleware"
	"learnhub/internal/repository"
	"learnhub/internal/router"
	"learnhub/internal/service"
	"learnhub/internal/ws"
	"learnhub/pkg/cloudinary"
	"learnhub/pkg/mailer"
	"learnhub/pkg/payment"
	"learnhub/pkg/telemetry"

	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.Setup(ctx, cfg.OTel)
	if err != nil {
		slog.Error("telemetry setup failed", "error", err)
		os.Exit(1)
	}
	logger.Setup(cfg)

	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		fatal("database", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		fatal("migrate", err)
	}

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		fatal("redis url", err)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		fatal("redis", err)
	}

	var cloud cloudinary.Client
	if cfg.Cloudinary.CloudName != "" {
		cloud, err = cloudinary.NewClientFromParams(cfg.Cloudinary.CloudName, cfg.Cloudinary.APIKey, cfg.Cloudinary.APISecret)
		if err != nil {
			fatal("cloudinary", err)
		}
	} else {
		slog.Warn("cloudinary not configured, uploads disabled")
	}

	mail := mailer.New(cfg.Mail)
	var pusher service.Pusher
	if fcm := service.NewFCMService(ctx, cfg.Firebase.ServiceAccountPath); fcm != nil {
		pusher = fcm
	}

	otpStore := service.NewRedisOTPStore(rdb)
	seeder := service.NewAuthService(cfg, repository.NewUserRepository(db), otpStore, otpStore, mail)
	if err := seeder.EnsureAdmin(ctx); err != nil {
		fatal("seed admin", err)
	}

	limiter := middleware.NewInMemoryRateLimiter(cfg.Server.RateLimit, cfg.Server.RateWindow)
	go limiter.Run(ctx, cfg.Server.RateWindow)

	engine := router.Setup(cfg, router.Deps{
		DB:       db,
		Redis:    rdb,
		Cloud:    cloud,
		Payments: payment.New(cfg.Payment.Provider, cfg.Payment.BaseURL, cfg.Payment.KeyID, cfg.Payment.KeySecret, cfg.Payment.WebhookSecret),
		Mail:     mail,
		Pusher:   pusher,
		Limiter:  limiter,
		Hub:      ws.NewHub(),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}
	go func() {
		slog.Info("server listening", "port", cfg.Server.Port, "env", cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("listen", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown", "error", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if err := tel.Shutdown(shutdownCtx); err != nil {
		slog.Error("telemetry shutdown", "error", err)
	}
	slog.Info("server stopped")
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"remindmail/internal/config"
	"remindmail/internal/database"
	"remindmail/internal/handlers"
	"remindmail/internal/ratelimit"
	"remindmail/internal/services"
	"remindmail/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	db, err := database.InitDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to initialize database: ", err)
	}

	defaultZone, err := utils.ResolveLocation(cfg.DefaultTimeZone, time.UTC)
	if err != nil {
		log.Fatal("Invalid default time zone: ", err)
	}

	store := database.NewReminderStore(db, cfg.ClaimLease)
	emailService := services.NewEmailService(cfg.SendGridAPIKey, cfg.FromEmail, cfg.FromName)
	sweeper := services.NewSweeper(store, emailService, cfg.SweepRetryConfirmations)

	limiter := newSubmitLimiter(cfg)
	defer limiter.Close()

	router := handlers.SetupRouter(
		handlers.New(store, emailService, sweeper, defaultZone),
		handlers.RouterConfig{
			CronSecret:     cfg.CronSecret,
			AllowedOrigins: cfg.AllowedOrigins,
			SubmitLimiter:  limiter,
			SubmitLimit:    cfg.SubmitRateLimit,
			SubmitWindow:   cfg.SubmitRateWindow,
		},
	)
	if cfg.CronSecret == "" {
		log.Println("CRON_SECRET not set, /cron and admin routes are unauthenticated")
	}

	// Without SWEEP_INTERVAL an external scheduler is expected to call /cron/run
	if cfg.SweepInterval != "" {
		worker := services.NewReminderWorker(sweeper, cfg.SweepInterval)
		if err := worker.Start(); err != nil {
			log.Fatal(err)
		}
		defer worker.Stop()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("Server starting on port %s...", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown failed: %v", err)
	}
}

func newSubmitLimiter(cfg *config.Config) ratelimit.Limiter {
	if cfg.RedisAddr == "" {
		return ratelimit.NewMemoryLimiter()
	}
	limiter, err := ratelimit.NewRedisLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Printf("Redis rate limiter unavailable (%v), using in-memory limiter", err)
		return ratelimit.NewMemoryLimiter()
	}
	log.Printf("Using Redis rate limiter at %s", cfg.RedisAddr)
	return limiter
}

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"squashfeature/internal/apikey"
	"squashfeature/internal/cache"
	"squashfeature/internal/config"
	"squashfeature/internal/database"
	"squashfeature/internal/handlers"
	"squashfeature/internal/notify"
	"squashfeature/internal/repository"
	"squashfeature/internal/router"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env (ignore error in production, env vars are set directly)
	_ = godotenv.Load()

	cfg, err := config.LoadServer(os.Getenv)
	if err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}

	// Connect to MongoDB
	if err := database.Connect(cfg.MongoURI, cfg.DBName); err != nil {
		log.Fatalf("❌ Failed to connect to MongoDB: %v", err)
	}

	// Initialize repositories
	feedbackRepo := repository.NewFeedbackRepo()
	projectRepo := repository.NewProjectRepo()
	keyRepo := repository.NewAPIKeyRepo()

	// Ensure indexes
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := feedbackRepo.EnsureIndexes(ctx); err != nil {
		log.Printf("⚠️  Warning: failed to create feedback indexes: %v", err)
	}
	if err := keyRepo.EnsureIndexes(ctx); err != nil {
		log.Printf("⚠️  Warning: failed to create API key indexes: %v", err)
	}

	// Optional Redis cache in front of the API key lookup
	var keyCache apikey.Cache
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedisCache(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️  Warning: Redis unavailable, API keys will be read from MongoDB: %v", err)
		} else {
			defer rc.Close()
			keyCache = rc
		}
	}
	validator := apikey.NewValidator(keyRepo, keyCache, cfg.KeyCacheTTL)

	// New item notifications
	var notifier notify.Notifier = notify.NewLogNotifier()
	if cfg.EmailEnabled() {
		notifier = notify.NewEmailNotifier(cfg.ResendAPIKey, cfg.FromEmail, cfg.NotifyEmail)
		if cfg.NotifyEmail != "" {
			log.Printf("📧 New feedback will be emailed to project owners, otherwise %s", cfg.NotifyEmail)
		} else {
			log.Printf("📧 New feedback will be emailed to project owners")
		}
	}

	// Initialize handlers
	routes := router.Config{
		Feedback:       handlers.NewFeedbackHandler(feedbackRepo, projectRepo, notifier),
		Keys:           validator,
		AllowedOrigins: cfg.AllowedOrigins,
	}
	if cfg.AdminEnabled() {
		routes.Admin = handlers.NewAdminHandler(projectRepo, keyRepo)
		routes.AdminSecret = cfg.AdminJWTSecret
	} else {
		log.Printf("⚠️  ADMIN_JWT_SECRET not set, admin routes disabled")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.New(routes),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("🚀 squashfeature API starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Printf("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️  Warning: graceful shutdown failed: %v", err)
	}
	if err := database.Disconnect(shutdownCtx); err != nil {
		log.Printf("⚠️  Warning: failed to disconnect from MongoDB: %v", err)
	}
}

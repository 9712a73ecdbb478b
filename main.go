package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"admindeck-backend/internal/api"
	"admindeck-backend/internal/auth"
	"admindeck-backend/internal/config"
	"admindeck-backend/internal/database"
	"admindeck-backend/internal/logging"
	"admindeck-backend/internal/models"
)

func main() {
	cfg, err := config.Load(os.Getenv("ADMINDECK_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.NewFileLogger(cfg.Log.File)
	defer logger.Close()

	// Initialize database
	log.Printf("Initializing database at %s", cfg.Database.Path)
	db, err := database.Open(database.Config{Path: cfg.Database.Path})
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	userRepo := database.NewUserRepo(db)
	auditRepo := database.NewAuditRepo(db)

	// Create default admin user if no users exist
	if err := createDefaultAdminIfNeeded(userRepo); err != nil {
		log.Printf("Warning: failed to create default admin: %v", err)
	}

	var store auth.SessionStore
	switch cfg.Session.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store = database.NewRedisSessionRepo(client)
	default:
		store = database.NewSessionRepo(db)
	}

	directory := auth.NewLocalDirectory(userRepo)
	authSvc := auth.NewService(store, directory, logger, cfg.Session.TTL)
	limiter := auth.NewLoginLimiter(cfg.RateLimit.MaxAttempts, cfg.RateLimit.Window, cfg.RateLimit.BlockTime)
	handlers := api.NewHandlers(authSvc, userRepo, auditRepo, limiter, cfg.Audit.Retention, logger)

	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// API routes
	apiGroup := e.Group("/api")
	api.RegisterRoutes(apiGroup, handlers, authSvc)

	go func() {
		log.Printf("Starting admindeck backend on %s", cfg.Server.Address)
		if err := e.Start(cfg.Server.Address); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for shutdown signal, then stop the server and flush the log.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
	if err := logger.Flush(); err != nil {
		log.Printf("Log flush error: %v", err)
	}
}

// createDefaultAdminIfNeeded creates a default admin user if no users exist
func createDefaultAdminIfNeeded(userRepo *database.UserRepo) error {
	count, err := userRepo.Count()
	if err != nil {
		return err
	}

	if count > 0 {
		return nil // Users already exist
	}

	// Create default admin
	log.Println("Creating default admin user (admin/admin) - CHANGE THIS PASSWORD!")

	passwordHash, err := auth.HashPassword("admin")
	if err != nil {
		return err
	}

	admin := &models.User{
		Username:     "admin",
		DisplayName:  "Administrator",
		PasswordHash: passwordHash,
		Role:         models.RoleAdmin,
	}

	return userRepo.Create(admin)
}

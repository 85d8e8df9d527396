package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/andressep95/session-service/internal/config"
	"github.com/andressep95/session-service/internal/handler"
	"github.com/andressep95/session-service/internal/handler/middleware"
	"github.com/andressep95/session-service/internal/logging"
	"github.com/andressep95/session-service/internal/repository/sqlstore"
	"github.com/andressep95/session-service/internal/service"
	"github.com/andressep95/session-service/pkg/blacklist"
	"github.com/andressep95/session-service/pkg/hash"
	"github.com/andressep95/session-service/pkg/jwt"
	"github.com/andressep95/session-service/pkg/validator"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logging.InitLogger(cfg.Log.Level, cfg.Log.Format)
	log := logging.Logger

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database connection
	db, err := sqlstore.Open(ctx, cfg.Database.Driver, cfg.Database.DSN(), sqlstore.Options{Logger: log})
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.WithError(err).Error("Error closing database connection")
		}
	}()
	log.WithField("driver", cfg.Database.Driver).Info("Database connection established")

	clock := clockwork.NewRealClock()
	checks := map[string]handler.Pinger{"database": db, "redis": nil}

	// Token revocation: Redis when enabled, process memory otherwise
	var tokenBlacklist blacklist.Blacklist
	if cfg.Redis.Enabled {
		redisClient, err := initRedis(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to initialize Redis: %v", err)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.WithError(err).Error("Error closing Redis connection")
			}
		}()
		tokenBlacklist = blacklist.NewTokenBlacklist(redisClient)
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
		log.Info("Redis token blacklist initialized")
	} else {
		tokenBlacklist = blacklist.NewMemoryBlacklist(clock)
		log.Info("Redis disabled, using in-memory token blacklist (set REDIS_ENABLED=true to enable)")
	}

	tokenService, err := jwt.NewTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer, clock)
	if err != nil {
		log.Fatalf("Failed to initialize token service: %v", err)
	}

	validate := validator.NewValidator()

	// Initialize repositories
	userRepo := sqlstore.NewUserRepository(db)
	sessionRepo := sqlstore.NewSessionRepository(db)

	// Initialize services
	authService := service.NewAuthService(userRepo, hash.NewHasher(hash.DefaultConfig), tokenService, tokenBlacklist, validate, clock, log)
	sessionService := service.NewSessionService(sessionRepo, validate, clock, log)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:               "Wellness Session Service",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(log),
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
	})

	// Setup global middlewares
	app.Use(middleware.RecoveryMiddleware(log))
	app.Use(middleware.LoggerMiddleware(log))
	app.Use(middleware.MetricsMiddleware())
	app.Use(middleware.CORSMiddleware(cfg.Server.CORSOrigins))

	handler.SetupRoutes(
		app,
		handler.NewAuthHandler(authService, log),
		handler.NewSessionHandler(sessionService, log),
		handler.NewHealthHandler(checks, log),
		middleware.AuthMiddleware(authService),
	)

	// Start server in goroutine
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		log.WithFields(logrus.Fields{"addr": addr, "environment": cfg.Server.Environment}).Info("Server starting")
		if err := app.Listen(addr); err != nil {
			log.WithError(err).Error("Server failed to start")
			stop()
		}
	}()

	// Wait for interrupt signal
	<-ctx.Done()
	log.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}

	log.Info("Server stopped")
}

// initRedis initializes Redis client and verifies connection
func initRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}

// errorHandler renders errors that escape the handlers, such as unknown routes
func errorHandler(log logrus.FieldLogger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "internal server error"

		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
			message = e.Message
		}

		if code >= fiber.StatusInternalServerError {
			log.WithError(err).WithFields(logrus.Fields{"method": c.Method(), "path": c.Path()}).Error("Request error")
		}

		return c.Status(code).JSON(fiber.Map{
			"success": false,
			"message": message,
		})
	}
}

package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/weather-dashboard/internal/api/http"
	"github.com/i474232898/weather-dashboard/internal/cache"
	"github.com/i474232898/weather-dashboard/internal/config"
	"github.com/i474232898/weather-dashboard/internal/guard"
	"github.com/i474232898/weather-dashboard/internal/remote"
	"github.com/i474232898/weather-dashboard/internal/scheduler"
	"github.com/i474232898/weather-dashboard/internal/session"
	"github.com/i474232898/weather-dashboard/internal/view"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound API calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	backoff := remote.BackoffConfig{
		MaxRetries:      cfg.FetchMaxRetries,
		InitialInterval: cfg.FetchRetryInterval,
		MaxInterval:     5 * time.Second,
	}
	client := remote.NewClient(httpClient, remote.Options{
		BaseURL: cfg.APIBaseURL,
		Backoff: backoff,
	})

	// Durable token storage.
	kv, err := openKV(cfg)
	if err != nil {
		log.Fatalf("failed to open session storage: %v", err)
	}
	defer kv.Close()

	sessions, err := session.NewStore(context.Background(), kv, client)
	if err != nil {
		log.Fatalf("failed to restore session: %v", err)
	}

	// Refresh timers for cache entries.
	timers := scheduler.New()
	timers.Start()
	defer timers.Stop()

	weatherCache := cache.New(client, sessions, cache.Options{
		Clock:        timers,
		FetchTimeout: cfg.HTTPTimeout*time.Duration(cfg.FetchMaxRetries+1) + backoff.TotalDelay(),
	})
	defer weatherCache.Close()

	page := view.NewPage(weatherCache)

	app := fiber.New(fiber.Config{
		AppName:               "weather-dashboard",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":        "ok",
			"service":       "weather-dashboard",
			"authenticated": sessions.IsAuthenticated(),
			"cacheEntries":  weatherCache.Len(),
		})
	})

	httpapi.RegisterRoutes(app, sessions, page, guard.New(sessions, guard.DefaultLoginPath))

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()
	log.Printf("INFO: weather-dashboard listening on :%s (api %s, session backend %s)", cfg.Port, cfg.APIBaseURL, cfg.SessionBackend)

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
	page.Clear()
}

func openKV(cfg *config.AppConfig) (session.KV, error) {
	switch cfg.SessionBackend {
	case config.BackendRedis:
		return session.NewRedisFromConfig(session.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	case config.BackendMySQL:
		return session.NewMySQLFromDSN(cfg.MySQLDSN)
	case config.BackendMemory:
		log.Printf("INFO: session storage is in memory; the session will not survive a restart")
		return session.NewMemoryKV(), nil
	default:
		return session.NewSQLite(cfg.SessionDBPath)
	}
}

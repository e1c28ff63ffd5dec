package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/weather-dashboard/internal/api/http"
	"github.com/i474232898/weather-dashboard/internal/config"
	"github.com/i474232898/weather-dashboard/internal/scheduler"
	"github.com/i474232898/weather-dashboard/internal/store"
	"github.com/i474232898/weather-dashboard/internal/weather"
	"github.com/i474232898/weather-dashboard/internal/weather/providers"
)

func main() {
	// Load configuration (.env first, then environment).
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Report store: in-memory by default, SQLite when configured.
	var reportStore weather.Store
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		sqliteStore, err := store.NewSQLite(cfg.SQLitePath, cfg.StoreMaxHistory, cfg.StoreMaxAge, cfg.SearchHistoryLimit)
		if err != nil {
			log.Fatalf("failed to open sqlite store: %v", err)
		}
		defer sqliteStore.Close()
		reportStore = sqliteStore
	default:
		reportStore = store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge, cfg.SearchHistoryLimit)
	}

	// Providers with resilience (backoff + circuit breaker) and a per-provider rate limit.
	var provs []weather.Provider
	for _, name := range cfg.Providers {
		var p weather.Provider
		switch name {
		case "openweather":
			p = providers.NewOpenWeatherProvider(httpClient, cfg.OpenWeatherAPIKey)
		case "weatherapi":
			p = providers.NewWeatherAPIProvider(httpClient, cfg.WeatherAPIKey)
		case "openmeteo":
			// Open-Meteo needs no API key, but resolving city names requires a Google geocoding key.
			p = providers.NewOpenMeteoProvider(httpClient, cfg.GeocoderAPIKey)
		}
		provs = append(provs, providers.RateLimited(p, cfg.ProviderRPS, cfg.ProviderBurst))
	}
	log.Printf("INFO: %d weather providers configured: %v", len(provs), cfg.Providers)

	// Core service orchestrating providers and store.
	service := weather.NewService(reportStore, provs, cfg.ReportTTL)

	// Scheduler that periodically refreshes tracked locations.
	sched := scheduler.New(cfg.Locations, cfg.FetchInterval, service)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "weather-dashboard",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
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
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: "GET,DELETE,OPTIONS",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-dashboard",
		})
	})

	httpapi.RegisterRoutes(app, service)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()
	log.Printf("INFO: listening on :%s", cfg.Port)

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/joho/godotenv"

	"patitas/internal/cache"
	"patitas/internal/config"
	"patitas/internal/database"
	"patitas/internal/geocode"
	"patitas/internal/geodata"
	"patitas/internal/handlers"
	"patitas/internal/health"
	"patitas/internal/mq"
	"patitas/internal/resolver"
)

func main() {
	// Load .env if present.
	_ = godotenv.Load()

	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Database ---
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Println("database connected and migrated")

	// --- Redis ---
	redisCache, err := cache.New(cfg.RedisURL,
		time.Duration(cfg.ReverseCacheTTLSec)*time.Second,
		time.Duration(cfg.SearchCacheTTLSec)*time.Second)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisCache.Close()
	log.Println("redis connected")

	// --- RabbitMQ ---
	publisher, err := mq.NewPublisher(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("rabbitmq: %v", err)
	}
	defer publisher.Close()
	log.Println("rabbitmq connected")

	// --- Geodata and resolution ---
	data := geodata.MustLoad()
	res := resolver.New(data)
	geocoder := geocode.NewClient(cfg.NominatimURL)

	// --- Geocoder reachability monitor ---
	monitor := health.NewMonitor(cfg.GeocoderProbeHost, cfg.GeocoderProbeIntvl)
	go monitor.Start(ctx)

	// --- Fiber HTTP Server ---
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(cors.New())

	h := &handlers.Handlers{
		DB:              db,
		Cache:           redisCache,
		Geocoder:        geocoder,
		Resolver:        res,
		Geodata:         data,
		Monitor:         monitor,
		Publisher:       publisher,
		SuggestDebounce: time.Duration(cfg.SuggestDebounceMs) * time.Millisecond,
	}

	api := app.Group("/api")
	api.Get("/status", h.Status)

	api.Post("/reports", h.CreateReport)
	api.Get("/reports", h.ListReports)
	api.Get("/reports/:id", h.GetReport)
	api.Patch("/reports/:id/resolved", h.ResolveReport)

	api.Post("/campaigns", h.CreateCampaign)
	api.Get("/campaigns", h.ListCampaigns)
	api.Get("/campaigns/:id", h.GetCampaign)

	// Location resolution (map marker, suggestions, edit mode, manual).
	location := api.Group("/location")
	location.Post("/reverse", h.ReverseLocation)
	location.Get("/suggest", h.SuggestLocation)
	location.Post("/select", h.SelectSuggestion)
	location.Get("/parse", h.ParseLocation)
	location.Post("/manual", h.SetManualLocation)

	// Reference hierarchy for the dropdowns.
	geo := api.Group("/geodata")
	geo.Get("/departments", h.Departments)
	geo.Get("/:department/provinces", h.Provinces)
	geo.Get("/:department/:province/districts", h.Districts)

	// Serve static frontend files
	app.Static("/", "./web")

	// --- Graceful shutdown ---
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	log.Printf("server starting on :%s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("server: %v", err)
	}
}

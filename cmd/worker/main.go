package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"patitas/internal/backfill"
	"patitas/internal/cache"
	"patitas/internal/config"
	"patitas/internal/database"
	"patitas/internal/geocode"
	"patitas/internal/geodata"
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
		log.Fatalf("rabbitmq publisher: %v", err)
	}
	defer publisher.Close()

	consumer, err := mq.NewConsumer(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("rabbitmq consumer: %v", err)
	}
	defer consumer.Close()
	log.Println("rabbitmq connected")

	// --- Backfill service ---
	data := geodata.MustLoad()
	res := resolver.New(data)
	geocoder := geocode.NewClient(cfg.NominatimURL)
	svc := backfill.NewService(db, redisCache, geocoder, res, publisher)

	// --- Graceful shutdown ---
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("shutting down...")
		cancel()
	}()

	log.Println("backfill worker starting")
	if err := svc.Run(ctx, consumer); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("worker: %v", err)
	}
}

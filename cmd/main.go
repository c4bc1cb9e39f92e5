package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"push-service/internal/alerting"
	"push-service/internal/analytics"
	"push-service/internal/api"
	"push-service/internal/config"
	"push-service/internal/db"
	"push-service/internal/dispatch"
	"push-service/internal/kafka"
	"push-service/internal/logging"
	"push-service/internal/notifier"
	"push-service/internal/push"
	"push-service/internal/registry"
	"push-service/internal/retry"
	"push-service/internal/validator"
	"push-service/internal/ws"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	// Connect to database
	dbConn, err := db.New(cfg.DB.DSN)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	defer dbConn.Close()

	// Core components
	reg := registry.New(dbConn, logger)
	sender := push.NewWebPushSender(cfg)
	dispatcher := dispatch.New(reg, sender, dbConn, logger)
	hub := ws.NewHub(logger)
	svc := notifier.New(dispatcher, dbConn, hub, logger, cfg)
	ops := alerting.NewTelegramNotifier(cfg, logger)
	scheduler := retry.NewScheduler(dbConn, dispatcher, ops, cfg.Retry.BatchSize, logger)
	sweep := validator.New(dbConn, logger)
	aggregator := analytics.New(dbConn, logger)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	svc.Start(&wg)

	// Periodic jobs; the HTTP triggers remain available for external cron.
	wg.Add(1)
	go runPeriodic(ctx, &wg, cfg.Retry.Interval, func() {
		if _, err := scheduler.Run(ctx); err != nil {
			logger.Errorf("Scheduled retry run failed: %v", err)
		}
	})
	wg.Add(1)
	go runPeriodic(ctx, &wg, cfg.Validator.Interval, func() {
		if _, err := sweep.Sweep(ctx); err != nil {
			logger.Errorf("Scheduled sweep failed: %v", err)
		}
	})

	// Kafka consumer for application events, when configured
	var consumer *kafka.Consumer
	if cfg.Kafka.Broker != "" {
		consumer = kafka.NewConsumer(cfg, svc, logger)
		consumer.Start(&wg)
	} else {
		logger.Warnf("KAFKA_BROKER not set, event intake disabled")
	}

	// Start API server
	h := api.NewHandler(reg, svc, scheduler, sweep, aggregator, dbConn, hub, logger)
	router := api.NewRouter(logger, cfg, h)
	go func() {
		logger.Infof("API started on %s", cfg.API.Port)
		if err := router.Run(cfg.API.Port); err != nil {
			logger.Errorf("API run failed: %v", err)
		}
	}()

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	logger.Infof("Shutting down...")
	cancel()
	if consumer != nil {
		consumer.Close()
	}
	svc.Stop()
	wg.Wait()
	logger.Infof("Service stopped")
}

// runPeriodic invokes fn on the given interval until ctx is cancelled.
func runPeriodic(ctx context.Context, wg *sync.WaitGroup, interval time.Duration, fn func()) {
	defer wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

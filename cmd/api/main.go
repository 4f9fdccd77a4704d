// cmd/api/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/app"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/notification"
	"github.com/your-org/storefront-backend/internal/infrastructure/database/memory"
	"github.com/your-org/storefront-backend/internal/infrastructure/database/postgres"
	"github.com/your-org/storefront-backend/internal/infrastructure/database/redis"
	"github.com/your-org/storefront-backend/internal/interfaces/http"
	"github.com/your-org/storefront-backend/internal/pkg/events"
	"github.com/your-org/storefront-backend/internal/pkg/logger"
	"github.com/your-org/storefront-backend/internal/pkg/metrics"
	"github.com/your-org/storefront-backend/internal/pkg/tracing"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logr := logger.New(cfg)
	logr.WithFields(logrus.Fields{
		"app":         cfg.App.Name,
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
		"db_driver":   cfg.Database.Driver,
	}).Info("Starting service")

	shutdownTracing, err := tracing.Init(cfg, logr)
	if err != nil {
		logr.WithError(err).Fatal("Failed to initialize tracing")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	checks := map[string]http.HealthCheck{}

	// Storage
	var repos app.Repositories
	var migration *postgres.Migration
	switch cfg.Database.Driver {
	case config.DatabaseDriverMemory:
		logr.Warn("Using the in-memory store; data is lost on restart")
		repos = app.MemoryRepositories(memory.NewStore())
	default:
		db, err := postgres.NewConnection(cfg, logr)
		if err != nil {
			logr.WithError(err).Fatal("Failed to connect to database")
		}
		defer db.Close()
		checks["database"] = db.Health

		migration = postgres.NewMigration(db.GetDB(), logr)
		if err := migration.RunAutoMigrations(); err != nil {
			logr.WithError(err).Fatal("Database migration failed")
		}
		if err := migration.CreateIndexes(); err != nil {
			logr.WithError(err).Warn("Index creation failed")
		}
		repos = app.PostgresRepositories(db.GetDB())
	}

	// Redis backs rate limiting and realtime notification push
	var redisClient goredis.UniversalClient
	var realtime notification.Publisher
	if cfg.Redis.Enabled {
		rc, err := redis.NewConnection(cfg, logr)
		if err != nil {
			logr.WithError(err).Fatal("Failed to connect to Redis")
		}
		defer rc.Close()
		checks["redis"] = rc.Health
		redisClient = rc.GetClient()
		realtime = redis.NewNotificationPublisher(rc.GetClient())
	}

	publisher, err := events.New(cfg, logr.WithField("component", "events"))
	if err != nil {
		logr.WithError(err).Fatal("Failed to create event publisher")
	}
	defer publisher.Close()

	services := app.NewServices(cfg, repos, app.Externals{
		Realtime: realtime,
		Events:   publisher,
		Metrics:  m,
	}, logr)

	// Seed initial data in development
	if cfg.IsDevelopment() {
		if migration != nil {
			err = migration.SeedInitialData(cfg.Security)
		} else {
			_, err = services.SeedDemoData(context.Background())
		}
		if err != nil {
			logr.WithError(err).Warn("Data seeding failed")
		}
	}

	services.Sweeper.Start(context.Background())

	server := http.NewServer(cfg, services.Handlers(logr), http.Deps{
		Tokens:   services.Tokens,
		Redis:    redisClient,
		Metrics:  m,
		Gatherer: registry,
		Checks:   checks,
		Log:      logr,
	})

	go func() {
		if err := server.Start(); err != nil {
			logr.WithError(err).Fatal("Failed to start HTTP server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logr.Info("Shutting down gracefully")

	// Give server 30 seconds to shutdown gracefully
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		logr.WithError(err).Error("Failed to shutdown HTTP server gracefully")
	}
	services.Sweeper.Stop()
	if err := shutdownTracing(ctx); err != nil {
		logr.WithError(err).Warn("Failed to flush traces")
	}

	logr.Info("Server shutdown completed")
}

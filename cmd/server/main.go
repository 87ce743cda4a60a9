package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rental-service/config"
	"rental-service/internal/api"
	"rental-service/internal/broker"
	"rental-service/internal/redisclient"
	"rental-service/internal/service"
	"rental-service/internal/store"
	"rental-service/internal/util"
	"rental-service/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, cfg.Server.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting rental service", zap.String("env", cfg.Server.Env))

	if cfg.Observ.TracingEnabled {
		tp, err := util.InitTracer("rental-service", cfg.Observ.JaegerEndpoint)
		if err != nil {
			logger.Fatal("Failed to initialize tracer", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				logger.Error("Error shutting down tracer", zap.Error(err))
			}
		}()
	}

	repo, closeRepo := openRepository(cfg, logger)
	defer closeRepo()

	dependencies := map[string]api.Pinger{"database": repo}

	var idempotency service.IdempotencyStore
	if cfg.Redis.Enabled() {
		redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()

		idempotency = redisClient
		dependencies["redis"] = redisClient
		logger.Info("Redis connected, idempotency keys enabled")
	}

	var publisher service.EventPublisher
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var negotiationWorker *worker.NegotiationWorker
	if cfg.Kafka.Enabled() {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicNegotiation)
		defer producer.Close()
		publisher = broker.NewEventPublisher(producer)
		logger.Info("Kafka producer initialized", zap.Strings("brokers", cfg.Kafka.Brokers))

		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicNegotiation, cfg.Kafka.ConsumerGroup)
		negotiationWorker = worker.NewNegotiationWorker(consumer, service.NewHistoryRecorder(repo))
		go func() {
			if err := negotiationWorker.Start(workerCtx); err != nil && err != context.Canceled {
				logger.Error("Negotiation worker error", zap.Error(err))
			}
		}()
	}

	services := api.Services{
		Customers: service.NewCustomerService(repo),
		Genres:    service.NewGenreService(repo),
		Medias:    service.NewMediaService(repo),
		Units:     service.NewUnitService(repo),
		Negotiations: service.NewNegotiationService(repo, service.NewUnitGate(), publisher, idempotency, service.NegotiationOptions{
			ReleaseOnArchive:      cfg.Business.ReleaseOnArchive,
			IdempotencyTTL:        cfg.Redis.IdempotencyTTL,
			IdempotencyPendingTTL: cfg.Redis.PendingTTL,
		}),
		Search: service.NewSearchService(repo),
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(services, api.Options{
		BasePath:       cfg.Server.BasePath,
		DefaultLimit:   cfg.Business.DefaultLimit,
		RateLimitRPS:   cfg.Business.RateLimitRPS,
		RateLimitBurst: cfg.Business.RateLimitBurst,
		Dependencies:   dependencies,
	})
	if err := handler.SetupRoutes(router); err != nil {
		logger.Fatal("Failed to set up routes", zap.Error(err))
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if negotiationWorker != nil {
		if err := negotiationWorker.Stop(); err != nil {
			logger.Error("Failed to stop negotiation worker", zap.Error(err))
		}
	}

	logger.Info("Server exited")
}

// openRepository connects the configured store and applies the schema
func openRepository(cfg *config.Config, logger *zap.Logger) (store.Repository, func()) {
	if cfg.Database.Driver == "memory" {
		logger.Warn("Using in-memory store, data is lost on restart")
		return store.NewMemoryStore(), func() {}
	}

	db, err := store.NewStore(cfg.Database.URL, cfg.Database.MaxOpenConns)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	logger.Info("Database connected")

	if cfg.Database.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := db.Migrate(ctx); err != nil {
			logger.Fatal("Failed to migrate database", zap.Error(err))
		}
		logger.Info("Database schema applied")
	}

	return db, func() { db.Close() }
}

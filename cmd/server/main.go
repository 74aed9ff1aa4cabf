package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	natsadapter "github.com/adilet-k/bazarly/internal/adapter/messaging/nats"
	"github.com/adilet-k/bazarly/internal/adapter/repository/cache"
	"github.com/adilet-k/bazarly/internal/adapter/repository/mongodb"
	"github.com/adilet-k/bazarly/internal/auth"
	"github.com/adilet-k/bazarly/internal/config"
	"github.com/adilet-k/bazarly/internal/listing/usecase"
	"github.com/adilet-k/bazarly/internal/platform/logger"
	"github.com/adilet-k/bazarly/internal/platform/metrics"
	"github.com/adilet-k/bazarly/internal/platform/tracer"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.MustLoad()

	log := logger.New(logger.Config{
		Level:  cfg.Logger.Level,
		Format: cfg.Logger.Format,
	})
	defer log.Sync()

	log.Info("configuration loaded",
		zap.String("service", cfg.ServiceName),
		zap.String("mongo_database", cfg.Mongo.Database),
		zap.String("metrics_port", cfg.Metrics.Port),
	)

	tracerProvider := tracer.Init(cfg.ServiceName, cfg.Tracing.OTLPEndpoint, log)

	mongoClient, err := mongodb.Connect(cfg.Mongo)
	if err != nil {
		log.Fatal("failed to connect to MongoDB", zap.Error(err))
	}
	db := mongoClient.Database(cfg.Mongo.Database)
	log.Info("connected to MongoDB")

	redisClient, err := cache.NewClient(context.Background(), cfg.Redis)
	if err != nil {
		log.Fatal("failed to connect to Redis", zap.Error(err))
	}
	log.Info("connected to Redis")

	natsConn, err := natsadapter.NewConnection(cfg.NATS)
	if err != nil {
		log.Fatal("failed to connect to NATS", zap.Error(err))
	}
	log.Info("connected to NATS")

	publisher, err := natsadapter.NewPublisher(natsConn)
	if err != nil {
		log.Fatal("failed to create event publisher", zap.Error(err))
	}

	listingRepo := mongodb.NewListingRepository(db)
	categoryRepo := mongodb.NewCategoryRepository(db)
	saleRepo := mongodb.NewSaleRepository(db)
	historyRepo := mongodb.NewBrowseHistoryRepository(db)
	userRepo := mongodb.NewUserRepository(db)

	authz := auth.NewService(userRepo)
	listingCache := cache.NewListingCache(redisClient, cfg.Redis.ListingTTL)

	metricsManager := metrics.NewManager(cfg.ServiceName)

	listingUC := usecase.NewListingUsecase(
		listingRepo,
		categoryRepo,
		saleRepo,
		historyRepo,
		authz,
		listingCache,
		publisher,
		metricsManager,
		log.Named("listing"),
	)
	recommendationUC := usecase.NewRecommendationUsecase(
		listingRepo,
		historyRepo,
		metricsManager,
		log.Named("recommendation"),
	)
	_ = listingUC
	_ = recommendationUC

	go func() {
		if err := metrics.StartServer(cfg.Metrics.Port, metricsManager.Registry, log); err != nil {
			log.Error("metrics server stopped", zap.Error(err))
		}
	}()

	log.Info("bazarly listing service is up")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	publisher.Close()

	if err := redisClient.Close(); err != nil {
		log.Error("failed to close Redis client", zap.Error(err))
	}
	if err := mongoClient.Disconnect(shutdownCtx); err != nil {
		log.Error("failed to disconnect MongoDB", zap.Error(err))
	}
	if tracerProvider != nil {
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("failed to shut down tracer provider", zap.Error(err))
		}
	}

	log.Info("shutdown complete")
}

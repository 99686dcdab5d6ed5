package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/billing-resolver/app/config"
	"github.com/billing-resolver/app/controllers"
	"github.com/billing-resolver/app/services"
	"github.com/billing-resolver/internal/search"
	"github.com/billing-resolver/routes"
)

func main() {
	configPath := os.Getenv("RESOLVER_CONFIG")
	if configPath == "" {
		configPath = "config/resolver.yaml"
	}
	if err := config.Load(configPath); err != nil {
		panic(err)
	}

	logger := initLogger()
	defer logger.Sync()

	logger.Info("starting billing property resolver",
		zap.String("env", config.C.App.Env),
		zap.String("port", config.C.App.Port))

	mongoClient, err := connectMongo(logger)
	if err != nil {
		logger.Fatal("mongo connection failed", zap.Error(err))
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			logger.Error("mongo disconnect failed", zap.Error(err))
		}
	}()

	stores := services.NewMongoStoreService(mongoClient.Database(config.C.Mongo.Database), logger)

	var shared search.SharedCache
	if config.C.Redis.URL != "" {
		redisCache, err := services.NewRedisSearchCache(config.C.Redis.URL, config.C.Redis.TTL(), logger)
		if err != nil {
			logger.Fatal("redis connection failed", zap.Error(err))
		}
		defer redisCache.Close()
		shared = redisCache
	}

	searchClient, err := search.NewMeiliAddressClient(search.Config{
		Host:         config.C.Search.Host,
		APIKey:       config.C.Search.APIKey,
		IndexName:    config.C.Search.IndexName,
		Timeout:      config.C.Search.Timeout(),
		MemoSize:     config.C.Search.MemoSize,
		UseLibpostal: config.C.Search.UseLibpostal,
	}, shared, logger)
	if err != nil {
		logger.Fatal("search client init failed", zap.Error(err))
	}

	resolveController := controllers.NewResolveController(
		searchClient,
		stores,
		stores,
		stores,
		services.ResolverConfig{
			OrgMatchScore:     config.C.Resolver.OrgMatchScore,
			PropertyChunkSize: config.C.Resolver.PropertyChunkSize,
		},
		logger,
	)

	if config.C.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	routes.SetupAllRoutes(router, resolveController)

	server := &http.Server{
		Addr:    ":" + config.C.App.Port,
		Handler: router,
	}
	go func() {
		logger.Info("http server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
	logger.Info("server exited")
}

func connectMongo(logger *zap.Logger) (*mongo.Client, error) {
	logger.Info("connecting to mongo", zap.String("uri", config.C.Mongo.URI))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(config.C.Mongo.URI))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return client, nil
}

func initLogger() *zap.Logger {
	if config.C.App.Env == "production" {
		logger, _ := zap.NewProduction()
		return logger
	}
	logger, _ := zap.NewDevelopment()
	return logger
}

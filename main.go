package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"license-service/internal/config"
	"license-service/internal/events"
	"license-service/internal/handlers"
	"license-service/internal/metrics"
	"license-service/internal/middleware"
	"license-service/internal/models"
	redisClient "license-service/internal/redis"
	"license-service/internal/repository"
	"license-service/internal/services"
)

func main() {
	_ = godotenv.Load()
	cfg := config.New()
	initLogger(cfg)

	db, err := initDatabase(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize database")
	}
	if err := autoMigrate(db); err != nil {
		logrus.WithError(err).Fatal("Failed to migrate database")
	}

	// Optional Redis seat-usage cache
	var cache *redisClient.Client
	cache, err = redisClient.NewClient(cfg.Redis)
	if err != nil {
		logrus.WithError(err).Warn("Redis unavailable, seat counts will hit the database directly")
		cache = nil
	} else {
		logrus.Info("Connected to Redis")
		defer cache.Close()
	}

	// Optional NATS event publishing
	var publisher *events.Publisher
	if cfg.NATS.URL != "" {
		publisher, err = events.NewPublisher(&events.Config{URL: cfg.NATS.URL})
		if err != nil {
			logrus.WithError(err).Warn("NATS unavailable, license event publishing disabled")
			publisher = nil
		} else {
			logrus.Info("Connected to NATS")
			defer publisher.Close()
		}
	}

	// Repositories
	accountRepo := repository.NewAccountRepository(db)
	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)

	// License core
	licenseSvc := services.NewLicenseService(userRepo, subscriptionRepo, assignmentRepo)
	if publisher != nil {
		licenseSvc.SetEventPublisher(publisher)
	}
	if cache != nil {
		licenseSvc.SetUsageCache(cache)
	}

	// Handlers
	healthHandler := handlers.NewHealthHandler(db)
	if cache != nil {
		healthHandler.SetCache(cache)
	}
	accountHandler := handlers.NewAccountHandler(accountRepo)
	userHandler := handlers.NewUserHandler(userRepo)
	productHandler := handlers.NewProductHandler(productRepo)
	subscriptionHandler := handlers.NewSubscriptionHandler(subscriptionRepo)
	assignmentHandler := handlers.NewLicenseAssignmentHandler(accountRepo, assignmentRepo, licenseSvc)

	router := setupRouter(
		healthHandler,
		accountHandler,
		userHandler,
		productHandler,
		subscriptionHandler,
		assignmentHandler,
	)

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logrus.WithField("addr", server.Addr).Info("Starting license-service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("Server forced to shutdown")
	}
	logrus.Info("Server exited")
}

func setupRouter(
	healthHandler *handlers.HealthHandler,
	accountHandler *handlers.AccountHandler,
	userHandler *handlers.UserHandler,
	productHandler *handlers.ProductHandler,
	subscriptionHandler *handlers.SubscriptionHandler,
	assignmentHandler *handlers.LicenseAssignmentHandler,
) *gin.Engine {
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"}

	router.Use(cors.New(corsConfig))
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger())
	router.Use(metrics.Middleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	v1 := router.Group("/api/v1")
	{
		products := v1.Group("/products")
		{
			products.POST("", productHandler.CreateProduct)
			products.GET("", productHandler.ListProducts)
			products.GET("/:productId", productHandler.GetProduct)
			products.PUT("/:productId", productHandler.UpdateProduct)
			products.DELETE("/:productId", productHandler.DeleteProduct)
		}

		accounts := v1.Group("/accounts")
		{
			accounts.POST("", accountHandler.CreateAccount)
			accounts.GET("", accountHandler.ListAccounts)
			accounts.GET("/:accountId", accountHandler.GetAccount)
			accounts.PUT("/:accountId", accountHandler.UpdateAccount)
			accounts.DELETE("/:accountId", accountHandler.DeleteAccount)

			users := accounts.Group("/:accountId/users")
			{
				users.POST("", userHandler.CreateUser)
				users.GET("", userHandler.ListUsers)
				users.GET("/:userId", userHandler.GetUser)
				users.PUT("/:userId", userHandler.UpdateUser)
				users.DELETE("/:userId", userHandler.DeleteUser)
			}

			subscriptions := accounts.Group("/:accountId/subscriptions")
			{
				subscriptions.POST("", subscriptionHandler.CreateSubscription)
				subscriptions.GET("", subscriptionHandler.ListSubscriptions)
				subscriptions.GET("/:subscriptionId", subscriptionHandler.GetSubscription)
				subscriptions.PUT("/:subscriptionId", subscriptionHandler.UpdateSubscription)
				subscriptions.DELETE("/:subscriptionId", subscriptionHandler.DeleteSubscription)
			}

			licenses := accounts.Group("/:accountId/license-assignments")
			{
				licenses.GET("", assignmentHandler.ListAssignments)
				licenses.POST("", assignmentHandler.Assign)
				licenses.DELETE("", assignmentHandler.Unassign)
			}
		}
	}

	return router
}

func initLogger(cfg *config.Config) {
	if cfg.App.Environment == "production" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.App.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

func initDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func autoMigrate(db *gorm.DB) error {
	// uuid_generate_v4 defaults need the extension
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		logrus.WithError(err).Warn("could not ensure uuid-ossp extension")
	}
	return db.AutoMigrate(
		&models.Account{},
		&models.Product{},
		&models.User{},
		&models.Subscription{},
		&models.LicenseAssignment{},
	)
}

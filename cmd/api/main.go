package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sony/gobreaker"

	"github.com/wms-platform/outbound-service/internal/application"
	"github.com/wms-platform/outbound-service/internal/domain"
	"github.com/wms-platform/outbound-service/internal/infrastructure/clients"
	"github.com/wms-platform/outbound-service/internal/infrastructure/kafka"
	"github.com/wms-platform/outbound-service/internal/infrastructure/memory"
	"github.com/wms-platform/outbound-service/internal/infrastructure/mongodb"
	"github.com/wms-platform/outbound-service/pkg/logging"
	"github.com/wms-platform/outbound-service/pkg/metrics"
	"github.com/wms-platform/outbound-service/pkg/middleware"
	"github.com/wms-platform/outbound-service/pkg/resilience"
)

const serviceName = "outbound-service"

func main() {
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting outbound-service API")

	config := loadConfig()
	ctx := context.Background()

	metricsConfig := metrics.DefaultConfig(serviceName)
	m := metrics.New(metricsConfig)
	logger.Info("Metrics initialized")

	// MongoDB backs only the verification audit trail; the service stays up
	// without it.
	var logRepo *mongodb.VerificationLogRepository
	var mongoClient *mongodb.Client
	if config.MongoDB.URI != "" {
		client, err := mongodb.NewClient(ctx, config.MongoDB)
		if err != nil {
			logger.WithError(err).Warn("Failed to connect to MongoDB, verification audit trail disabled")
		} else {
			mongoClient = client
			logRepo = mongodb.NewVerificationLogRepository(client.Database())
			defer mongoClient.Close(ctx)
			logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)
		}
	}

	publisher := kafka.NewEventPublisher(config.Kafka, m, logger)
	defer publisher.Close()
	logger.Info("Kafka publisher initialized", "brokers", config.Kafka.Brokers)

	observer := breakerObserver(m)
	taskBreaker := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("task-service"), logger.Logger, observer)
	shipmentBreaker := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("shipment-service"), logger.Logger, observer)
	verifierBreaker := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("verification-service"), logger.Logger, observer)

	taskClient := clients.NewTaskServiceClient(config.TaskServiceURL, taskBreaker)
	shipmentClient := clients.NewShipmentServiceClient(config.ShipmentServiceURL, shipmentBreaker)
	verifierClient := clients.NewVerifierClient(config.VerifierServiceURL, verifierBreaker)

	sessionStore := memory.NewSessionStore(config.SessionTTL)
	go runSessionJanitor(ctx, sessionStore, logger)

	logRepository := verificationLogs(logRepo)
	pickingService := application.NewPickingService(taskClient, sessionStore, publisher, m, logger)
	verificationService := application.NewVerificationService(shipmentClient, verifierClient, logRepository, publisher, m, logger)

	router := gin.New()
	middlewareConfig := middleware.DefaultConfig(serviceName, logger.Logger)
	middleware.Setup(router, middlewareConfig)
	router.Use(middleware.MetricsMiddleware(m))
	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, func() error {
		if mongoClient != nil {
			return mongoClient.HealthCheck(ctx)
		}
		return nil
	}))
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	api := router.Group("/api/v1")
	{
		picking := api.Group("/picking")
		{
			picking.GET("/overview", getOverviewHandler(pickingService, logger))
			picking.POST("/sessions", openSessionHandler(pickingService, logger))
			picking.GET("/sessions/:sessionId", getSessionHandler(pickingService, logger))
			picking.POST("/sessions/:sessionId/selection", setSelectionHandler(pickingService, logger))
			picking.POST("/sessions/:sessionId/dispatch", dispatchHandler(pickingService, logger))
			picking.POST("/sessions/:sessionId/refresh", refreshSessionHandler(pickingService, logger))
			picking.DELETE("/sessions/:sessionId", closeSessionHandler(pickingService, logger))
		}

		outbound := api.Group("/outbound")
		{
			outbound.GET("/shipments", listShipmentsHandler(verificationService, logger))
			outbound.GET("/shipments/:shipmentId/packages", listPackagesHandler(verificationService, logger))
			outbound.GET("/shipments/:shipmentId/verifications", verificationHistoryHandler(verificationService, logger))
			outbound.POST("/packages/:packageId/verify", verifyPackageHandler(verificationService, logger))
		}
	}

	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 150 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Server error")
		}
	}()
	logger.Info("Server started", "addr", config.ServerAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server stopped")
}

// Config holds application configuration
type Config struct {
	ServerAddr         string
	TaskServiceURL     string
	ShipmentServiceURL string
	VerifierServiceURL string
	SessionTTL         time.Duration
	MongoDB            *mongodb.Config
	Kafka              *kafka.Config
}

func loadConfig() *Config {
	return &Config{
		ServerAddr:         getEnv("SERVER_ADDR", ":8010"),
		TaskServiceURL:     getEnv("TASK_SERVICE_URL", "http://localhost:8080"),
		ShipmentServiceURL: getEnv("SHIPMENT_SERVICE_URL", "http://localhost:8080"),
		VerifierServiceURL: getEnv("VERIFIER_SERVICE_URL", "http://localhost:8081"),
		SessionTTL:         getDurationEnv("SESSION_TTL", memory.DefaultSessionTTL),
		MongoDB: &mongodb.Config{
			URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGODB_DATABASE", "wms_outbound"),
			ConnectTimeout: 10 * time.Second,
			MaxPoolSize:    100,
			MinPoolSize:    10,
		},
		Kafka: &kafka.Config{
			Brokers:      strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			BatchSize:    100,
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: 1,
			Source:       serviceName,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func breakerObserver(m *metrics.Metrics) resilience.StateObserver {
	return func(name string, state gobreaker.State) {
		m.SetCircuitBreakerState(name, int(state))
		if state == gobreaker.StateOpen {
			m.RecordCircuitBreakerTrip(name)
		}
	}
}

// verificationLogs avoids handing the services a typed-nil interface when
// MongoDB is not available
func verificationLogs(repo *mongodb.VerificationLogRepository) domain.VerificationLogRepository {
	if repo == nil {
		return nil
	}
	return repo
}

func runSessionJanitor(ctx context.Context, store *memory.SessionStore, logger *logging.Logger) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if purged := store.PurgeExpired(now); purged > 0 {
				logger.Info("Purged expired dispatch sessions", "count", purged)
			}
		}
	}
}

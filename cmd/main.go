package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"github.com/pawprint/go-reminder-service/internal/consumer"
	"github.com/pawprint/go-reminder-service/internal/domain"
	"github.com/pawprint/go-reminder-service/internal/handler"
	"github.com/pawprint/go-reminder-service/internal/ledger"
	"github.com/pawprint/go-reminder-service/internal/medsched"
	"github.com/pawprint/go-reminder-service/internal/middleware"
	"github.com/pawprint/go-reminder-service/internal/osnotify"
	"github.com/pawprint/go-reminder-service/internal/petstore"
	"github.com/pawprint/go-reminder-service/internal/push"
	"github.com/pawprint/go-reminder-service/internal/shared/config"
	"github.com/pawprint/go-reminder-service/internal/shared/logger"
	"github.com/pawprint/go-reminder-service/internal/shared/mongodb"
	"github.com/pawprint/go-reminder-service/internal/shared/rabbitmq"
	"github.com/pawprint/go-reminder-service/internal/shared/redisdb"
	syncer "github.com/pawprint/go-reminder-service/internal/sync"
)

// syncData joins the pet store with the preferences repository to form the
// read side of the sync orchestrator.
type syncData struct {
	*petstore.Store
	prefs *petstore.PreferencesRepository
}

func (d syncData) Preferences(ctx context.Context, ownerID string) (*domain.NotificationPreferences, error) {
	return d.prefs.Get(ctx, ownerID)
}

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg.LogLevel)
	defer log.Sync()

	log.Info("Starting Reminder Service...")

	// Initialize MongoDB
	mongoClient, err := mongodb.NewMongoClient(cfg.MongoDB.URI, cfg.MongoDB.Database)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", "error", err)
	}
	defer mongoClient.Disconnect(context.Background())

	// Initialize Redis (reminder ledger)
	redisClient, err := redisdb.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatal("Failed to connect to Redis", "error", err)
	}
	defer redisClient.Close()

	// Initialize RabbitMQ
	rabbitMQClient, err := rabbitmq.NewRabbitMQClient(cfg.RabbitMQ.URL)
	if err != nil {
		log.Fatal("Failed to connect to RabbitMQ", "error", err)
	}
	defer rabbitMQClient.Close()

	// Initialize stores
	petStore := petstore.NewStore(mongoClient)
	preferencesRepo := petstore.NewPreferencesRepository(mongoClient)
	pushStore := push.NewStore(mongoClient)
	ledgerStore := ledger.NewStore(redisClient, log)

	ctx := context.Background()
	if err := petStore.EnsureIndexes(ctx); err != nil {
		log.Error("Failed to create pet store indexes", "error", err)
	}
	if err := pushStore.EnsureIndexes(ctx); err != nil {
		log.Error("Failed to create push store indexes", "error", err)
	}

	// Initialize push delivery
	pushService := push.NewService(pushStore, cfg.Push.VAPIDPublicKey, cfg.Push.VAPIDPrivateKey, cfg.Push.Subscriber, log)

	// Initialize notification scheduler
	notifyScheduler := osnotify.NewCronScheduler(pushService, pushStore, log)
	notifyScheduler.Start()
	defer notifyScheduler.Stop()

	// Initialize services
	medScheduler := medsched.New(ledgerStore, notifyScheduler, log)
	orchestrator := syncer.New(
		ledgerStore,
		notifyScheduler,
		syncData{Store: petStore, prefs: preferencesRepo},
		log,
		syncer.WithCooldown(cfg.Sync.Cooldown),
	)

	// Initialize HTTP handlers
	reminderHandler := handler.NewReminderHandler(medScheduler, ledgerStore, log)
	syncHandler := handler.NewSyncHandler(orchestrator, log)
	preferencesHandler := handler.NewPreferencesHandler(preferencesRepo, orchestrator, log)
	pushHandler := handler.NewPushHandler(pushStore, pushService, orchestrator, log)

	// Initialize rate limiter
	rateLimiter := middleware.NewOwnerRateLimiter(cfg.Server.RateLimitPerOwner, cfg.Server.RateLimitBurst)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	// Health check endpoints
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	// Metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes with rate limiting
	v1 := router.Group("/api/v1")
	v1.Use(middleware.RateLimitMiddleware(rateLimiter))
	{
		// Reminders
		reminders := v1.Group("/reminders")
		{
			reminders.PUT("/medications", reminderHandler.SetMedicationReminder)
			reminders.GET("/medications", reminderHandler.GetMedicationSchedule)
			reminders.GET("/medications/all", reminderHandler.ListMedicationSchedules)
			reminders.DELETE("/medications", reminderHandler.RemoveMedicationReminder)
			reminders.GET("/scheduled", reminderHandler.ListScheduledReminders)
		}

		// Manual sync trigger
		v1.POST("/sync", syncHandler.TriggerSync)

		// Preferences
		preferences := v1.Group("/preferences")
		{
			preferences.GET("/:owner_id", preferencesHandler.GetPreferences)
			preferences.PUT("/:owner_id", preferencesHandler.UpdatePreferences)
		}

		// Push subscriptions
		pushRoutes := v1.Group("/push")
		{
			pushRoutes.POST("/subscribe", pushHandler.Subscribe)
			pushRoutes.DELETE("/subscriptions", pushHandler.Unsubscribe)
			pushRoutes.GET("/vapid-key", pushHandler.VAPIDPublicKey)
		}
	}

	// Start RabbitMQ consumer
	eventConsumer := consumer.NewEventConsumer(rabbitMQClient, orchestrator, log)
	go func() {
		if err := eventConsumer.Start(); err != nil {
			log.Error("Failed to start event consumer", "error", err)
		}
	}()

	// Periodic sweep: re-reconciles every owner so one-shots that fired and
	// far-out reminders entering their window get picked up without an event.
	sweep := cron.New()
	sweepSpec := fmt.Sprintf("@every %s", cfg.Sync.SweepInterval)
	if _, err := sweep.AddFunc(sweepSpec, func() {
		orchestrator.SyncAll(context.Background())
	}); err != nil {
		log.Error("Failed to register periodic sweep", "error", err)
	}
	sweep.Start()
	defer sweep.Stop()

	// Start HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Info("Reminder Service started", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down Reminder Service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Reminder Service stopped")
}

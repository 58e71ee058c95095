package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/graceful"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ellysus/Momentary/config"
	"github.com/ellysus/Momentary/db"
	"github.com/ellysus/Momentary/handler"
	"github.com/ellysus/Momentary/logging"
	"github.com/ellysus/Momentary/manager"
	"github.com/ellysus/Momentary/middleware"
	"github.com/ellysus/Momentary/scheduler"
	"github.com/ellysus/Momentary/schema"
	"github.com/ellysus/Momentary/storage"
)

var (
	name    = "momentary-server"
	version = "0.1.0"
)

func main() {
	// Initialize logger
	logger, cleanup := logging.InitializeLogger(name)
	defer cleanup()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Create a context that listens for termination signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize the database
	database, err := db.NewDB(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to the database", zap.Error(err))
	}
	defer database.Close()

	// Initialize photo storage
	photoStorage, err := storage.NewPhotoStorage(ctx, logger, cfg.Minio)
	if err != nil {
		logger.Fatal("Failed to initialize photo storage", zap.Error(err))
	}

	// Create the session manager and prompt scheduler
	sessions := manager.NewSessionManager(logger, cfg.SessionSecret, cfg.SessionTTL)
	promptScheduler := scheduler.NewScheduler(logger, database, cfg)

	// Create handler instances
	authHandler := handler.NewAuthHandler(logger, database, sessions, cfg.SessionTTL)
	promptHandler := handler.NewPromptHandler(logger, database, promptScheduler)
	pushHandler := handler.NewPushHandler(logger, database, cfg.VAPIDPublicKey)
	photoHandler := handler.NewPhotoHandler(logger, database, photoStorage)
	healthHandler := handler.NewHealthHandler(database)

	// Expose HTTP endpoint with graceful shutdown
	r, err := graceful.New(gin.New(), graceful.WithAddr(":"+cfg.Port))
	if err != nil {
		logger.Fatal(err)
	}
	setupCommonMiddleware(r, logger.Desugar())

	m := middleware.NewMiddleware(logger, sessions, cfg.AdminUsername)
	setupRoutes(r, m, authHandler, promptHandler, pushHandler, photoHandler, healthHandler)

	// Run the prompt scheduler in a separate goroutine
	go promptScheduler.Run(ctx)

	// Run the gin server
	logger.Infof("Starting %s v%s on port %s", name, version, cfg.Port)
	if err = r.RunWithContext(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Errorf("Server error: %v", err)
	}

	logger.Info("Server stopped gracefully")
}

func setupCommonMiddleware(r *graceful.Graceful, logger *zap.Logger) {
	r.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	r.Use(ginzap.RecoveryWithZap(logger, true))
	r.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Accept", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
}

func setupRoutes(r *graceful.Graceful, m *middleware.Middleware, authHandler handler.AuthHdlr, promptHandler handler.PromptHdlr, pushHandler handler.PushHdlr, photoHandler handler.PhotoHdlr, healthHandler *handler.HealthHandler) {
	r.GET("/health", healthHandler.Check)

	// Anonymous routes
	r.POST("/auth/register", middleware.ValidateStruct(newCredentialsRequest), authHandler.RegisterUser)
	r.POST("/auth/login", middleware.ValidateStruct(newCredentialsRequest), authHandler.LoginUser)
	r.POST("/auth/logout", authHandler.LogoutUser)

	// Session-bound routes
	authorized := r.Group("/")
	authorized.Use(m.RequireSession())
	authorized.GET("/me", authHandler.GetMe)
	authorized.GET("/prompt/status", promptHandler.GetStatus)
	authorized.GET("/push/vapid-public-key", pushHandler.GetPublicKey)
	authorized.POST("/push/subscribe", middleware.ValidateStruct(newPushSubscriptionRequest), pushHandler.CreatePushSubscription)
	authorized.POST("/photos/upload", photoHandler.UploadPhoto)
	authorized.GET("/photos", photoHandler.ListPhotos)

	// Admin routes
	admin := r.Group("/admin")
	admin.Use(m.RequireSession(), m.RequireAdmin())
	admin.POST("/prompt/now", promptHandler.TriggerPrompt)
}

func newCredentialsRequest() interface{} {
	return &schema.CredentialsRequest{}
}

func newPushSubscriptionRequest() interface{} {
	return &schema.CreatePushSubscriptionRequest{}
}

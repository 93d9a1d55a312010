package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-backend/cache"
	"storefront-backend/config"
	"storefront-backend/database"
	"storefront-backend/firebase"
	"storefront-backend/identity"
	"storefront-backend/logger"
	"storefront-backend/metrics"
	"storefront-backend/routes"
	"storefront-backend/store"
	"storefront-backend/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
)

func fatal(log *logger.Logger, msg string, err error) {
	log.Error(context.Background(), msg, err)
	os.Exit(1)
}

func main() {
	ctx := context.Background()

	// Load environment variables
	_ = config.LoadEnv()

	cfg, err := config.Load()
	if err != nil {
		fatal(logger.New(logger.Options{ServiceName: "storefront-backend"}), "Failed to load configuration", err)
	}

	log := logger.New(logger.Options{
		ServiceName: "storefront-backend",
		Level:       logger.ParseLevel(cfg.LogLevel),
		Format:      cfg.LogFormat,
	})

	// Validate critical environment variables
	if err := config.ValidateEnv(cfg, log); err != nil {
		fatal(log, "Environment validation failed", err)
	}

	// Initialize database
	db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		fatal(log, "Failed to connect to database", err)
	}

	// Run migrations
	if err := database.Migrate(db); err != nil {
		fatal(log, "Failed to run migrations", err)
	}

	// Create default admin user if not exists
	if err := database.CreateDefaultAdmin(ctx, db, cfg.AdminEmail, cfg.AdminPassword, log); err != nil {
		log.Warn(ctx, "Could not create default admin: "+err.Error())
	}

	// firebase init
	app, err := firebase.Init(ctx, firebase.Config{
		Credentials:   cfg.GoogleCredentials,
		ProjectID:     cfg.FirebaseProjectID,
		StorageBucket: cfg.FirebaseStorageBucket,
	}, log)
	if err != nil {
		fatal(log, "Failed to initialize Firebase", err)
	}
	accounts, err := app.Auth(ctx)
	if err != nil {
		fatal(log, "Failed to create Firebase Auth client", err)
	}
	blobs, err := app.Storage(ctx)
	if err != nil {
		fatal(log, "Failed to create Firebase Storage client", err)
	}

	var docs store.Store
	var closeDocs func() error
	switch cfg.DocumentStore {
	case "memory":
		log.Warn(ctx, "Using the in-memory document store; data is lost on restart")
		docs = store.NewMemoryStore()
	default:
		client, err := app.Firestore(ctx)
		if err != nil {
			fatal(log, "Failed to create Firestore client", err)
		}
		docs = store.NewFirestoreStore(client)
		closeDocs = client.Close
	}

	var deviceCache identity.Cache = &database.DeviceCache{DB: db}
	var redisCache *cache.RedisDeviceCache
	if cfg.IdentityCache == "redis" {
		redisCache, err = cache.NewRedisDeviceCache(ctx, cfg.RedisURL)
		if err != nil {
			fatal(log, "Failed to connect to Redis", err)
		}
		deviceCache = redisCache
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup Gin router
	r := gin.New()
	r.Use(gin.Recovery(), log.Middleware())

	// Limit multipart form memory to 10MB
	r.MaxMultipartMemory = 10 << 20

	origins := cfg.CORSOrigins()
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
		log.Warn(ctx, "No CORS origins configured, defaulting to http://localhost:3000")
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	// Setup routes
	stopRoutes := routes.SetupRoutes(r, routes.Dependencies{
		Store:    docs,
		DB:       db,
		Cache:    deviceCache,
		Accounts: accounts,
		Blobs:    blobs,
		Mailer: utils.NewMailer(cfg.EmailProvider, cfg.SendGridAPIKey, utils.EmailConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		}),
		ContactInbox:             cfg.ContactInbox,
		SessionRequestsPerMinute: cfg.SessionRequestsPerMinute,
		SecureCookies:            cfg.SecureCookies,
		Log:                      log,
		Metrics:                  metrics.New(registry),
		Gatherer:                 registry,
	})

	srv := routes.NewServer(":"+cfg.Port, r)

	// Run server in a goroutine
	go func() {
		log.Info(log.WithField(ctx, "port", cfg.Port), "Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal(log, "Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info(ctx, "Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "Server forced to shutdown", err)
	}
	stopRoutes()

	var closeErr error
	if closeDocs != nil {
		closeErr = multierr.Append(closeErr, closeDocs())
	}
	if redisCache != nil {
		closeErr = multierr.Append(closeErr, redisCache.Close())
	}
	closeErr = multierr.Append(closeErr, database.Close(db))
	if closeErr != nil {
		for _, err := range multierr.Errors(closeErr) {
			log.Error(ctx, "Error releasing connection", err)
		}
	} else {
		log.Info(ctx, "Connections closed")
	}

	log.Info(ctx, "Server exited gracefully")
}

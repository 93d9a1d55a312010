package routes

import (
	"net/http"
	"time"

	"storefront-backend/cart"
	"storefront-backend/catalog"
	"storefront-backend/database"
	"storefront-backend/handlers"
	"storefront-backend/identity"
	"storefront-backend/logger"
	"storefront-backend/metrics"
	"storefront-backend/middleware"
	"storefront-backend/store"
	"storefront-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// Dependencies are the backends the route table is wired against.
type Dependencies struct {
	Store    store.Store
	DB       *gorm.DB
	Cache    identity.Cache
	Accounts identity.Accounts
	Blobs    catalog.BlobStore
	Mailer   utils.Mailer

	ContactInbox string
	// SessionRequestsPerMinute limits session and contact requests per client IP.
	SessionRequestsPerMinute int
	SecureCookies            bool

	Log      *logger.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
}

// SetupRoutes registers every endpoint on r. The returned function releases
// background resources held by the routes.
func SetupRoutes(r *gin.Engine, deps Dependencies) func() {
	provisioner := &identity.Provisioner{
		Cache:    deps.Cache,
		Accounts: deps.Accounts,
		Store:    deps.Store,
		Log:      deps.Log,
		Metrics:  deps.Metrics,
	}
	reader := &catalog.Reader{Store: deps.Store, Log: deps.Log, Metrics: deps.Metrics}
	synchronizer := &cart.Synchronizer{Store: deps.Store, Log: deps.Log, Metrics: deps.Metrics}

	// Initialize handlers
	sessionHandler := &handlers.SessionHandler{Provisioner: provisioner, SecureCookies: deps.SecureCookies}
	catalogHandler := &handlers.CatalogHandler{Reader: reader}
	cartHandler := &handlers.CartHandler{Catalog: reader, Cart: synchronizer, Log: deps.Log}
	adminHandler := &handlers.AdminHandler{
		Accounts: &database.AdminAccounts{DB: deps.DB},
		Writer:   &catalog.Writer{Store: deps.Store, Blobs: deps.Blobs, Log: deps.Log},
		Log:      deps.Log,
	}
	contactHandler := &handlers.ContactHandler{Mailer: deps.Mailer, Inbox: deps.ContactInbox, Log: deps.Log}

	sessionLimiter := middleware.NewRateLimiter(deps.SessionRequestsPerMinute, time.Minute)
	contactLimiter := middleware.NewRateLimiter(deps.SessionRequestsPerMinute, time.Minute)
	loginLimiter := middleware.NewRateLimiter(deps.SessionRequestsPerMinute, time.Minute)

	// Public routes
	api := r.Group("/api")
	{
		api.POST("/session", sessionLimiter.Middleware(), sessionHandler.EnsureSession)

		api.GET("/categories", catalogHandler.GetCategories)
		api.GET("/products", catalogHandler.GetProducts)
		api.GET("/products/:category/:id", catalogHandler.GetProduct)

		api.POST("/contact", contactLimiter.Middleware(), contactHandler.Submit)
		api.POST("/admin/login", loginLimiter.Middleware(), adminHandler.Login)
	}

	// Any valid token
	session := api.Group("/session")
	session.Use(middleware.AuthMiddleware())
	{
		session.GET("/me", sessionHandler.Me)
	}

	// Customer routes (redirect to login without a session)
	shopper := api.Group("/cart")
	shopper.Use(middleware.RequireSignIn())
	{
		shopper.GET("", cartHandler.GetCart)
		shopper.POST("", cartHandler.AddToCart)
		shopper.GET("/stream", cartHandler.StreamCart)
	}

	// Admin routes (require admin role)
	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware())
	admin.Use(middleware.AdminMiddleware())
	{
		admin.POST("/products", adminHandler.UploadProducts)
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	return func() {
		sessionLimiter.Stop()
		contactLimiter.Stop()
		loginLimiter.Stop()
	}
}

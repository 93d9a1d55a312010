package handlers

import (
	"errors"
	"net/http"
	"time"

	"storefront-backend/cart"
	"storefront-backend/catalog"
	"storefront-backend/logger"
	"storefront-backend/middleware"
	"storefront-backend/utils"

	"github.com/gin-gonic/gin"
)

const defaultHeartbeat = 25 * time.Second

type CartHandler struct {
	Catalog *catalog.Reader
	Cart    *cart.Synchronizer
	Log     *logger.Logger

	// Heartbeat is the interval between keep-alive events on the cart stream.
	Heartbeat time.Duration
}

func (h *CartHandler) GetCart(c *gin.Context) {
	session := middleware.CurrentSession(c)

	current, err := h.Cart.Cart(c.Request.Context(), session.UID)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch cart"})
		return
	}
	c.JSON(http.StatusOK, current)
}

// AddToCart adds one unit of a catalog product. The price comes from the
// catalog, never from the request.
func (h *CartHandler) AddToCart(c *gin.Context) {
	session := middleware.CurrentSession(c)

	var req struct {
		Category  string `json:"category" binding:"required"`
		ProductID string `json:"product_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	ctx := c.Request.Context()
	product, err := h.Catalog.GetProduct(ctx, req.Category, req.ProductID)
	switch {
	case errors.Is(err, catalog.ErrUnknownCategory):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown category"})
		return
	case errors.Is(err, catalog.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{"error": catalog.UnavailableAlert})
		return
	}

	item, err := h.Cart.AddToCart(ctx, session, product)
	switch {
	case errors.Is(err, cart.ErrNotSignedIn):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Please sign in to add items to your cart", "redirect": middleware.LoginPath})
		return
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to add item to cart"})
		return
	}

	c.JSON(http.StatusOK, item)
}

// StreamCart pushes the cart as server-sent "cart" events until the client
// goes away.
func (h *CartHandler) StreamCart(c *gin.Context) {
	session := middleware.CurrentSession(c)
	ctx := h.Log.WithUserID(c.Request.Context(), session.UID)

	sub, err := h.Cart.Subscribe(ctx, session.UID)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to open cart stream"})
		return
	}
	defer sub.Cancel()

	heartbeat := h.Heartbeat
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.SSEvent("ping", time.Now().Unix())
		case current, ok := <-sub.Updates():
			if !ok {
				if err := sub.Err(); err != nil {
					h.Log.Error(ctx, "cart stream ended", err)
					c.SSEvent("error", gin.H{"error": "Cart stream interrupted"})
					c.Writer.Flush()
				}
				return
			}
			c.SSEvent("cart", current)
		}
		c.Writer.Flush()
	}
}

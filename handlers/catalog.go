package handlers

import (
	"errors"
	"net/http"

	"storefront-backend/catalog"

	"github.com/gin-gonic/gin"
)

type CatalogHandler struct {
	Reader *catalog.Reader
}

func (h *CatalogHandler) GetCategories(c *gin.Context) {
	c.JSON(http.StatusOK, catalog.Categories())
}

// GetProducts lists one category. A backend failure still answers with an
// empty product list and an alert for the shopper.
func (h *CatalogHandler) GetProducts(c *gin.Context) {
	category := c.Query("category")

	products, err := h.Reader.ListProducts(c.Request.Context(), category)
	switch {
	case errors.Is(err, catalog.ErrUnknownCategory):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown category"})
		return
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{"alert": catalog.UnavailableAlert, "products": products})
		return
	}

	resolved, _ := catalog.ResolveCategory(category)
	c.JSON(http.StatusOK, gin.H{"category": resolved, "products": products})
}

func (h *CatalogHandler) GetProduct(c *gin.Context) {
	product, err := h.Reader.GetProduct(c.Request.Context(), c.Param("category"), c.Param("id"))
	switch {
	case errors.Is(err, catalog.ErrUnknownCategory):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown category"})
	case errors.Is(err, catalog.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{"error": catalog.UnavailableAlert})
	default:
		c.JSON(http.StatusOK, product)
	}
}

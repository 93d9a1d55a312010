package handlers

import (
	"errors"
	"fmt"
	"math"
	"mime/multipart"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"storefront-backend/catalog"
	"storefront-backend/database"
	"storefront-backend/logger"
	"storefront-backend/models"
	"storefront-backend/utils"

	"github.com/gin-gonic/gin"
)

// MaxProductsPerUpload caps the number of entries in one admin upload form.
const MaxProductsPerUpload = 50

var (
	productFieldPattern = regexp.MustCompile(`^products\[(\d+)\]\.([a-z]+)$`)
	productTypePattern  = regexp.MustCompile(`^[A-Za-z0-9]+$`)
)

type AdminHandler struct {
	Accounts *database.AdminAccounts
	Writer   *catalog.Writer
	Log      *logger.Logger
}

func (h *AdminHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	admin, err := h.Accounts.Authenticate(c.Request.Context(), req.Email, req.Password)
	if errors.Is(err, database.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	if err != nil {
		h.Log.Error(c.Request.Context(), "admin login failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sign in"})
		return
	}

	token, err := utils.GenerateToken(admin.ID.String(), utils.RoleAdmin)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"admin": gin.H{
			"id":    admin.ID,
			"email": admin.Email,
			"name":  admin.Name,
		},
	})
}

// productEntry is one products[i] group of the upload form.
type productEntry struct {
	index       int
	title       string
	description string
	productType string
	price       string
	image       *multipart.FileHeader
}

type productUploadResult struct {
	Index   int             `json:"index"`
	Product *models.Product `json:"product,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func parseProductEntries(form *multipart.Form) []*productEntry {
	byIndex := make(map[int]*productEntry)
	entry := func(key string) (*productEntry, string) {
		m := productFieldPattern.FindStringSubmatch(key)
		if m == nil {
			return nil, ""
		}
		idx, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, ""
		}
		e, ok := byIndex[idx]
		if !ok {
			e = &productEntry{index: idx}
			byIndex[idx] = e
		}
		return e, m[2]
	}

	for key, values := range form.Value {
		e, field := entry(key)
		if e == nil || len(values) == 0 {
			continue
		}
		value := strings.TrimSpace(values[0])
		switch field {
		case "title":
			e.title = value
		case "description":
			e.description = value
		case "type":
			e.productType = value
		case "price":
			e.price = value
		}
	}
	for key, files := range form.File {
		e, field := entry(key)
		if e == nil || field != "image" || len(files) == 0 {
			continue
		}
		e.image = files[0]
	}

	entries := make([]*productEntry, 0, len(byIndex))
	for _, e := range byIndex {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].index < entries[j].index })
	return entries
}

// validate returns the shopper-facing problem with e, or "" when it can be uploaded.
func (e *productEntry) validate() (float64, string) {
	var problems []string
	if e.title == "" {
		problems = append(problems, "title is required")
	}
	if e.productType == "" {
		problems = append(problems, "type is required")
	} else if !productTypePattern.MatchString(e.productType) {
		problems = append(problems, "type may only contain letters and digits")
	}

	var price float64
	if e.price == "" {
		problems = append(problems, "price is required")
	} else {
		p, err := strconv.ParseFloat(e.price, 64)
		if err != nil || math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
			problems = append(problems, "price must be a positive number")
		}
		price = p
	}

	if e.image == nil {
		problems = append(problems, "image is required")
	} else if err := utils.ValidateFileUpload(e.image); errors.Is(err, utils.ErrImageTooLarge) {
		problems = append(problems, "image must be 5MB or smaller")
	} else if err != nil {
		problems = append(problems, "Please select a valid image file (jpg, jpeg, png, or webp)")
	}

	return price, strings.Join(problems, "; ")
}

// UploadProducts adds every valid products[i] entry of the form to the
// catalog. Invalid or failed entries are reported inline by index and do not
// stop the others.
func (h *AdminHandler) UploadProducts(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid multipart form"})
		return
	}

	entries := parseProductEntries(form)
	if len(entries) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "At least one product is required"})
		return
	}
	if len(entries) > MaxProductsPerUpload {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("At most %d products per upload", MaxProductsPerUpload)})
		return
	}

	results := make([]productUploadResult, len(entries))
	prices := make([]float64, len(entries))
	for i, e := range entries {
		results[i].Index = e.index
		prices[i], results[i].Error = e.validate()
	}

	ctx := c.Request.Context()
	created := 0
	for i, e := range entries {
		if results[i].Error != "" {
			continue
		}
		product, err := h.addProduct(c, e, prices[i])
		if err != nil {
			h.Log.Error(h.Log.WithField(ctx, "entry", e.index), "product upload failed", err)
			results[i].Error = "Upload failed, please try again"
			continue
		}
		results[i].Product = &product
		created++
	}

	status := http.StatusCreated
	if created != len(entries) {
		status = http.StatusMultiStatus
	}
	c.JSON(status, gin.H{"created": created, "results": results})
}

func (h *AdminHandler) addProduct(c *gin.Context, e *productEntry, price float64) (models.Product, error) {
	file, err := e.image.Open()
	if err != nil {
		return models.Product{}, err
	}
	defer file.Close()

	return h.Writer.AddProduct(c.Request.Context(), catalog.ProductUpload{
		Title:       e.title,
		Description: e.description,
		Type:        e.productType,
		Price:       price,
		Image:       file,
		ContentType: e.image.Header.Get("Content-Type"),
	})
}

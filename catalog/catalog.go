// Package catalog reads product listings per category and lets admins add
// products to them.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"storefront-backend/logger"
	"storefront-backend/metrics"
	"storefront-backend/models"
	"storefront-backend/store"
)

var (
	ErrCatalogUnavailable = errors.New("catalog: unavailable")
	ErrUnknownCategory    = errors.New("catalog: unknown category")
	ErrProductNotFound    = errors.New("catalog: product not found")
)

// UnavailableAlert is shown to shoppers when a listing cannot be fetched.
const UnavailableAlert = "Error fetching products, check your internet connection"

var categoryPattern = regexp.MustCompile(`^products-[A-Z0-9]+$`)

// ResolveCategory applies the default category and rejects names that are not
// product collections.
func ResolveCategory(category string) (string, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return models.DefaultCategory, nil
	}
	if !categoryPattern.MatchString(category) {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	return category, nil
}

// CategoryFor maps a product type ("laptopsnew") to its collection.
func CategoryFor(productType string) string {
	return models.CategoryPrefix + strings.ToUpper(strings.TrimSpace(productType))
}

func Categories() []models.Category {
	out := make([]models.Category, len(models.Categories))
	copy(out, models.Categories)
	return out
}

type Reader struct {
	Store   store.Store
	Log     *logger.Logger
	Metrics *metrics.Metrics
}

// ListProducts reads the whole category. On a backend failure it returns an
// empty list together with ErrCatalogUnavailable; it never retries.
func (r *Reader) ListProducts(ctx context.Context, category string) ([]models.Product, error) {
	category, err := ResolveCategory(category)
	if err != nil {
		return []models.Product{}, err
	}
	ctx = r.Log.WithField(ctx, "category", category)

	docs, err := r.Store.List(ctx, category)
	if err != nil {
		r.Metrics.ObserveCatalogRead(category, "error")
		r.Log.Error(ctx, "fetching products failed", err)
		return []models.Product{}, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}

	products := make([]models.Product, 0, len(docs))
	for _, doc := range docs {
		products = append(products, models.ProductFromDocument(doc.ID, doc.Data))
	}
	r.Metrics.ObserveCatalogRead(category, "ok")
	return products, nil
}

func (r *Reader) GetProduct(ctx context.Context, category, id string) (models.Product, error) {
	category, err := ResolveCategory(category)
	if err != nil {
		return models.Product{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return models.Product{}, ErrProductNotFound
	}

	doc, err := r.Store.Get(ctx, category, id)
	if errors.Is(err, store.ErrNotFound) {
		return models.Product{}, ErrProductNotFound
	}
	if err != nil {
		return models.Product{}, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	return models.ProductFromDocument(doc.ID, doc.Data), nil
}

// BlobStore stores uploaded files and hands back a durable public URL.
type BlobStore interface {
	Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error)
}

type ProductUpload struct {
	Title       string
	Description string
	Type        string
	Price       float64
	Image       io.Reader
	ContentType string
}

type Writer struct {
	Store store.Store
	Blobs BlobStore
	Log   *logger.Logger

	// Now stamps image paths. Defaults to time.Now.
	Now func() time.Time
}

// AddProduct uploads the image and then creates the product document in the
// collection for its type.
func (w *Writer) AddProduct(ctx context.Context, in ProductUpload) (models.Product, error) {
	now := w.Now
	if now == nil {
		now = time.Now
	}
	productType := strings.ToUpper(strings.TrimSpace(in.Type))
	collection := CategoryFor(productType)
	if _, err := ResolveCategory(collection); err != nil {
		return models.Product{}, err
	}

	objectPath := fmt.Sprintf("product-images/%s/%d", productType, now().UnixNano())
	url, err := w.Blobs.Upload(ctx, objectPath, in.ContentType, in.Image)
	if err != nil {
		return models.Product{}, fmt.Errorf("upload image: %w", err)
	}

	product := models.Product{
		Title:          strings.TrimSpace(in.Title),
		Description:    strings.TrimSpace(in.Description),
		Type:           productType,
		Price:          in.Price,
		URL:            url,
		CollectionName: collection,
	}
	id, err := w.Store.Add(ctx, collection, product.Fields())
	if err != nil {
		return models.Product{}, fmt.Errorf("save product: %w", err)
	}
	product.ID = id

	w.Log.Info(w.Log.WithField(ctx, "product_id", id), "product added")
	return product, nil
}

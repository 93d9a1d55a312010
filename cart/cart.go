// Package cart keeps each user's cart collection in the document store: one
// item per product, merged on repeated adds, observable as a live aggregate.
package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront-backend/identity"
	"storefront-backend/logger"
	"storefront-backend/metrics"
	"storefront-backend/models"
	"storefront-backend/store"

	"github.com/shopspring/decimal"
)

var (
	ErrNotSignedIn    = errors.New("cart: not signed in")
	ErrInvalidProduct = errors.New("cart: product has no id")
)

type Synchronizer struct {
	Store   store.Store
	Log     *logger.Logger
	Metrics *metrics.Metrics
}

// AddToCart adds one unit of product to the session's cart. The read and the
// write run in a single transaction keyed by (uid, product ID), so concurrent
// adds of the same product never lose an increment or create a duplicate.
func (s *Synchronizer) AddToCart(ctx context.Context, sess identity.Session, product models.Product) (models.CartItem, error) {
	if !sess.SignedIn() {
		return models.CartItem{}, ErrNotSignedIn
	}
	product.ID = strings.TrimSpace(product.ID)
	if product.ID == "" {
		return models.CartItem{}, ErrInvalidProduct
	}
	uid := sess.UID
	collection := models.CartCollection(uid)
	ctx = s.Log.WithField(s.Log.WithUserID(ctx, uid), "product_id", product.ID)

	var (
		item   models.CartItem
		result string
	)
	err := s.Store.RunTransaction(ctx, func(tx store.Tx) error {
		doc, err := tx.Get(collection, product.ID)
		if errors.Is(err, store.ErrNotFound) {
			item = models.CartItem{
				Product:           product,
				UID:               uid,
				Qty:               1,
				TotalProductPrice: LineTotal(1, product.Price),
			}
			result = "created"
			return tx.Create(collection, product.ID, item.Fields())
		}
		if err != nil {
			return err
		}

		item = models.CartItemFromDocument(doc.ID, doc.Data)
		if item.Qty < 0 {
			item.Qty = 0
		}
		item.Qty++
		item.TotalProductPrice = LineTotal(item.Qty, product.Price)
		result = "incremented"
		return tx.Update(collection, product.ID, map[string]any{
			models.FieldQty:               item.Qty,
			models.FieldTotalProductPrice: item.TotalProductPrice,
		})
	})
	if err != nil {
		s.Metrics.ObserveCartAdd("failed")
		s.Log.Error(ctx, "adding product to cart failed", err)
		return models.CartItem{}, fmt.Errorf("add to cart: %w", err)
	}

	s.Metrics.ObserveCartAdd(result)
	return item, nil
}

// Cart reads the user's cart once.
func (s *Synchronizer) Cart(ctx context.Context, uid string) (models.Cart, error) {
	if uid == "" {
		return models.Cart{}, ErrNotSignedIn
	}
	docs, err := s.Store.List(ctx, models.CartCollection(uid), store.Where(models.FieldUID, uid))
	if err != nil {
		return models.Cart{}, fmt.Errorf("fetch cart: %w", err)
	}
	return Aggregate(itemsFrom(docs)), nil
}

// LineTotal is qty * price without float drift.
func LineTotal(qty int, price float64) float64 {
	return decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(qty))).InexactFloat64()
}

// Aggregate derives the cart totals from its items.
func Aggregate(items []models.CartItem) models.Cart {
	if items == nil {
		items = []models.CartItem{}
	}
	qty := 0
	total := decimal.Zero
	for _, it := range items {
		qty += it.Qty
		total = total.Add(decimal.NewFromFloat(it.TotalProductPrice))
	}
	return models.Cart{Items: items, TotalQty: qty, TotalPrice: total.InexactFloat64()}
}

func itemsFrom(docs []store.Document) []models.CartItem {
	items := make([]models.CartItem, 0, len(docs))
	for _, doc := range docs {
		items = append(items, models.CartItemFromDocument(doc.ID, doc.Data))
	}
	return items
}

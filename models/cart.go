package models

// CartItem is one product in a user's cart. Its document key is the product ID,
// so a cart never holds two items for the same product.
type CartItem struct {
	Product
	UID               string  `json:"uid"`
	Qty               int     `json:"qty"`
	TotalProductPrice float64 `json:"TotalProductPrice"`
}

// Cart is the derived view over every item currently stored for a user.
type Cart struct {
	Items      []CartItem `json:"items"`
	TotalQty   int        `json:"totalQty"`
	TotalPrice float64    `json:"totalPrice"`
}

// CartCollection names the per-user cart collection ("Cart<uid>").
func CartCollection(uid string) string {
	return "Cart" + uid
}

func CartItemFromDocument(id string, data map[string]any) CartItem {
	item := CartItem{
		Product:           ProductFromDocument(id, data),
		UID:               asString(data[FieldUID]),
		Qty:               asInt(data[FieldQty]),
		TotalProductPrice: asFloat(data[FieldTotalProductPrice]),
	}
	// Cart documents carry the product ID as a field as well; the key wins.
	if item.ID == "" {
		item.ID = asString(data[FieldID])
	}
	return item
}

func (c CartItem) Fields() map[string]any {
	fields := c.Product.Fields()
	fields[FieldID] = c.ID
	fields[FieldUID] = c.UID
	fields[FieldQty] = c.Qty
	fields[FieldTotalProductPrice] = c.TotalProductPrice
	return fields
}

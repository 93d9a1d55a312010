package models

import "strings"

// CategoryPrefix starts every product collection name ("products-LAPTOPSNEW").
const CategoryPrefix = "products-"

type Product struct {
	ID             string  `json:"ID"`
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	Type           string  `json:"type"`
	Price          float64 `json:"price"`
	URL            string  `json:"url"`
	CollectionName string  `json:"collectionName,omitempty"`
}

// ProductFromDocument merges a stored product document with its document ID.
func ProductFromDocument(id string, data map[string]any) Product {
	p := Product{
		ID:             id,
		Title:          asString(data[FieldTitle]),
		Description:    asString(data[FieldDescription]),
		Type:           asString(data[FieldType]),
		Price:          asFloat(data[FieldPrice]),
		URL:            asString(data[FieldURL]),
		CollectionName: asString(data[FieldCollectionName]),
	}
	// Older uploads only carry the collection name.
	if p.Type == "" && strings.HasPrefix(p.CollectionName, CategoryPrefix) {
		p.Type = strings.TrimPrefix(p.CollectionName, CategoryPrefix)
	}
	return p
}

// Fields returns the stored representation. The ID is the document key and is
// not part of it.
func (p Product) Fields() map[string]any {
	return map[string]any{
		FieldTitle:          p.Title,
		FieldDescription:    p.Description,
		FieldType:           p.Type,
		FieldPrice:          p.Price,
		FieldURL:            p.URL,
		FieldCollectionName: p.CollectionName,
	}
}

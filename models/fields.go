package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Firestore field names. They match the documents the storefront web client
// already writes, so both can share one Firebase project.
const (
	FieldID                = "ID"
	FieldUID               = "uid"
	FieldQty               = "qty"
	FieldTotalProductPrice = "TotalProductPrice"
	FieldTitle             = "title"
	FieldDescription       = "description"
	FieldType              = "type"
	FieldPrice             = "price"
	FieldURL               = "url"
	FieldCollectionName    = "collectionName"
	FieldFullName          = "fullName"
	FieldEmail             = "email"
)

// Documents written by other clients are not always typed the same way
// (price as int64 or string, qty as float64), so the readers below are lenient.

func asString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func asFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func asInt(v any) int {
	switch x := v.(type) {
	case int:
		return x
	case int32:
		return int(x)
	case int64:
		return int(x)
	case float64:
		return int(x)
	case float32:
		return int(x)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

package models

type Category struct {
	Value string `json:"value"` // collection name
	Label string `json:"label"`
	Group string `json:"group"`
}

// DefaultCategory is listed when the caller does not pick one.
const DefaultCategory = "products-LAPTOPSNEW"

var Categories = []Category{
	{Value: "products-LAPTOPSFRN", Label: "Foreign Laptops", Group: "laptops"},
	{Value: "products-LAPTOPSNEW", Label: "New Laptops", Group: "laptops"},
	{Value: "products-ANDROIDNEW", Label: "New Android Phones", Group: "phones"},
	{Value: "products-ANDROIDFRN", Label: "Foreign Android Phones", Group: "phones"},
	{Value: "products-IPHONENEW", Label: "New iPhones", Group: "phones"},
	{Value: "products-IPHONENFRN", Label: "Foreign iPhones", Group: "phones"},
	{Value: "products-ACCESSORIES", Label: "Phone Accessories", Group: "accessories"},
}

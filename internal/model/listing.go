package model

import "time"

// SaleStatus is the sale state of a listing. The zero value means unset.
type SaleStatus string

const (
	SaleStatusUnset  SaleStatus = ""
	SaleStatusOnSale SaleStatus = "on_sale"
	SaleStatusSold   SaleStatus = "sold"
)

// Valid reports whether s is one of the selectable statuses.
func (s SaleStatus) Valid() bool {
	return s == SaleStatusOnSale || s == SaleStatusSold
}

// ListingImage is an image attached to a listing.
// URL is an object storage URL or an inline data URI.
type ListingImage struct {
	FileName string `json:"file_name" bson:"file_name"`
	FileSize string `json:"file_size" bson:"file_size"`
	URL      string `json:"url" bson:"url"`
}

// Listing represents a real-estate listing in the catalog.
type Listing struct {
	ID          string         `json:"id" bson:"_id"`
	Name        string         `json:"name" bson:"name"`
	Description string         `json:"desc" bson:"desc"`
	SalePrice   float64        `json:"sale_price" bson:"sale_price"`
	SaleStatus  SaleStatus     `json:"sale_status" bson:"sale_status"`
	Longitude   float64        `json:"longitude" bson:"longitude"`
	Latitude    float64        `json:"latitude" bson:"latitude"`
	Features    []string       `json:"features" bson:"features"`
	Images      []ListingImage `json:"images" bson:"images"`
	CreatedAt   time.Time      `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" bson:"updated_at"`
}

// ListingFilter selects a page of listings.
type ListingFilter struct {
	Status SaleStatus
	Query  string
	Page   int // 1-based
	Limit  int
}

// Offset returns the number of rows to skip for the filter's page.
func (f ListingFilter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CatalogItem describes a stamp issue. It is shared by all users; owned
// physical copies are InventoryItems.
type CatalogItem struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Year          int             `json:"year"`
	Country       string          `json:"country"`
	Value         decimal.Decimal `json:"value"`
	Width         *int            `json:"width,omitempty"`
	Height        *int            `json:"height,omitempty"`
	Topics        []string        `json:"topics"`
	CatalogNumber string          `json:"catalog_number,omitempty"`
	ImageMime     string          `json:"image_mime,omitempty"`
	Slug          string          `json:"slug"`
	SourceURL     string          `json:"source_url,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Page is one page of a paginated listing.
type Page[T any] struct {
	Items   []T `json:"items"`
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Total   int `json:"total"`
}

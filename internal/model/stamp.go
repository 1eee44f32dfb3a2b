package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// InventoryItem is one physical stamp a user owns. Quantity is modelled as
// several rows referencing the same catalog item.
type InventoryItem struct {
	ID          int64     `json:"id"`
	CatalogID   int64     `json:"catalog_id"`
	UserID      int64     `json:"user_id"`
	DeskID      int64     `json:"desk_id"`
	CustomName  string    `json:"custom_name,omitempty"`
	Comment     string    `json:"comment,omitempty"`
	AllowRepeat bool      `json:"allow_repeat"`
	CreatedAt   time.Time `json:"created_at"`

	// Joined fields (not always populated).
	DeskType     string          `json:"desk_type,omitempty"`
	CatalogName  string          `json:"catalog_name,omitempty"`
	CatalogSlug  string          `json:"catalog_slug,omitempty"`
	CatalogValue decimal.Decimal `json:"value"`
}

// Value returns the face value of the underlying catalog item.
func (s InventoryItem) Value() decimal.Decimal {
	return s.CatalogValue
}

// DisplayName returns the custom name if set, otherwise the catalog name.
func (s InventoryItem) DisplayName() string {
	if s.CustomName != "" {
		return s.CustomName
	}
	return s.CatalogName
}

// Move records an inventory item changing desks.
type Move struct {
	ID         int64     `json:"id"`
	StampID    int64     `json:"stamp_id"`
	FromDeskID int64     `json:"from_desk_id"`
	ToDeskID   int64     `json:"to_desk_id"`
	Notes      string    `json:"notes,omitempty"`
	MovedAt    time.Time `json:"moved_at"`
	MovedBy    *int64    `json:"moved_by,omitempty"`

	// Joined fields (not always populated).
	StampName    string `json:"stamp_name,omitempty"`
	FromDeskType string `json:"from_desk_type,omitempty"`
	ToDeskType   string `json:"to_desk_type,omitempty"`
}

// StampExport is the portable form of an inventory item, keyed by catalog
// slug and desk type so it can be loaded into another database.
type StampExport struct {
	Username    string `json:"username"`
	CatalogSlug string `json:"catalog_slug"`
	DeskType    string `json:"desk_type"`
	CustomName  string `json:"custom_name,omitempty"`
	Comment     string `json:"comment,omitempty"`
	AllowRepeat bool   `json:"allow_repeat"`
}

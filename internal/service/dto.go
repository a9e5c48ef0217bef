package service

import (
	"github.com/shopspring/decimal"
)

// EnsureItemDTO - get-or-create a catalog item by name
type EnsureItemDTO struct {
	Name          string  `json:"name"`
	Brand         string  `json:"brand"`
	Category      *string `json:"category"`
	ShelfLifeDays *int    `json:"shelf_life_days"`
	PhotoPath     *string `json:"photo_path"`
}

// CreateInventoryDTO - add a batch to the pantry. Exactly one of ItemID
// or Name identifies the item; an unknown name is added to the catalog.
type CreateInventoryDTO struct {
	ItemID        *uint            `json:"item_id"`
	Name          string           `json:"name"`
	Category      *string          `json:"category"`
	ShelfLifeDays *int             `json:"shelf_life_days"`
	ExpiryDate    *string          `json:"expiry_date"` // YYYY-MM-DD
	Quantity      *int             `json:"quantity"`
	Cost          *decimal.Decimal `json:"cost"`
	Unit          string           `json:"unit"`
	BinName       string           `json:"bin_name"`
	Notes         string           `json:"notes"`
}

// UpdateInventoryDTO - nil fields stay untouched
type UpdateInventoryDTO struct {
	ExpiryDate  *string          `json:"expiry_date"`
	ClearExpiry bool             `json:"clear_expiry"`
	Quantity    *int             `json:"quantity"`
	Cost        *decimal.Decimal `json:"cost"`
	Unit        *string          `json:"unit"`
	BinName     *string          `json:"bin_name"`
	Notes       *string          `json:"notes"`
}

// BasketLine - one purchased item at checkout
type BasketLine struct {
	ItemID     *uint   `json:"item_id"`
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	ExpiryDate *string `json:"expiry_date"`
}

type CheckoutDTO struct {
	Items []BasketLine `json:"items"`
}

// Selection - what the user currently has in hand: picked pantry rows
// plus a shopping basket of item id -> quantity.
type Selection struct {
	PantryRowIDs []uint       `json:"pantry_row_ids"`
	Basket       map[uint]int `json:"basket"`
}

// MealQuery - GET /meals parameters. ItemIDs is nil when the parameter
// was not sent at all.
type MealQuery struct {
	ItemIDs *string
	Limit   int
}

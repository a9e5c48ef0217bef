package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// InventoryRow is one owned batch of a catalog item.
type InventoryRow struct {
	ID         uint                `gorm:"primaryKey" json:"id"`
	ItemID     uint                `gorm:"not null;index" json:"item_id"`
	Item       Item                `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE" json:"item"`
	ExpiryDate *datatypes.Date     `gorm:"index" json:"expiry_date"`
	Quantity   int                 `gorm:"not null;check:quantity >= 0" json:"quantity"`
	Cost       decimal.NullDecimal `gorm:"type:numeric(10,2)" json:"cost"`
	Unit       string              `gorm:"size:50" json:"unit"`
	BinName    string              `gorm:"size:100" json:"bin_name"`
	Notes      string              `gorm:"type:text" json:"notes"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

func (InventoryRow) TableName() string {
	return "inventory"
}

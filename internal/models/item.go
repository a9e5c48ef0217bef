package models

import "time"

// Item is a catalog entry: a canonical named grocery item.
type Item struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Name          string    `gorm:"size:255;uniqueIndex;not null" json:"name"`
	Brand         string    `gorm:"size:255" json:"brand,omitempty"`
	Category      *string   `gorm:"size:100" json:"category"`
	ShelfLifeDays *int      `json:"shelf_life_days"`
	PhotoPath     *string   `gorm:"size:255" json:"photo_path"`
	CreatedAt     time.Time `json:"created_at"`
}

package models

import (
	"time"

	"gorm.io/datatypes"
)

// Meal is a recipe defined by an unordered set of required items.
type Meal struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Name        string     `gorm:"size:255;uniqueIndex;not null" json:"name"`
	Description *string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time  `json:"created_at"`
	Ingredients []MealItem `gorm:"foreignKey:MealID;constraint:OnDelete:CASCADE" json:"ingredients,omitempty"`
}

// MealItem links a meal to one required item. Position keeps insertion order.
type MealItem struct {
	MealID   uint `gorm:"primaryKey" json:"meal_id"`
	ItemID   uint `gorm:"primaryKey;index" json:"item_id"`
	Position int  `gorm:"not null;default:0" json:"position"`
	Item     Item `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE" json:"item"`
}

// Recommendation is a persisted snapshot of one ranked suggestion.
type Recommendation struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	MealID       uint           `gorm:"index" json:"meal_id"`
	Meal         Meal           `gorm:"foreignKey:MealID;constraint:OnDelete:CASCADE" json:"-"`
	MealName     string         `gorm:"size:255" json:"meal_name"`
	MissingItems datatypes.JSON `json:"missing_items"` // JSON array of item names
	Score        float64        `json:"score"`
	Notes        string         `gorm:"type:text" json:"notes"`
}

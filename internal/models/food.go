package models

import "time"

// FoodProduct is a nutrition database entry, global (UserID nil) or private
// to the user who created it. Macros are per 100 grams.
type FoodProduct struct {
	BaseModel
	Name     string  `gorm:"not null"`
	Barcode  *string `gorm:"index"`
	Source   string  `gorm:"default:'local'"` // local | openfoodfacts | user
	Brand    string
	ImageURL string
	UserID   *string `gorm:"type:uuid;index"`

	KcalPer100    float64 `gorm:"not null"`
	ProteinPer100 float64 `gorm:"not null"`
	CarbsPer100   float64 `gorm:"not null"`
	FatPer100     float64 `gorm:"not null"`
}

// FoodLogEntry is one logged portion in a user's daily nutrition log.
type FoodLogEntry struct {
	BaseModel
	UserID    string    `gorm:"type:uuid;not null;index:idx_food_log_user_day"`
	ProductID string    `gorm:"type:uuid;not null"`
	LogDate   time.Time `gorm:"type:date;not null;index:idx_food_log_user_day"`
	Meal      string    // breakfast | lunch | dinner | snack
	Grams     float64   `gorm:"not null"`

	// Denormalized macros for the portion, computed at log time.
	Kcal    float64
	Protein float64
	Carbs   float64
	Fat     float64

	Product FoodProduct `gorm:"foreignKey:ProductID"`
}

// WeightEntry is one weight measurement, at most one per user per day.
type WeightEntry struct {
	BaseModel
	UserID   string    `gorm:"type:uuid;not null;uniqueIndex:idx_weight_user_day"`
	Date     time.Time `gorm:"type:date;not null;uniqueIndex:idx_weight_user_day"`
	WeightKg float64   `gorm:"not null"`
}

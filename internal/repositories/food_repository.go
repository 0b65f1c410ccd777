package repositories

import (
	"errors"
	"time"

	"hercules_backend/internal/models"
	"hercules_backend/pkg/apperrors"

	"gorm.io/gorm"
)

type FoodRepository struct{}

func NewFoodRepository() *FoodRepository {
	return &FoodRepository{}
}

// GetProductByBarcode looks up the local food database. Global products
// shadow nothing; user-private products are only visible to their owner.
func (r *FoodRepository) GetProductByBarcode(db *gorm.DB, barcode, userID string) (*models.FoodProduct, error) {
	var product models.FoodProduct
	err := db.Where("barcode = ? AND (user_id IS NULL OR user_id = ?)", barcode, userID).
		Order("user_id DESC NULLS LAST").
		First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound(err)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *FoodRepository) SearchProducts(db *gorm.DB, query, userID string, limit int) ([]models.FoodProduct, error) {
	var products []models.FoodProduct
	err := db.Where("(user_id IS NULL OR user_id = ?) AND name ILIKE ?", userID, "%"+query+"%").
		Order("name ASC").
		Limit(limit).
		Find(&products).Error
	return products, err
}

func (r *FoodRepository) CreateProduct(db *gorm.DB, product *models.FoodProduct) error {
	return db.Create(product).Error
}

func (r *FoodRepository) GetProductByID(db *gorm.DB, id string) (*models.FoodProduct, error) {
	var product models.FoodProduct
	err := db.First(&product, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound(err)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *FoodRepository) CreateLogEntry(db *gorm.DB, entry *models.FoodLogEntry) error {
	return db.Create(entry).Error
}

func (r *FoodRepository) DeleteLogEntry(db *gorm.DB, id, userID string) error {
	res := db.Where("id = ? AND user_id = ?", id, userID).Delete(&models.FoodLogEntry{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound(gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *FoodRepository) ListLogForDay(db *gorm.DB, userID string, day time.Time) ([]models.FoodLogEntry, error) {
	var entries []models.FoodLogEntry
	err := db.Preload("Product").
		Where("user_id = ? AND log_date = ?", userID, day.Format("2006-01-02")).
		Order("created_at ASC").
		Find(&entries).Error
	return entries, err
}

// UpsertWeight records a weight measurement, replacing the same-day value.
func (r *FoodRepository) UpsertWeight(db *gorm.DB, entry *models.WeightEntry) error {
	if err := db.Create(entry).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return db.Model(&models.WeightEntry{}).
				Where("user_id = ? AND date = ?", entry.UserID, entry.Date.Format("2006-01-02")).
				Update("weight_kg", entry.WeightKg).Error
		}
		return err
	}
	return nil
}

func (r *FoodRepository) ListWeights(db *gorm.DB, userID string, from, to time.Time) ([]models.WeightEntry, error) {
	var entries []models.WeightEntry
	err := db.Where("user_id = ? AND date BETWEEN ? AND ?", userID, from.Format("2006-01-02"), to.Format("2006-01-02")).
		Order("date ASC").
		Find(&entries).Error
	return entries, err
}

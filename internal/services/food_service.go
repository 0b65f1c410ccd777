package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"hercules_backend/internal/logger"
	"hercules_backend/internal/models"
	"hercules_backend/internal/repositories"
	"hercules_backend/pkg/apperrors"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

// FoodService runs the nutrition log: product lookup with an external
// fallback, daily logging, and weight tracking.
type FoodService struct {
	foods    *repositories.FoodRepository
	provider ProductProvider
}

func NewFoodService(foods *repositories.FoodRepository, provider ProductProvider) *FoodService {
	return &FoodService{foods: foods, provider: provider}
}

// NormalizeBarcode strips the whitespace scanners tend to inject.
func NormalizeBarcode(barcode string) string {
	return strings.Join(strings.Fields(barcode), "")
}

// LookupBarcode checks the local database first and falls back to the
// external provider, caching its answer as a global product.
func (s *FoodService) LookupBarcode(ctx context.Context, db *gorm.DB, barcode, userID string) (*models.FoodProduct, error) {
	barcode = NormalizeBarcode(barcode)

	product, err := s.foods.GetProductByBarcode(db, barcode, userID)
	if err == nil {
		return product, nil
	}
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Code != apperrors.CodeNotFound {
		return nil, err
	}

	if s.provider == nil {
		return nil, err
	}
	external, provErr := s.provider.LookupBarcode(ctx, barcode)
	if provErr != nil {
		logger.CtxWithError(ctx, "external food lookup failed", provErr, "barcode", barcode)
		return nil, err
	}
	if external == nil {
		return nil, err
	}

	if createErr := s.foods.CreateProduct(db, external); createErr != nil {
		// Lost a race against a concurrent lookup; serve the fetched copy.
		logger.CtxWithError(ctx, "caching external product failed", createErr, "barcode", barcode)
	}
	return external, nil
}

func (s *FoodService) SearchProducts(db *gorm.DB, query, userID string) ([]models.FoodProduct, error) {
	return s.foods.SearchProducts(db, query, userID, 25)
}

// CreateProduct stores a user-defined product, private to its creator.
func (s *FoodService) CreateProduct(db *gorm.DB, userID string, product *models.FoodProduct) (*models.FoodProduct, error) {
	product.UserID = &userID
	product.Source = "user"
	if product.Barcode != nil {
		product.Barcode = lo.ToPtr(NormalizeBarcode(*product.Barcode))
	}
	if err := s.foods.CreateProduct(db, product); err != nil {
		return nil, err
	}
	return product, nil
}

// LogPortion records a portion, denormalizing the macros at log time so the
// log stays stable if the product is edited later.
func (s *FoodService) LogPortion(db *gorm.DB, userID, productID string, day time.Time, meal string, grams float64) (*models.FoodLogEntry, error) {
	if grams <= 0 {
		return nil, apperrors.NewBadRequestError("Portion size must be positive")
	}

	product, err := s.foods.GetProductByID(db, productID)
	if err != nil {
		return nil, err
	}
	if product.UserID != nil && *product.UserID != userID {
		return nil, apperrors.ErrNotFound(gorm.ErrRecordNotFound)
	}

	factor := grams / 100
	entry := &models.FoodLogEntry{
		UserID:    userID,
		ProductID: product.ID,
		LogDate:   day,
		Meal:      meal,
		Grams:     grams,
		Kcal:      product.KcalPer100 * factor,
		Protein:   product.ProteinPer100 * factor,
		Carbs:     product.CarbsPer100 * factor,
		Fat:       product.FatPer100 * factor,
	}
	if err := s.foods.CreateLogEntry(db, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *FoodService) DeleteLogEntry(db *gorm.DB, userID, entryID string) error {
	return s.foods.DeleteLogEntry(db, entryID, userID)
}

// DayLog is one day of the nutrition log with summed macros.
type DayLog struct {
	Date    time.Time             `json:"date"`
	Entries []models.FoodLogEntry `json:"entries"`
	Kcal    float64               `json:"kcal"`
	Protein float64               `json:"protein"`
	Carbs   float64               `json:"carbs"`
	Fat     float64               `json:"fat"`
}

func (s *FoodService) GetDayLog(db *gorm.DB, userID string, day time.Time) (*DayLog, error) {
	entries, err := s.foods.ListLogForDay(db, userID, day)
	if err != nil {
		return nil, err
	}
	log := &DayLog{Date: day, Entries: entries}
	for _, e := range entries {
		log.Kcal += e.Kcal
		log.Protein += e.Protein
		log.Carbs += e.Carbs
		log.Fat += e.Fat
	}
	return log, nil
}

func (s *FoodService) RecordWeight(db *gorm.DB, userID string, day time.Time, weightKg float64) (*models.WeightEntry, error) {
	if weightKg <= 0 {
		return nil, apperrors.NewBadRequestError("Weight must be positive")
	}
	entry := &models.WeightEntry{UserID: userID, Date: day, WeightKg: weightKg}
	if err := s.foods.UpsertWeight(db, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *FoodService) WeightHistory(db *gorm.DB, userID string, from, to time.Time) ([]models.WeightEntry, error) {
	return s.foods.ListWeights(db, userID, from, to)
}

package repositories

import (
	"errors"

	"hercules_backend/internal/models"
	"hercules_backend/pkg/apperrors"

	"gorm.io/gorm"
)

type UserRepository struct{}

func NewUserRepository() *UserRepository {
	return &UserRepository{}
}

func (r *UserRepository) Create(db *gorm.DB, user *models.User) error {
	if err := db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.ErrAlreadyExists(err)
		}
		return err
	}
	return nil
}

func (r *UserRepository) GetByID(db *gorm.DB, id string) (*models.User, error) {
	var user models.User
	err := db.First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound(err)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByEmail(db *gorm.DB, email string) (*models.User, error) {
	var user models.User
	err := db.First(&user, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound(err)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) Update(db *gorm.DB, user *models.User) error {
	return db.Save(user).Error
}

func (r *UserRepository) List(db *gorm.DB) ([]models.User, error) {
	var users []models.User
	err := db.Order("created_at DESC").Find(&users).Error
	return users, err
}

func (r *UserRepository) ListCoachRequests(db *gorm.DB) ([]models.User, error) {
	var users []models.User
	err := db.Where("coach_requested = true AND coach_approved = false").
		Order("created_at ASC").
		Find(&users).Error
	return users, err
}

func (r *UserRepository) ListApprovedCoaches(db *gorm.DB) ([]models.User, error) {
	var users []models.User
	err := db.Where("coach_approved = true").
		Order("name ASC").
		Find(&users).Error
	return users, err
}

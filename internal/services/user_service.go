package services

import (
	"context"

	"hercules_backend/internal/logger"
	"hercules_backend/internal/models"
	"hercules_backend/internal/repositories"
	"hercules_backend/pkg/apperrors"

	"gorm.io/gorm"
)

type UserService struct {
	users *repositories.UserRepository
}

func NewUserService(users *repositories.UserRepository) *UserService {
	return &UserService{users: users}
}

func (s *UserService) GetProfile(db *gorm.DB, userID string) (*models.User, error) {
	return s.users.GetByID(db, userID)
}

func (s *UserService) UpdateProfile(db *gorm.DB, userID, name string) (*models.User, error) {
	user, err := s.users.GetByID(db, userID)
	if err != nil {
		return nil, err
	}
	user.Name = name
	if err := s.users.Update(db, user); err != nil {
		return nil, err
	}
	return user, nil
}

// RequestCoachRole flags the user for admin review. Idempotent.
func (s *UserService) RequestCoachRole(ctx context.Context, db *gorm.DB, userID string) (*models.User, error) {
	user, err := s.users.GetByID(db, userID)
	if err != nil {
		return nil, err
	}
	if user.CoachApproved {
		return nil, apperrors.ErrInvalidOperation("user", "Coach role already granted")
	}
	if !user.CoachRequested {
		user.CoachRequested = true
		if err := s.users.Update(db, user); err != nil {
			return nil, err
		}
		logger.CtxInfo(ctx, "coach role requested", "user_id", user.ID)
	}
	return user, nil
}

// ApproveCoach grants the coach role to a user who applied for it.
func (s *UserService) ApproveCoach(ctx context.Context, db *gorm.DB, userID string) (*models.User, error) {
	user, err := s.users.GetByID(db, userID)
	if err != nil {
		return nil, err
	}
	if !user.CoachRequested {
		return nil, apperrors.ErrInvalidOperation("user", "User has not requested the coach role")
	}
	user.CoachApproved = true
	if user.Role == models.UserRoleCustomer {
		user.Role = models.UserRoleCustomerCoach
	}
	if err := s.users.Update(db, user); err != nil {
		return nil, err
	}
	logger.CtxInfo(ctx, "coach role approved", "user_id", user.ID)
	return user, nil
}

// SetRole changes a user's role directly. Admin-only surface; the coach
// approval flag follows the role so profile checks stay consistent.
func (s *UserService) SetRole(ctx context.Context, db *gorm.DB, userID string, role models.UserRole) (*models.User, error) {
	switch role {
	case models.UserRoleCustomer, models.UserRoleCustomerCoach, models.UserRoleAdmin:
	default:
		return nil, apperrors.ErrInvalidOperation("user", "Unknown role")
	}
	user, err := s.users.GetByID(db, userID)
	if err != nil {
		return nil, err
	}
	user.Role = role
	if role == models.UserRoleCustomerCoach {
		user.CoachApproved = true
	}
	if err := s.users.Update(db, user); err != nil {
		return nil, err
	}
	logger.CtxInfo(ctx, "user role changed", "user_id", user.ID, "role", role)
	return user, nil
}

func (s *UserService) ListUsers(db *gorm.DB) ([]models.User, error) {
	return s.users.List(db)
}

func (s *UserService) ListCoachRequests(db *gorm.DB) ([]models.User, error) {
	return s.users.ListCoachRequests(db)
}

func (s *UserService) ListCoaches(db *gorm.DB) ([]models.User, error) {
	return s.users.ListApprovedCoaches(db)
}

package services

import (
	"context"
	"time"

	"hercules_backend/internal/auth"
	"hercules_backend/internal/logger"
	"hercules_backend/internal/models"
	"hercules_backend/internal/repositories"
	billingsvc "hercules_backend/internal/services/billing"
	"hercules_backend/pkg/apperrors"

	"gorm.io/gorm"
)

// AuthService handles registration and login. Login doubles as a billing
// trigger: every successful authentication reconciles the account's
// subscription state before the token is handed out.
type AuthService struct {
	users   *repositories.UserRepository
	billing *billingsvc.LifecycleService
}

func NewAuthService(users *repositories.UserRepository, billing *billingsvc.LifecycleService) *AuthService {
	return &AuthService{users: users, billing: billing}
}

type AuthResult struct {
	User    *models.User
	Token   string
	Billing *billingsvc.EvalResult
}

func (s *AuthService) Register(ctx context.Context, db *gorm.DB, email, password, name string) (*AuthResult, error) {
	if err := auth.ValidatePassword(password); err != nil {
		return nil, apperrors.ValidationError(map[string]string{"password": err.Error()})
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Role:         models.UserRoleCustomer,
	}
	if err := s.users.Create(db, user); err != nil {
		return nil, err
	}

	rec, err := s.billing.StartTrial(db, user.ID)
	if err != nil {
		return nil, err
	}
	logger.CtxInfo(ctx, "user registered",
		"user_id", user.ID, "trial_ends_at", rec.TrialEndsAt)

	token, err := auth.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		User:    user,
		Token:   token,
		Billing: &billingsvc.EvalResult{State: billingsvc.StateTrialActive, TrialEndsAt: rec.TrialEndsAt},
	}, nil
}

func (s *AuthService) Login(ctx context.Context, db *gorm.DB, email, password string) (*AuthResult, error) {
	user, err := s.users.GetByEmail(db, email)
	if err != nil {
		// Same error for unknown email and wrong password.
		return nil, apperrors.ErrInvalidCredentials
	}
	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, apperrors.ErrInvalidCredentials
	}

	billingState, err := s.billing.Evaluate(ctx, db, user.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user.LastLoginAt = &now
	if err := s.users.Update(db, user); err != nil {
		logger.CtxWithError(ctx, "recording login time failed", err, "user_id", user.ID)
	}

	token, err := auth.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token, Billing: billingState}, nil
}

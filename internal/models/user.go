package models

import "time"

type User struct {
	BaseModel
	Email        string   `gorm:"not null;uniqueIndex"`
	PasswordHash string   `gorm:"not null" json:"-"`
	Name         string
	Role         UserRole `gorm:"default:'customer'"`

	// Coach application flow: the user applies, an admin approves.
	CoachRequested bool `gorm:"default:false"`
	CoachApproved  bool `gorm:"default:false"`

	LastLoginAt *time.Time
}

// CanSwitchView reports whether the dashboard may offer the coach view.
func (u *User) CanSwitchView() bool {
	return u.Role == UserRoleAdmin || (u.Role == UserRoleCustomerCoach && u.CoachApproved)
}

package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleFarmer     = "farmer"
)

var roleRank = map[string]int{
	RoleFarmer:     1,
	RoleAdmin:      2,
	RoleSuperAdmin: 3,
}

// Profile is the account record for a dashboard user.
type Profile struct {
	Base
	Email              string     `json:"email" gorm:"uniqueIndex;not null"`
	FullName           string     `json:"full_name"`
	PasswordHash       string     `json:"-"`
	Role               string     `json:"role" gorm:"default:farmer;index"`
	AvatarURL          string     `json:"avatar_url"`
	Phone              string     `json:"phone"`
	Company            string     `json:"company"`
	StripeCustomerID   string     `json:"-" gorm:"index"`
	SubscriptionTier   string     `json:"subscription_tier" gorm:"default:free"`
	SubscriptionStatus string     `json:"subscription_status" gorm:"default:inactive"`
	SubscriptionEnd    *time.Time `json:"subscription_end"`
}

// IsValidRole reports whether r is one of the known roles.
func IsValidRole(r string) bool {
	_, ok := roleRank[r]
	return ok
}

// HasRole reports whether the profile's role is at least required.
func (p *Profile) HasRole(required string) bool {
	return roleRank[p.Role] >= roleRank[required] && roleRank[required] > 0
}

// IsAdmin is true for admin and super_admin.
func (p *Profile) IsAdmin() bool {
	return p.HasRole(RoleAdmin)
}

type SignupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type ProfileSummary struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	FullName string    `json:"full_name"`
	Role     string    `json:"role"`
	Tier     string    `json:"subscription_tier"`
}

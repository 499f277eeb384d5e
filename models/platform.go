package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ConfigMaintenanceMode = "maintenance_mode"
	ConfigSignupEnabled   = "signup_enabled"
	ConfigSupportEmail    = "support_email"
	ConfigAppName         = "app_name"
)

// PublicConfigKeys may be read without authentication.
var PublicConfigKeys = []string{ConfigMaintenanceMode, ConfigSignupEnabled, ConfigSupportEmail, ConfigAppName}

// PlatformConfig stores one JSON-encoded setting per key.
type PlatformConfig struct {
	Key         string     `json:"key" gorm:"primaryKey;size:100"`
	Value       string     `json:"-" gorm:"type:text"`
	Description string     `json:"description"`
	UpdatedBy   *uuid.UUID `json:"updated_by" gorm:"type:uuid"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

const (
	ContactNew      = "new"
	ContactRead     = "read"
	ContactReplied  = "replied"
	ContactArchived = "archived"
)

func IsValidContactStatus(s string) bool {
	switch s {
	case ContactNew, ContactRead, ContactReplied, ContactArchived:
		return true
	}
	return false
}

type ContactSubmission struct {
	Base
	Name    string `json:"name" gorm:"not null"`
	Email   string `json:"email" gorm:"not null;index"`
	Company string `json:"company"`
	Phone   string `json:"phone"`
	Subject string `json:"subject"`
	Message string `json:"message" gorm:"type:text;not null"`
	Status  string `json:"status" gorm:"default:new;index"`
}

type ContactRequest struct {
	Name    string `json:"name" binding:"required,max=200"`
	Email   string `json:"email" binding:"required,email"`
	Company string `json:"company" binding:"max=200"`
	Phone   string `json:"phone" binding:"max=50"`
	Subject string `json:"subject" binding:"max=200"`
	Message string `json:"message" binding:"required,max=5000"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"

	AlertActive       = "active"
	AlertAcknowledged = "acknowledged"
	AlertResolved     = "resolved"
)

func IsValidSeverity(s string) bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

type Alert struct {
	Base
	UserID         uuid.UUID  `json:"user_id" gorm:"type:uuid;index;not null"`
	DeviceID       *uuid.UUID `json:"device_id" gorm:"type:uuid;index"`
	ZoneID         *uuid.UUID `json:"zone_id" gorm:"type:uuid;index"`
	Type           string     `json:"type" gorm:"index"`
	Severity       string     `json:"severity" gorm:"default:medium;index"`
	Title          string     `json:"title"`
	Message        string     `json:"message" gorm:"type:text"`
	Status         string     `json:"status" gorm:"default:active;index"`
	AcknowledgedAt *time.Time `json:"acknowledged_at"`
	ResolvedAt     *time.Time `json:"resolved_at"`
}

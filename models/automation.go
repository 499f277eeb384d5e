package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ActionStartIrrigation = "start_irrigation"
	ActionStopIrrigation  = "stop_irrigation"
	ActionNotify          = "notify"
	ActionAlert           = "alert"
)

// DefaultCooldownMinutes applies when a new rule does not set cooldown_minutes.
const DefaultCooldownMinutes = 30

type AutomationRule struct {
	Base
	UserID          uuid.UUID      `json:"user_id" gorm:"type:uuid;index;not null"`
	ZoneID          *uuid.UUID     `json:"zone_id" gorm:"type:uuid;index"`
	DeviceID        *uuid.UUID     `json:"device_id" gorm:"type:uuid;index"`
	Name            string         `json:"name" gorm:"not null"`
	Description     string         `json:"description"`
	Condition       datatypes.JSON `json:"condition" gorm:"type:jsonb"`
	Action          datatypes.JSON `json:"action" gorm:"type:jsonb"`
	IsActive        bool           `json:"is_active" gorm:"index"`
	CooldownMinutes int            `json:"cooldown_minutes"`
	LastTriggeredAt *time.Time     `json:"last_triggered_at"`
}

// RuleCondition compares one reading metric against a threshold.
type RuleCondition struct {
	Metric   string  `json:"metric"`
	Operator string  `json:"operator"`
	Value    float64 `json:"value"`
}

type RuleAction struct {
	Type            string     `json:"type"`
	DeviceID        *uuid.UUID `json:"device_id,omitempty"`
	DurationMinutes int        `json:"duration_minutes,omitempty"`
	Message         string     `json:"message,omitempty"`
	Severity        string     `json:"severity,omitempty"`
}

type AutomationRuleInput struct {
	ZoneID          *uuid.UUID     `json:"zone_id"`
	DeviceID        *uuid.UUID     `json:"device_id"`
	Name            *string        `json:"name"`
	Description     *string        `json:"description"`
	Condition       *RuleCondition `json:"condition"`
	Action          *RuleAction    `json:"action"`
	IsActive        *bool          `json:"is_active"`
	CooldownMinutes *int           `json:"cooldown_minutes"`
}

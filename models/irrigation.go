package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type IrrigationSchedule struct {
	Base
	UserID          uuid.UUID      `json:"user_id" gorm:"type:uuid;index;not null"`
	ZoneID          uuid.UUID      `json:"zone_id" gorm:"type:uuid;index;not null"`
	DeviceID        *uuid.UUID     `json:"device_id" gorm:"type:uuid"`
	Name            string         `json:"name" gorm:"not null"`
	StartTime       string         `json:"start_time" gorm:"size:5;not null"` // HH:MM
	DurationMinutes int            `json:"duration_minutes"`
	DaysOfWeek      datatypes.JSON `json:"days_of_week" gorm:"type:jsonb"` // 0=Sunday
	SkipIfRain      bool           `json:"skip_if_rain"`
	IsActive        bool           `json:"is_active" gorm:"index"`
	LastRunAt       *time.Time     `json:"last_run_at"`

	Zone *Zone `json:"zone,omitempty" gorm:"foreignKey:ZoneID"`
}

// Days decodes DaysOfWeek; an empty or invalid value means no day.
func (s *IrrigationSchedule) Days() []int {
	var days []int
	if len(s.DaysOfWeek) == 0 {
		return nil
	}
	if err := json.Unmarshal(s.DaysOfWeek, &days); err != nil {
		return nil
	}
	return days
}

type IrrigationScheduleInput struct {
	ZoneID          *uuid.UUID `json:"zone_id"`
	DeviceID        *uuid.UUID `json:"device_id"`
	Name            *string    `json:"name"`
	StartTime       *string    `json:"start_time"`
	DurationMinutes *int       `json:"duration_minutes"`
	DaysOfWeek      []int      `json:"days_of_week"`
	SkipIfRain      *bool      `json:"skip_if_rain"`
	IsActive        *bool      `json:"is_active"`
}

const (
	TriggerSchedule = "schedule"
	TriggerRule     = "rule"
	TriggerManual   = "manual"

	IrrigationDispatched = "dispatched"
	IrrigationSkipped    = "skipped"
	IrrigationFailed     = "failed"
)

// IrrigationLog records every valve command the hub sent or decided not to send.
type IrrigationLog struct {
	Base
	UserID          uuid.UUID  `json:"user_id" gorm:"type:uuid;index;not null"`
	ZoneID          *uuid.UUID `json:"zone_id" gorm:"type:uuid;index"`
	DeviceID        *uuid.UUID `json:"device_id" gorm:"type:uuid"`
	ScheduleID      *uuid.UUID `json:"schedule_id" gorm:"type:uuid;index"`
	RuleID          *uuid.UUID `json:"rule_id" gorm:"type:uuid;index"`
	Trigger         string     `json:"trigger"`
	Action          string     `json:"action"`
	Status          string     `json:"status"`
	DurationMinutes int        `json:"duration_minutes"`
	Reason          string     `json:"reason"`
}

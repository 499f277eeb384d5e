package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	PlanFree       = "free"
	PlanBasic      = "basic"
	PlanPremium    = "premium"
	PlanEnterprise = "enterprise"

	FeatureWeather             = "weather"
	FeatureAutomation          = "automation"
	FeatureIrrigationSchedules = "irrigation_schedules"
	FeatureDataExport          = "data_export"
	FeatureAdvancedAnalytics   = "advanced_analytics"
	FeatureAPIAccess           = "api_access"

	SubscriptionActive   = "active"
	SubscriptionTrialing = "trialing"
	SubscriptionPastDue  = "past_due"
	SubscriptionCanceled = "canceled"
	SubscriptionExpired  = "expired"
	SubscriptionInactive = "inactive"

	// Unlimited disables a numeric plan limit.
	Unlimited = -1
)

type SubscriptionPlan struct {
	Base
	Slug                 string         `json:"slug" gorm:"uniqueIndex;not null"`
	Name                 string         `json:"name" gorm:"not null"`
	Description          string         `json:"description"`
	PriceMonthlyCents    int64          `json:"price_monthly_cents"`
	PriceYearlyCents     int64          `json:"price_yearly_cents"`
	StripePriceIDMonthly string         `json:"-" gorm:"index"`
	StripePriceIDYearly  string         `json:"-" gorm:"index"`
	MaxDevices           int            `json:"max_devices"`
	MaxZones             int            `json:"max_zones"`
	MaxCrops             int            `json:"max_crops"`
	MaxRules             int            `json:"max_rules"`
	Features             datatypes.JSON `json:"features" gorm:"type:jsonb"`
	IsActive             bool           `json:"is_active"`
	SortOrder            int            `json:"sort_order"`
}

// FeatureList decodes the plan's feature slugs.
func (p *SubscriptionPlan) FeatureList() []string {
	var out []string
	if len(p.Features) == 0 {
		return out
	}
	_ = json.Unmarshal(p.Features, &out)
	return out
}

type Subscription struct {
	Base
	UserID               uuid.UUID  `json:"user_id" gorm:"type:uuid;uniqueIndex;not null"`
	PlanID               uuid.UUID  `json:"plan_id" gorm:"type:uuid;index;not null"`
	Status               string     `json:"status" gorm:"index"`
	BillingInterval      string     `json:"billing_interval"`
	StripeSubscriptionID string     `json:"-" gorm:"index"`
	CurrentPeriodEnd     *time.Time `json:"current_period_end"`
	CancelAtPeriodEnd    bool       `json:"cancel_at_period_end"`

	Plan *SubscriptionPlan `json:"plan,omitempty" gorm:"foreignKey:PlanID"`
}

// IsCurrent reports whether the subscription grants its plan at t.
func (s *Subscription) IsCurrent(t time.Time) bool {
	if s.Status != SubscriptionActive && s.Status != SubscriptionTrialing {
		return false
	}
	return s.CurrentPeriodEnd == nil || s.CurrentPeriodEnd.After(t)
}

const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestRejected = "rejected"

	IntervalMonthly = "monthly"
	IntervalYearly  = "yearly"
)

type SubscriptionRequest struct {
	Base
	UserID          uuid.UUID  `json:"user_id" gorm:"type:uuid;index;not null"`
	PlanID          uuid.UUID  `json:"plan_id" gorm:"type:uuid;not null"`
	BillingInterval string     `json:"billing_interval" gorm:"default:monthly"`
	Message         string     `json:"message" gorm:"type:text"`
	Status          string     `json:"status" gorm:"default:pending;index"`
	AdminNotes      string     `json:"admin_notes" gorm:"type:text"`
	ReviewedBy      *uuid.UUID `json:"reviewed_by" gorm:"type:uuid"`
	ReviewedAt      *time.Time `json:"reviewed_at"`

	Plan    *SubscriptionPlan `json:"plan,omitempty" gorm:"foreignKey:PlanID"`
	Profile *Profile          `json:"profile,omitempty" gorm:"foreignKey:UserID"`
}

package utils

import (
	"errors"
	"time"

	"github.com/RikyDRC/agro-sense-control-hub-sub001/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ResourceDevices = "devices"
	ResourceZones   = "zones"
	ResourceCrops   = "crops"
	ResourceRules   = "rules"
)

// Limits is what the caller's plan allows.
type Limits struct {
	MaxDevices int      `json:"max_devices"`
	MaxZones   int      `json:"max_zones"`
	MaxCrops   int      `json:"max_crops"`
	MaxRules   int      `json:"max_rules"`
	Features   []string `json:"features"`
}

// AllFeatures lists every gated feature slug.
var AllFeatures = []string{
	models.FeatureWeather, models.FeatureAutomation, models.FeatureIrrigationSchedules,
	models.FeatureDataExport, models.FeatureAdvancedAnalytics, models.FeatureAPIAccess,
}

// UnlimitedLimits is granted to admins regardless of subscription.
func UnlimitedLimits() Limits {
	return Limits{
		MaxDevices: models.Unlimited,
		MaxZones:   models.Unlimited,
		MaxCrops:   models.Unlimited,
		MaxRules:   models.Unlimited,
		Features:   append([]string(nil), AllFeatures...),
	}
}

// LimitsFromPlan copies a plan's quotas.
func LimitsFromPlan(p *models.SubscriptionPlan) Limits {
	return Limits{
		MaxDevices: p.MaxDevices,
		MaxZones:   p.MaxZones,
		MaxCrops:   p.MaxCrops,
		MaxRules:   p.MaxRules,
		Features:   p.FeatureList(),
	}
}

// Max returns the quota for a resource.
func (l Limits) Max(resource string) int {
	switch resource {
	case ResourceDevices:
		return l.MaxDevices
	case ResourceZones:
		return l.MaxZones
	case ResourceCrops:
		return l.MaxCrops
	case ResourceRules:
		return l.MaxRules
	}
	return 0
}

// Allows reports whether one more resource may be created given current usage.
func (l Limits) Allows(resource string, current int64) bool {
	max := l.Max(resource)
	if max == models.Unlimited {
		return true
	}
	return current < int64(max)
}

// HasFeature reports whether the feature is on the plan.
func (l Limits) HasFeature(feature string) bool {
	for _, f := range l.Features {
		if f == feature {
			return true
		}
	}
	return false
}

// ResolvePlan returns the plan and limits in force for the profile: the
// current subscription's plan, or the free plan.
func ResolvePlan(db *gorm.DB, profile *models.Profile) (*models.SubscriptionPlan, Limits, error) {
	plan, err := currentPlan(db, profile.ID)
	if err != nil {
		return nil, Limits{}, err
	}
	if profile.IsAdmin() {
		return plan, UnlimitedLimits(), nil
	}
	if plan == nil {
		// No plan rows at all: behave like an empty free tier.
		return &models.SubscriptionPlan{Slug: models.PlanFree, Name: "Free"}, Limits{}, nil
	}
	return plan, LimitsFromPlan(plan), nil
}

func currentPlan(db *gorm.DB, userID uuid.UUID) (*models.SubscriptionPlan, error) {
	var sub models.Subscription
	err := db.Preload("Plan").Where("user_id = ?", userID).First(&sub).Error
	switch {
	case err == nil:
		if sub.IsCurrent(time.Now()) && sub.Plan != nil {
			return sub.Plan, nil
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	var free models.SubscriptionPlan
	err = db.Where("slug = ?", models.PlanFree).First(&free).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &free, nil
}

// CountUsage counts the rows of a limited resource owned by userID.
func CountUsage(db *gorm.DB, userID uuid.UUID, resource string) (int64, error) {
	var model interface{}
	switch resource {
	case ResourceDevices:
		model = &models.Device{}
	case ResourceZones:
		model = &models.Zone{}
	case ResourceCrops:
		model = &models.Crop{}
	case ResourceRules:
		model = &models.AutomationRule{}
	default:
		return 0, errors.New("unknown resource " + resource)
	}
	var n int64
	err := db.Model(model).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

// Usage returns the owned counts of every limited resource.
func Usage(db *gorm.DB, userID uuid.UUID) (map[string]int64, error) {
	out := make(map[string]int64, 4)
	for _, r := range []string{ResourceDevices, ResourceZones, ResourceCrops, ResourceRules} {
		n, err := CountUsage(db, userID, r)
		if err != nil {
			return nil, err
		}
		out[r] = n
	}
	return out, nil
}

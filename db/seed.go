package db

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/RikyDRC/agro-sense-control-hub-sub001/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func mustFeatures(features ...string) datatypes.JSON {
	b, err := json.Marshal(features)
	if err != nil {
		panic(err)
	}
	return datatypes.JSON(b)
}

// DefaultPlans is the plan catalogue installed by SeedPlans.
func DefaultPlans() []models.SubscriptionPlan {
	return []models.SubscriptionPlan{
		{
			Slug: models.PlanFree, Name: "Free", Description: "Get started with a single field",
			MaxDevices: 3, MaxZones: 1, MaxCrops: 3, MaxRules: 0,
			Features: mustFeatures(models.FeatureWeather), IsActive: true, SortOrder: 0,
		},
		{
			Slug: models.PlanBasic, Name: "Basic", Description: "Scheduled irrigation for small farms",
			PriceMonthlyCents: 999, PriceYearlyCents: 9990,
			MaxDevices: 10, MaxZones: 3, MaxCrops: 10, MaxRules: 5,
			Features: mustFeatures(models.FeatureWeather, models.FeatureIrrigationSchedules, models.FeatureDataExport),
			IsActive: true, SortOrder: 1,
		},
		{
			Slug: models.PlanPremium, Name: "Premium", Description: "Automation and analytics",
			PriceMonthlyCents: 2999, PriceYearlyCents: 29990,
			MaxDevices: 50, MaxZones: 10, MaxCrops: 50, MaxRules: 25,
			Features: mustFeatures(models.FeatureWeather, models.FeatureIrrigationSchedules, models.FeatureAutomation,
				models.FeatureDataExport, models.FeatureAdvancedAnalytics),
			IsActive: true, SortOrder: 2,
		},
		{
			Slug: models.PlanEnterprise, Name: "Enterprise", Description: "Unlimited devices and API access",
			PriceMonthlyCents: 9999, PriceYearlyCents: 99990,
			MaxDevices: models.Unlimited, MaxZones: models.Unlimited, MaxCrops: models.Unlimited, MaxRules: models.Unlimited,
			Features: mustFeatures(models.FeatureWeather, models.FeatureIrrigationSchedules, models.FeatureAutomation,
				models.FeatureDataExport, models.FeatureAdvancedAnalytics, models.FeatureAPIAccess),
			IsActive: true, SortOrder: 3,
		},
	}
}

// SeedPlans upserts the default plans. Stripe price ids are taken from
// STRIPE_PRICE_<SLUG>_MONTHLY / _YEARLY when present.
func SeedPlans(db *gorm.DB) error {
	plans := DefaultPlans()
	for i := range plans {
		slug := strings.ToUpper(plans[i].Slug)
		plans[i].StripePriceIDMonthly = os.Getenv("STRIPE_PRICE_" + slug + "_MONTHLY")
		plans[i].StripePriceIDYearly = os.Getenv("STRIPE_PRICE_" + slug + "_YEARLY")
	}

	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "slug"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "description", "price_monthly_cents", "price_yearly_cents",
			"stripe_price_id_monthly", "stripe_price_id_yearly",
			"max_devices", "max_zones", "max_crops", "max_rules", "features", "sort_order", "updated_at",
		}),
	}).Create(&plans).Error
}

// SeedPlatformConfig installs public settings that have no row yet.
func SeedPlatformConfig(db *gorm.DB) error {
	defaults := []models.PlatformConfig{
		{Key: models.ConfigAppName, Value: `"AgroSense Hub"`, Description: "Display name"},
		{Key: models.ConfigSupportEmail, Value: `"support@agrosense.app"`, Description: "Support contact"},
		{Key: models.ConfigMaintenanceMode, Value: "false", Description: "Blocks writes from non-admin users"},
		{Key: models.ConfigSignupEnabled, Value: "true", Description: "Allows new accounts to register"},
	}
	for i := range defaults {
		defaults[i].UpdatedAt = time.Now()
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&defaults).Error
}

// SeedSuperAdmin creates or promotes the given account to super_admin.
func SeedSuperAdmin(db *gorm.DB, email, password string) error {
	if email == "" {
		return nil
	}
	email = strings.ToLower(strings.TrimSpace(email))

	var profile models.Profile
	err := db.First(&profile, "email = ?", email).Error
	if err == nil {
		return db.Model(&profile).Update("role", models.RoleSuperAdmin).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if len(password) < 8 {
		return fmt.Errorf("admin password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	profile = models.Profile{
		Email:            email,
		FullName:         "Administrator",
		PasswordHash:     string(hash),
		Role:             models.RoleSuperAdmin,
		SubscriptionTier: models.PlanFree,
	}
	return db.Create(&profile).Error
}

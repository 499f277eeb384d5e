package billing

import (
	"time"

	"github.com/RikyDRC/agro-sense-control-hub-sub001/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PeriodEnd returns the end of a manually granted period starting at now.
func PeriodEnd(interval string, now time.Time) time.Time {
	if interval == models.IntervalYearly {
		return now.AddDate(0, 0, 365)
	}
	return now.AddDate(0, 0, 30)
}

// Grant activates plan for the profile without going through the payment
// provider, as done when an admin approves a subscription request.
func Grant(db *gorm.DB, profile *models.Profile, plan *models.SubscriptionPlan, interval string, now time.Time) error {
	if interval != models.IntervalYearly {
		interval = models.IntervalMonthly
	}
	end := PeriodEnd(interval, now)

	return db.Transaction(func(tx *gorm.DB) error {
		row := models.Subscription{
			UserID:           profile.ID,
			PlanID:           plan.ID,
			Status:           models.SubscriptionActive,
			BillingInterval:  interval,
			CurrentPeriodEnd: &end,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"plan_id", "status", "billing_interval", "stripe_subscription_id",
				"current_period_end", "cancel_at_period_end", "updated_at",
			}),
		}).Create(&row).Error
		if err != nil {
			return err
		}
		if err := tx.Model(profile).Updates(map[string]interface{}{
			"subscription_tier":   plan.Slug,
			"subscription_status": models.SubscriptionActive,
			"subscription_end":    end,
		}).Error; err != nil {
			return err
		}
		profile.SubscriptionTier = plan.Slug
		profile.SubscriptionStatus = models.SubscriptionActive
		profile.SubscriptionEnd = &end
		return nil
	})
}

package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/RikyDRC/agro-sense-control-hub-sub001/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNoCustomer   = errors.New("no billing account for this user")
	ErrUnknownPlan  = errors.New("unknown plan")
	ErrPlanNotPaid  = errors.New("plan has no price for this interval")
	ErrUnknownPrice = errors.New("price is not mapped to a plan")
)

// Status is what check-subscription reports back to the dashboard.
type Status struct {
	Subscribed      bool       `json:"subscribed"`
	Tier            string     `json:"subscription_tier"`
	Status          string     `json:"subscription_status"`
	SubscriptionEnd *time.Time `json:"subscription_end"`
}

type Service struct {
	DB       *gorm.DB
	Provider Provider
	// BaseURL is the dashboard origin used for redirect URLs.
	BaseURL string
}

// CheckSubscription pulls the customer's active subscription from the
// provider and mirrors it onto the profile.
func (s *Service) CheckSubscription(ctx context.Context, profile *models.Profile) (*Status, error) {
	customerID, err := s.Provider.FindCustomer(ctx, profile.Email)
	if err != nil {
		return nil, fmt.Errorf("find customer: %w", err)
	}
	if customerID == "" {
		if err := s.downgrade(profile, models.SubscriptionInactive); err != nil {
			return nil, err
		}
		return statusOf(profile), nil
	}
	if profile.StripeCustomerID != customerID {
		if err := s.DB.Model(profile).Update("stripe_customer_id", customerID).Error; err != nil {
			return nil, err
		}
	}

	sub, err := s.Provider.ActiveSubscription(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("active subscription: %w", err)
	}
	if sub == nil {
		if err := s.downgrade(profile, models.SubscriptionInactive); err != nil {
			return nil, err
		}
		return statusOf(profile), nil
	}
	if err := s.apply(profile, sub); err != nil {
		return nil, err
	}
	return statusOf(profile), nil
}

func statusOf(p *models.Profile) *Status {
	return &Status{
		Subscribed:      p.SubscriptionStatus == models.SubscriptionActive || p.SubscriptionStatus == models.SubscriptionTrialing,
		Tier:            p.SubscriptionTier,
		Status:          p.SubscriptionStatus,
		SubscriptionEnd: p.SubscriptionEnd,
	}
}

// planForPrice maps a provider price id onto a plan and billing interval.
func (s *Service) planForPrice(priceID string) (*models.SubscriptionPlan, string, error) {
	if priceID == "" {
		return nil, "", ErrUnknownPrice
	}
	var plan models.SubscriptionPlan
	err := s.DB.Where("stripe_price_id_monthly = ? OR stripe_price_id_yearly = ?", priceID, priceID).First(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", ErrUnknownPrice
	}
	if err != nil {
		return nil, "", err
	}
	interval := models.IntervalMonthly
	if plan.StripePriceIDYearly == priceID {
		interval = models.IntervalYearly
	}
	return &plan, interval, nil
}

func (s *Service) apply(profile *models.Profile, sub *SubscriptionInfo) error {
	plan, interval, err := s.planForPrice(sub.PriceID)
	if err != nil {
		return fmt.Errorf("price %q: %w", sub.PriceID, err)
	}
	status := normalizeStatus(sub.Status)
	end := sub.CurrentPeriodEnd

	return s.DB.Transaction(func(tx *gorm.DB) error {
		row := models.Subscription{
			UserID:               profile.ID,
			PlanID:               plan.ID,
			Status:               status,
			BillingInterval:      interval,
			StripeSubscriptionID: sub.ID,
			CurrentPeriodEnd:     &end,
			CancelAtPeriodEnd:    sub.CancelAtPeriodEnd,
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

		tier := plan.Slug
		if status != models.SubscriptionActive && status != models.SubscriptionTrialing {
			tier = models.PlanFree
		}
		updates := map[string]interface{}{
			"subscription_tier":   tier,
			"subscription_status": status,
			"subscription_end":    end,
		}
		if sub.CustomerID != "" {
			updates["stripe_customer_id"] = sub.CustomerID
		}
		if err := tx.Model(profile).Updates(updates).Error; err != nil {
			return err
		}
		profile.SubscriptionTier = tier
		profile.SubscriptionStatus = status
		profile.SubscriptionEnd = &end
		return nil
	})
}

// downgrade marks provider-backed subscriptions with status and drops the
// profile to free, unless an admin-granted subscription is still current.
func (s *Service) downgrade(profile *models.Profile, status string) error {
	tier, end := models.PlanFree, (*time.Time)(nil)
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Subscription{}).
			Where("user_id = ? AND stripe_subscription_id <> ''", profile.ID).
			Update("status", status).Error; err != nil {
			return err
		}

		var manual models.Subscription
		err := tx.Preload("Plan").
			Where("user_id = ? AND (stripe_subscription_id = '' OR stripe_subscription_id IS NULL)", profile.ID).
			First(&manual).Error
		switch {
		case err == nil && manual.IsCurrent(time.Now()) && manual.Plan != nil:
			tier, status, end = manual.Plan.Slug, manual.Status, manual.CurrentPeriodEnd
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		return tx.Model(profile).Updates(map[string]interface{}{
			"subscription_tier":   tier,
			"subscription_status": status,
			"subscription_end":    end,
		}).Error
	})
	if err != nil {
		return err
	}
	profile.SubscriptionTier = tier
	profile.SubscriptionStatus = status
	profile.SubscriptionEnd = end
	return nil
}

func normalizeStatus(s string) string {
	switch s {
	case models.SubscriptionActive, models.SubscriptionTrialing, models.SubscriptionPastDue, models.SubscriptionCanceled:
		return s
	case "unpaid", "incomplete_expired":
		return models.SubscriptionExpired
	}
	return models.SubscriptionInactive
}

// ensureCustomer returns the profile's provider customer, creating it when
// create is set.
func (s *Service) ensureCustomer(ctx context.Context, profile *models.Profile, create bool) (string, error) {
	if profile.StripeCustomerID != "" {
		return profile.StripeCustomerID, nil
	}
	id, err := s.Provider.FindCustomer(ctx, profile.Email)
	if err != nil {
		return "", err
	}
	if id == "" {
		if !create {
			return "", ErrNoCustomer
		}
		if id, err = s.Provider.CreateCustomer(ctx, profile.Email, profile.FullName, profile.ID.String()); err != nil {
			return "", err
		}
	}
	if err := s.DB.Model(profile).Update("stripe_customer_id", id).Error; err != nil {
		return "", err
	}
	return id, nil
}

// PortalURL opens a customer portal session for an existing customer.
func (s *Service) PortalURL(ctx context.Context, profile *models.Profile) (string, error) {
	id, err := s.ensureCustomer(ctx, profile, false)
	if err != nil {
		return "", err
	}
	return s.Provider.PortalURL(ctx, id, s.BaseURL+"/subscription")
}

// CheckoutURL starts a checkout for planSlug at the given interval.
func (s *Service) CheckoutURL(ctx context.Context, profile *models.Profile, planSlug, interval string) (string, error) {
	var plan models.SubscriptionPlan
	err := s.DB.Where("slug = ? AND is_active = ?", planSlug, true).First(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrUnknownPlan
	}
	if err != nil {
		return "", err
	}

	priceID := plan.StripePriceIDMonthly
	if interval == models.IntervalYearly {
		priceID = plan.StripePriceIDYearly
	}
	if priceID == "" {
		return "", ErrPlanNotPaid
	}

	customerID, err := s.ensureCustomer(ctx, profile, true)
	if err != nil {
		return "", err
	}
	return s.Provider.CheckoutURL(ctx, CheckoutParams{
		CustomerID: customerID,
		PriceID:    priceID,
		UserID:     profile.ID.String(),
		SuccessURL: s.BaseURL + "/subscription?checkout=success",
		CancelURL:  s.BaseURL + "/subscription?checkout=canceled",
	})
}

// HandleWebhook verifies the payload and syncs subscription events.
// Events for unknown customers are acknowledged and ignored.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.Provider.ParseWebhook(payload, signature)
	if err != nil {
		return err
	}
	if event.Subscription == nil {
		slog.Debug("ignore billing event", "type", event.Type, "id", event.ID)
		return nil
	}
	sub := event.Subscription

	var profile models.Profile
	err = s.DB.Where("stripe_customer_id = ?", sub.CustomerID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		slog.Warn("billing event for unknown customer", "type", event.Type, "customer", sub.CustomerID)
		return nil
	}
	if err != nil {
		return err
	}

	if event.Type == "customer.subscription.deleted" {
		return s.downgrade(&profile, models.SubscriptionCanceled)
	}
	if err := s.apply(&profile, sub); err != nil {
		if errors.Is(err, ErrUnknownPrice) {
			slog.Warn("billing event with unmapped price", "price", sub.PriceID, "user_id", profile.ID)
			return nil
		}
		return err
	}
	slog.Info("subscription synced", "user_id", profile.ID, "tier", profile.SubscriptionTier, "status", profile.SubscriptionStatus)
	return nil
}

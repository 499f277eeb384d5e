// Package notifications stores notifications and pushes them to live clients.
package notifications

import (
	"errors"
	"fmt"
	"time"

	"github.com/RikyDRC/agro-sense-control-hub-sub001/models"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/realtime"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const batchSize = 500

var ErrUnknownAudience = errors.New("unknown target audience")

// Send inserts n and pushes it to the recipient's open connections.
func Send(db *gorm.DB, hub *realtime.Hub, n *models.Notification) error {
	if n.Type == "" {
		n.Type = models.NotificationInfo
	}
	if err := db.Create(n).Error; err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	if hub != nil {
		hub.SendToUser(n.UserID, realtime.EventNotification, n)
	}
	return nil
}

// IsValidAudience accepts the fixed segments and plan slugs.
func IsValidAudience(a string) bool {
	switch a {
	case models.AudienceAll, models.AudienceAdmins, models.AudienceFarmers, models.AudienceSubscribers,
		models.PlanFree, models.PlanBasic, models.PlanPremium, models.PlanEnterprise:
		return true
	}
	return false
}

// ResolveAudience returns the ids of the profiles in the segment.
func ResolveAudience(db *gorm.DB, audience string) ([]uuid.UUID, error) {
	q := db.Model(&models.Profile{})
	switch audience {
	case models.AudienceAll, "":
	case models.AudienceAdmins:
		q = q.Where("role IN ?", []string{models.RoleAdmin, models.RoleSuperAdmin})
	case models.AudienceFarmers:
		q = q.Where("role = ?", models.RoleFarmer)
	case models.AudienceSubscribers:
		sub := db.Model(&models.Subscription{}).Select("user_id").
			Where("status IN ?", []string{models.SubscriptionActive, models.SubscriptionTrialing})
		q = q.Where("id IN (?)", sub)
	case models.PlanFree, models.PlanBasic, models.PlanPremium, models.PlanEnterprise:
		q = q.Where("subscription_tier = ?", audience)
	default:
		return nil, ErrUnknownAudience
	}

	var ids []uuid.UUID
	if err := q.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// Broadcast records msg and fans a notification out to every recipient in the
// target audience inside one transaction, then pushes to live clients.
func Broadcast(db *gorm.DB, hub *realtime.Hub, msg *models.BroadcastMessage) error {
	if msg.TargetAudience == "" {
		msg.TargetAudience = models.AudienceAll
	}
	if !IsValidAudience(msg.TargetAudience) {
		return ErrUnknownAudience
	}
	if msg.Type == "" {
		msg.Type = models.NotificationBroadcast
	}

	recipients, err := ResolveAudience(db, msg.TargetAudience)
	if err != nil {
		return err
	}

	msg.RecipientCount = len(recipients)
	msg.SentAt = time.Now()

	var rows []models.Notification
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		if len(recipients) == 0 {
			return nil
		}
		rows = make([]models.Notification, 0, len(recipients))
		for _, uid := range recipients {
			rows = append(rows, models.Notification{
				UserID:      uid,
				Title:       msg.Title,
				Message:     msg.Message,
				Type:        msg.Type,
				BroadcastID: &msg.ID,
			})
		}
		return tx.CreateInBatches(&rows, batchSize).Error
	})
	if err != nil {
		return fmt.Errorf("broadcast: %w", err)
	}

	if hub != nil {
		for i := range rows {
			hub.SendToUser(rows[i].UserID, realtime.EventNotification, &rows[i])
		}
	}
	return nil
}

package controllers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/RikyDRC/agro-sense-control-hub-sub001/config"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/middlewares"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ListUsers returns the profiles, filterable by ?role, ?tier and ?q (email or name).
func ListUsers(c *gin.Context) {
	q := config.DB.Model(&models.Profile{})
	if r := c.Query("role"); r != "" {
		q = q.Where("role = ?", r)
	}
	if t := c.Query("tier"); t != "" {
		q = q.Where("subscription_tier = ?", t)
	}
	if s := strings.TrimSpace(c.Query("q")); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(email) LIKE ? OR LOWER(full_name) LIKE ?", like, like)
	}
	var users []models.Profile
	paginate(c, q.Order("created_at DESC"), &users, "profile")
}

// ownedTables are deleted together with their owner, children first.
var ownedTables = []interface{}{
	&models.SensorReading{},
	&models.IrrigationLog{},
	&models.Alert{},
	&models.Notification{},
	&models.AutomationRule{},
	&models.IrrigationSchedule{},
	&models.Crop{},
	&models.Device{},
	&models.Zone{},
	&models.SubscriptionRequest{},
	&models.Subscription{},
}

// DeleteUser removes a profile and everything it owns.
func DeleteUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if id == middlewares.CurrentProfile(c).ID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "You cannot delete your own account"})
		return
	}

	var profile models.Profile
	if err := config.DB.First(&profile, "id = ?", id).Error; err != nil {
		dbError(c, err, "profile")
		return
	}
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		for _, m := range ownedTables {
			if err := tx.Where("user_id = ?", id).Delete(m).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&profile).Error
	})
	if err != nil {
		dbError(c, err, "profile")
		return
	}
	slog.Info("user deleted", "user_id", id, "by", middlewares.CurrentProfile(c).ID)
	c.Status(http.StatusNoContent)
}

type tierCount struct {
	Tier  string `json:"tier"`
	Count int64  `json:"count"`
}

// GetAdminStats returns platform-wide counters.
func GetAdminStats(c *gin.Context) {
	var users, devices, online, readingsToday, pendingRequests, newContacts int64
	var tiers []tierCount

	if err := config.DB.Model(&models.Profile{}).Count(&users).Error; err != nil {
		dbError(c, err, "profile")
		return
	}
	if err := config.DB.Model(&models.Profile{}).
		Select("subscription_tier AS tier, COUNT(*) AS count").
		Group("subscription_tier").Scan(&tiers).Error; err != nil {
		dbError(c, err, "profile")
		return
	}
	if err := config.DB.Model(&models.Device{}).Count(&devices).Error; err != nil {
		dbError(c, err, "device")
		return
	}
	if err := config.DB.Model(&models.Device{}).Where("status = ?", models.DeviceOnline).Count(&online).Error; err != nil {
		dbError(c, err, "device")
		return
	}

	now := time.Now().In(config.Location())
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if err := config.DB.Model(&models.SensorReading{}).
		Where("recorded_at >= ?", midnight).Count(&readingsToday).Error; err != nil {
		dbError(c, err, "reading")
		return
	}
	if err := config.DB.Model(&models.SubscriptionRequest{}).
		Where("status = ?", models.RequestPending).Count(&pendingRequests).Error; err != nil {
		dbError(c, err, "subscription request")
		return
	}
	if err := config.DB.Model(&models.ContactSubmission{}).
		Where("status = ?", models.ContactNew).Count(&newContacts).Error; err != nil {
		dbError(c, err, "contact submission")
		return
	}

	byTier := make(map[string]int64, len(tiers))
	for _, t := range tiers {
		byTier[t.Tier] = t.Count
	}
	c.JSON(http.StatusOK, gin.H{
		"users":                users,
		"users_by_tier":        byTier,
		"devices":              devices,
		"devices_online":       online,
		"readings_today":       readingsToday,
		"pending_requests":     pendingRequests,
		"new_contact_messages": newContacts,
	})
}

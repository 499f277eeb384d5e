package controllers

import (
	"net/http"
	"time"

	"github.com/RikyDRC/agro-sense-control-hub-sub001/config"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/middlewares"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/models"
	"github.com/gin-gonic/gin"
)

// Notifications are always personal, admins included.

func ListNotifications(c *gin.Context) {
	p := middlewares.CurrentProfile(c)
	q := config.DB.Model(&models.Notification{}).Where("user_id = ?", p.ID)
	if c.Query("unread") == "true" {
		q = q.Where("is_read = ?", false)
	}
	var notes []models.Notification
	paginate(c, q.Order("created_at DESC"), &notes, "notification")
}

func UnreadNotificationCount(c *gin.Context) {
	p := middlewares.CurrentProfile(c)
	var count int64
	if err := config.DB.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", p.ID, false).Count(&count).Error; err != nil {
		dbError(c, err, "notification")
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

func MarkNotificationRead(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	p := middlewares.CurrentProfile(c)
	var n models.Notification
	if err := config.DB.Where("id = ? AND user_id = ?", id, p.ID).First(&n).Error; err != nil {
		dbError(c, err, "notification")
		return
	}
	if !n.IsRead {
		now := time.Now()
		if err := config.DB.Model(&n).Updates(map[string]interface{}{"is_read": true, "read_at": now}).Error; err != nil {
			dbError(c, err, "notification")
			return
		}
	}
	c.JSON(http.StatusOK, n)
}

func MarkAllNotificationsRead(c *gin.Context) {
	p := middlewares.CurrentProfile(c)
	res := config.DB.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", p.ID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": time.Now()})
	if res.Error != nil {
		dbError(c, res.Error, "notification")
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": res.RowsAffected})
}

func DeleteNotification(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	p := middlewares.CurrentProfile(c)
	res := config.DB.Where("id = ? AND user_id = ?", id, p.ID).Delete(&models.Notification{})
	if res.Error != nil {
		dbError(c, res.Error, "notification")
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

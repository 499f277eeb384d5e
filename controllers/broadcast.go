package controllers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/RikyDRC/agro-sense-control-hub-sub001/config"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/middlewares"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/models"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/notifications"
	"github.com/gin-gonic/gin"
)

// SendBroadcast notifies every profile in the target audience.
func SendBroadcast(c *gin.Context) {
	var in models.BroadcastRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title and message are required"})
		return
	}
	if in.Type != "" && !models.IsValidNotificationType(in.Type) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification type"})
		return
	}

	msg := models.BroadcastMessage{
		SenderID:       middlewares.CurrentProfile(c).ID,
		Title:          in.Title,
		Message:        in.Message,
		Type:           in.Type,
		TargetAudience: in.TargetAudience,
	}
	err := notifications.Broadcast(config.DB, deps.Hub, &msg)
	if errors.Is(err, notifications.ErrUnknownAudience) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		dbError(c, err, "broadcast")
		return
	}
	slog.Info("broadcast sent", "id", msg.ID, "audience", msg.TargetAudience, "recipients", msg.RecipientCount)
	c.JSON(http.StatusCreated, msg)
}

// ListBroadcasts returns the broadcast history, newest first.
func ListBroadcasts(c *gin.Context) {
	var msgs []models.BroadcastMessage
	paginate(c, config.DB.Model(&models.BroadcastMessage{}).Order("sent_at DESC"), &msgs, "broadcast")
}

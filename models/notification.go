package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	NotificationInfo      = "info"
	NotificationSuccess   = "success"
	NotificationWarning   = "warning"
	NotificationAlert     = "alert"
	NotificationBroadcast = "broadcast"
)

func IsValidNotificationType(t string) bool {
	switch t {
	case NotificationInfo, NotificationSuccess, NotificationWarning, NotificationAlert, NotificationBroadcast:
		return true
	}
	return false
}

type Notification struct {
	Base
	UserID      uuid.UUID  `json:"user_id" gorm:"type:uuid;index;not null"`
	Title       string     `json:"title"`
	Message     string     `json:"message" gorm:"type:text"`
	Type        string     `json:"type" gorm:"default:info"`
	IsRead      bool       `json:"is_read" gorm:"default:false;index"`
	ReadAt      *time.Time `json:"read_at"`
	BroadcastID *uuid.UUID `json:"broadcast_id" gorm:"type:uuid;index"`
	Link        string     `json:"link"`
}

const (
	AudienceAll         = "all"
	AudienceAdmins      = "admins"
	AudienceFarmers     = "farmers"
	AudienceSubscribers = "subscribers"
)

type BroadcastMessage struct {
	Base
	SenderID       uuid.UUID `json:"sender_id" gorm:"type:uuid;index"`
	Title          string    `json:"title" gorm:"not null"`
	Message        string    `json:"message" gorm:"type:text;not null"`
	Type           string    `json:"type" gorm:"default:info"`
	TargetAudience string    `json:"target_audience" gorm:"default:all"`
	RecipientCount int       `json:"recipient_count"`
	SentAt         time.Time `json:"sent_at"`
}

type BroadcastRequest struct {
	Title          string `json:"title" binding:"required"`
	Message        string `json:"message" binding:"required"`
	Type           string `json:"type"`
	TargetAudience string `json:"target_audience"`
}

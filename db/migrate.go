package db

import (
	"github.com/RikyDRC/agro-sense-control-hub-sub001/models"
	"gorm.io/gorm"
)

// Migrate runs the database migrations
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Profile{},
		&models.Zone{},
		&models.Device{},
		&models.Crop{},
		&models.IrrigationSchedule{},
		&models.IrrigationLog{},
		&models.AutomationRule{},
		&models.SensorReading{},
		&models.Alert{},
		&models.Notification{},
		&models.BroadcastMessage{},
		&models.SubscriptionPlan{},
		&models.Subscription{},
		&models.SubscriptionRequest{},
		&models.PlatformConfig{},
		&models.ContactSubmission{},
	)
}

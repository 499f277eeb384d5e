package config

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/RikyDRC/agro-sense-control-hub-sub001/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DB is a global variable to hold the database connection
var DB *gorm.DB

// platformStateCache mirrors the platform flags that are consulted on every
// request and is synchronized with the platform_configs table.
type platformStateCache struct {
	MaintenanceMode bool
	SignupEnabled   bool
}

var (
	currentPlatformState = platformStateCache{SignupEnabled: true}
	platformMutex        sync.RWMutex
)

// InitPlatformState loads the cached flags from the database, creating
// default rows for any that are missing. Call it once on startup.
func InitPlatformState(db *gorm.DB) error {
	platformMutex.Lock()
	defer platformMutex.Unlock()

	maintenance, err := loadOrCreateFlag(db, models.ConfigMaintenanceMode, false, "Blocks writes from non-admin users")
	if err != nil {
		return err
	}
	signup, err := loadOrCreateFlag(db, models.ConfigSignupEnabled, true, "Allows new accounts to register")
	if err != nil {
		return err
	}

	currentPlatformState.MaintenanceMode = maintenance
	currentPlatformState.SignupEnabled = signup
	return nil
}

func loadOrCreateFlag(db *gorm.DB, key string, def bool, description string) (bool, error) {
	var row models.PlatformConfig
	err := db.First(&row, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		raw, _ := json.Marshal(def)
		row = models.PlatformConfig{Key: key, Value: string(raw), Description: description, UpdatedAt: time.Now()}
		if err := db.Create(&row).Error; err != nil {
			return false, err
		}
		return def, nil
	}
	if err != nil {
		return false, err
	}

	var v bool
	if err := json.Unmarshal([]byte(row.Value), &v); err != nil {
		return def, nil
	}
	return v, nil
}

// IsMaintenanceMode returns the cached maintenance flag.
func IsMaintenanceMode() bool {
	platformMutex.RLock()
	defer platformMutex.RUnlock()
	return currentPlatformState.MaintenanceMode
}

// IsSignupEnabled returns the cached signup flag.
func IsSignupEnabled() bool {
	platformMutex.RLock()
	defer platformMutex.RUnlock()
	return currentPlatformState.SignupEnabled
}

// SetPlatformFlag updates a boolean flag in both the database and the cache.
func SetPlatformFlag(db *gorm.DB, key string, value bool, updatedBy *uuid.UUID) error {
	platformMutex.Lock()
	defer platformMutex.Unlock()

	raw, _ := json.Marshal(value)
	row := models.PlatformConfig{Key: key, Value: string(raw), UpdatedBy: updatedBy, UpdatedAt: time.Now()}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_by", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return err
	}

	switch key {
	case models.ConfigMaintenanceMode:
		currentPlatformState.MaintenanceMode = value
	case models.ConfigSignupEnabled:
		currentPlatformState.SignupEnabled = value
	}
	return nil
}

// IsPlatformFlag reports whether key is one of the cached boolean flags.
func IsPlatformFlag(key string) bool {
	return key == models.ConfigMaintenanceMode || key == models.ConfigSignupEnabled
}

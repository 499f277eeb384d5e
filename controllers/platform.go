package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/RikyDRC/agro-sense-control-hub-sub001/config"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/middlewares"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// configEntry renders a PlatformConfig with its decoded JSON value.
type configEntry struct {
	Key         string          `json:"key"`
	Value       json.RawMessage `json:"value"`
	Description string          `json:"description"`
	UpdatedBy   *uuid.UUID      `json:"updated_by"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func entryOf(row models.PlatformConfig) configEntry {
	v := json.RawMessage(row.Value)
	if !json.Valid(v) {
		v, _ = json.Marshal(row.Value)
	}
	return configEntry{Key: row.Key, Value: v, Description: row.Description, UpdatedBy: row.UpdatedBy, UpdatedAt: row.UpdatedAt}
}

// GET /api/platform/public
func GetPublicConfig(c *gin.Context) {
	out := gin.H{
		models.ConfigMaintenanceMode: config.IsMaintenanceMode(),
		models.ConfigSignupEnabled:   config.IsSignupEnabled(),
	}

	var rows []models.PlatformConfig
	if err := config.DB.Where("key IN ?", []string{models.ConfigSupportEmail, models.ConfigAppName}).
		Find(&rows).Error; err != nil {
		dbError(c, err, "platform config")
		return
	}
	for _, row := range rows {
		out[row.Key] = entryOf(row).Value
	}
	c.JSON(http.StatusOK, out)
}

// GET /api/admin/platform-config
func ListPlatformConfig(c *gin.Context) {
	var rows []models.PlatformConfig
	if err := config.DB.Order("key").Find(&rows).Error; err != nil {
		dbError(c, err, "platform config")
		return
	}
	out := make([]configEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, entryOf(row))
	}
	c.JSON(http.StatusOK, out)
}

type platformConfigInput struct {
	Value       json.RawMessage `json:"value" binding:"required"`
	Description *string         `json:"description"`
}

// PUT /api/admin/platform-config/:key
func UpdatePlatformConfig(c *gin.Context) {
	key := c.Param("key")
	var in platformConfigInput
	if err := c.ShouldBindJSON(&in); err != nil || !json.Valid(in.Value) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "value must be valid JSON"})
		return
	}
	admin := middlewares.CurrentProfile(c).ID

	if config.IsPlatformFlag(key) {
		var flag bool
		if err := json.Unmarshal(in.Value, &flag); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": key + " must be true or false"})
			return
		}
		if err := config.SetPlatformFlag(config.DB, key, flag, &admin); err != nil {
			dbError(c, err, "platform config")
			return
		}
	} else {
		row := models.PlatformConfig{Key: key, Value: string(in.Value), UpdatedBy: &admin, UpdatedAt: time.Now()}
		columns := []string{"value", "updated_by", "updated_at"}
		if in.Description != nil {
			row.Description = *in.Description
			columns = append(columns, "description")
		}
		if err := config.DB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns(columns),
		}).Create(&row).Error; err != nil {
			dbError(c, err, "platform config")
			return
		}
	}

	var row models.PlatformConfig
	if err := config.DB.First(&row, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "platform config not found"})
			return
		}
		dbError(c, err, "platform config")
		return
	}
	c.JSON(http.StatusOK, entryOf(row))
}

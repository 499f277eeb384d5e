package controllers

import (
	"net/http"

	"github.com/RikyDRC/agro-sense-control-hub-sub001/config"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/middlewares"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/models"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/utils"
	"github.com/gin-gonic/gin"
)

// GetDashboardStats summarizes the caller's farm.
func GetDashboardStats(c *gin.Context) {
	var (
		devices []models.Device
		zones   int64
		crops   []models.Crop
		alerts  []models.Alert
		stats   utils.DashboardStats
	)

	if err := scoped(c, config.DB).Find(&devices).Error; err != nil {
		dbError(c, err, "device")
		return
	}
	if err := scoped(c, config.DB.Model(&models.Zone{})).Count(&zones).Error; err != nil {
		dbError(c, err, "zone")
		return
	}
	if err := scoped(c, config.DB).Select("id", "status").Find(&crops).Error; err != nil {
		dbError(c, err, "crop")
		return
	}
	if err := scoped(c, config.DB).Where("status <> ?", models.AlertResolved).
		Select("id", "status", "severity").Find(&alerts).Error; err != nil {
		dbError(c, err, "alert")
		return
	}

	// Notifications are always the caller's own, even for admins.
	p := middlewares.CurrentProfile(c)
	if err := config.DB.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", p.ID, false).Count(&stats.UnreadNotifications).Error; err != nil {
		dbError(c, err, "notification")
		return
	}
	if err := scoped(c, config.DB.Model(&models.IrrigationSchedule{})).
		Where("is_active = ?", true).Count(&stats.ActiveSchedules).Error; err != nil {
		dbError(c, err, "schedule")
		return
	}
	if err := scoped(c, config.DB.Model(&models.AutomationRule{})).
		Where("is_active = ?", true).Count(&stats.ActiveRules).Error; err != nil {
		dbError(c, err, "rule")
		return
	}

	stats.Devices = utils.SummarizeDevices(devices)
	stats.Zones = int(zones)
	stats.ActiveCrops = utils.CountActiveCrops(crops)
	stats.Alerts = utils.SummarizeAlerts(alerts)
	stats.Averages = utils.AverageReadings(devices)
	c.JSON(http.StatusOK, stats)
}

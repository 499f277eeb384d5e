package controllers

import (
	"net/http"
	"time"

	"github.com/RikyDRC/agro-sense-control-hub-sub001/config"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/models"
	"github.com/gin-gonic/gin"
)

func ListAlerts(c *gin.Context) {
	q := scoped(c, config.DB.Model(&models.Alert{}))
	for _, f := range []string{"status", "severity", "device_id", "zone_id"} {
		if v := c.Query(f); v != "" {
			q = q.Where(f+" = ?", v)
		}
	}
	var alerts []models.Alert
	paginate(c, q.Order("created_at DESC"), &alerts, "alert")
}

func AcknowledgeAlert(c *gin.Context) {
	var a models.Alert
	if !findOwned(c, &a, "alert") {
		return
	}
	if a.Status != models.AlertActive {
		c.JSON(http.StatusConflict, gin.H{"error": "Only active alerts can be acknowledged"})
		return
	}
	now := time.Now()
	if err := config.DB.Model(&a).Updates(map[string]interface{}{
		"status":          models.AlertAcknowledged,
		"acknowledged_at": now,
	}).Error; err != nil {
		dbError(c, err, "alert")
		return
	}
	c.JSON(http.StatusOK, a)
}

func ResolveAlert(c *gin.Context) {
	var a models.Alert
	if !findOwned(c, &a, "alert") {
		return
	}
	if a.Status == models.AlertResolved {
		c.JSON(http.StatusOK, a)
		return
	}
	now := time.Now()
	if err := config.DB.Model(&a).Updates(map[string]interface{}{
		"status":      models.AlertResolved,
		"resolved_at": now,
	}).Error; err != nil {
		dbError(c, err, "alert")
		return
	}
	c.JSON(http.StatusOK, a)
}

func DeleteAlert(c *gin.Context) {
	var a models.Alert
	if !findOwned(c, &a, "alert") {
		return
	}
	if err := config.DB.Delete(&a).Error; err != nil {
		dbError(c, err, "alert")
		return
	}
	c.Status(http.StatusNoContent)
}

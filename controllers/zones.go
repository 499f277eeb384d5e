package controllers

import (
	"net/http"
	"strings"

	"github.com/RikyDRC/agro-sense-control-hub-sub001/config"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/models"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/utils"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/weather"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func ListZones(c *gin.Context) {
	q := scoped(c, config.DB.Model(&models.Zone{})).Order("created_at DESC")
	var zones []models.Zone
	paginate(c, q, &zones, "zone")
}

func GetZone(c *gin.Context) {
	var zone models.Zone
	if !findOwned(c, &zone, "zone") {
		return
	}
	c.JSON(http.StatusOK, zone)
}

func applyZoneInput(z *models.Zone, in *models.ZoneInput) string {
	if in.Name != nil {
		z.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		z.Description = *in.Description
	}
	if in.AreaHectares != nil {
		if *in.AreaHectares < 0 {
			return "area_hectares must not be negative"
		}
		z.AreaHectares = *in.AreaHectares
	}
	if in.SoilType != nil {
		z.SoilType = *in.SoilType
	}
	if in.Latitude != nil {
		z.Latitude = in.Latitude
	}
	if in.Longitude != nil {
		z.Longitude = in.Longitude
	}
	if in.Boundary != nil {
		z.Boundary = *in.Boundary
	}
	if in.Color != nil {
		z.Color = *in.Color
	}
	if in.IsActive != nil {
		z.IsActive = *in.IsActive
	}
	if z.Name == "" {
		return "name is required"
	}
	if (z.Latitude == nil) != (z.Longitude == nil) {
		return "latitude and longitude must be set together"
	}
	if z.Latitude != nil && !weather.ValidCoordinates(*z.Latitude, *z.Longitude) {
		return "coordinates are out of range"
	}
	return ""
}

func CreateZone(c *gin.Context) {
	var in models.ZoneInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	owner, ok := ownerOf(c)
	if !ok || !checkLimit(c, utils.ResourceZones) {
		return
	}

	zone := models.Zone{UserID: owner, IsActive: true}
	if msg := applyZoneInput(&zone, &in); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	if err := config.DB.Create(&zone).Error; err != nil {
		dbError(c, err, "zone")
		return
	}
	c.JSON(http.StatusCreated, zone)
}

func UpdateZone(c *gin.Context) {
	var zone models.Zone
	if !findOwned(c, &zone, "zone") {
		return
	}
	var in models.ZoneInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	if msg := applyZoneInput(&zone, &in); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	if err := config.DB.Save(&zone).Error; err != nil {
		dbError(c, err, "zone")
		return
	}
	c.JSON(http.StatusOK, zone)
}

// DeleteZone detaches the zone's devices and removes its crops, schedules
// and rules along with it.
func DeleteZone(c *gin.Context) {
	var zone models.Zone
	if !findOwned(c, &zone, "zone") {
		return
	}
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Device{}).Where("zone_id = ?", zone.ID).Update("zone_id", nil).Error; err != nil {
			return err
		}
		for _, m := range []interface{}{&models.Crop{}, &models.IrrigationSchedule{}, &models.AutomationRule{}} {
			if err := tx.Where("zone_id = ?", zone.ID).Delete(m).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&zone).Error
	})
	if err != nil {
		dbError(c, err, "zone")
		return
	}
	c.Status(http.StatusNoContent)
}

func ListZoneDevices(c *gin.Context) {
	var zone models.Zone
	if !findOwned(c, &zone, "zone") {
		return
	}
	var devices []models.Device
	if err := config.DB.Where("zone_id = ?", zone.ID).Order("name").Find(&devices).Error; err != nil {
		dbError(c, err, "device")
		return
	}
	c.JSON(http.StatusOK, devices)
}

func ListZoneCrops(c *gin.Context) {
	var zone models.Zone
	if !findOwned(c, &zone, "zone") {
		return
	}
	var crops []models.Crop
	if err := config.DB.Where("zone_id = ?", zone.ID).Order("created_at DESC").Find(&crops).Error; err != nil {
		dbError(c, err, "crop")
		return
	}
	c.JSON(http.StatusOK, crops)
}

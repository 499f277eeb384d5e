package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/RikyDRC/agro-sense-control-hub-sub001/automation"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/config"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/middlewares"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/models"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/realtime"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/utils"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/weather"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func ListDevices(c *gin.Context) {
	q := scoped(c, config.DB.Model(&models.Device{}))
	if z := c.Query("zone_id"); z != "" {
		q = q.Where("zone_id = ?", z)
	}
	if t := c.Query("type"); t != "" {
		q = q.Where("type = ?", t)
	}
	if s := c.Query("status"); s != "" {
		q = q.Where("status = ?", s)
	}
	var devices []models.Device
	paginate(c, q.Order("created_at DESC"), &devices, "device")
}

func GetDevice(c *gin.Context) {
	var device models.Device
	if !findOwned(c, &device, "device") {
		return
	}
	c.JSON(http.StatusOK, device)
}

func applyDeviceInput(d *models.Device, in *models.DeviceInput) string {
	if in.ZoneID.Set {
		d.ZoneID = in.ZoneID.Value
	}
	if in.Name != nil {
		d.Name = strings.TrimSpace(*in.Name)
	}
	if in.Type != nil {
		if !models.IsValidDeviceType(*in.Type) {
			return "unknown device type"
		}
		d.Type = *in.Type
	}
	if in.SerialNumber != nil {
		d.SerialNumber = strings.TrimSpace(*in.SerialNumber)
	}
	if in.Status != nil {
		if !models.IsValidDeviceStatus(*in.Status) {
			return "unknown device status"
		}
		d.Status = *in.Status
	}
	if in.BatteryLevel != nil {
		if *in.BatteryLevel < 0 || *in.BatteryLevel > 100 {
			return "battery_level must be between 0 and 100"
		}
		d.BatteryLevel = in.BatteryLevel
	}
	if in.FirmwareVersion != nil {
		d.FirmwareVersion = *in.FirmwareVersion
	}
	if in.Latitude != nil {
		d.Latitude = in.Latitude
	}
	if in.Longitude != nil {
		d.Longitude = in.Longitude
	}
	switch {
	case d.Name == "":
		return "name is required"
	case d.Type == "":
		return "type is required"
	case d.SerialNumber == "":
		return "serial_number is required"
	case d.Latitude != nil && d.Longitude != nil && !weather.ValidCoordinates(*d.Latitude, *d.Longitude):
		return "coordinates are out of range"
	}
	return ""
}

func CreateDevice(c *gin.Context) {
	var in models.DeviceInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	owner, ok := ownerOf(c)
	if !ok || !checkLimit(c, utils.ResourceDevices) {
		return
	}

	device := models.Device{UserID: owner, Status: models.DeviceOffline}
	if msg := applyDeviceInput(&device, &in); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	if !zoneOwnedBy(c, device.ZoneID, owner) {
		return
	}
	if err := config.DB.Create(&device).Error; err != nil {
		dbError(c, err, "device")
		return
	}
	c.JSON(http.StatusCreated, device)
}

func UpdateDevice(c *gin.Context) {
	var device models.Device
	if !findOwned(c, &device, "device") {
		return
	}
	var in models.DeviceInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	if msg := applyDeviceInput(&device, &in); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	if !zoneOwnedBy(c, device.ZoneID, device.UserID) {
		return
	}
	if err := config.DB.Omit("Zone").Save(&device).Error; err != nil {
		dbError(c, err, "device")
		return
	}
	if in.Status != nil {
		deps.Hub.SendToUser(device.UserID, realtime.EventDeviceStatus, gin.H{"device_id": device.ID, "status": device.Status})
	}
	c.JSON(http.StatusOK, device)
}

// DeleteDevice removes the device and its readings.
func DeleteDevice(c *gin.Context) {
	var device models.Device
	if !findOwned(c, &device, "device") {
		return
	}
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("device_id = ?", device.ID).Delete(&models.SensorReading{}).Error; err != nil {
			return err
		}
		return tx.Delete(&device).Error
	})
	if err != nil {
		dbError(c, err, "device")
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdateDeviceLocation stores a GPS fix reported for the device.
func UpdateDeviceLocation(c *gin.Context) {
	var payload models.DeviceLocation
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}
	if !weather.ValidCoordinates(payload.Latitude, payload.Longitude) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Coordinates are out of range"})
		return
	}

	var device models.Device
	if !findOwned(c, &device, "device") {
		return
	}
	if err := config.DB.Model(&device).Updates(map[string]interface{}{
		"latitude":  payload.Latitude,
		"longitude": payload.Longitude,
	}).Error; err != nil {
		dbError(c, err, "device")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Location stored successfully",
		"device_id": device.ID,
		"latitude":  payload.Latitude,
		"longitude": payload.Longitude,
		"accuracy":  payload.Accuracy,
	})
}

// SendDeviceCommand publishes a manual command to a valve or pump.
func SendDeviceCommand(c *gin.Context) {
	var cmd models.DeviceCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid command"})
		return
	}
	if cmd.DurationMinutes < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "duration_minutes must not be negative"})
		return
	}

	var device models.Device
	if !findOwned(c, &device, "device") {
		return
	}
	if !models.IsActuator(device.Type) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Commands can only be sent to valves and pumps"})
		return
	}
	if deps.Engine == nil || deps.Engine.Publisher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Device messaging is not configured"})
		return
	}

	p := middlewares.CurrentProfile(c)
	entry, err := deps.Engine.Dispatch(c.Request.Context(), automation.DispatchRequest{
		UserID:  device.UserID,
		Device:  &device,
		Command: cmd,
		Trigger: models.TriggerManual,
		Reason:  "manual command by " + p.Email,
	})
	if errors.Is(err, automation.ErrNoPublisher) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Device messaging is not configured"})
		return
	}
	if err != nil {
		slog.Error("device command", "device_id", device.ID, "err", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to reach the device", "log": entry})
		return
	}
	c.JSON(http.StatusAccepted, entry)
}

func ListIrrigationLogs(c *gin.Context) {
	q := scoped(c, config.DB.Model(&models.IrrigationLog{}))
	for _, f := range []string{"zone_id", "device_id", "schedule_id", "rule_id", "trigger", "status"} {
		if v := c.Query(f); v != "" {
			q = q.Where(f+" = ?", v)
		}
	}
	var logs []models.IrrigationLog
	paginate(c, q.Order("created_at DESC"), &logs, "irrigation log")
}

package controllers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/RikyDRC/agro-sense-control-hub-sub001/automation"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/config"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/models"
	"github.com/gin-gonic/gin"
)

func ListSchedules(c *gin.Context) {
	q := scoped(c, config.DB.Model(&models.IrrigationSchedule{}))
	if z := c.Query("zone_id"); z != "" {
		q = q.Where("zone_id = ?", z)
	}
	var schedules []models.IrrigationSchedule
	paginate(c, q.Preload("Zone").Order("start_time"), &schedules, "schedule")
}

func GetSchedule(c *gin.Context) {
	var s models.IrrigationSchedule
	if !findOwned(c, &s, "schedule") {
		return
	}
	c.JSON(http.StatusOK, s)
}

func applyScheduleInput(s *models.IrrigationSchedule, in *models.IrrigationScheduleInput) string {
	if in.ZoneID != nil {
		s.ZoneID = *in.ZoneID
	}
	if in.DeviceID != nil {
		s.DeviceID = in.DeviceID
	}
	if in.Name != nil {
		s.Name = strings.TrimSpace(*in.Name)
	}
	if in.StartTime != nil {
		if err := automation.ValidateStartTime(*in.StartTime); err != nil {
			return err.Error()
		}
		s.StartTime = *in.StartTime
	}
	if in.DurationMinutes != nil {
		s.DurationMinutes = *in.DurationMinutes
	}
	if in.DaysOfWeek != nil {
		if err := automation.ValidateDays(in.DaysOfWeek); err != nil {
			return err.Error()
		}
		b, _ := json.Marshal(in.DaysOfWeek)
		s.DaysOfWeek = b
	}
	if in.SkipIfRain != nil {
		s.SkipIfRain = *in.SkipIfRain
	}
	if in.IsActive != nil {
		s.IsActive = *in.IsActive
	}
	switch {
	case s.Name == "":
		return "name is required"
	case s.StartTime == "":
		return "start_time is required"
	case s.DurationMinutes <= 0 || s.DurationMinutes > 24*60:
		return "duration_minutes must be between 1 and 1440"
	case len(s.Days()) == 0:
		return "days_of_week is required"
	}
	return ""
}

// checkScheduleTargets verifies the zone and the optional valve belong to
// the schedule's owner.
func checkScheduleTargets(c *gin.Context, s *models.IrrigationSchedule) bool {
	if !zoneOwnedBy(c, &s.ZoneID, s.UserID) {
		return false
	}
	d, ok := deviceOwnedBy(c, s.DeviceID, s.UserID)
	if !ok {
		return false
	}
	if d != nil && !models.IsActuator(d.Type) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "device_id must be a valve or pump"})
		return false
	}
	return true
}

func CreateSchedule(c *gin.Context) {
	var in models.IrrigationScheduleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	if in.ZoneID == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "zone_id is required"})
		return
	}
	owner, ok := ownerOf(c)
	if !ok {
		return
	}

	s := models.IrrigationSchedule{UserID: owner, IsActive: true}
	if msg := applyScheduleInput(&s, &in); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	if !checkScheduleTargets(c, &s) {
		return
	}
	if err := config.DB.Create(&s).Error; err != nil {
		dbError(c, err, "schedule")
		return
	}
	c.JSON(http.StatusCreated, s)
}

func UpdateSchedule(c *gin.Context) {
	var s models.IrrigationSchedule
	if !findOwned(c, &s, "schedule") {
		return
	}
	var in models.IrrigationScheduleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	if msg := applyScheduleInput(&s, &in); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	if !checkScheduleTargets(c, &s) {
		return
	}
	if err := config.DB.Omit("Zone").Save(&s).Error; err != nil {
		dbError(c, err, "schedule")
		return
	}
	c.JSON(http.StatusOK, s)
}

func DeleteSchedule(c *gin.Context) {
	var s models.IrrigationSchedule
	if !findOwned(c, &s, "schedule") {
		return
	}
	if err := config.DB.Delete(&s).Error; err != nil {
		dbError(c, err, "schedule")
		return
	}
	c.Status(http.StatusNoContent)
}

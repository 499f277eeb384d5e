package controllers

import (
	"encoding/csv"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/RikyDRC/agro-sense-control-hub-sub001/config"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/models"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/telemetry"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	defaultReadingLimit = 100
	maxReadingLimit     = 1000
	csvTimeFormat       = "2006-01-02 15:04:05"
)

// IngestReading processes incoming sensor data posted for a device.
func IngestReading(c *gin.Context) {
	var payload models.ReadingPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid data"})
		return
	}

	var device models.Device
	if !findOwned(c, &device, "device") {
		return
	}

	ingestor := deps.Ingestor
	if ingestor == nil {
		ingestor = &telemetry.Ingestor{DB: config.DB, Hub: deps.Hub, Rules: deps.Engine}
	}
	reading, err := ingestor.Ingest(c.Request.Context(), &device, payload)
	if errors.Is(err, telemetry.ErrEmptyReading) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Reading has no metrics"})
		return
	}
	if err != nil {
		slog.Error("ingest reading", "device_id", device.ID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store reading"})
		return
	}
	c.JSON(http.StatusCreated, reading)
}

// timeRange reads ?since and ?until as RFC 3339 timestamps.
func timeRange(c *gin.Context, q *gorm.DB) (*gorm.DB, bool) {
	for _, p := range []struct{ param, op string }{{"since", ">="}, {"until", "<="}} {
		v := c.Query(p.param)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + p.param + ", expected RFC 3339"})
			return nil, false
		}
		q = q.Where("recorded_at "+p.op+" ?", t)
	}
	return q, true
}

// ListDeviceReadings returns the device's readings, newest first.
func ListDeviceReadings(c *gin.Context) {
	var device models.Device
	if !findOwned(c, &device, "device") {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultReadingLimit)))
	switch {
	case limit < 1:
		limit = defaultReadingLimit
	case limit > maxReadingLimit:
		limit = maxReadingLimit
	}

	q, ok := timeRange(c, config.DB.Where("device_id = ?", device.ID))
	if !ok {
		return
	}
	var readings []models.SensorReading
	if err := q.Order("recorded_at DESC").Limit(limit).Find(&readings).Error; err != nil {
		dbError(c, err, "reading")
		return
	}
	c.JSON(http.StatusOK, readings)
}

// GetAbnormalCount returns the count of abnormal readings.
func GetAbnormalCount(c *gin.Context) {
	var count int64
	if err := scoped(c, config.DB.Model(&models.SensorReading{})).
		Where("is_abnormal = ?", true).Count(&count).Error; err != nil {
		dbError(c, err, "reading")
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

// GetAbnormalHistory returns abnormal readings with the metric that tripped.
func GetAbnormalHistory(c *gin.Context) {
	var records []models.SensorReading
	q := scoped(c, config.DB.Where("is_abnormal = ?", true))
	if err := q.Order("recorded_at DESC").Limit(maxReadingLimit).Find(&records).Error; err != nil {
		dbError(c, err, "reading")
		return
	}

	response := make([]gin.H, 0, len(records))
	for i := range records {
		response = append(response, gin.H{
			"id":          records[i].ID,
			"device_id":   records[i].DeviceID,
			"recorded_at": records[i].RecordedAt,
			"type":        utils.GetAbnormalType(&records[i]),
		})
	}
	c.JSON(http.StatusOK, response)
}

func formatMetric(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

// ExportReadingsCSV sends the caller's readings as a CSV file.
func ExportReadingsCSV(c *gin.Context) {
	q := scoped(c, config.DB.Model(&models.SensorReading{}))
	if d := c.Query("device_id"); d != "" {
		q = q.Where("device_id = ?", d)
	}
	if z := c.Query("zone_id"); z != "" {
		q = q.Where("zone_id = ?", z)
	}
	q, ok := timeRange(c, q)
	if !ok {
		return
	}

	rows, err := q.Order("recorded_at DESC").Rows()
	if err != nil {
		dbError(c, err, "reading")
		return
	}
	defer rows.Close()

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=sensor_readings.csv")
	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	_ = writer.Write([]string{"recorded_at", "device_id", "zone_id", "soil_moisture", "temperature",
		"humidity", "light", "battery_level", "is_abnormal"})
	for rows.Next() {
		var r models.SensorReading
		if err := config.DB.ScanRows(rows, &r); err != nil {
			slog.Error("scan reading for export", "err", err)
			return
		}
		zone := ""
		if r.ZoneID != nil {
			zone = r.ZoneID.String()
		}
		_ = writer.Write([]string{
			r.RecordedAt.Format(csvTimeFormat),
			r.DeviceID.String(),
			zone,
			formatMetric(r.SoilMoisture),
			formatMetric(r.Temperature),
			formatMetric(r.Humidity),
			formatMetric(r.Light),
			formatMetric(r.BatteryLevel),
			strconv.FormatBool(r.IsAbnormal),
		})
	}
}

// DeleteReading deletes a single reading.
func DeleteReading(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return
	}
	res := scoped(c, config.DB).Where("id = ?", id).Delete(&models.SensorReading{})
	if res.Error != nil {
		dbError(c, res.Error, "reading")
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// PurgeReadings deletes readings recorded before ?before (admin only).
func PurgeReadings(c *gin.Context) {
	before, err := time.Parse(time.RFC3339, c.Query("before"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "before must be an RFC 3339 timestamp"})
		return
	}
	res := config.DB.Where("recorded_at < ?", before).Delete(&models.SensorReading{})
	if res.Error != nil {
		dbError(c, res.Error, "reading")
		return
	}
	slog.Info("readings purged", "before", before, "count", res.RowsAffected)
	c.JSON(http.StatusOK, gin.H{"deleted": res.RowsAffected})
}

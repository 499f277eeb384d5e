package models

import (
	"time"

	"github.com/google/uuid"
)

type SensorReading struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	UserID       uuid.UUID  `json:"user_id" gorm:"type:uuid;index;not null"`
	DeviceID     uuid.UUID  `json:"device_id" gorm:"type:uuid;index;not null"`
	ZoneID       *uuid.UUID `json:"zone_id" gorm:"type:uuid;index"`
	SoilMoisture *float64   `json:"soil_moisture"`
	Temperature  *float64   `json:"temperature"`
	Humidity     *float64   `json:"humidity"`
	Light        *float64   `json:"light"`
	BatteryLevel *float64   `json:"battery_level"`
	RecordedAt   time.Time  `json:"recorded_at" gorm:"index"`
	IsAbnormal   bool       `json:"is_abnormal" gorm:"index"`
}

// ReadingPayload is what devices send over HTTP or MQTT.
type ReadingPayload struct {
	SoilMoisture *float64   `json:"soil_moisture"`
	Temperature  *float64   `json:"temperature"`
	Humidity     *float64   `json:"humidity"`
	Light        *float64   `json:"light"`
	BatteryLevel *float64   `json:"battery_level"`
	RecordedAt   *time.Time `json:"recorded_at"`
}

// Empty reports whether the payload carries no metric at all.
func (p ReadingPayload) Empty() bool {
	return p.SoilMoisture == nil && p.Temperature == nil && p.Humidity == nil &&
		p.Light == nil && p.BatteryLevel == nil
}

// Metric returns the named metric value, if present.
func (r *SensorReading) Metric(name string) (float64, bool) {
	var v *float64
	switch name {
	case "soil_moisture":
		v = r.SoilMoisture
	case "temperature":
		v = r.Temperature
	case "humidity":
		v = r.Humidity
	case "light":
		v = r.Light
	case "battery_level":
		v = r.BatteryLevel
	}
	if v == nil {
		return 0, false
	}
	return *v, true
}

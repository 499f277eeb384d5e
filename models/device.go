package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	DeviceMoistureSensor    = "moisture_sensor"
	DeviceTemperatureSensor = "temperature_sensor"
	DeviceHumiditySensor    = "humidity_sensor"
	DeviceWeatherStation    = "weather_station"
	DeviceValve             = "valve"
	DevicePump              = "pump"
	DeviceCamera            = "camera"

	DeviceOnline      = "online"
	DeviceOffline     = "offline"
	DeviceMaintenance = "maintenance"
	DeviceError       = "error"
)

var deviceTypes = map[string]bool{
	DeviceMoistureSensor: true, DeviceTemperatureSensor: true, DeviceHumiditySensor: true,
	DeviceWeatherStation: true, DeviceValve: true, DevicePump: true, DeviceCamera: true,
}

var deviceStatuses = map[string]bool{
	DeviceOnline: true, DeviceOffline: true, DeviceMaintenance: true, DeviceError: true,
}

func IsValidDeviceType(t string) bool   { return deviceTypes[t] }
func IsValidDeviceStatus(s string) bool { return deviceStatuses[s] }

// IsActuator reports whether commands can be sent to devices of this type.
func IsActuator(t string) bool {
	return t == DeviceValve || t == DevicePump
}

type Device struct {
	Base
	UserID          uuid.UUID      `json:"user_id" gorm:"type:uuid;index;not null"`
	ZoneID          *uuid.UUID     `json:"zone_id" gorm:"type:uuid;index"`
	Name            string         `json:"name" gorm:"not null"`
	Type            string         `json:"type" gorm:"not null;index"`
	SerialNumber    string         `json:"serial_number" gorm:"uniqueIndex;not null"`
	Status          string         `json:"status" gorm:"default:offline;index"`
	BatteryLevel    *float64       `json:"battery_level"`
	FirmwareVersion string         `json:"firmware_version"`
	Latitude        *float64       `json:"latitude"`
	Longitude       *float64       `json:"longitude"`
	LastReading     datatypes.JSON `json:"last_reading" gorm:"type:jsonb"`
	LastSeenAt      *time.Time     `json:"last_seen_at"`

	Zone *Zone `json:"zone,omitempty" gorm:"foreignKey:ZoneID"`
}

type DeviceInput struct {
	ZoneID          OptionalUUID `json:"zone_id"`
	Name            *string      `json:"name"`
	Type            *string      `json:"type"`
	SerialNumber    *string      `json:"serial_number"`
	Status          *string      `json:"status"`
	BatteryLevel    *float64     `json:"battery_level"`
	FirmwareVersion *string      `json:"firmware_version"`
	Latitude        *float64     `json:"latitude"`
	Longitude       *float64     `json:"longitude"`
}

// DeviceLocation is reported by a device that has a GPS fix.
type DeviceLocation struct {
	Latitude  float64 `json:"latitude" binding:"required"`
	Longitude float64 `json:"longitude" binding:"required"`
	Accuracy  float64 `json:"accuracy"`
}

type DeviceCommand struct {
	Action          string `json:"action" binding:"required,oneof=open close start stop"`
	DurationMinutes int    `json:"duration_minutes"`
}

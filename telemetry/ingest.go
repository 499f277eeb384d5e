// Package telemetry ingests device readings from HTTP and MQTT.
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/RikyDRC/agro-sense-control-hub-sub001/automation"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/models"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/realtime"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/utils"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrEmptyReading  = errors.New("reading has no metrics")
	ErrUnknownDevice = errors.New("unknown device")
)

// Sink receives a copy of every stored reading.
type Sink interface {
	WriteReading(ctx context.Context, device *models.Device, r *models.SensorReading) error
}

type Ingestor struct {
	DB    *gorm.DB
	Hub   *realtime.Hub
	Rules *automation.Engine
	Sink  Sink
}

// Ingest stores the reading and runs everything that hangs off it: device
// state, abnormal-value alerts, live events, rules and the time-series sink.
func (in *Ingestor) Ingest(ctx context.Context, device *models.Device, p models.ReadingPayload) (*models.SensorReading, error) {
	if p.Empty() {
		return nil, ErrEmptyReading
	}

	recorded := time.Now()
	if p.RecordedAt != nil && !p.RecordedAt.IsZero() {
		recorded = *p.RecordedAt
	}
	reading := &models.SensorReading{
		UserID:       device.UserID,
		DeviceID:     device.ID,
		ZoneID:       device.ZoneID,
		SoilMoisture: p.SoilMoisture,
		Temperature:  p.Temperature,
		Humidity:     p.Humidity,
		Light:        p.Light,
		BatteryLevel: p.BatteryLevel,
		RecordedAt:   recorded,
	}
	reading.IsAbnormal = utils.CheckAbnormality(reading)

	last, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	seen := time.Now()
	updates := map[string]interface{}{
		"last_reading": datatypes.JSON(last),
		"last_seen_at": seen,
		"status":       models.DeviceOnline,
	}
	if p.BatteryLevel != nil {
		updates["battery_level"] = *p.BatteryLevel
	}

	err = in.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(reading).Error; err != nil {
			return err
		}
		return tx.Model(&models.Device{}).Where("id = ?", device.ID).Updates(updates).Error
	})
	if err != nil {
		return nil, fmt.Errorf("store reading: %w", err)
	}
	wasOffline := device.Status != models.DeviceOnline
	device.Status = models.DeviceOnline
	device.LastSeenAt = &seen
	device.LastReading = last
	if p.BatteryLevel != nil {
		device.BatteryLevel = p.BatteryLevel
	}

	if in.Hub != nil {
		in.Hub.SendToUser(device.UserID, realtime.EventReading, reading)
		if wasOffline {
			in.Hub.SendToUser(device.UserID, realtime.EventDeviceStatus, map[string]interface{}{
				"device_id": device.ID, "status": models.DeviceOnline,
			})
		}
	}

	if reading.IsAbnormal {
		in.raiseAbnormal(device, reading)
	}

	if in.Rules != nil {
		if _, err := in.Rules.EvaluateReading(ctx, device, reading); err != nil {
			slog.Error("evaluate rules", "device_id", device.ID, "err", err)
		}
	}

	if in.Sink != nil {
		if err := in.Sink.WriteReading(ctx, device, reading); err != nil {
			slog.Warn("write reading to sink", "device_id", device.ID, "err", err)
		}
	}
	return reading, nil
}

func (in *Ingestor) raiseAbnormal(device *models.Device, reading *models.SensorReading) {
	for _, v := range utils.Violations(reading) {
		created, err := automation.RaiseAlert(in.DB, in.Hub, &models.Alert{
			UserID:   device.UserID,
			DeviceID: &device.ID,
			ZoneID:   device.ZoneID,
			Type:     v.AlertType,
			Severity: v.Severity,
			Title:    "Abnormal " + v.Label,
			Message:  utils.DescribeViolation(v, reading, device.Name),
		})
		if err != nil {
			slog.Error("raise alert", "device_id", device.ID, "type", v.AlertType, "err", err)
			continue
		}
		if created {
			slog.Info("abnormal reading", "device_id", device.ID, "type", v.AlertType)
		}
	}
}

// IngestSerial looks the device up by serial number, for transports that
// identify devices that way.
func (in *Ingestor) IngestSerial(ctx context.Context, serial string, p models.ReadingPayload) (*models.SensorReading, error) {
	var device models.Device
	err := in.DB.Where("serial_number = ?", serial).First(&device).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUnknownDevice
	}
	if err != nil {
		return nil, err
	}
	return in.Ingest(ctx, &device, p)
}

package utils

import (
	"encoding/json"
	"math"

	"github.com/RikyDRC/agro-sense-control-hub-sub001/models"
)

const lowBatteryPercent = 20

type DeviceStats struct {
	Total       int `json:"total"`
	Online      int `json:"online"`
	Offline     int `json:"offline"`
	Maintenance int `json:"maintenance"`
	Error       int `json:"error"`
	LowBattery  int `json:"low_battery"`
}

type AlertStats struct {
	Active   int `json:"active"`
	Critical int `json:"critical"`
}

// Averages are nil when no device reports the metric.
type Averages struct {
	SoilMoisture *float64 `json:"soil_moisture"`
	Temperature  *float64 `json:"temperature"`
	Humidity     *float64 `json:"humidity"`
}

type DashboardStats struct {
	Devices             DeviceStats `json:"devices"`
	Zones               int         `json:"zones"`
	ActiveCrops         int         `json:"active_crops"`
	Alerts              AlertStats  `json:"alerts"`
	UnreadNotifications int64       `json:"unread_notifications"`
	ActiveSchedules     int64       `json:"active_schedules"`
	ActiveRules         int64       `json:"active_rules"`
	Averages            Averages    `json:"averages"`
}

func SummarizeDevices(devices []models.Device) DeviceStats {
	s := DeviceStats{Total: len(devices)}
	for _, d := range devices {
		switch d.Status {
		case models.DeviceOnline:
			s.Online++
		case models.DeviceMaintenance:
			s.Maintenance++
		case models.DeviceError:
			s.Error++
		default:
			s.Offline++
		}
		if d.BatteryLevel != nil && *d.BatteryLevel < lowBatteryPercent {
			s.LowBattery++
		}
	}
	return s
}

// SummarizeAlerts counts unresolved alerts; acknowledged ones are still active.
func SummarizeAlerts(alerts []models.Alert) AlertStats {
	var s AlertStats
	for _, a := range alerts {
		if a.Status == models.AlertResolved {
			continue
		}
		s.Active++
		if a.Severity == models.SeverityCritical {
			s.Critical++
		}
	}
	return s
}

func CountActiveCrops(crops []models.Crop) int {
	n := 0
	for _, c := range crops {
		if c.Status == models.CropActive {
			n++
		}
	}
	return n
}

// AverageReadings averages the metrics found in each device's last reading.
func AverageReadings(devices []models.Device) Averages {
	var sums, counts [3]float64
	for _, d := range devices {
		if len(d.LastReading) == 0 {
			continue
		}
		var p models.ReadingPayload
		if err := json.Unmarshal(d.LastReading, &p); err != nil {
			continue
		}
		for i, v := range []*float64{p.SoilMoisture, p.Temperature, p.Humidity} {
			if v != nil {
				sums[i] += *v
				counts[i]++
			}
		}
	}

	var out Averages
	targets := []**float64{&out.SoilMoisture, &out.Temperature, &out.Humidity}
	for i := range targets {
		if counts[i] == 0 {
			continue
		}
		avg := Round1(sums[i] / counts[i])
		*targets[i] = &avg
	}
	return out
}

// Round1 rounds to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

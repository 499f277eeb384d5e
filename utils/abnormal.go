package utils

import (
	"fmt"

	"github.com/RikyDRC/agro-sense-control-hub-sub001/models"
)

// Threshold is the accepted range of one reading metric.
type Threshold struct {
	Metric    string
	Label     string
	Min, Max  float64
	AlertType string
	Severity  string
}

// Thresholds are checked in order; the first violation names the alert.
var Thresholds = []Threshold{
	{Metric: "soil_moisture", Label: "Soil Moisture", Min: 10, Max: 90, AlertType: "moisture", Severity: models.SeverityHigh},
	{Metric: "temperature", Label: "Temperature", Min: 5, Max: 45, AlertType: "temperature", Severity: models.SeverityHigh},
	{Metric: "humidity", Label: "Humidity", Min: 20, Max: 95, AlertType: "humidity", Severity: models.SeverityMedium},
	{Metric: "battery_level", Label: "Battery", Min: 15, Max: 100, AlertType: "battery", Severity: models.SeverityLow},
}

// CheckAbnormality determines whether the sensor data is abnormal.
func CheckAbnormality(r *models.SensorReading) bool {
	return len(Violations(r)) > 0
}

// Violations returns every threshold the reading falls outside of.
func Violations(r *models.SensorReading) []Threshold {
	var out []Threshold
	for _, t := range Thresholds {
		v, ok := r.Metric(t.Metric)
		if !ok {
			continue
		}
		if v < t.Min || v > t.Max {
			out = append(out, t)
		}
	}
	return out
}

// GetAbnormalType returns a string describing which sensor reading is abnormal.
func GetAbnormalType(r *models.SensorReading) string {
	if v := Violations(r); len(v) > 0 {
		return v[0].Label
	}
	return "Unknown"
}

// DescribeViolation renders a human readable alert message.
func DescribeViolation(t Threshold, r *models.SensorReading, deviceName string) string {
	v, _ := r.Metric(t.Metric)
	direction := "above"
	bound := t.Max
	if v < t.Min {
		direction = "below"
		bound = t.Min
	}
	return fmt.Sprintf("%s on %s is %.1f, %s the %.0f limit", t.Label, deviceName, v, direction, bound)
}

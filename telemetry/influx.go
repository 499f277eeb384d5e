package telemetry

import (
	"context"
	"fmt"

	"github.com/RikyDRC/agro-sense-control-hub-sub001/models"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

const measurement = "sensor_reading"

// InfluxSink mirrors readings into an InfluxDB bucket for long-range charts.
type InfluxSink struct {
	client influxdb2.Client
	write  api.WriteAPIBlocking
}

func NewInfluxSink(ctx context.Context, url, token, org, bucket string) (*InfluxSink, error) {
	client := influxdb2.NewClient(url, token)
	health, err := client.Health(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("influxdb ping: %w", err)
	}
	if health.Status != "pass" {
		client.Close()
		return nil, fmt.Errorf("influxdb unhealthy: %s", health.Status)
	}
	return &InfluxSink{client: client, write: client.WriteAPIBlocking(org, bucket)}, nil
}

// ReadingFields returns the metrics present on r as point fields.
func ReadingFields(r *models.SensorReading) map[string]interface{} {
	fields := make(map[string]interface{}, 5)
	for _, name := range []string{"soil_moisture", "temperature", "humidity", "light", "battery_level"} {
		if v, ok := r.Metric(name); ok {
			fields[name] = v
		}
	}
	return fields
}

func (s *InfluxSink) WriteReading(ctx context.Context, device *models.Device, r *models.SensorReading) error {
	fields := ReadingFields(r)
	if len(fields) == 0 {
		return nil
	}
	tags := map[string]string{
		"device_id": device.ID.String(),
		"user_id":   device.UserID.String(),
		"type":      device.Type,
	}
	if device.ZoneID != nil {
		tags["zone_id"] = device.ZoneID.String()
	}
	point := influxdb2.NewPoint(measurement, tags, fields, r.RecordedAt)
	return s.write.WritePoint(ctx, point)
}

func (s *InfluxSink) Close() {
	s.client.Close()
}

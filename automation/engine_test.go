package automation

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/RikyDRC/agro-sense-control-hub-sub001/db"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/models"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/weather"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type sent struct {
	serial string
	cmd    models.DeviceCommand
}

type fakePublisher struct {
	sent []sent
	err  error
}

func (p *fakePublisher) PublishCommand(_ context.Context, serial string, cmd models.DeviceCommand) error {
	p.sent = append(p.sent, sent{serial, cmd})
	return p.err
}

type fakeForecaster struct {
	probability float64
	calls       int
}

func (f *fakeForecaster) Forecast(_ context.Context, lat, lon float64) (*weather.Forecast, error) {
	f.calls++
	return &weather.Forecast{Latitude: lat, Longitude: lon, Daily: []weather.Day{{PrecipitationProbability: f.probability}}}, nil
}

func jsonOf(t *testing.T, v interface{}) datatypes.JSON {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

type fixture struct {
	db     *gorm.DB
	user   uuid.UUID
	zone   models.Zone
	sensor models.Device
	valve  models.Device
}

func setup(t *testing.T) *fixture {
	t.Helper()
	gdb, err := db.OpenMemory("automation_" + uuid.NewString())
	require.NoError(t, err)

	fx := &fixture{db: gdb, user: uuid.New()}
	lat, lon := 48.85, 2.35
	fx.zone = models.Zone{UserID: fx.user, Name: "North field", Latitude: &lat, Longitude: &lon, IsActive: true}
	require.NoError(t, gdb.Create(&fx.zone).Error)

	fx.sensor = models.Device{UserID: fx.user, ZoneID: &fx.zone.ID, Name: "sensor", Type: models.DeviceMoistureSensor,
		SerialNumber: "S-" + uuid.NewString()[:8], Status: models.DeviceOnline}
	fx.valve = models.Device{UserID: fx.user, ZoneID: &fx.zone.ID, Name: "valve", Type: models.DeviceValve,
		SerialNumber: "V-" + uuid.NewString()[:8], Status: models.DeviceOnline}
	require.NoError(t, gdb.Create(&fx.sensor).Error)
	require.NoError(t, gdb.Create(&fx.valve).Error)
	return fx
}

func (fx *fixture) rule(t *testing.T, cond models.RuleCondition, action models.RuleAction) models.AutomationRule {
	t.Helper()
	r := models.AutomationRule{
		UserID: fx.user, ZoneID: &fx.zone.ID, Name: "dry soil",
		Condition: jsonOf(t, cond), Action: jsonOf(t, action), IsActive: true, CooldownMinutes: 30,
	}
	require.NoError(t, fx.db.Create(&r).Error)
	return r
}

func TestEvaluateReadingStartsIrrigation(t *testing.T) {
	fx := setup(t)
	pub := &fakePublisher{}
	e := &Engine{DB: fx.db, Publisher: pub}

	rule := fx.rule(t,
		models.RuleCondition{Metric: "soil_moisture", Operator: "<", Value: 30},
		models.RuleAction{Type: models.ActionStartIrrigation, DeviceID: &fx.valve.ID, DurationMinutes: 15})

	fired, err := e.EvaluateReading(context.Background(), &fx.sensor, &models.SensorReading{SoilMoisture: f(22)})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{rule.ID}, fired)

	require.Len(t, pub.sent, 1)
	assert.Equal(t, fx.valve.SerialNumber, pub.sent[0].serial)
	assert.Equal(t, "open", pub.sent[0].cmd.Action)
	assert.Equal(t, 15, pub.sent[0].cmd.DurationMinutes)

	var logs []models.IrrigationLog
	require.NoError(t, fx.db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, models.TriggerRule, logs[0].Trigger)
	assert.Equal(t, models.IrrigationDispatched, logs[0].Status)
	assert.Equal(t, rule.ID, *logs[0].RuleID)

	// Second reading inside the cooldown does not fire again.
	fired, err = e.EvaluateReading(context.Background(), &fx.sensor, &models.SensorReading{SoilMoisture: f(20)})
	require.NoError(t, err)
	assert.Empty(t, fired)
	assert.Len(t, pub.sent, 1)
}

func TestEvaluateReadingSkipsInactiveRule(t *testing.T) {
	fx := setup(t)
	pub := &fakePublisher{}
	e := &Engine{DB: fx.db, Publisher: pub}

	r := models.AutomationRule{
		UserID: fx.user, ZoneID: &fx.zone.ID, Name: "paused",
		Condition: jsonOf(t, models.RuleCondition{Metric: "soil_moisture", Operator: "<", Value: 30}),
		Action:    jsonOf(t, models.RuleAction{Type: models.ActionStartIrrigation, DeviceID: &fx.valve.ID, DurationMinutes: 5}),
		IsActive:  false,
	}
	require.NoError(t, fx.db.Create(&r).Error)

	var stored models.AutomationRule
	require.NoError(t, fx.db.First(&stored, "id = ?", r.ID).Error)
	require.False(t, stored.IsActive)

	fired, err := e.EvaluateReading(context.Background(), &fx.sensor, &models.SensorReading{SoilMoisture: f(5)})
	require.NoError(t, err)
	assert.Empty(t, fired)
	assert.Empty(t, pub.sent)
}

func TestEvaluateReadingZeroCooldown(t *testing.T) {
	fx := setup(t)
	pub := &fakePublisher{}
	e := &Engine{DB: fx.db, Publisher: pub}

	rule := fx.rule(t,
		models.RuleCondition{Metric: "soil_moisture", Operator: "<", Value: 30},
		models.RuleAction{Type: models.ActionStartIrrigation, DeviceID: &fx.valve.ID, DurationMinutes: 5})
	require.NoError(t, fx.db.Model(&rule).Update("cooldown_minutes", 0).Error)

	for i := 0; i < 3; i++ {
		fired, err := e.EvaluateReading(context.Background(), &fx.sensor, &models.SensorReading{SoilMoisture: f(10)})
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{rule.ID}, fired)
	}
	assert.Len(t, pub.sent, 3)
}

func TestEvaluateReadingIgnoresOtherZones(t *testing.T) {
	fx := setup(t)
	e := &Engine{DB: fx.db}

	other := uuid.New()
	r := models.AutomationRule{
		UserID: fx.user, ZoneID: &other, Name: "elsewhere",
		Condition: jsonOf(t, models.RuleCondition{Metric: "soil_moisture", Operator: "<", Value: 30}),
		Action:    jsonOf(t, models.RuleAction{Type: models.ActionNotify, Message: "dry"}),
		IsActive:  true,
	}
	require.NoError(t, fx.db.Create(&r).Error)

	fired, err := e.EvaluateReading(context.Background(), &fx.sensor, &models.SensorReading{SoilMoisture: f(5)})
	require.NoError(t, err)
	assert.Empty(t, fired)
}

func TestEvaluateReadingAlertDeduplicates(t *testing.T) {
	fx := setup(t)
	e := &Engine{DB: fx.db}

	rule := fx.rule(t,
		models.RuleCondition{Metric: "temperature", Operator: ">", Value: 40},
		models.RuleAction{Type: models.ActionAlert, Message: "heat", Severity: models.SeverityHigh})

	_, err := e.EvaluateReading(context.Background(), &fx.sensor, &models.SensorReading{Temperature: f(42)})
	require.NoError(t, err)

	// Expire the cooldown and fire again: the alert stays single while active.
	require.NoError(t, fx.db.Model(&rule).Update("last_triggered_at", time.Now().Add(-time.Hour)).Error)
	_, err = e.EvaluateReading(context.Background(), &fx.sensor, &models.SensorReading{Temperature: f(43)})
	require.NoError(t, err)

	var alerts []models.Alert
	require.NoError(t, fx.db.Find(&alerts).Error)
	require.Len(t, alerts, 1)
	assert.Equal(t, models.SeverityHigh, alerts[0].Severity)

	var notes int64
	require.NoError(t, fx.db.Model(&models.Notification{}).Where("user_id = ?", fx.user).Count(&notes).Error)
	assert.EqualValues(t, 1, notes)
}

func TestDispatchWithoutPublisherRecordsFailure(t *testing.T) {
	fx := setup(t)
	e := &Engine{DB: fx.db}

	entry, err := e.Dispatch(context.Background(), DispatchRequest{
		UserID: fx.user, Device: &fx.valve,
		Command: models.DeviceCommand{Action: "open", DurationMinutes: 5}, Trigger: models.TriggerManual,
	})
	assert.ErrorIs(t, err, ErrNoPublisher)
	require.NotNil(t, entry)
	assert.Equal(t, models.IrrigationFailed, entry.Status)
}

func (fx *fixture) schedule(t *testing.T, skipIfRain bool) models.IrrigationSchedule {
	t.Helper()
	s := models.IrrigationSchedule{
		UserID: fx.user, ZoneID: fx.zone.ID, Name: "morning", StartTime: "06:30", DurationMinutes: 20,
		DaysOfWeek: jsonOf(t, []int{0, 1, 2, 3, 4, 5, 6}), SkipIfRain: skipIfRain, IsActive: true,
	}
	require.NoError(t, fx.db.Create(&s).Error)
	return s
}

func TestRunDueSchedules(t *testing.T) {
	fx := setup(t)
	pub := &fakePublisher{}
	e := &Engine{DB: fx.db, Publisher: pub, Location: time.UTC}
	s := fx.schedule(t, false)

	now := time.Date(2026, 5, 4, 6, 30, 5, 0, time.UTC)
	n, err := e.RunDueSchedules(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, pub.sent, 1)
	assert.Equal(t, fx.valve.SerialNumber, pub.sent[0].serial)
	assert.Equal(t, 20, pub.sent[0].cmd.DurationMinutes)

	// Same minute again is a no-op.
	n, err = e.RunDueSchedules(context.Background(), now.Add(30*time.Second))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, pub.sent, 1)

	var reloaded models.IrrigationSchedule
	require.NoError(t, fx.db.First(&reloaded, "id = ?", s.ID).Error)
	require.NotNil(t, reloaded.LastRunAt)
}

func TestRunDueSchedulesIgnoresInactive(t *testing.T) {
	fx := setup(t)
	pub := &fakePublisher{}
	e := &Engine{DB: fx.db, Publisher: pub, Location: time.UTC}
	s := fx.schedule(t, false)
	require.NoError(t, fx.db.Model(&s).Update("is_active", false).Error)

	n, err := e.RunDueSchedules(context.Background(), time.Date(2026, 5, 4, 6, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, pub.sent)
}

func TestRunDueSchedulesSkipsForRain(t *testing.T) {
	fx := setup(t)
	pub := &fakePublisher{}
	wx := &fakeForecaster{probability: 80}
	e := &Engine{DB: fx.db, Publisher: pub, Weather: wx, Location: time.UTC}
	fx.schedule(t, true)

	n, err := e.RunDueSchedules(context.Background(), time.Date(2026, 5, 4, 6, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, pub.sent)
	assert.Equal(t, 1, wx.calls)

	var logEntry models.IrrigationLog
	require.NoError(t, fx.db.First(&logEntry).Error)
	assert.Equal(t, models.IrrigationSkipped, logEntry.Status)
	assert.Equal(t, "rain expected", logEntry.Reason)
}

func TestRunDueSchedulesDryForecastWaters(t *testing.T) {
	fx := setup(t)
	pub := &fakePublisher{}
	e := &Engine{DB: fx.db, Publisher: pub, Weather: &fakeForecaster{probability: 59}, Location: time.UTC}
	fx.schedule(t, true)

	_, err := e.RunDueSchedules(context.Background(), time.Date(2026, 5, 4, 6, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, pub.sent, 1)
}

func TestRunDueSchedulesPublishError(t *testing.T) {
	fx := setup(t)
	pub := &fakePublisher{err: errors.New("broker down")}
	e := &Engine{DB: fx.db, Publisher: pub, Location: time.UTC}
	fx.schedule(t, false)

	_, err := e.RunDueSchedules(context.Background(), time.Date(2026, 5, 4, 6, 30, 0, 0, time.UTC))
	require.NoError(t, err)

	var logEntry models.IrrigationLog
	require.NoError(t, fx.db.First(&logEntry).Error)
	assert.Equal(t, models.IrrigationFailed, logEntry.Status)
	assert.Equal(t, "broker down", logEntry.Reason)
}

func TestMarkStaleDevices(t *testing.T) {
	fx := setup(t)
	e := &Engine{DB: fx.db}

	now := time.Now().UTC()
	fresh := now.Add(-5 * time.Minute)
	old := now.Add(-2 * time.Hour)
	require.NoError(t, fx.db.Model(&fx.sensor).Update("last_seen_at", old).Error)
	require.NoError(t, fx.db.Model(&fx.valve).Update("last_seen_at", fresh).Error)

	n, err := e.MarkStaleDevices(now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	var sensor, valve models.Device
	require.NoError(t, fx.db.First(&sensor, "id = ?", fx.sensor.ID).Error)
	require.NoError(t, fx.db.First(&valve, "id = ?", fx.valve.ID).Error)
	assert.Equal(t, models.DeviceOffline, sensor.Status)
	assert.Equal(t, models.DeviceOnline, valve.Status)
}

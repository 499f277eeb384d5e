package utils

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/RikyDRC/agro-sense-control-hub-sub001/db"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func f(v float64) *float64 { return &v }

func TestCheckAbnormality(t *testing.T) {
	tests := []struct {
		name     string
		reading  models.SensorReading
		abnormal bool
		kind     string
	}{
		{"all in range", models.SensorReading{SoilMoisture: f(40), Temperature: f(25), Humidity: f(60), BatteryLevel: f(80)}, false, "Unknown"},
		{"dry soil", models.SensorReading{SoilMoisture: f(5), Temperature: f(25)}, true, "Soil Moisture"},
		{"hot", models.SensorReading{Temperature: f(46)}, true, "Temperature"},
		{"cold", models.SensorReading{Temperature: f(4.9)}, true, "Temperature"},
		{"humid", models.SensorReading{Humidity: f(96)}, true, "Humidity"},
		{"low battery", models.SensorReading{BatteryLevel: f(14)}, true, "Battery"},
		{"boundaries are normal", models.SensorReading{SoilMoisture: f(10), Temperature: f(45), Humidity: f(20), BatteryLevel: f(15)}, false, "Unknown"},
		{"no metrics", models.SensorReading{}, false, "Unknown"},
		{"first violation wins", models.SensorReading{SoilMoisture: f(95), Temperature: f(50)}, true, "Soil Moisture"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.abnormal, CheckAbnormality(&tt.reading))
			assert.Equal(t, tt.kind, GetAbnormalType(&tt.reading))
		})
	}
}

func TestDescribeViolation(t *testing.T) {
	r := &models.SensorReading{Temperature: f(48.3)}
	v := Violations(r)
	require.Len(t, v, 1)
	assert.Equal(t, "Temperature on Greenhouse is 48.3, above the 45 limit", DescribeViolation(v[0], r, "Greenhouse"))

	r = &models.SensorReading{SoilMoisture: f(3)}
	v = Violations(r)
	require.Len(t, v, 1)
	assert.Equal(t, "Soil Moisture on Bed A is 3.0, below the 10 limit", DescribeViolation(v[0], r, "Bed A"))
}

func TestLimitsAllows(t *testing.T) {
	l := Limits{MaxDevices: 3, MaxZones: models.Unlimited, MaxRules: 0}
	assert.True(t, l.Allows(ResourceDevices, 2))
	assert.False(t, l.Allows(ResourceDevices, 3))
	assert.True(t, l.Allows(ResourceZones, 1000))
	assert.False(t, l.Allows(ResourceRules, 0))
	assert.Equal(t, 0, l.Max("unknown"))
}

func TestLimitsHasFeature(t *testing.T) {
	l := Limits{Features: []string{models.FeatureWeather}}
	assert.True(t, l.HasFeature(models.FeatureWeather))
	assert.False(t, l.HasFeature(models.FeatureAutomation))

	u := UnlimitedLimits()
	for _, feat := range AllFeatures {
		assert.True(t, u.HasFeature(feat), feat)
	}
}

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.OpenMemory("utils_" + uuid.NewString())
	require.NoError(t, err)
	require.NoError(t, db.SeedPlans(gdb))
	return gdb
}

func plan(t *testing.T, gdb *gorm.DB, slug string) models.SubscriptionPlan {
	t.Helper()
	var p models.SubscriptionPlan
	require.NoError(t, gdb.Where("slug = ?", slug).First(&p).Error)
	return p
}

func TestResolvePlan(t *testing.T) {
	gdb := setupDB(t)
	farmer := &models.Profile{Email: "f@example.com", Role: models.RoleFarmer}
	require.NoError(t, gdb.Create(farmer).Error)

	t.Run("no subscription falls back to free", func(t *testing.T) {
		p, l, err := ResolvePlan(gdb, farmer)
		require.NoError(t, err)
		assert.Equal(t, models.PlanFree, p.Slug)
		assert.Equal(t, 3, l.MaxDevices)
		assert.False(t, l.HasFeature(models.FeatureAutomation))
	})

	premium := plan(t, gdb, models.PlanPremium)
	future := time.Now().Add(24 * time.Hour)
	sub := models.Subscription{UserID: farmer.ID, PlanID: premium.ID, Status: models.SubscriptionActive, CurrentPeriodEnd: &future}
	require.NoError(t, gdb.Create(&sub).Error)

	t.Run("active subscription", func(t *testing.T) {
		p, l, err := ResolvePlan(gdb, farmer)
		require.NoError(t, err)
		assert.Equal(t, models.PlanPremium, p.Slug)
		assert.True(t, l.HasFeature(models.FeatureAutomation))
		assert.Equal(t, 25, l.MaxRules)
	})

	t.Run("expired subscription", func(t *testing.T) {
		past := time.Now().Add(-time.Hour)
		require.NoError(t, gdb.Model(&sub).Update("current_period_end", past).Error)
		p, _, err := ResolvePlan(gdb, farmer)
		require.NoError(t, err)
		assert.Equal(t, models.PlanFree, p.Slug)
	})

	t.Run("canceled subscription", func(t *testing.T) {
		require.NoError(t, gdb.Model(&sub).Updates(map[string]interface{}{
			"current_period_end": future, "status": models.SubscriptionCanceled,
		}).Error)
		p, _, err := ResolvePlan(gdb, farmer)
		require.NoError(t, err)
		assert.Equal(t, models.PlanFree, p.Slug)
	})

	t.Run("admins are unlimited", func(t *testing.T) {
		admin := &models.Profile{Email: "a@example.com", Role: models.RoleAdmin}
		require.NoError(t, gdb.Create(admin).Error)
		_, l, err := ResolvePlan(gdb, admin)
		require.NoError(t, err)
		assert.Equal(t, models.Unlimited, l.MaxDevices)
		assert.True(t, l.Allows(ResourceRules, 1<<20))
	})
}

func TestUsage(t *testing.T) {
	gdb := setupDB(t)
	user, other := uuid.New(), uuid.New()
	require.NoError(t, gdb.Create(&models.Zone{UserID: user, Name: "North"}).Error)
	require.NoError(t, gdb.Create(&models.Zone{UserID: other, Name: "South"}).Error)
	require.NoError(t, gdb.Create(&models.Device{UserID: user, Name: "S1", Type: models.DeviceMoistureSensor, SerialNumber: "s1"}).Error)
	require.NoError(t, gdb.Create(&models.Device{UserID: user, Name: "S2", Type: models.DeviceMoistureSensor, SerialNumber: "s2"}).Error)

	usage, err := Usage(gdb, user)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{ResourceDevices: 2, ResourceZones: 1, ResourceCrops: 0, ResourceRules: 0}, usage)

	_, err = CountUsage(gdb, user, "tractors")
	assert.Error(t, err)
}

func lastReading(t *testing.T, p models.ReadingPayload) datatypes.JSON {
	t.Helper()
	b, err := json.Marshal(p)
	require.NoError(t, err)
	return b
}

func TestSummarizeDevices(t *testing.T) {
	devices := []models.Device{
		{Status: models.DeviceOnline, BatteryLevel: f(10)},
		{Status: models.DeviceOnline, BatteryLevel: f(20)},
		{Status: models.DeviceOffline},
		{Status: models.DeviceMaintenance, BatteryLevel: f(19.9)},
		{Status: models.DeviceError},
	}
	assert.Equal(t, DeviceStats{Total: 5, Online: 2, Offline: 1, Maintenance: 1, Error: 1, LowBattery: 2}, SummarizeDevices(devices))
	assert.Equal(t, DeviceStats{}, SummarizeDevices(nil))
}

func TestSummarizeAlerts(t *testing.T) {
	alerts := []models.Alert{
		{Status: models.AlertActive, Severity: models.SeverityCritical},
		{Status: models.AlertAcknowledged, Severity: models.SeverityCritical},
		{Status: models.AlertResolved, Severity: models.SeverityCritical},
		{Status: models.AlertActive, Severity: models.SeverityLow},
	}
	assert.Equal(t, AlertStats{Active: 3, Critical: 2}, SummarizeAlerts(alerts))
}

func TestCountActiveCrops(t *testing.T) {
	crops := []models.Crop{{Status: models.CropActive}, {Status: models.CropHarvested}, {Status: models.CropActive}}
	assert.Equal(t, 2, CountActiveCrops(crops))
}

func TestAverageReadings(t *testing.T) {
	devices := []models.Device{
		{LastReading: lastReading(t, models.ReadingPayload{SoilMoisture: f(40), Temperature: f(20)})},
		{LastReading: lastReading(t, models.ReadingPayload{SoilMoisture: f(45), Temperature: f(21)})},
		{LastReading: lastReading(t, models.ReadingPayload{SoilMoisture: f(50.33)})},
		{},
		{LastReading: datatypes.JSON("not json")},
	}
	avg := AverageReadings(devices)
	require.NotNil(t, avg.SoilMoisture)
	require.NotNil(t, avg.Temperature)
	assert.Equal(t, 45.1, *avg.SoilMoisture)
	assert.Equal(t, 20.5, *avg.Temperature)
	assert.Nil(t, avg.Humidity)
}

func TestRound1(t *testing.T) {
	assert.Equal(t, 1.2, Round1(1.24))
	assert.Equal(t, 1.3, Round1(1.25))
	assert.Equal(t, -0.5, Round1(-0.46))
}

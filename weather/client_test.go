package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleResponse = `{
  "latitude": 3.14, "longitude": 101.69, "timezone": "Asia/Kuala_Lumpur",
  "current": {"time": "2026-05-04T10:00", "temperature_2m": 31.2, "relative_humidity_2m": 70,
              "precipitation": 0.4, "weather_code": 61, "wind_speed_10m": 8.5},
  "daily": {
    "time": ["2026-05-04", "2026-05-05"],
    "weather_code": [61, 2],
    "temperature_2m_max": [33, 32],
    "temperature_2m_min": [24, 23.5],
    "precipitation_sum": [6.1, 0],
    "precipitation_probability_max": [80, null]
  }
}`

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	ttl  time.Duration
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[key]
	return b, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.ttl = ttl
	return nil
}

func newServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	calls := new(atomic.Int32)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/v1/forecast", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "3.1400", q.Get("latitude"))
		assert.Equal(t, "7", q.Get("forecast_days"))
		assert.Contains(t, q.Get("daily"), "precipitation_probability_max")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, calls
}

func TestForecast(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, sampleResponse)
	c := NewClient(srv.URL, nil, 0)

	f, err := c.Forecast(context.Background(), 3.14, 101.69)
	require.NoError(t, err)
	assert.Equal(t, 31.2, f.Current.Temperature)
	assert.Equal(t, "Slight rain", f.Current.Condition.Description)
	require.Len(t, f.Daily, 2)
	assert.Equal(t, 80.0, f.Daily[0].PrecipitationProbability)
	assert.Equal(t, 0.0, f.Daily[1].PrecipitationProbability)
	assert.Equal(t, "Partly cloudy", f.Daily[1].Condition.Description)
	assert.True(t, f.Daily[0].Rain)
	assert.False(t, f.Daily[1].Rain)
	assert.True(t, f.RainExpectedToday(60))
	assert.False(t, f.Cached)
}

func TestForecastCachesByRoundedCoordinates(t *testing.T) {
	srv, calls := newServer(t, http.StatusOK, sampleResponse)
	cache := &memCache{data: map[string][]byte{}}
	c := NewClient(srv.URL, cache, 15*time.Minute)

	_, err := c.Forecast(context.Background(), 3.14, 101.69)
	require.NoError(t, err)
	f, err := c.Forecast(context.Background(), 3.1401, 101.6899)
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, f.Cached)
	assert.Equal(t, 15*time.Minute, cache.ttl)
	assert.Contains(t, cache.data, "weather:3.14:101.69")
}

func TestForecastUpstreamError(t *testing.T) {
	srv, _ := newServer(t, http.StatusBadGateway, `{"error":true}`)
	c := NewClient(srv.URL, nil, 0)

	_, err := c.Forecast(context.Background(), 3.14, 101.69)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestForecastRejectsBadCoordinates(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", nil, 0)
	_, err := c.Forecast(context.Background(), 91, 0)
	assert.Error(t, err)
	_, err = c.Forecast(context.Background(), 0, -181)
	assert.Error(t, err)
}

func TestRainExpectedToday(t *testing.T) {
	tests := []struct {
		name string
		day  *Day
		want bool
	}{
		{"no days", nil, false},
		{"below threshold", &Day{PrecipitationProbability: 59}, false},
		{"at threshold", &Day{PrecipitationProbability: 60}, true},
		{"above threshold", &Day{PrecipitationProbability: 61}, true},
		{"rain code with low probability", &Day{WeatherCode: 61, PrecipitationSum: 2, PrecipitationProbability: 20}, false},
		{"clear sky with high probability", &Day{WeatherCode: 0, PrecipitationProbability: 80}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &Forecast{}
			if tt.day != nil {
				f.Daily = []Day{*tt.day}
			}
			assert.Equal(t, tt.want, f.RainExpectedToday(60))
		})
	}
}

func TestDescribe(t *testing.T) {
	tests := map[int]string{
		0:  "Clear sky",
		3:  "Overcast",
		45: "Fog",
		56: "Light freezing drizzle",
		77: "Snow grains",
		82: "Violent rain showers",
		95: "Thunderstorm",
		99: "Thunderstorm with heavy hail",
		42: "Unknown",
	}
	for code, want := range tests {
		assert.Equal(t, want, Describe(code).Description, code)
	}
}

func TestIsRain(t *testing.T) {
	for _, code := range []int{51, 55, 61, 67, 80, 82, 95, 96, 99} {
		assert.True(t, IsRain(code), code)
	}
	for _, code := range []int{0, 3, 45, 71, 77, 85, 97, 98, 100, 120} {
		assert.False(t, IsRain(code), code)
	}
}

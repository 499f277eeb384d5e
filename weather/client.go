// Package weather fetches forecasts from the Open-Meteo API.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const DefaultBaseURL = "https://api.open-meteo.com"

// Cache stores raw forecast responses; implementations may be nil-safe no-ops.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Client is an HTTP client for the Open-Meteo forecast API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Cache      Cache
	CacheTTL   time.Duration
}

// NewClient creates a new Open-Meteo client. cache may be nil.
func NewClient(baseURL string, cache Cache, ttl time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		Cache:    cache,
		CacheTTL: ttl,
	}
}

type Current struct {
	Time        string    `json:"time"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	Precip      float64   `json:"precipitation"`
	WindSpeed   float64   `json:"wind_speed"`
	WeatherCode int       `json:"weather_code"`
	Condition   Condition `json:"condition"`
}

type Day struct {
	Date                     string    `json:"date"`
	WeatherCode              int       `json:"weather_code"`
	TempMax                  float64   `json:"temp_max"`
	TempMin                  float64   `json:"temp_min"`
	PrecipitationSum         float64   `json:"precipitation_sum"`
	PrecipitationProbability float64   `json:"precipitation_probability"`
	Rain                     bool      `json:"rain"`
	Condition                Condition `json:"condition"`
}

type Forecast struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone"`
	Current   Current `json:"current"`
	Daily     []Day   `json:"daily"`
	Cached    bool    `json:"cached"`
}

// apiResponse mirrors the subset of the Open-Meteo payload that is requested.
type apiResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone"`
	Current   struct {
		Time             string  `json:"time"`
		Temperature2m    float64 `json:"temperature_2m"`
		RelativeHumidity float64 `json:"relative_humidity_2m"`
		Precipitation    float64 `json:"precipitation"`
		WeatherCode      int     `json:"weather_code"`
		WindSpeed10m     float64 `json:"wind_speed_10m"`
	} `json:"current"`
	Daily struct {
		Time                        []string   `json:"time"`
		WeatherCode                 []int      `json:"weather_code"`
		Temperature2mMax            []float64  `json:"temperature_2m_max"`
		Temperature2mMin            []float64  `json:"temperature_2m_min"`
		PrecipitationSum            []float64  `json:"precipitation_sum"`
		PrecipitationProbabilityMax []*float64 `json:"precipitation_probability_max"`
	} `json:"daily"`
}

// ValidCoordinates reports whether lat/lon are on the globe.
func ValidCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180 &&
		!math.IsNaN(lat) && !math.IsNaN(lon)
}

// CacheKey rounds coordinates to two decimals (~1 km) so nearby zones share entries.
func CacheKey(lat, lon float64) string {
	return fmt.Sprintf("weather:%.2f:%.2f", lat, lon)
}

// Forecast returns current conditions and a 7-day daily forecast.
func (c *Client) Forecast(ctx context.Context, lat, lon float64) (*Forecast, error) {
	if !ValidCoordinates(lat, lon) {
		return nil, fmt.Errorf("invalid coordinates %f,%f", lat, lon)
	}

	key := CacheKey(lat, lon)
	if c.Cache != nil {
		if body, ok, err := c.Cache.Get(ctx, key); err != nil {
			slog.Warn("weather cache get", "key", key, "err", err)
		} else if ok {
			f, err := parseForecast(body)
			if err == nil {
				f.Cached = true
				return f, nil
			}
		}
	}

	body, err := c.fetch(ctx, lat, lon)
	if err != nil {
		return nil, err
	}
	f, err := parseForecast(body)
	if err != nil {
		return nil, err
	}

	if c.Cache != nil {
		if err := c.Cache.Set(ctx, key, body, c.CacheTTL); err != nil {
			slog.Warn("weather cache set", "key", key, "err", err)
		}
	}
	return f, nil
}

func (c *Client) fetch(ctx context.Context, lat, lon float64) ([]byte, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', 4, 64))
	q.Set("current", "temperature_2m,relative_humidity_2m,precipitation,weather_code,wind_speed_10m")
	q.Set("daily", "weather_code,temperature_2m_max,temperature_2m_min,precipitation_sum,precipitation_probability_max")
	q.Set("timezone", "auto")
	q.Set("forecast_days", "7")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/v1/forecast?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create forecast request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("forecast request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read forecast response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("forecast failed with status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

func parseForecast(body []byte) (*Forecast, error) {
	var raw apiResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse forecast: %w", err)
	}

	f := &Forecast{
		Latitude:  raw.Latitude,
		Longitude: raw.Longitude,
		Timezone:  raw.Timezone,
		Current: Current{
			Time:        raw.Current.Time,
			Temperature: raw.Current.Temperature2m,
			Humidity:    raw.Current.RelativeHumidity,
			Precip:      raw.Current.Precipitation,
			WindSpeed:   raw.Current.WindSpeed10m,
			WeatherCode: raw.Current.WeatherCode,
			Condition:   Describe(raw.Current.WeatherCode),
		},
	}

	d := raw.Daily
	for i, date := range d.Time {
		day := Day{Date: date}
		if i < len(d.WeatherCode) {
			day.WeatherCode = d.WeatherCode[i]
		}
		if i < len(d.Temperature2mMax) {
			day.TempMax = d.Temperature2mMax[i]
		}
		if i < len(d.Temperature2mMin) {
			day.TempMin = d.Temperature2mMin[i]
		}
		if i < len(d.PrecipitationSum) {
			day.PrecipitationSum = d.PrecipitationSum[i]
		}
		if i < len(d.PrecipitationProbabilityMax) && d.PrecipitationProbabilityMax[i] != nil {
			day.PrecipitationProbability = *d.PrecipitationProbabilityMax[i]
		}
		day.Condition = Describe(day.WeatherCode)
		day.Rain = IsRain(day.WeatherCode)
		f.Daily = append(f.Daily, day)
	}
	return f, nil
}

// RainExpectedToday reports whether today's forecast meets the probability threshold.
func (f *Forecast) RainExpectedToday(threshold float64) bool {
	if len(f.Daily) == 0 {
		return false
	}
	return f.Daily[0].PrecipitationProbability >= threshold
}

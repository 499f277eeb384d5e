package controllers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/RikyDRC/agro-sense-control-hub-sub001/config"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/models"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/weather"
	"github.com/gin-gonic/gin"
)

// GetWeather returns the forecast for ?lat&lon or for the location of ?zone_id.
func GetWeather(c *gin.Context) {
	if deps.Weather == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Weather service is not configured"})
		return
	}

	var lat, lon float64
	if zoneID := c.Query("zone_id"); zoneID != "" {
		var zone models.Zone
		if err := scoped(c, config.DB).First(&zone, "id = ?", zoneID).Error; err != nil {
			dbError(c, err, "zone")
			return
		}
		if zone.Latitude == nil || zone.Longitude == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Zone has no location"})
			return
		}
		lat, lon = *zone.Latitude, *zone.Longitude
	} else {
		var err1, err2 error
		lat, err1 = strconv.ParseFloat(c.Query("lat"), 64)
		lon, err2 = strconv.ParseFloat(c.Query("lon"), 64)
		if err1 != nil || err2 != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lon, or zone_id, are required"})
			return
		}
	}
	if !weather.ValidCoordinates(lat, lon) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid coordinates"})
		return
	}

	forecast, err := deps.Weather.Forecast(c.Request.Context(), lat, lon)
	if err != nil {
		slog.Error("weather forecast", "lat", lat, "lon", lon, "err", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch weather"})
		return
	}
	c.JSON(http.StatusOK, forecast)
}

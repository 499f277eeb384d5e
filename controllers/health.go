package controllers

import (
	"net/http"

	"github.com/RikyDRC/agro-sense-control-hub-sub001/config"
	"github.com/gin-gonic/gin"
)

// Health reports whether the database answers.
func Health(c *gin.Context) {
	sqlDB, err := config.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

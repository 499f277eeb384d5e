package middlewares

import (
	"net/http"

	"github.com/RikyDRC/agro-sense-control-hub-sub001/config"
	"github.com/gin-gonic/gin"
)

// MaintenanceGuard rejects writes from non-admin users while the platform
// is in maintenance mode.
func MaintenanceGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}
		if !config.IsMaintenanceMode() {
			c.Next()
			return
		}
		if p := CurrentProfile(c); p != nil && p.IsAdmin() {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "The platform is under maintenance, please try again later"})
	}
}

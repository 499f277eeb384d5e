package middlewares

import (
	"log/slog"
	"net/http"

	"github.com/RikyDRC/agro-sense-control-hub-sub001/config"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/utils"
	"github.com/gin-gonic/gin"
)

// RequireFeature blocks the route unless the caller's plan includes feature.
func RequireFeature(feature string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := CurrentProfile(c)
		if p == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		plan, limits, err := utils.ResolvePlan(config.DB, p)
		if err != nil {
			slog.Error("resolve plan", "user_id", p.ID, "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve plan"})
			return
		}
		if !limits.HasFeature(feature) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "Your plan does not include this feature",
				"feature": feature,
				"plan":    plan.Slug,
			})
			return
		}
		c.Set("limits", limits)
		c.Next()
	}
}

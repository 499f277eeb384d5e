package middlewares

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/RikyDRC/agro-sense-control-hub-sub001/config"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/models"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

// LoadProfile loads the caller's profile into the context. Users signed in
// through the external provider get a farmer profile on first request.
func LoadProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := UserID(c)
		var profile models.Profile
		err := config.DB.First(&profile, "id = ?", userID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) && c.GetBool("external_token") {
			err = provision(c, &profile)
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			return
		}
		if err != nil {
			slog.Error("load profile", "user_id", userID, "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to load profile"})
			return
		}
		c.Set("profile", &profile)
		c.Next()
	}
}

func provision(c *gin.Context, profile *models.Profile) error {
	claims, _ := c.Get("claims")
	mc, _ := claims.(jwt.MapClaims)
	email, _ := mc["email"].(string)
	if email == "" {
		return gorm.ErrRecordNotFound
	}
	name, _ := mc["name"].(string)

	*profile = models.Profile{
		Email:              strings.ToLower(email),
		FullName:           name,
		Role:               models.RoleFarmer,
		SubscriptionTier:   models.PlanFree,
		SubscriptionStatus: models.SubscriptionInactive,
	}
	profile.ID = UserID(c)
	if err := config.DB.Create(profile).Error; err != nil {
		return err
	}
	slog.Info("provisioned profile", "user_id", profile.ID, "email", profile.Email)
	return nil
}

// CurrentProfile returns the profile set by LoadProfile.
func CurrentProfile(c *gin.Context) *models.Profile {
	v, _ := c.Get("profile")
	p, _ := v.(*models.Profile)
	return p
}

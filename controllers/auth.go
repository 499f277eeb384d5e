package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/RikyDRC/agro-sense-control-hub-sub001/config"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/middlewares"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/models"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/utils"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Signup registers a new farmer account.
func Signup(c *gin.Context) {
	if !config.IsSignupEnabled() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Sign-ups are currently disabled"})
		return
	}

	var req models.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	// Hash the password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error hashing password"})
		return
	}

	profile := models.Profile{
		Email:              strings.ToLower(strings.TrimSpace(req.Email)),
		FullName:           strings.TrimSpace(req.FullName),
		PasswordHash:       string(hashedPassword),
		Role:               models.RoleFarmer,
		SubscriptionTier:   models.PlanFree,
		SubscriptionStatus: models.SubscriptionInactive,
	}
	if err := config.DB.Create(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "User already exists"})
			return
		}
		dbError(c, err, "profile")
		return
	}

	token, err := middlewares.IssueToken(profile.ID, profile.Email, profile.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error generating token"})
		return
	}
	slog.Info("user signed up", "user_id", profile.ID)
	c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully", "token": token, "profile": profile})
}

// Login authenticates a user and returns a JWT token.
func Login(c *gin.Context) {
	var input models.LoginRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var profile models.Profile
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if err := config.DB.Where("email = ?", email).First(&profile).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	if profile.PasswordHash == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(input.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := middlewares.IssueToken(profile.ID, profile.Email, profile.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error generating token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "profile": profile})
}

// Me returns the caller's profile with the plan and limits in force.
func Me(c *gin.Context) {
	p := middlewares.CurrentProfile(c)
	plan, limits, err := utils.ResolvePlan(config.DB, p)
	if err != nil {
		dbError(c, err, "plan")
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": p, "plan": plan, "limits": limits})
}

// UpdateUserRole changes a user's role. Super admins cannot demote
// themselves.
func UpdateUserRole(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Role string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || !models.IsValidRole(req.Role) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role"})
		return
	}

	current := middlewares.CurrentProfile(c)
	if current.ID == id && req.Role != current.Role {
		c.JSON(http.StatusBadRequest, gin.H{"error": "You cannot change your own role"})
		return
	}

	result := config.DB.Model(&models.Profile{}).Where("id = ?", id).Update("role", req.Role)
	if result.Error != nil {
		dbError(c, result.Error, "profile")
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}
	slog.Info("role updated", "user_id", id, "role", req.Role, "by", current.ID)
	c.JSON(http.StatusOK, gin.H{"message": "Role updated successfully", "role": req.Role})
}

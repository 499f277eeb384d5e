package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/RikyDRC/agro-sense-control-hub-sub001/config"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/models"
	"github.com/gin-gonic/gin"
)

// SubmitContact stores a message from the public contact form.
func SubmitContact(c *gin.Context) {
	var in models.ContactRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name, a valid email and a message are required"})
		return
	}
	sub := models.ContactSubmission{
		Name:    strings.TrimSpace(in.Name),
		Email:   strings.ToLower(strings.TrimSpace(in.Email)),
		Company: in.Company,
		Phone:   in.Phone,
		Subject: in.Subject,
		Message: in.Message,
		Status:  models.ContactNew,
	}
	if err := config.DB.Create(&sub).Error; err != nil {
		dbError(c, err, "contact submission")
		return
	}
	slog.Info("contact submission", "id", sub.ID, "email", sub.Email)
	c.JSON(http.StatusCreated, gin.H{"message": "Thanks, we will get back to you soon", "id": sub.ID})
}

// ListContactSubmissions is the admin inbox, filterable by ?status=.
func ListContactSubmissions(c *gin.Context) {
	q := config.DB.Model(&models.ContactSubmission{})
	if s := c.Query("status"); s != "" {
		q = q.Where("status = ?", s)
	}
	var subs []models.ContactSubmission
	paginate(c, q.Order("created_at DESC"), &subs, "contact submission")
}

type contactStatusInput struct {
	Status string `json:"status" binding:"required"`
}

func UpdateContactStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in contactStatusInput
	if err := c.ShouldBindJSON(&in); err != nil || !models.IsValidContactStatus(in.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be new, read, replied or archived"})
		return
	}
	var sub models.ContactSubmission
	if err := config.DB.First(&sub, "id = ?", id).Error; err != nil {
		dbError(c, err, "contact submission")
		return
	}
	if err := config.DB.Model(&sub).Update("status", in.Status).Error; err != nil {
		dbError(c, err, "contact submission")
		return
	}
	sub.Status = in.Status
	c.JSON(http.StatusOK, sub)
}

func DeleteContactSubmission(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	res := config.DB.Delete(&models.ContactSubmission{}, "id = ?", id)
	if res.Error != nil {
		dbError(c, res.Error, "contact submission")
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "contact submission not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/RikyDRC/agro-sense-control-hub-sub001/billing"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/config"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/middlewares"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/models"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/notifications"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListPlans returns the active plans, cheapest first.
func ListPlans(c *gin.Context) {
	var plans []models.SubscriptionPlan
	if err := config.DB.Where("is_active = ?", true).Order("sort_order").Find(&plans).Error; err != nil {
		dbError(c, err, "plan")
		return
	}
	c.JSON(http.StatusOK, plans)
}

// GetSubscriptionLimits reports the caller's plan, its limits and current usage.
func GetSubscriptionLimits(c *gin.Context) {
	p := middlewares.CurrentProfile(c)
	plan, limits, err := utils.ResolvePlan(config.DB, p)
	if err != nil {
		dbError(c, err, "plan")
		return
	}
	usage, err := utils.Usage(config.DB, p.ID)
	if err != nil {
		dbError(c, err, "usage")
		return
	}
	c.JSON(http.StatusOK, gin.H{"plan": plan, "limits": limits, "usage": usage})
}

type subscriptionRequestInput struct {
	PlanID          uuid.UUID `json:"plan_id" binding:"required"`
	BillingInterval string    `json:"billing_interval"`
	Message         string    `json:"message" binding:"max=2000"`
}

// CreateSubscriptionRequest asks an admin to activate a plan manually.
func CreateSubscriptionRequest(c *gin.Context) {
	var in subscriptionRequestInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	if in.BillingInterval == "" {
		in.BillingInterval = models.IntervalMonthly
	}
	if in.BillingInterval != models.IntervalMonthly && in.BillingInterval != models.IntervalYearly {
		c.JSON(http.StatusBadRequest, gin.H{"error": "billing_interval must be monthly or yearly"})
		return
	}

	var plan models.SubscriptionPlan
	if err := config.DB.Where("id = ? AND is_active = ?", in.PlanID, true).First(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Plan not found"})
			return
		}
		dbError(c, err, "plan")
		return
	}

	p := middlewares.CurrentProfile(c)
	var pending int64
	if err := config.DB.Model(&models.SubscriptionRequest{}).
		Where("user_id = ? AND status = ?", p.ID, models.RequestPending).Count(&pending).Error; err != nil {
		dbError(c, err, "subscription request")
		return
	}
	if pending > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "You already have a pending request"})
		return
	}

	req := models.SubscriptionRequest{
		UserID:          p.ID,
		PlanID:          plan.ID,
		BillingInterval: in.BillingInterval,
		Message:         in.Message,
		Status:          models.RequestPending,
	}
	if err := config.DB.Create(&req).Error; err != nil {
		dbError(c, err, "subscription request")
		return
	}
	req.Plan = &plan
	c.JSON(http.StatusCreated, req)
}

// ListMySubscriptionRequests returns the caller's own requests.
func ListMySubscriptionRequests(c *gin.Context) {
	p := middlewares.CurrentProfile(c)
	var reqs []models.SubscriptionRequest
	if err := config.DB.Preload("Plan").Where("user_id = ?", p.ID).
		Order("created_at DESC").Find(&reqs).Error; err != nil {
		dbError(c, err, "subscription request")
		return
	}
	c.JSON(http.StatusOK, reqs)
}

// ListSubscriptionRequests is the admin queue, filterable by ?status=.
func ListSubscriptionRequests(c *gin.Context) {
	q := config.DB.Model(&models.SubscriptionRequest{}).Preload("Plan").Preload("Profile")
	if s := c.Query("status"); s != "" {
		q = q.Where("status = ?", s)
	}
	var reqs []models.SubscriptionRequest
	paginate(c, q.Order("created_at DESC"), &reqs, "subscription request")
}

// reviewInput is optional; an empty body means no notes.
type reviewInput struct {
	AdminNotes string `json:"admin_notes"`
}

// loadPendingRequest loads the :id request with its plan and requester.
func loadPendingRequest(c *gin.Context) (*models.SubscriptionRequest, bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return nil, false
	}
	var req models.SubscriptionRequest
	if err := config.DB.Preload("Plan").Preload("Profile").First(&req, "id = ?", id).Error; err != nil {
		dbError(c, err, "subscription request")
		return nil, false
	}
	if req.Status != models.RequestPending {
		c.JSON(http.StatusConflict, gin.H{"error": "Request was already reviewed"})
		return nil, false
	}
	if req.Plan == nil || req.Profile == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Plan or requester no longer exists"})
		return nil, false
	}
	return &req, true
}

var errAlreadyReviewed = errors.New("subscription request was already reviewed")

// markReviewed moves a pending request to status. It fails with
// errAlreadyReviewed when another reviewer got there first.
func markReviewed(tx *gorm.DB, req *models.SubscriptionRequest, reviewer uuid.UUID, status, notes string, now time.Time) error {
	res := tx.Model(&models.SubscriptionRequest{}).
		Where("id = ? AND status = ?", req.ID, models.RequestPending).
		Updates(map[string]interface{}{
			"status":      status,
			"admin_notes": notes,
			"reviewed_by": reviewer,
			"reviewed_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return errAlreadyReviewed
	}
	req.Status = status
	req.AdminNotes = notes
	req.ReviewedBy = &reviewer
	req.ReviewedAt = &now
	return nil
}

// approveRequest closes the request and grants its plan in one transaction.
func approveRequest(db *gorm.DB, req *models.SubscriptionRequest, reviewer uuid.UUID, notes string, now time.Time) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := markReviewed(tx, req, reviewer, models.RequestApproved, notes, now); err != nil {
			return err
		}
		return billing.Grant(tx, req.Profile, req.Plan, req.BillingInterval, now)
	})
}

func reviewError(c *gin.Context, err error) {
	if errors.Is(err, errAlreadyReviewed) {
		c.JSON(http.StatusConflict, gin.H{"error": "Request was already reviewed"})
		return
	}
	dbError(c, err, "subscription request")
}

// ApproveSubscriptionRequest grants the requested plan and notifies the requester.
func ApproveSubscriptionRequest(c *gin.Context) {
	req, ok := loadPendingRequest(c)
	if !ok {
		return
	}
	var in reviewInput
	_ = c.ShouldBindJSON(&in)

	reviewer := middlewares.CurrentProfile(c).ID
	if err := approveRequest(config.DB, req, reviewer, in.AdminNotes, time.Now()); err != nil {
		reviewError(c, err)
		return
	}

	if err := notifications.Send(config.DB, deps.Hub, &models.Notification{
		UserID:  req.UserID,
		Title:   "Subscription approved",
		Message: "Your " + req.Plan.Name + " plan is now active.",
		Type:    models.NotificationSuccess,
		Link:    "/subscription",
	}); err != nil {
		slog.Warn("notify approved request", "request_id", req.ID, "err", err)
	}
	slog.Info("subscription request approved", "request_id", req.ID, "user_id", req.UserID, "plan", req.Plan.Slug)
	c.JSON(http.StatusOK, req)
}

// RejectSubscriptionRequest closes the request with the admin's notes.
func RejectSubscriptionRequest(c *gin.Context) {
	req, ok := loadPendingRequest(c)
	if !ok {
		return
	}
	var in reviewInput
	_ = c.ShouldBindJSON(&in)
	reviewer := middlewares.CurrentProfile(c).ID
	if err := markReviewed(config.DB, req, reviewer, models.RequestRejected, in.AdminNotes, time.Now()); err != nil {
		reviewError(c, err)
		return
	}

	msg := "Your request for the " + req.Plan.Name + " plan was declined."
	if in.AdminNotes != "" {
		msg += " " + in.AdminNotes
	}
	if err := notifications.Send(config.DB, deps.Hub, &models.Notification{
		UserID:  req.UserID,
		Title:   "Subscription request declined",
		Message: msg,
		Type:    models.NotificationWarning,
		Link:    "/subscription",
	}); err != nil {
		slog.Warn("notify rejected request", "request_id", req.ID, "err", err)
	}
	c.JSON(http.StatusOK, req)
}

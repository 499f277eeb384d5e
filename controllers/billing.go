package controllers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/RikyDRC/agro-sense-control-hub-sub001/billing"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/middlewares"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/models"
	"github.com/gin-gonic/gin"
)

const maxWebhookBytes = 64 << 10

func billingReady(c *gin.Context) bool {
	if deps.Billing == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Billing is not configured"})
		return false
	}
	return true
}

func billingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, billing.ErrNoCustomer):
		c.JSON(http.StatusNotFound, gin.H{"error": "No billing account found"})
	case errors.Is(err, billing.ErrUnknownPlan), errors.Is(err, billing.ErrPlanNotPaid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		slog.Error("billing", "path", c.FullPath(), "err", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Billing provider error"})
	}
}

// CheckSubscription syncs the caller's subscription from Stripe.
func CheckSubscription(c *gin.Context) {
	if !billingReady(c) {
		return
	}
	status, err := deps.Billing.CheckSubscription(c.Request.Context(), middlewares.CurrentProfile(c))
	if err != nil {
		billingError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// CustomerPortal returns a billing portal URL.
func CustomerPortal(c *gin.Context) {
	if !billingReady(c) {
		return
	}
	url, err := deps.Billing.PortalURL(c.Request.Context(), middlewares.CurrentProfile(c))
	if err != nil {
		billingError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

type checkoutInput struct {
	Plan     string `json:"plan" binding:"required"`
	Interval string `json:"interval"`
}

// CreateCheckout returns a checkout URL for the requested plan.
func CreateCheckout(c *gin.Context) {
	if !billingReady(c) {
		return
	}
	var in checkoutInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	if in.Interval == "" {
		in.Interval = models.IntervalMonthly
	}
	if in.Interval != models.IntervalMonthly && in.Interval != models.IntervalYearly {
		c.JSON(http.StatusBadRequest, gin.H{"error": "interval must be monthly or yearly"})
		return
	}

	url, err := deps.Billing.CheckoutURL(c.Request.Context(), middlewares.CurrentProfile(c), in.Plan, in.Interval)
	if err != nil {
		billingError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// StripeWebhook receives subscription events from Stripe.
func StripeWebhook(c *gin.Context) {
	if !billingReady(c) {
		return
	}
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
		return
	}

	err = deps.Billing.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if errors.Is(err, billing.ErrBadSignature) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
		return
	}
	if err != nil {
		slog.Error("billing webhook", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process event"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

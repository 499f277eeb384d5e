package router

import (
	"context"
	"net/http"
	"time"

	"github.com/RikyDRC/agro-sense-control-hub-sub001/config"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/controllers"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/middlewares"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/models"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const loginRateLimit = 10

// Setup builds the engine. Background work started for it ends with ctx.
func Setup(ctx context.Context) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middlewares.RequestLogger())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     config.C.CORSAllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "Stripe-Signature"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
	})

	limiter := middlewares.NewRateLimiter(ctx)

	r.GET("/healthz", controllers.Health)

	api := r.Group("/api")

	// Public routes
	api.POST("/auth/signup", middlewares.RateLimitByIP(limiter, "signup", loginRateLimit), controllers.Signup)
	api.POST("/auth/login", middlewares.RateLimitByIP(limiter, "login", loginRateLimit), controllers.Login)
	api.GET("/plans", controllers.ListPlans)
	api.GET("/platform/public", controllers.GetPublicConfig)
	api.POST("/contact", middlewares.RateLimitByIP(limiter, "contact", config.C.ContactRateLimit), controllers.SubmitContact)
	api.POST("/billing/webhook", controllers.StripeWebhook)

	// Protected routes using auth middleware
	auth := api.Group("")
	auth.Use(middlewares.AuthMiddleware(), middlewares.LoadProfile(), middlewares.MaintenanceGuard())

	auth.GET("/ws", controllers.HandleWebSocket)
	auth.GET("/auth/me", controllers.Me)
	auth.GET("/profile", controllers.GetProfile)
	auth.PUT("/profile", controllers.UpdateProfile)
	auth.POST("/profile/avatar", controllers.UploadAvatar)
	auth.GET("/dashboard/stats", controllers.GetDashboardStats)
	auth.GET("/subscription/limits", controllers.GetSubscriptionLimits)

	zones := auth.Group("/zones")
	{
		zones.GET("", controllers.ListZones)
		zones.POST("", controllers.CreateZone)
		zones.GET("/:id", controllers.GetZone)
		zones.PUT("/:id", controllers.UpdateZone)
		zones.DELETE("/:id", controllers.DeleteZone)
		zones.GET("/:id/devices", controllers.ListZoneDevices)
		zones.GET("/:id/crops", controllers.ListZoneCrops)
	}

	devices := auth.Group("/devices")
	{
		devices.GET("", controllers.ListDevices)
		devices.POST("", controllers.CreateDevice)
		devices.GET("/:id", controllers.GetDevice)
		devices.PUT("/:id", controllers.UpdateDevice)
		devices.DELETE("/:id", controllers.DeleteDevice)
		devices.PUT("/:id/location", controllers.UpdateDeviceLocation)
		devices.GET("/:id/readings", controllers.ListDeviceReadings)
		devices.POST("/:id/readings", controllers.IngestReading)
		devices.POST("/:id/command", controllers.SendDeviceCommand)
	}

	readings := auth.Group("/readings")
	{
		readings.GET("/export", middlewares.RequireFeature(models.FeatureDataExport), controllers.ExportReadingsCSV)
		readings.GET("/abnormal/count", controllers.GetAbnormalCount)
		readings.GET("/abnormal", controllers.GetAbnormalHistory)
		readings.DELETE("/:id", controllers.DeleteReading)
	}

	crops := auth.Group("/crops")
	{
		crops.GET("", controllers.ListCrops)
		crops.POST("", controllers.CreateCrop)
		crops.GET("/:id", controllers.GetCrop)
		crops.PUT("/:id", controllers.UpdateCrop)
		crops.DELETE("/:id", controllers.DeleteCrop)
		crops.POST("/:id/image", controllers.UploadCropImage)
	}

	schedules := auth.Group("/irrigation-schedules", middlewares.RequireFeature(models.FeatureIrrigationSchedules))
	{
		schedules.GET("", controllers.ListSchedules)
		schedules.POST("", controllers.CreateSchedule)
		schedules.GET("/:id", controllers.GetSchedule)
		schedules.PUT("/:id", controllers.UpdateSchedule)
		schedules.DELETE("/:id", controllers.DeleteSchedule)
	}
	auth.GET("/irrigation-logs", controllers.ListIrrigationLogs)

	rules := auth.Group("/automation-rules", middlewares.RequireFeature(models.FeatureAutomation))
	{
		rules.GET("", controllers.ListRules)
		rules.POST("", controllers.CreateRule)
		rules.GET("/:id", controllers.GetRule)
		rules.PUT("/:id", controllers.UpdateRule)
		rules.DELETE("/:id", controllers.DeleteRule)
	}

	alerts := auth.Group("/alerts")
	{
		alerts.GET("", controllers.ListAlerts)
		alerts.POST("/:id/acknowledge", controllers.AcknowledgeAlert)
		alerts.POST("/:id/resolve", controllers.ResolveAlert)
		alerts.DELETE("/:id", controllers.DeleteAlert)
	}

	notifications := auth.Group("/notifications")
	{
		notifications.GET("", controllers.ListNotifications)
		notifications.GET("/unread-count", controllers.UnreadNotificationCount)
		notifications.POST("/read-all", controllers.MarkAllNotificationsRead)
		notifications.POST("/:id/read", controllers.MarkNotificationRead)
		notifications.DELETE("/:id", controllers.DeleteNotification)
	}

	auth.GET("/weather", middlewares.RequireFeature(models.FeatureWeather), controllers.GetWeather)

	billing := auth.Group("/billing")
	{
		billing.POST("/check-subscription", controllers.CheckSubscription)
		billing.POST("/portal", controllers.CustomerPortal)
		billing.POST("/checkout", controllers.CreateCheckout)
	}

	auth.POST("/subscription-requests", controllers.CreateSubscriptionRequest)
	auth.GET("/subscription-requests", controllers.ListMySubscriptionRequests)

	admin := auth.Group("/admin", middlewares.RequireRole(models.RoleAdmin))
	{
		admin.GET("/users", controllers.ListUsers)
		admin.DELETE("/users/:id", controllers.DeleteUser)
		admin.POST("/users/:id/role", middlewares.RequireRole(models.RoleSuperAdmin), controllers.UpdateUserRole)
		admin.GET("/stats", controllers.GetAdminStats)

		admin.GET("/subscription-requests", controllers.ListSubscriptionRequests)
		admin.POST("/subscription-requests/:id/approve", controllers.ApproveSubscriptionRequest)
		admin.POST("/subscription-requests/:id/reject", controllers.RejectSubscriptionRequest)

		admin.POST("/broadcasts", controllers.SendBroadcast)
		admin.GET("/broadcasts", controllers.ListBroadcasts)

		admin.GET("/platform-config", controllers.ListPlatformConfig)
		admin.PUT("/platform-config/:key", controllers.UpdatePlatformConfig)

		admin.GET("/contact", controllers.ListContactSubmissions)
		admin.PUT("/contact/:id", controllers.UpdateContactStatus)
		admin.DELETE("/contact/:id", controllers.DeleteContactSubmission)

		admin.DELETE("/readings", controllers.PurgeReadings)
	}

	return r
}

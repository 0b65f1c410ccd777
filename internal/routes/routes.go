package routes

import (
	"hercules_backend/internal/handlers"
	"hercules_backend/internal/middleware"
	billingsvc "hercules_backend/internal/services/billing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth    *handlers.AuthHandler
	User    *handlers.UserHandler
	Food    *handlers.FoodHandler
	Billing *handlers.BillingHandler
	Webhook *handlers.WebhookHandler
}

// Register wires the HTTP surface. Route groups decide who passes the
// billing gate: auth, webhooks and the billing routes stay reachable for
// blocked accounts, everything else does not.
func Register(r *gin.Engine, db *gorm.DB, h *Handlers, store billingsvc.Store) {
	r.Use(middleware.RequestID(), middleware.Logging(), middleware.Database(db), gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", h.Auth.Register)
		authGroup.POST("/login", h.Auth.Login)
	}

	// Gateway callbacks authenticate by signature, not by token.
	api.POST("/webhooks/stripe", h.Webhook.HandleStripe)

	billingGroup := api.Group("/billing", middleware.Auth())
	{
		billingGroup.GET("/status", h.Billing.Status)
		billingGroup.POST("/retry", h.Billing.Retry)
	}

	app := api.Group("", middleware.Auth(), middleware.BillingGate(store))
	{
		app.GET("/users/me", h.User.GetProfile)
		app.PUT("/users/me", h.User.UpdateProfile)
		app.POST("/users/me/coach-request", h.User.RequestCoach)
		app.GET("/coaches", h.User.ListCoaches)

		app.GET("/food/barcode/:barcode", h.Food.LookupBarcode)
		app.GET("/food/search", h.Food.SearchProducts)
		app.POST("/food/products", h.Food.CreateProduct)
		app.POST("/food/log", h.Food.LogPortion)
		app.GET("/food/log", h.Food.GetDayLog)
		app.DELETE("/food/log/:id", h.Food.DeleteLogEntry)
		app.POST("/weight", h.Food.RecordWeight)
		app.GET("/weight", h.Food.WeightHistory)
	}

	admin := api.Group("/admin", middleware.Auth(), middleware.AdminOnly())
	{
		admin.POST("/billing/sweep", h.Billing.RunSweep)
		admin.GET("/billing/documents", h.Billing.ListDocuments)
		admin.GET("/users", h.User.ListUsers)
		admin.POST("/users/:id/role", h.User.SetUserRole)
		admin.GET("/coach-requests", h.User.ListCoachRequests)
		admin.POST("/coach-requests/:id/approve", h.User.ApproveCoach)
	}
}

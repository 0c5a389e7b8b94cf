package routes

import (
	"time"

	"groundbook/handlers"
	"groundbook/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterGroundRoutes registers ground catalogue and availability endpoints.
func RegisterGroundRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/grounds")
	{
		// Public: availability is advisory and safe to expose.
		api.GET("", hb.Ground.ListGroundsHandler)
		api.GET("/:id", hb.Ground.GetGroundHandler)
		api.GET("/:id/availability", hb.Availability.GetAvailabilityHandler)

		protected := api.Group("")
		protected.Use(middleware.JWTAuthMiddleware(), middleware.OperatorOnly())
		protected.PUT("/:id", hb.Ground.PutGroundHandler)
	}
}

// RegisterHoldRoutes registers hold endpoints.
func RegisterHoldRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/holds")
	{
		api.Use(middleware.JWTAuthMiddleware())
		api.POST("", hb.Hold.AcquireHoldHandler)
		api.DELETE("/:id", hb.Hold.ReleaseHoldHandler)
	}
}

// RegisterBookingRoutes sets up the endpoints for the booking engine.
func RegisterBookingRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	bookingGroup := r.Group("/api/bookings")
	{
		bookingGroup.Use(middleware.JWTAuthMiddleware())
		bookingGroup.POST("", hb.Booking.CreateBookingHandler)
		bookingGroup.GET("/:id", hb.Booking.GetBookingHandler)
		bookingGroup.PATCH("/:id", hb.Booking.UpdateBookingStatusHandler)
		bookingGroup.DELETE("/:id", hb.Booking.DeleteBookingHandler)
		bookingGroup.POST("/:id/checkout", hb.Payment.CheckoutHandler)
	}
}

// RegisterPaymentRoutes sets up payment verification.
func RegisterPaymentRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	paymentGroup := r.Group("/api/payments")
	{
		paymentGroup.Use(middleware.JWTAuthMiddleware())
		paymentGroup.POST("/verify", hb.Payment.VerifyPaymentHandler)
	}
}

// RegisterAdminRoutes sets up endpoints for operator maintenance.
func RegisterAdminRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	adminGroup := r.Group("/api/admin")
	{
		adminGroup.Use(middleware.JWTAuthMiddleware(), middleware.OperatorOnly())
		adminGroup.POST("/reconcile/duplicates", hb.Admin.RepairDuplicatesHandler)
		adminGroup.POST("/reconcile/expire", hb.Admin.ExpireNowHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/healthz", handlers.HealthHandler)
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	// Setup global middleware (e.g., CORS) here.
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterHealthRoute(r)
	RegisterGroundRoutes(r, hb)
	RegisterHoldRoutes(r, hb)
	RegisterBookingRoutes(r, hb)
	RegisterPaymentRoutes(r, hb)
	RegisterAdminRoutes(r, hb)
}

package routes

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/trailbook/internal/container"
	"github.com/joshua-takyi/trailbook/internal/handlers"
	"github.com/joshua-takyi/trailbook/internal/middleware"
	"github.com/joshua-takyi/trailbook/internal/models"
)

const serviceName = "trailbook-api"

func healthChecks(ct *container.Container) map[string]handlers.Pinger {
	checks := map[string]handlers.Pinger{"database": ct.Store}
	if p, ok := ct.Inbox.(handlers.Pinger); ok {
		checks["notifications"] = p
	}
	if ct.Redis != nil {
		checks["redis"] = handlers.PingFunc(func(ctx context.Context) error {
			return ct.Redis.Ping(ctx).Err()
		})
	}
	return checks
}

// SetupRoutes configures all routes with the dependency container
func SetupRoutes(ct *container.Container) *gin.Engine {
	if ct.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     ct.Config.CORSAllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(ct.Logger))
	r.Use(middleware.ErrorHandler(ct.Logger))
	r.Use(gin.Recovery())

	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck(serviceName, healthChecks(ct)))

		v1.GET("/destinations", handlers.ListDestinations(ct.CatalogService))
		v1.GET("/destinations/:id", handlers.GetDestination(ct.CatalogService))
		v1.GET("/destinations/:id/availability", handlers.CheckAvailability(ct.CatalogService, models.TargetDestination))
		v1.GET("/guides", handlers.ListGuides(ct.CatalogService))
		v1.GET("/guides/:id", handlers.GetGuide(ct.CatalogService))
		v1.GET("/guides/:id/availability", handlers.CheckAvailability(ct.CatalogService, models.TargetGuide))
	}

	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware(ct.Tokens, ct.Directory, ct.Logger))

	// writes are throttled per user after authentication
	write := middleware.RateLimiter(ct.Redis, ct.Config.RateLimit, "api_writes", ct.Logger)

	catalogRoutes := protected.Group("/")
	{
		catalogRoutes.POST("/destinations", write, handlers.CreateDestination(ct.CatalogService))
		catalogRoutes.POST("/guides", write, handlers.CreateGuide(ct.CatalogService))
	}

	bookingRoutes := protected.Group("/bookings")
	{
		bookingRoutes.GET("", handlers.ListBookings(ct.BookingService))
		bookingRoutes.POST("", write, handlers.CreateBooking(ct.BookingService))
		bookingRoutes.GET("/stats", handlers.BookingStats(ct.BookingService))
		bookingRoutes.GET("/:id", handlers.GetBooking(ct.BookingService))
		bookingRoutes.PATCH("/:id", write, handlers.UpdateBooking(ct.BookingService))
		bookingRoutes.DELETE("/:id", write, handlers.DeleteBooking(ct.BookingService))
	}

	reviewRoutes := protected.Group("/reviews")
	{
		reviewRoutes.GET("", handlers.ListReviews(ct.ReviewService))
		reviewRoutes.POST("", write, handlers.CreateReview(ct.ReviewService))
		reviewRoutes.GET("/:id", handlers.GetReview(ct.ReviewService))
		reviewRoutes.PATCH("/:id", write, handlers.UpdateReview(ct.ReviewService))
		reviewRoutes.DELETE("/:id", write, handlers.DeleteReview(ct.ReviewService))
		reviewRoutes.POST("/:id/helpful", write, handlers.MarkReviewHelpful(ct.ReviewService))
		reviewRoutes.POST("/:id/report", write, handlers.ReportReview(ct.ReviewService))
		reviewRoutes.POST("/:id/moderate", write, handlers.ModerateReview(ct.ReviewService))
		reviewRoutes.POST("/:id/response", write, handlers.RespondToReview(ct.ReviewService))
	}

	notificationRoutes := protected.Group("/notifications")
	{
		notificationRoutes.GET("", handlers.ListNotifications(ct.NotificationService))
		notificationRoutes.POST("/:id/read", handlers.MarkNotificationRead(ct.NotificationService))
	}

	return r
}

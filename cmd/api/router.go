package api

import (
	"net/http"

	authDelivery "diu-events-backend/internal/auth/delivery"
	authUsecase "diu-events-backend/internal/auth/usecase"
	notificationDelivery "diu-events-backend/internal/notification/delivery"
	notificationUsecase "diu-events-backend/internal/notification/usecase"
	userDelivery "diu-events-backend/internal/user/delivery"
	userUsecase "diu-events-backend/internal/user/usecase"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRoutes(r *gin.Engine, verifier authUsecase.TokenVerifier, userUc userUsecase.UserUsecase, notificationUc notificationUsecase.NotificationUsecase) {
	userHandler := userDelivery.NewUserHandler(userUc)
	notificationHandler := notificationDelivery.NewNotificationHandler(notificationUc)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// FCM routes (protected)
		fcm := api.Group("/fcm")
		fcm.Use(authDelivery.AuthMiddleware(verifier))
		{
			fcm.POST("/register", userHandler.RegisterFCMToken)
			fcm.DELETE("/token", userHandler.UnregisterFCMToken)
		}

		// Notification records (protected)
		notifications := api.Group("/notifications")
		notifications.Use(authDelivery.AuthMiddleware(verifier))
		{
			notifications.POST("", notificationHandler.CreateNotification)
		}

		// Callable functions answer auth failures in callable form
		callables := api.Group("/callable")
		callables.Use(authDelivery.OptionalAuth(verifier))
		{
			callables.POST("/sendBulkPushNotification", notificationHandler.SendBulkPushNotification)
		}

		// Settings routes (admin) - Runtime configuration
		settings := api.Group("/settings")
		settings.Use(authDelivery.AuthMiddleware(verifier), userDelivery.RequireAdmin(userUc))
		{
			settings.GET("/reaper", GetReaperSettings)
			settings.PUT("/reaper", UpdateReaperSettings)
		}
	}
}

package delivery

import (
	"errors"
	"net/http"

	authdelivery "diu-events-backend/internal/auth/delivery"
	"diu-events-backend/internal/user/usecase"

	"github.com/gin-gonic/gin"
)

// UserHandler serves the push token endpoints used by the mobile client
type UserHandler struct {
	userUsecase usecase.UserUsecase
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userUsecase usecase.UserUsecase) *UserHandler {
	return &UserHandler{userUsecase: userUsecase}
}

type RegisterTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// RegisterFCMToken stores the caller's current push token
// POST /api/fcm/register
func (h *UserHandler) RegisterFCMToken(c *gin.Context) {
	userID := c.GetString(authdelivery.UserIDKey)

	var req RegisterTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.userUsecase.RegisterToken(c.Request.Context(), userID, req.Token); err != nil {
		if errors.Is(err, usecase.ErrEmptyToken) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "FCM token registered"})
}

// UnregisterFCMToken drops the caller's push token, typically on logout
// DELETE /api/fcm/token
func (h *UserHandler) UnregisterFCMToken(c *gin.Context) {
	userID := c.GetString(authdelivery.UserIDKey)

	if err := h.userUsecase.UnregisterToken(c.Request.Context(), userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to unregister token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "FCM token removed"})
}

// RequireAdmin allows only callers whose role is admin. It must run after
// the auth middleware.
func RequireAdmin(userUsecase usecase.UserUsecase) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := userUsecase.GetUser(c.Request.Context(), c.GetString(authdelivery.UserIDKey))
		if err != nil && !errors.Is(err, usecase.ErrUserNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
			c.Abort()
			return
		}
		if user == nil || !user.IsAdmin() {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin role required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

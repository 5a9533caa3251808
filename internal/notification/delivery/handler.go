package delivery

import (
	"encoding/json"
	"errors"
	"net/http"

	authdelivery "diu-events-backend/internal/auth/delivery"
	"diu-events-backend/internal/notification/domain"
	"diu-events-backend/internal/notification/usecase"
	"diu-events-backend/pkg/callable"
	"diu-events-backend/pkg/obs"

	"github.com/gin-gonic/gin"
)

// NotificationHandler serves notification creation and the bulk callable
type NotificationHandler struct {
	notificationUsecase usecase.NotificationUsecase
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notificationUsecase usecase.NotificationUsecase) *NotificationHandler {
	return &NotificationHandler{notificationUsecase: notificationUsecase}
}

// CreateNotification stores a notification record, which in turn triggers
// the push to its recipient
// POST /api/notifications
func (h *NotificationHandler) CreateNotification(c *gin.Context) {
	userID := c.GetString(authdelivery.UserIDKey)

	var req domain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	n, err := h.notificationUsecase.Create(c.Request.Context(), userID, req)
	if err != nil {
		if errors.Is(err, usecase.ErrForbidden) {
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create notification"})
		return
	}

	c.JSON(http.StatusCreated, n)
}

// SendBulkPushNotification is the sendBulkPushNotification callable
// POST /api/callable/sendBulkPushNotification
func (h *NotificationHandler) SendBulkPushNotification(c *gin.Context) {
	raw, err := callable.Bind(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	req := decodeBulkRequest(raw)
	result, err := h.notificationUsecase.SendBulk(c.Request.Context(), c.GetString(authdelivery.UserIDKey), req)
	if err != nil {
		h.fail(c, err)
		return
	}

	obs.BulkCalls.WithLabelValues("ok").Inc()
	if result.SuccessCount != nil {
		obs.PushSent.WithLabelValues(obs.PathBulk).Add(float64(*result.SuccessCount))
	}
	if result.FailureCount != nil {
		obs.PushFailed.WithLabelValues(obs.PathBulk).Add(float64(*result.FailureCount))
	}
	callable.Respond(c, result)
}

func (h *NotificationHandler) fail(c *gin.Context, err error) {
	obs.BulkCalls.WithLabelValues(string(callable.CodeOf(err))).Inc()
	callable.Fail(c, err)
}

// decodeBulkRequest reads the callable payload leniently. A userIds value
// that is not a list of strings leaves UserIDs nil; other fields that are
// not strings are treated as absent.
func decodeBulkRequest(raw json.RawMessage) domain.BulkRequest {
	var fields map[string]json.RawMessage
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &fields)
	}

	var req domain.BulkRequest
	if ids, ok := fields["userIds"]; ok {
		if err := json.Unmarshal(ids, &req.UserIDs); err != nil {
			req.UserIDs = nil
		}
	}
	req.Title = stringField(fields, "title")
	req.Message = stringField(fields, "message")
	req.Type = stringField(fields, "type")
	req.EventID = stringField(fields, "eventId")
	req.EventTitle = stringField(fields, "eventTitle")
	return req
}

func stringField(fields map[string]json.RawMessage, key string) string {
	var s string
	if v, ok := fields[key]; ok {
		_ = json.Unmarshal(v, &s)
	}
	return s
}

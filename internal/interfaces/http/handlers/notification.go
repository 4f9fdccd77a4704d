// internal/interfaces/http/handlers/notification.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/notification"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
)

// NotificationHandler handles the signed-in user's notification inbox
type NotificationHandler struct {
	dispatcher *notification.Dispatcher
	log        logrus.FieldLogger
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(dispatcher *notification.Dispatcher, log logrus.FieldLogger) *NotificationHandler {
	return &NotificationHandler{
		dispatcher: dispatcher,
		log:        log,
	}
}

// GetNotifications handles GET /notifications
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)
	unreadOnly := c.Query("unread") == "true"

	response, err := h.dispatcher.List(c.Request.Context(), userID, unreadOnly, queryInt(c, "page"), queryInt(c, "limit"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Notifications retrieved successfully",
		"data":    response,
	})
}

// GetUnreadCount handles GET /notifications/unread-count
func (h *NotificationHandler) GetUnreadCount(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	count, err := h.dispatcher.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{"unread_count": count},
	})
}

// MarkAsRead handles PUT /notifications/:id/read
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	userID, _ := middleware.GetUserIDFromContext(c)

	if err := h.dispatcher.MarkAsRead(c.Request.Context(), userID, id); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Notification marked as read",
	})
}

// MarkAllAsRead handles PUT /notifications/read-all
func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	updated, err := h.dispatcher.MarkAllAsRead(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "All notifications marked as read",
		"data":    gin.H{"updated": updated},
	})
}

// DeleteNotification handles DELETE /notifications/:id
func (h *NotificationHandler) DeleteNotification(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	userID, _ := middleware.GetUserIDFromContext(c)

	if err := h.dispatcher.Delete(c.Request.Context(), userID, id); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Notification deleted",
	})
}

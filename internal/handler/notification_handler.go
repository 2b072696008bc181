package handler

import (
	"net/http"

	"pesaflow/internal/middleware"
	"pesaflow/internal/repository"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notifications repository.NotificationRepository
}

func NewNotificationHandler(notifications repository.NotificationRepository) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// ListMine returns the caller's notifications, newest first.
func (h *NotificationHandler) ListMine(c *gin.Context) {
	ns, err := h.notifications.ListForUser(c.Request.Context(), middleware.GetUserID(c), 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": ns})
}

// ListAdmin returns the admin review channel.
func (h *NotificationHandler) ListAdmin(c *gin.Context) {
	ns, err := h.notifications.ListAdmin(c.Request.Context(), 100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": ns})
}

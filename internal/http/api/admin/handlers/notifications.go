package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/unidate/unidate-admin/internal/services/notifications"
)

// NotificationHandler serves the notification center.
type NotificationHandler struct {
	notifications *notifications.Service
}

// NewNotificationHandler constructs a NotificationHandler.
func NewNotificationHandler(svc *notifications.Service) *NotificationHandler {
	return &NotificationHandler{notifications: svc}
}

// List returns one page of notifications plus the unread count.
func (h *NotificationHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	filter := notifications.Filter{
		Search:   c.Query("q"),
		Type:     c.Query("type"),
		Status:   c.Query("status"),
		Audience: c.Query("audience"),
	}
	page, errList := h.notifications.List(ctx, filter, pageParams(c))
	if errList != nil {
		respondError(c, errList)
		return
	}
	unread, errCount := h.notifications.UnreadCount(ctx)
	if errCount != nil {
		respondError(c, errCount)
		return
	}
	resp := pageResponse("notifications", page)
	resp["unread"] = unread
	c.JSON(http.StatusOK, resp)
}

// Send stores a new notification.
func (h *NotificationHandler) Send(c *gin.Context) {
	var body notifications.Draft
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	n, result, errSend := h.notifications.Send(c.Request.Context(), body, actorUID(c))
	if errSend != nil {
		respondError(c, errSend)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"notification": n, "result": result})
}

// MarkRead marks one notification read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	result, errMark := h.notifications.MarkRead(c.Request.Context(), c.Param("id"))
	if errMark != nil {
		respondError(c, errMark)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

// MarkAllRead marks every unread notification read.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	result, errMark := h.notifications.MarkAllRead(c.Request.Context())
	if errMark != nil {
		respondError(c, errMark)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

// Delete removes one notification.
func (h *NotificationHandler) Delete(c *gin.Context) {
	result, errDelete := h.notifications.Delete(c.Request.Context(), c.Param("id"))
	if errDelete != nil {
		respondError(c, errDelete)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

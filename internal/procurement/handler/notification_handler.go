package handler

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/uthejd-slx/procura-backend/internal/procurement/repository"
	"github.com/uthejd-slx/procura-backend/internal/procurement/service"
	"github.com/uthejd-slx/procura-backend/internal/procurement/sse"
)

type NotificationHandler struct {
	svc *service.NotificationService
	hub *sse.Hub
}

func NewNotificationHandler(svc *service.NotificationService, hub *sse.Hub) *NotificationHandler {
	return &NotificationHandler{svc: svc, hub: hub}
}

// unreadFilter reads unread=<bool> or its inverse read=<bool>.
func unreadFilter(c *gin.Context) (*bool, bool) {
	if raw := c.Query("unread"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			BadRequest(c, "unread must be true or false")
			return nil, false
		}
		return &v, true
	}
	if raw := c.Query("read"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			BadRequest(c, "read must be true or false")
			return nil, false
		}
		unread := !v
		return &unread, true
	}
	return nil, true
}

// List GET /notifications
func (h *NotificationHandler) List(c *gin.Context) {
	unread, ok := unreadFilter(c)
	if !ok {
		return
	}
	created, ok := timeRange(c, "created")
	if !ok {
		return
	}
	page := GetPagination(c)
	items, total, err := h.svc.List(c.Request.Context(), actorOf(c), repository.NotificationFilter{
		Levels:  csvQuery(c, "level"),
		Unread:  unread,
		Created: created,
		Page:    page,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	List(c, items, total, page)
}

// MarkRead POST /notifications/:id/mark-read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	n, err := h.svc.MarkRead(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, n)
}

// MarkAllRead POST /notifications/mark-all-read
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	updated, err := h.svc.MarkAllRead(c.Request.Context(), actorOf(c))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, gin.H{"updated": updated})
}

// UnreadCount GET /notifications/unread-count
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	count, err := h.svc.UnreadCount(c.Request.Context(), actorOf(c))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, gin.H{"unread": count})
}

// Stream GET /notifications/stream?token=xxx
func (h *NotificationHandler) Stream(c *gin.Context) {
	userID := GetUserID(c)
	clientID := fmt.Sprintf("%s_%d", userID, time.Now().UnixNano())

	client := sse.NewClient(clientID, userID)
	h.hub.Register(client)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	c.Writer.WriteString("event: connected\ndata: {\"client_id\":\"" + clientID + "\"}\n\n")
	c.Writer.Flush()

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	clientGone := c.Request.Context().Done()

	for {
		select {
		case <-clientGone:
			h.hub.Unregister(clientID)
			return
		case event, ok := <-client.Events:
			if !ok {
				return
			}
			c.Writer.WriteString(fmt.Sprintf("event: %s\ndata: %s\n\n", event.EventType, event.Data))
			c.Writer.Flush()
		case <-heartbeat.C:
			c.Writer.WriteString(": keepalive\n\n")
			c.Writer.Flush()
		}
	}
}

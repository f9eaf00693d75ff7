package api

import (
	"bufio"
	"encoding/json"
	"sync"
	"time"

	"mailbutler/metrics"
	"mailbutler/models"
	"mailbutler/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

// Notification types
const (
	NotificationEmailSent      = "email_sent"
	NotificationEmailScheduled = "email_scheduled"
	NotificationStatusChange   = "status_change"
	NotificationTrackingOpen   = "tracking_open"
	NotificationTrackingClick  = "tracking_click"
)

const subscriberBuffer = 10

// Notification represents a real-time notification
type Notification struct {
	ID      string                 `json:"id"`
	Type    string                 `json:"type"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
	Time    time.Time              `json:"time"`
}

// NotificationHandler fans notifications out to SSE and WebSocket subscribers
type NotificationHandler struct {
	enabled     func() bool
	subscribers map[string]chan Notification
	mu          sync.RWMutex
}

// NewNotificationHandler creates a notification handler. Broadcasts are
// dropped while enabled reports false; a nil enabled always broadcasts.
func NewNotificationHandler(enabled func() bool) *NotificationHandler {
	return &NotificationHandler{
		enabled:     enabled,
		subscribers: make(map[string]chan Notification),
	}
}

// Subscribe registers a new subscriber and returns its id and channel
func (h *NotificationHandler) Subscribe() (string, <-chan Notification) {
	id := uuid.New().String()
	ch := make(chan Notification, subscriberBuffer)

	h.mu.Lock()
	h.subscribers[id] = ch
	h.mu.Unlock()

	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel
func (h *NotificationHandler) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.subscribers[id]; ok {
		delete(h.subscribers, id)
		close(ch)
	}
}

// SubscriberCount returns the number of connected subscribers
func (h *NotificationHandler) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// HandleSSE streams notifications as Server-Sent Events
func (h *NotificationHandler) HandleSSE(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("Transfer-Encoding", "chunked")

	subscriberID, messageChan := h.Subscribe()
	metrics.NotificationSubscribers.WithLabelValues("sse").Inc()
	utils.Log.Info("SSE subscriber connected: %s", subscriberID)

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer func() {
			h.Unsubscribe(subscriberID)
			metrics.NotificationSubscribers.WithLabelValues("sse").Dec()
			utils.Log.Info("SSE subscriber disconnected: %s", subscriberID)
		}()

		w.WriteString(": connected\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case notification, ok := <-messageChan:
				if !ok {
					return
				}
				data, err := json.Marshal(notification)
				if err != nil {
					utils.Log.Error("Failed to encode notification: %v", err)
					continue
				}
				w.WriteString("event: " + notification.Type + "\n")
				w.WriteString("data: " + string(data) + "\n\n")
				if err := w.Flush(); err != nil {
					return
				}

			case <-ticker.C:
				w.WriteString(": keepalive\n\n")
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))

	return nil
}

// WebSocketUpgrade rejects plain HTTP requests on the WebSocket route
func (h *NotificationHandler) WebSocketUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// HandleWebSocket pushes notifications over a WebSocket connection
func (h *NotificationHandler) HandleWebSocket(c *websocket.Conn) {
	subscriberID, messageChan := h.Subscribe()
	metrics.NotificationSubscribers.WithLabelValues("websocket").Inc()
	utils.Log.Info("WebSocket subscriber connected: %s", subscriberID)

	defer func() {
		h.Unsubscribe(subscriberID)
		metrics.NotificationSubscribers.WithLabelValues("websocket").Dec()
		c.Close()
		utils.Log.Info("WebSocket subscriber disconnected: %s", subscriberID)
	}()

	// The client never sends anything meaningful; reading only detects close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case notification, ok := <-messageChan:
			if !ok {
				return
			}
			if err := c.WriteJSON(notification); err != nil {
				utils.Log.Error("Failed to send WebSocket notification: %v", err)
				return
			}
		case <-closed:
			return
		}
	}
}

// BroadcastNotification sends a notification to all subscribers. Full
// subscribers are skipped.
func (h *NotificationHandler) BroadcastNotification(notification Notification) {
	if h.enabled != nil && !h.enabled() {
		utils.Log.Debug("Notifications disabled, dropping %s", notification.Type)
		return
	}

	notification.ID = uuid.New().String()
	notification.Time = time.Now()

	h.mu.RLock()
	defer h.mu.RUnlock()

	utils.Log.Info("Broadcasting notification: type=%s to %d subscribers", notification.Type, len(h.subscribers))

	for subscriberID, ch := range h.subscribers {
		select {
		case ch <- notification:
		default:
			utils.Log.Warn("Notification channel full for subscriber %s", subscriberID)
		}
	}
}

// NotifyEmailCreated announces a sent or scheduled email
func (h *NotificationHandler) NotifyEmailCreated(email *models.Email) {
	n := Notification{
		Type:    NotificationEmailSent,
		Message: "Email sent",
		Data: map[string]interface{}{
			"email_id": email.ID,
			"subject":  email.Subject,
			"to":       email.To,
		},
	}
	if at, ok := email.ScheduledFor(); ok {
		n.Type = NotificationEmailScheduled
		n.Message = "Email scheduled"
		n.Data["scheduled_for"] = at
	}
	h.BroadcastNotification(n)
}

// NotifyStatusChange sends a notification for an email status change
func (h *NotificationHandler) NotifyStatusChange(email *models.Email) {
	data := map[string]interface{}{
		"email_id": email.ID,
		"status":   email.Status(),
	}
	if until, ok := email.SnoozedUntil(); ok {
		data["snoozed_until"] = until
	}
	h.BroadcastNotification(Notification{
		Type:    NotificationStatusChange,
		Message: "Email status changed",
		Data:    data,
	})
}

// NotifyTrackingOpen announces an open by a recipient
func (h *NotificationHandler) NotifyTrackingOpen(email *models.Email, recipient string) {
	h.BroadcastNotification(Notification{
		Type:    NotificationTrackingOpen,
		Message: "Email opened",
		Data: map[string]interface{}{
			"email_id":  email.ID,
			"subject":   email.Subject,
			"recipient": recipient,
		},
	})
}

// NotifyTrackingClick announces a link click by a recipient
func (h *NotificationHandler) NotifyTrackingClick(email *models.Email, recipient, url string) {
	h.BroadcastNotification(Notification{
		Type:    NotificationTrackingClick,
		Message: "Link clicked",
		Data: map[string]interface{}{
			"email_id":  email.ID,
			"subject":   email.Subject,
			"recipient": recipient,
			"url":       url,
		},
	})
}

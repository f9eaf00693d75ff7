package api

import (
	"mailbutler/analytics"
	"mailbutler/storage"

	"github.com/gofiber/fiber/v2"
)

// AnalyticsHandler serves the analytics summary
type AnalyticsHandler struct {
	mailbox *storage.Mailbox
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(mailbox *storage.Mailbox) *AnalyticsHandler {
	return &AnalyticsHandler{mailbox: mailbox}
}

// GetAnalytics recomputes the summary over the current emails
func (h *AnalyticsHandler) GetAnalytics(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success":   true,
		"analytics": analytics.Summarize(h.mailbox.Emails()),
	})
}

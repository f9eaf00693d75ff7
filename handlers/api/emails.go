package api

import (
	"fmt"
	"strings"
	"time"

	"mailbutler/composer"
	"mailbutler/metrics"
	"mailbutler/models"
	"mailbutler/storage"
	"mailbutler/tracking"
	"mailbutler/utils"

	"github.com/gofiber/fiber/v2"
)

// EmailHandler exposes the email operations of the mailbox as JSON
type EmailHandler struct {
	mailbox  *storage.Mailbox
	notifier *NotificationHandler
	rewriter *tracking.Rewriter
}

// NewEmailHandler creates a new email handler
func NewEmailHandler(mailbox *storage.Mailbox, notifier *NotificationHandler, rewriter *tracking.Rewriter) *EmailHandler {
	return &EmailHandler{
		mailbox:  mailbox,
		notifier: notifier,
		rewriter: rewriter,
	}
}

// SnoozeRequest carries either an absolute time or a number of hours
type SnoozeRequest struct {
	Until *time.Time `json:"until"`
	Hours float64    `json:"hours"`
}

// ListEmails returns all emails, optionally filtered by ?status=
func (h *EmailHandler) ListEmails(c *fiber.Ctx) error {
	emails := h.mailbox.Emails()

	if status := models.Status(c.Query("status")); status != "" {
		if !status.Valid() {
			return utils.BadRequestError("Unknown status", nil).WithContext("status", status)
		}
		filtered := make([]models.Email, 0, len(emails))
		for _, e := range emails {
			if e.Status() == status {
				filtered = append(filtered, e)
			}
		}
		emails = filtered
	}

	return c.JSON(fiber.Map{
		"success": true,
		"emails":  emails,
	})
}

// GetEmail returns a single email
func (h *EmailHandler) GetEmail(c *fiber.Ctx) error {
	email, ok := h.mailbox.Email(c.Params("id"))
	if !ok {
		return utils.NotFoundError("Email not found", nil)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"email":   email,
	})
}

// CreateEmail sends or schedules an email
func (h *EmailHandler) CreateEmail(c *fiber.Ctx) error {
	var req models.SendInput
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequestError("Invalid request", err)
	}

	req.To = cleanRecipients(req.To)
	req.Cc = cleanRecipients(req.Cc)
	req.Bcc = cleanRecipients(req.Bcc)

	if len(req.To) == 0 || strings.TrimSpace(req.Subject) == "" || strings.TrimSpace(req.Body) == "" {
		return utils.BadRequestError("Recipient, subject and body are required", composer.ErrMissingFields)
	}

	if req.TemplateID != "" {
		if _, ok := h.mailbox.Template(req.TemplateID); !ok {
			return utils.BadRequestError("Unknown template", nil).WithContext("template_id", req.TemplateID)
		}
	}

	email := h.mailbox.SendEmail(req)
	metrics.IncrementEmailCreated(string(email.Status()))
	h.notifier.NotifyEmailCreated(email)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"email":   email,
	})
}

// SnoozeEmail snoozes an email until a time or for a number of hours
func (h *EmailHandler) SnoozeEmail(c *fiber.Ctx) error {
	var req SnoozeRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequestError("Invalid request", err)
	}

	var until time.Time
	switch {
	case req.Until != nil:
		until = *req.Until
	case req.Hours != 0:
		d, ok := models.SnoozeDuration(req.Hours)
		if !ok {
			return utils.BadRequestError(fmt.Sprintf("hours must be between 0 and %d", models.MaxSnoozeHours), nil)
		}
		until = time.Now().Add(d)
	default:
		return utils.BadRequestError("Either until or a positive hours value is required", nil)
	}

	email, ok := h.mailbox.SnoozeEmail(c.Params("id"), until)
	if !ok {
		return utils.NotFoundError("Email not found", nil)
	}
	metrics.IncrementStatusChange(string(models.StatusSnoozed))
	h.notifier.NotifyStatusChange(email)

	return c.JSON(fiber.Map{
		"success": true,
		"email":   email,
	})
}

// UnsnoozeEmail returns an email to draft
func (h *EmailHandler) UnsnoozeEmail(c *fiber.Ctx) error {
	email, ok := h.mailbox.UnsnoozeEmail(c.Params("id"))
	if !ok {
		return utils.NotFoundError("Email not found", nil)
	}
	metrics.IncrementStatusChange(string(models.StatusDraft))
	h.notifier.NotifyStatusChange(email)

	return c.JSON(fiber.Map{
		"success": true,
		"email":   email,
	})
}

// TrackedBody returns the body as delivered to one recipient, with tracking
// links. The recipient defaults to the first "to" address.
func (h *EmailHandler) TrackedBody(c *fiber.Ctx) error {
	email, ok := h.mailbox.Email(c.Params("id"))
	if !ok {
		return utils.NotFoundError("Email not found", nil)
	}

	recipient := c.Query("recipient")
	if recipient == "" && len(email.To) > 0 {
		recipient = email.To[0]
	}
	if !containsRecipient(email.Recipients(), recipient) {
		return utils.BadRequestError("Not a recipient of this email", nil).WithContext("recipient", recipient)
	}

	body, err := h.rewriter.TrackedBody(email, recipient)
	if err != nil {
		return utils.InternalServerError("Failed to build tracked body", err)
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"email_id":  email.ID,
		"recipient": recipient,
		"is_html":   email.IsHTML,
		"body":      body,
	})
}

func cleanRecipients(list []string) []string {
	return composer.SplitRecipients(strings.Join(list, ","))
}

func containsRecipient(list []string, recipient string) bool {
	for _, r := range list {
		if strings.EqualFold(r, recipient) {
			return true
		}
	}
	return false
}

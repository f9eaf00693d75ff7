package api

import (
	"errors"

	"mailbutler/metrics"
	"mailbutler/storage"
	"mailbutler/tracking"
	"mailbutler/utils"

	"github.com/gofiber/fiber/v2"
)

// transparentGIF is a 1x1 transparent GIF
var transparentGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00,
	0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

// TrackingHandler records opens and clicks coming from delivered emails
type TrackingHandler struct {
	mailbox  *storage.Mailbox
	signer   *tracking.Signer
	notifier *NotificationHandler
}

// NewTrackingHandler creates a new tracking handler
func NewTrackingHandler(mailbox *storage.Mailbox, signer *tracking.Signer, notifier *NotificationHandler) *TrackingHandler {
	return &TrackingHandler{
		mailbox:  mailbox,
		signer:   signer,
		notifier: notifier,
	}
}

// Open records an open and serves the tracking pixel
func (h *TrackingHandler) Open(c *fiber.Ctx) error {
	claims, err := h.signer.Verify(c.Params("token"), tracking.KindOpen)
	if err != nil {
		return h.invalid(string(tracking.KindOpen), err)
	}

	if email, ok := h.mailbox.RecordOpen(claims.EmailID, claims.Recipient); ok {
		metrics.IncrementTrackingEvent(string(tracking.KindOpen), "recorded")
		h.notifier.NotifyTrackingOpen(email, claims.Recipient)
	} else {
		metrics.IncrementTrackingEvent(string(tracking.KindOpen), "ignored")
	}

	c.Set(fiber.HeaderCacheControl, "no-store, no-cache, must-revalidate")
	c.Set(fiber.HeaderContentType, "image/gif")
	return c.Send(transparentGIF)
}

// Click records a click and redirects to the original link
func (h *TrackingHandler) Click(c *fiber.Ctx) error {
	claims, err := h.signer.Verify(c.Params("token"), tracking.KindClick)
	if err != nil {
		return h.invalid(string(tracking.KindClick), err)
	}

	if email, ok := h.mailbox.RecordClick(claims.EmailID, claims.Recipient, claims.URL); ok {
		metrics.IncrementTrackingEvent(string(tracking.KindClick), "recorded")
		h.notifier.NotifyTrackingClick(email, claims.Recipient, claims.URL)
	} else {
		metrics.IncrementTrackingEvent(string(tracking.KindClick), "ignored")
	}

	return c.Redirect(claims.URL, fiber.StatusFound)
}

func (h *TrackingHandler) invalid(kind string, err error) error {
	metrics.IncrementTrackingEvent(kind, "invalid")
	if errors.Is(err, tracking.ErrInvalidToken) {
		utils.Log.Debug("Rejected %s tracking token: %v", kind, err)
		return utils.NotFoundError("Not found", err)
	}
	return utils.InternalServerError("Tracking failed", err)
}

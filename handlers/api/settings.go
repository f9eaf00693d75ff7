package api

import (
	"mailbutler/models"
	"mailbutler/storage"
	"mailbutler/utils"

	"github.com/gofiber/fiber/v2"
)

// SettingsHandler reads and updates the dashboard settings
type SettingsHandler struct {
	mailbox *storage.Mailbox
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(mailbox *storage.Mailbox) *SettingsHandler {
	return &SettingsHandler{mailbox: mailbox}
}

// GetSettings returns the current settings
func (h *SettingsHandler) GetSettings(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success":  true,
		"settings": h.mailbox.Settings(),
	})
}

// UpdateSettings merges the request body over the current settings
func (h *SettingsHandler) UpdateSettings(c *fiber.Ctx) error {
	settings, err := h.mailbox.ModifySettings(func(s *models.Settings) error {
		return c.BodyParser(s)
	})
	if err != nil {
		return utils.BadRequestError("Invalid request", err)
	}
	utils.Log.Info("Settings updated: theme=%s language=%s tracking=%t", settings.Theme, settings.Language, settings.TrackingEnabled)

	return c.JSON(fiber.Map{
		"success":  true,
		"settings": settings,
	})
}

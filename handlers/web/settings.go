package web

import (
	"strings"
	"time"

	"mailbutler/models"
	"mailbutler/storage"
	"mailbutler/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
)

// NoSignature is the default signature choice that appends nothing
const NoSignature = "None"

type SettingsHandler struct {
	base
}

func NewSettingsHandler(mailbox *storage.Mailbox, store *session.Store, location *time.Location) *SettingsHandler {
	return &SettingsHandler{base: newBase(mailbox, store, location)}
}

// ShowSettings renders the settings page
func (h *SettingsHandler) ShowSettings(c *fiber.Ctx) error {
	names := []string{}
	for _, s := range h.mailbox.Signatures() {
		names = append(names, s.Name)
	}
	names = append(names, NoSignature)

	return h.render(c, "settings", fiber.Map{
		"Settings":       h.mailbox.Settings(),
		"Themes":         models.Themes,
		"Languages":      utils.SupportedLanguages,
		"SignatureNames": names,
	})
}

// HandleUpdateSettings saves the settings form
func (h *SettingsHandler) HandleUpdateSettings(c *fiber.Ctx) error {
	settings := h.mailbox.Settings()

	settings.DisplayName = strings.TrimSpace(c.FormValue("display_name"))
	settings.EmailAddress = strings.TrimSpace(c.FormValue("email_address"))
	settings.EmailNotifications = checkbox(c, "email_notifications")
	settings.TrackingEnabled = checkbox(c, "tracking_enabled")
	settings.AutoSave = checkbox(c, "auto_save")
	settings.DefaultSignature = c.FormValue("default_signature", settings.DefaultSignature)
	settings.Theme = c.FormValue("theme", settings.Theme)
	settings.Language = c.FormValue("language", settings.Language)

	settings = h.mailbox.UpdateSettings(settings)
	utils.Log.Info("Settings updated: theme=%s language=%s tracking=%t", settings.Theme, settings.Language, settings.TrackingEnabled)

	// The saved language wins over an earlier ?lang= choice.
	c.Cookie(&fiber.Cookie{
		Name:     "lang",
		Value:    settings.Language,
		MaxAge:   365 * 24 * 3600,
		SameSite: "Lax",
	})
	c.Locals("localizer", utils.GetLocalizer(settings.Language))

	h.flash(c, "success", "message_settings_saved")
	return seeOther(c, "/settings")
}

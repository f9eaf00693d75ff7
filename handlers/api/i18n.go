package api

import (
	"mailbutler/utils"

	"github.com/gofiber/fiber/v2"
)

// clientMessages are the keys the browser scripts need
var clientMessages = []string{
	"message_sent_success",
	"message_scheduled_success",
	"message_template_saved",
	"message_signature_saved",
	"message_settings_saved",
	"message_missing_fields",
	"message_error",
	"notification_email_sent",
	"notification_email_scheduled",
	"notification_status_change",
	"notification_tracking_open",
	"notification_tracking_click",
	"email_no_messages",
	"error_404",
	"error_500",
}

// I18nHandler handles i18n-related requests
type I18nHandler struct{}

// GetTranslations returns translations for the client-side JavaScript
func (h *I18nHandler) GetTranslations(c *fiber.Ctx) error {
	lang := c.Params("lang")
	if !utils.IsSupportedLanguage(lang) {
		lang = "en"
	}

	localizer := utils.GetLocalizer(lang)

	translations := make(map[string]string, len(clientMessages))
	for _, id := range clientMessages {
		translations[id] = utils.T(localizer, id)
	}

	return c.JSON(translations)
}

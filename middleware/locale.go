package middleware

import (
	"mailbutler/utils"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/text/language"
)

var localeMatcher = language.NewMatcher([]language.Tag{language.English, language.Japanese})

// LocaleMiddleware detects the user's language. The order is the lang query
// parameter, the lang cookie, the fallback (the saved dashboard language) and
// finally Accept-Language.
func LocaleMiddleware(fallback func() string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lang := c.Query("lang")
		if utils.IsSupportedLanguage(lang) {
			c.Cookie(&fiber.Cookie{
				Name:     "lang",
				Value:    lang,
				MaxAge:   365 * 24 * 3600,
				SameSite: "Lax",
			})
		} else {
			lang = c.Cookies("lang")
		}

		if !utils.IsSupportedLanguage(lang) && fallback != nil {
			lang = fallback()
		}

		if !utils.IsSupportedLanguage(lang) {
			lang = matchAcceptLanguage(c.Get(fiber.HeaderAcceptLanguage))
		}

		c.Locals("localizer", utils.GetLocalizer(lang))
		c.Locals("lang", lang)

		utils.Log.Debug("Locale detected: %s for path: %s", lang, c.Path())

		return c.Next()
	}
}

// Lang returns the language chosen for the request
func Lang(c *fiber.Ctx) string {
	if lang, ok := c.Locals("lang").(string); ok && lang != "" {
		return lang
	}
	return "en"
}

func matchAcceptLanguage(header string) string {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return "en"
	}
	tag, _, _ := localeMatcher.Match(tags...)
	base, _ := tag.Base()
	if utils.IsSupportedLanguage(base.String()) {
		return base.String()
	}
	return "en"
}

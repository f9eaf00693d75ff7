package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"

	"mailbutler/utils"

	"github.com/gofiber/fiber/v2"
)

// CSRFConfig holds CSRF protection configuration
type CSRFConfig struct {
	TokenLength  int
	CookieName   string
	HeaderName   string
	FormField    string
	ContextKey   string
	CookieMaxAge int
	Secure       bool
	Skipper      func(*fiber.Ctx) bool
}

// DefaultCSRFConfig returns default CSRF configuration
func DefaultCSRFConfig() CSRFConfig {
	return CSRFConfig{
		TokenLength:  32,
		CookieName:   "csrf_token",
		HeaderName:   "X-CSRF-Token",
		FormField:    "_csrf",
		ContextKey:   "csrf",
		CookieMaxAge: 3600 * 12,
		Skipper:      nil,
	}
}

// CSRFProtection issues a double-submit token on safe requests and checks it
// on everything else. The token may come from the header or the form field.
func CSRFProtection(config ...CSRFConfig) fiber.Handler {
	cfg := DefaultCSRFConfig()
	if len(config) > 0 {
		cfg = config[0]
	}

	return func(c *fiber.Ctx) error {
		if cfg.Skipper != nil && cfg.Skipper(c) {
			return c.Next()
		}

		if c.Method() == fiber.MethodGet ||
			c.Method() == fiber.MethodHead ||
			c.Method() == fiber.MethodOptions {
			GenerateCSRFToken(c, cfg)
			return c.Next()
		}

		cookieToken := c.Cookies(cfg.CookieName)

		submitted := c.Get(cfg.HeaderName)
		if submitted == "" {
			submitted = c.FormValue(cfg.FormField)
		}

		if cookieToken == "" || submitted == "" {
			utils.Log.Warn("CSRF token missing for %s %s", c.Method(), c.Path())
			return utils.ForbiddenError("CSRF token missing", nil)
		}

		if !tokensEqual(cookieToken, submitted) {
			utils.Log.Warn("CSRF token mismatch for %s %s", c.Method(), c.Path())
			return utils.ForbiddenError("CSRF token mismatch", nil)
		}

		c.Locals(cfg.ContextKey, cookieToken)
		return c.Next()
	}
}

// GenerateCSRFToken returns the request's token, issuing a new cookie when
// the client has none yet
func GenerateCSRFToken(c *fiber.Ctx, config ...CSRFConfig) string {
	cfg := DefaultCSRFConfig()
	if len(config) > 0 {
		cfg = config[0]
	}

	if token := c.Cookies(cfg.CookieName); token != "" {
		c.Locals(cfg.ContextKey, token)
		return token
	}

	token := generateToken(cfg.TokenLength)

	c.Cookie(&fiber.Cookie{
		Name:     cfg.CookieName,
		Value:    token,
		MaxAge:   cfg.CookieMaxAge,
		HTTPOnly: true,
		SameSite: "Strict",
		Secure:   cfg.Secure,
	})

	c.Locals(cfg.ContextKey, token)

	return token
}

// CSRFToken returns the token stored on the request context
func CSRFToken(c *fiber.Ctx) string {
	token, _ := c.Locals(DefaultCSRFConfig().ContextKey).(string)
	return token
}

// generateToken generates a random token
func generateToken(length int) string {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return ""
	}
	return base64.URLEncoding.EncodeToString(b)
}

// tokensEqual performs constant-time comparison of tokens
func tokensEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

package middleware

import (
	"strings"

	"mailbutler/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"golang.org/x/crypto/bcrypt"
)

// BasicAuth protects the dashboard with a single bcrypt-hashed account.
// Tracking links and the health check stay public because mail clients and
// health checkers cannot authenticate.
func BasicAuth(username, passwordHash string) fiber.Handler {
	return basicauth.New(basicauth.Config{
		Realm: "mailbutler",
		Next: func(c *fiber.Ctx) bool {
			path := c.Path()
			return strings.HasPrefix(path, "/t/") || path == "/health"
		},
		Authorizer: func(user, pass string) bool {
			if user != username {
				return false
			}
			if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(pass)); err != nil {
				utils.Log.Warn("Failed login for user %s", user)
				return false
			}
			return true
		},
	})
}

// Package server assembles the Fiber application: views, middleware and the
// web, API, tracking and notification routes.
package server

import (
	"strings"
	"time"

	"mailbutler/config"
	"mailbutler/handlers/api"
	"mailbutler/handlers/web"
	"mailbutler/metrics"
	"mailbutler/middleware"
	"mailbutler/storage"
	"mailbutler/templates"
	"mailbutler/tracking"
	"mailbutler/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/websocket/v2"
	"github.com/nicksnyder/go-i18n/v2/i18n"
)

// csrfExempt lists path prefixes that are not form posts from the dashboard
var csrfExempt = []string{"/api", "/t/", "/ws", "/health", "/metrics"}

// isAPIRequest reports whether the caller expects JSON
func isAPIRequest(c *fiber.Ctx) bool {
	if c == nil {
		return false
	}

	// Check for HTMX request first
	if c.Get("HX-Request") != "" {
		return true
	}

	return strings.HasPrefix(c.Path(), "/api")
}

// New builds the application around mailbox
func New(cfg *config.Config, mailbox *storage.Mailbox) *fiber.App {
	app := fiber.New(fiber.Config{
		Views:        templates.NewEngine(cfg.Server.ViewsReload),
		ViewsLayout:  "layouts/main",
		ErrorHandler: errorHandler(mailbox),
	})

	location := time.Local
	sessions := utils.NewMemoryCache(time.Minute)
	app.Hooks().OnShutdown(sessions.Close)
	store := session.New(session.Config{
		Storage:        sessions,
		Expiration:     24 * time.Hour,
		CookieSecure:   cfg.SSL.Enabled,
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
	})

	signer := tracking.NewSigner(cfg.Tracking.Secret, cfg.Tracking.TokenTTL.Duration)
	rewriter := tracking.NewRewriter(cfg.Server.BaseURL, signer)

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(compress.New())
	app.Use(helmet.New(helmet.Config{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "SAMEORIGIN",
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self' ws: wss:;",
		HSTSMaxAge:            cfg.SSL.HSTSMaxAge,
	}))
	if headers := cfg.GetSecurityHeaders(); len(headers) > 0 {
		app.Use(func(c *fiber.Ctx) error {
			for k, v := range headers {
				c.Set(k, v)
			}
			return c.Next()
		})
	}
	app.Use(metrics.Middleware())
	app.Use(middleware.RateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window.Duration))

	if cfg.AuthEnabled() {
		app.Use(middleware.BasicAuth(cfg.Auth.Username, cfg.Auth.PasswordHash))
	} else {
		utils.Log.Warn("Dashboard authentication is disabled")
	}
	if cfg.InsecureTrackingSecret() {
		utils.Log.Warn("Tracking secret is not set; anyone can forge open and click events. Set tracking.secret in config.toml")
	}

	app.Use(middleware.LocaleMiddleware(func() string {
		return mailbox.Settings().Language
	}))

	csrfConfig := middleware.DefaultCSRFConfig()
	csrfConfig.Secure = cfg.SSL.Enabled
	csrfConfig.Skipper = func(c *fiber.Ctx) bool {
		for _, prefix := range csrfExempt {
			if strings.HasPrefix(c.Path(), prefix) {
				return true
			}
		}
		return false
	}
	app.Use(middleware.CSRFProtection(csrfConfig))

	// Notifications follow the email_notifications setting
	notifier := api.NewNotificationHandler(func() bool {
		return mailbox.Settings().EmailNotifications
	})

	// Initialize web handlers
	composeHandler := web.NewComposeHandler(mailbox, store, location, notifier)
	emailsHandler := web.NewEmailsHandler(mailbox, store, location, notifier)
	analyticsHandler := web.NewAnalyticsHandler(mailbox, store, location)
	templatesHandler := web.NewTemplatesHandler(mailbox, store, location)
	settingsHandler := web.NewSettingsHandler(mailbox, store, location)

	// Initialize API handlers
	emailAPI := api.NewEmailHandler(mailbox, notifier, rewriter)
	templateAPI := api.NewTemplateHandler(mailbox)
	analyticsAPI := api.NewAnalyticsHandler(mailbox)
	settingsAPI := api.NewSettingsHandler(mailbox)
	searchHandler := api.NewSearchHandler(mailbox)
	trackingHandler := api.NewTrackingHandler(mailbox, signer, notifier)
	i18nHandler := &api.I18nHandler{}

	// Web routes
	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect("/compose")
	})
	app.Get("/compose", composeHandler.ShowCompose)
	app.Post("/compose/send", composeHandler.HandleSend)
	app.Post("/compose/toggle/:panel", composeHandler.HandleToggle)
	app.Post("/compose/template/:id", composeHandler.HandleApplyTemplate)
	app.Post("/compose/signature/:id", composeHandler.HandleApplySignature)
	app.Post("/compose/save-template", composeHandler.HandleSaveTemplate)

	app.Get("/emails", emailsHandler.ShowEmails)
	app.Post("/emails/:id/snooze", emailsHandler.HandleSnooze)
	app.Post("/emails/:id/unsnooze", emailsHandler.HandleUnsnooze)

	app.Get("/analytics", analyticsHandler.ShowAnalytics)

	app.Get("/templates", templatesHandler.ShowTemplates)
	app.Post("/templates", templatesHandler.HandleCreateTemplate)
	app.Post("/signatures", templatesHandler.HandleCreateSignature)

	app.Get("/settings", settingsHandler.ShowSettings)
	app.Post("/settings", settingsHandler.HandleUpdateSettings)

	// API routes
	apiRoutes := app.Group("/api")
	{
		apiRoutes.Get("/emails", emailAPI.ListEmails)
		apiRoutes.Post("/emails", emailAPI.CreateEmail)
		apiRoutes.Get("/emails/:id", emailAPI.GetEmail)
		apiRoutes.Post("/emails/:id/snooze", emailAPI.SnoozeEmail)
		apiRoutes.Post("/emails/:id/unsnooze", emailAPI.UnsnoozeEmail)
		apiRoutes.Get("/emails/:id/tracked-body", emailAPI.TrackedBody)

		// Search routes
		apiRoutes.Post("/search", searchHandler.HandleSearch)

		apiRoutes.Get("/templates", templateAPI.GetTemplates)
		apiRoutes.Post("/templates", templateAPI.CreateTemplate)
		apiRoutes.Get("/signatures", templateAPI.GetSignatures)
		apiRoutes.Post("/signatures", templateAPI.CreateSignature)

		apiRoutes.Get("/analytics", analyticsAPI.GetAnalytics)

		apiRoutes.Get("/settings", settingsAPI.GetSettings)
		apiRoutes.Put("/settings", settingsAPI.UpdateSettings)

		apiRoutes.Get("/i18n/:lang", i18nHandler.GetTranslations)

		apiRoutes.Get("/notifications/stream", notifier.HandleSSE)
	}

	// Tracking endpoints are hit by mail clients
	app.Get("/t/open/:token", trackingHandler.Open)
	app.Get("/t/click/:token", trackingHandler.Click)

	app.Get("/ws/notifications", notifier.WebSocketUpgrade, websocket.New(notifier.HandleWebSocket))

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	app.Get("/metrics", metrics.Handler())

	// 404 Handler for undefined routes
	app.Use(func(c *fiber.Ctx) error {
		return utils.NotFoundError(utils.T(localizerFor(c), "error_404"), nil)
	})

	return app
}

// errorHandler maps errors to a status code and renders JSON for API callers
// or the error page for browsers
func errorHandler(mailbox *storage.Mailbox) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := utils.StatusCode(err)
		message := utils.PublicMessage(err)

		if code >= fiber.StatusInternalServerError {
			utils.Log.Error("Request %s %s failed: %v", c.Method(), c.Path(), err)
			message = utils.T(localizerFor(c), "error_500")
		}

		if isAPIRequest(c) {
			return c.Status(code).JSON(fiber.Map{
				"error": message,
			})
		}

		settings := mailbox.Settings()
		return c.Status(code).Render("error", fiber.Map{
			"Error":       message,
			"Code":        code,
			"Lang":        middleware.Lang(c),
			"Active":      "",
			"Theme":       settings.Theme,
			"DisplayName": settings.DisplayName,
			"CSRFToken":   middleware.CSRFToken(c),
		})
	}
}

func localizerFor(c *fiber.Ctx) *i18n.Localizer {
	if l, ok := c.Locals("localizer").(*i18n.Localizer); ok {
		return l
	}
	return utils.Localizer
}

package api

import (
	"strings"

	"mailbutler/models"
	"mailbutler/storage"
	"mailbutler/utils"

	"github.com/gofiber/fiber/v2"
)

// TemplateHandler handles template and signature requests
type TemplateHandler struct {
	mailbox *storage.Mailbox
}

// NewTemplateHandler creates a new template handler
func NewTemplateHandler(mailbox *storage.Mailbox) *TemplateHandler {
	return &TemplateHandler{mailbox: mailbox}
}

// GetTemplates returns all templates
func (h *TemplateHandler) GetTemplates(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success":   true,
		"templates": h.mailbox.Templates(),
	})
}

// CreateTemplate saves a new template
func (h *TemplateHandler) CreateTemplate(c *fiber.Ctx) error {
	var req models.TemplateInput
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequestError("Invalid request", err)
	}

	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Subject) == "" || strings.TrimSpace(req.Body) == "" {
		return utils.BadRequestError("Template name, subject and body required", nil)
	}
	if req.Category == "" {
		req.Category = models.TemplateCategories[0]
	}

	tmpl := h.mailbox.SaveTemplate(req)
	utils.Log.Info("Template %s saved: %s", tmpl.ID, tmpl.Name)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":  true,
		"template": tmpl,
	})
}

// GetSignatures returns all signatures
func (h *TemplateHandler) GetSignatures(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success":    true,
		"signatures": h.mailbox.Signatures(),
	})
}

// CreateSignature saves a new signature
func (h *TemplateHandler) CreateSignature(c *fiber.Ctx) error {
	var req models.SignatureInput
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequestError("Invalid request", err)
	}

	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Content) == "" {
		return utils.BadRequestError("Signature name and content required", nil)
	}

	sig := h.mailbox.SaveSignature(req)
	utils.Log.Info("Signature %s saved: %s", sig.ID, sig.Name)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":   true,
		"signature": sig,
	})
}

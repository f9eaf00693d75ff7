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

const templatePreviewLength = 150

type templateRow struct {
	models.EmailTemplate
	Preview string
	Created string
}

type signatureRow struct {
	models.EmailSignature
	Preview string
}

// TemplatesHandler serves the templates and signatures page
type TemplatesHandler struct {
	base
}

func NewTemplatesHandler(mailbox *storage.Mailbox, store *session.Store, location *time.Location) *TemplatesHandler {
	return &TemplatesHandler{base: newBase(mailbox, store, location)}
}

// ShowTemplates renders templates and signatures with their forms
func (h *TemplatesHandler) ShowTemplates(c *fiber.Ctx) error {
	templates := h.mailbox.Templates()
	rows := make([]templateRow, len(templates))
	for i, t := range templates {
		rows[i] = templateRow{
			EmailTemplate: t,
			Preview:       bodyPreview(t.Body, t.IsHTML, templatePreviewLength),
			Created:       h.formatTime(t.CreatedAt),
		}
	}

	signatures := h.mailbox.Signatures()
	sigs := make([]signatureRow, len(signatures))
	for i, s := range signatures {
		sigs[i] = signatureRow{
			EmailSignature: s,
			Preview:        bodyPreview(s.Content, s.IsHTML, templatePreviewLength),
		}
	}

	return h.render(c, "templates", fiber.Map{
		"Templates":  rows,
		"Signatures": sigs,
		"Categories": models.TemplateCategories,
		"ShowForm":   c.Query("new") == "1",
	})
}

// HandleCreateTemplate saves a template from the form
func (h *TemplatesHandler) HandleCreateTemplate(c *fiber.Ctx) error {
	in := models.TemplateInput{
		Name:     strings.TrimSpace(c.FormValue("name")),
		Subject:  c.FormValue("subject"),
		Body:     c.FormValue("body"),
		IsHTML:   checkbox(c, "is_html"),
		Category: c.FormValue("category"),
	}
	if in.Category == "" {
		in.Category = models.TemplateCategories[0]
	}

	if in.Name == "" || strings.TrimSpace(in.Subject) == "" || strings.TrimSpace(in.Body) == "" {
		h.flash(c, "error", "message_template_missing_fields")
		return seeOther(c, "/templates?new=1")
	}

	tmpl := h.mailbox.SaveTemplate(in)
	utils.Log.Info("Template %s saved: %s", tmpl.ID, tmpl.Name)
	h.flash(c, "success", "message_template_saved")
	return seeOther(c, "/templates")
}

// HandleCreateSignature saves a signature from the form
func (h *TemplatesHandler) HandleCreateSignature(c *fiber.Ctx) error {
	in := models.SignatureInput{
		Name:      strings.TrimSpace(c.FormValue("name")),
		Content:   c.FormValue("content"),
		IsHTML:    checkbox(c, "is_html"),
		IsDefault: checkbox(c, "is_default"),
	}

	if in.Name == "" || strings.TrimSpace(in.Content) == "" {
		h.flash(c, "error", "message_signature_missing_fields")
		return seeOther(c, "/templates")
	}

	sig := h.mailbox.SaveSignature(in)
	utils.Log.Info("Signature %s saved: %s", sig.ID, sig.Name)
	h.flash(c, "success", "message_signature_saved")
	return seeOther(c, "/templates")
}

// bodyPreview strips rich markup and cuts the text for a card preview
func bodyPreview(body string, isHTML bool, limit int) string {
	if isHTML {
		body = utils.StripHTML(body)
	}
	return utils.Preview(body, limit)
}

func checkbox(c *fiber.Ctx, name string) bool {
	switch c.FormValue(name) {
	case "on", "true", "1":
		return true
	}
	return false
}

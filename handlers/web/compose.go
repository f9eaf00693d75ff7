package web

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"mailbutler/composer"
	"mailbutler/handlers/api"
	"mailbutler/metrics"
	"mailbutler/models"
	"mailbutler/storage"
	"mailbutler/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
)

const composeKey = "compose"

// ComposeHandler serves the compose page and its form actions. The form is
// kept in the session so the panels survive the round trips.
type ComposeHandler struct {
	base
	notify *api.NotificationHandler
}

func NewComposeHandler(mailbox *storage.Mailbox, store *session.Store, location *time.Location, notify *api.NotificationHandler) *ComposeHandler {
	return &ComposeHandler{
		base:   newBase(mailbox, store, location),
		notify: notify,
	}
}

// ShowCompose renders the compose page
func (h *ComposeHandler) ShowCompose(c *fiber.Ctx) error {
	form, _, err := h.loadForm(c)
	if err != nil {
		return err
	}
	return h.renderCompose(c, form, nil)
}

// HandleSend sends or schedules the composed email
func (h *ComposeHandler) HandleSend(c *fiber.Ctx) error {
	form, sess, err := h.loadForm(c)
	if err != nil {
		return err
	}
	bindForm(c, form)

	in, err := form.Build(h.location)
	if err != nil {
		messageID := "message_error"
		switch {
		case errors.Is(err, composer.ErrMissingFields):
			messageID = "message_missing_fields"
		case errors.Is(err, composer.ErrInvalidSchedule):
			messageID = "message_invalid_schedule"
		}
		if err := h.saveForm(sess, form); err != nil {
			return err
		}
		c.Status(fiber.StatusBadRequest)
		return h.renderCompose(c, form, &Flash{Kind: "error", Message: utils.T(localizer(c), messageID)})
	}

	email := h.mailbox.SendEmail(in)
	metrics.IncrementEmailCreated(string(email.Status()))
	h.notify.NotifyEmailCreated(email)

	form.Reset()
	if email.Status() == models.StatusScheduled {
		setFlash(c, sess, "success", "message_scheduled_success")
	} else {
		setFlash(c, sess, "success", "message_sent_success")
	}
	if err := h.saveForm(sess, form); err != nil {
		return err
	}
	return seeOther(c, "/compose")
}

// HandleToggle opens or closes one of the compose panels
func (h *ComposeHandler) HandleToggle(c *fiber.Ctx) error {
	return h.update(c, func(form *composer.Form, _ *session.Session) error {
		if !form.Toggle(c.Params("panel")) {
			return utils.NotFoundError("Unknown panel", nil)
		}
		return nil
	})
}

// HandleApplyTemplate copies a template into the form
func (h *ComposeHandler) HandleApplyTemplate(c *fiber.Ctx) error {
	return h.update(c, func(form *composer.Form, _ *session.Session) error {
		if tmpl, ok := h.mailbox.Template(c.Params("id")); ok {
			form.ApplyTemplate(*tmpl)
		}
		return nil
	})
}

// HandleApplySignature appends a signature to the body
func (h *ComposeHandler) HandleApplySignature(c *fiber.Ctx) error {
	return h.update(c, func(form *composer.Form, _ *session.Session) error {
		if sig, ok := h.mailbox.Signature(c.Params("id")); ok {
			form.ApplySignature(*sig)
		}
		return nil
	})
}

// HandleSaveTemplate stores the current subject and body as a template
func (h *ComposeHandler) HandleSaveTemplate(c *fiber.Ctx) error {
	return h.update(c, func(form *composer.Form, sess *session.Session) error {
		in, err := form.AsTemplate(c.FormValue("template_name"))
		if err != nil {
			setFlash(c, sess, "error", "message_template_missing_fields")
			return nil
		}
		h.mailbox.SaveTemplate(in)
		setFlash(c, sess, "success", "message_template_saved")
		return nil
	})
}

// update binds the posted fields, applies fn and redirects to the page
func (h *ComposeHandler) update(c *fiber.Ctx, fn func(*composer.Form, *session.Session) error) error {
	form, sess, err := h.loadForm(c)
	if err != nil {
		return err
	}
	bindForm(c, form)

	if err := fn(form, sess); err != nil {
		return err
	}

	if err := h.saveForm(sess, form); err != nil {
		return err
	}
	return seeOther(c, "/compose")
}

func (h *ComposeHandler) renderCompose(c *fiber.Ctx, form *composer.Form, flash *Flash) error {
	templates := h.mailbox.Templates()
	signatures := h.mailbox.Signatures()

	data := fiber.Map{
		"Form":            form,
		"Templates":       templates,
		"Signatures":      signatures,
		"CanSend":         form.CanSend(),
		"CanSaveTemplate": form.CanSaveTemplate(),
		"MinSchedule":     time.Now().In(h.location).Format(composer.ScheduleLayout),
	}
	if flash != nil {
		data["Flash"] = flash
	}
	return h.render(c, "compose", data)
}

func (h *ComposeHandler) loadForm(c *fiber.Ctx) (*composer.Form, *session.Session, error) {
	sess, err := h.store.Get(c)
	if err != nil {
		return nil, nil, utils.InternalServerError("Failed to load session", err)
	}

	form := &composer.Form{}
	if raw, ok := sess.Get(composeKey).(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), form); err != nil {
			utils.Log.Warn("Discarding unreadable compose form: %v", err)
			form = &composer.Form{}
		}
	}
	return form, sess, nil
}

func (h *ComposeHandler) saveForm(sess *session.Session, form *composer.Form) error {
	data, err := json.Marshal(form)
	if err != nil {
		return utils.InternalServerError("Failed to encode form", err)
	}
	sess.Set(composeKey, string(data))
	if err := sess.Save(); err != nil {
		return utils.InternalServerError("Failed to save session", err)
	}
	return nil
}

// bindForm copies the posted compose fields into form. Posts that do not come
// from the compose form leave it untouched.
func bindForm(c *fiber.Ctx, form *composer.Form) {
	if c.FormValue("compose") != "1" {
		return
	}
	form.To = c.FormValue("to")
	form.Cc = c.FormValue("cc")
	form.Bcc = c.FormValue("bcc")
	form.Subject = c.FormValue("subject")
	form.Body = c.FormValue("body")
	form.IsHTML = c.FormValue("is_html") == "true"
	if form.ShowSchedule {
		form.ScheduledFor = strings.TrimSpace(c.FormValue("scheduled_for"))
	}
}

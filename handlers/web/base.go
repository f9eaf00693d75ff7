package web

import (
	"encoding/json"
	"time"

	"mailbutler/middleware"
	"mailbutler/storage"
	"mailbutler/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/nicksnyder/go-i18n/v2/i18n"
)

const (
	displayTimeLayout = "Jan 02, 2006 15:04"
	flashKey          = "flash"
)

// Flash is a one-shot message shown on the next page render
type Flash struct {
	Kind    string `json:"kind"` // success, error
	Message string `json:"message"`
}

// base carries what every page handler needs
type base struct {
	mailbox  *storage.Mailbox
	store    *session.Store
	location *time.Location
}

func newBase(mailbox *storage.Mailbox, store *session.Store, location *time.Location) base {
	if location == nil {
		location = time.Local
	}
	return base{mailbox: mailbox, store: store, location: location}
}

// render adds the layout data shared by every page and renders view
func (b *base) render(c *fiber.Ctx, view string, data fiber.Map) error {
	settings := b.mailbox.Settings()

	data["Lang"] = middleware.Lang(c)
	data["CSRFToken"] = middleware.CSRFToken(c)
	data["Active"] = view
	data["Theme"] = settings.Theme
	data["DisplayName"] = settings.DisplayName

	if _, ok := data["Flash"]; !ok {
		if flash := b.popFlash(c); flash != nil {
			data["Flash"] = flash
		}
	}

	return c.Render(view, data)
}

func (b *base) formatTime(t time.Time) string {
	return t.In(b.location).Format(displayTimeLayout)
}

// flash stores a message for the next request
func (b *base) flash(c *fiber.Ctx, kind, messageID string) {
	sess, err := b.store.Get(c)
	if err != nil {
		utils.Log.Warn("Failed to load session: %v", err)
		return
	}
	setFlash(c, sess, kind, messageID)
	if err := sess.Save(); err != nil {
		utils.Log.Warn("Failed to save session: %v", err)
	}
}

// setFlash stores a message on a session the caller saves
func setFlash(c *fiber.Ctx, sess *session.Session, kind, messageID string) {
	data, _ := json.Marshal(Flash{Kind: kind, Message: utils.T(localizer(c), messageID)})
	sess.Set(flashKey, string(data))
}

func (b *base) popFlash(c *fiber.Ctx) *Flash {
	sess, err := b.store.Get(c)
	if err != nil {
		return nil
	}
	raw, ok := sess.Get(flashKey).(string)
	if !ok || raw == "" {
		return nil
	}
	sess.Delete(flashKey)
	if err := sess.Save(); err != nil {
		utils.Log.Warn("Failed to save session: %v", err)
	}

	var flash Flash
	if err := json.Unmarshal([]byte(raw), &flash); err != nil {
		return nil
	}
	return &flash
}

func localizer(c *fiber.Ctx) *i18n.Localizer {
	if l, ok := c.Locals("localizer").(*i18n.Localizer); ok {
		return l
	}
	return utils.Localizer
}

// seeOther finishes a form post with a redirect to a page
func seeOther(c *fiber.Ctx, path string) error {
	return c.Redirect(path, fiber.StatusSeeOther)
}

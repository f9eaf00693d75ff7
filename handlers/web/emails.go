package web

import (
	"strconv"
	"strings"
	"time"

	"mailbutler/handlers/api"
	"mailbutler/metrics"
	"mailbutler/models"
	"mailbutler/storage"
	"mailbutler/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
)

const emailPreviewLength = 100

// DefaultSnoozeHours prefills the snooze prompt
const DefaultSnoozeHours = 2

// emailRow is an email prepared for the list page
type emailRow struct {
	ID          string
	Status      models.Status
	StatusText  string
	Subject     string
	To          string
	IsHTML      bool
	Preview     string
	Tracking    *models.EmailTracking
	LastOpened  string
	CanSnooze   bool
	CanUnsnooze bool
}

type statusTab struct {
	Status models.Status
	Label  string
	Count  int
	Active bool
}

// EmailsHandler serves the email list and its snooze actions
type EmailsHandler struct {
	base
	notify *api.NotificationHandler
}

func NewEmailsHandler(mailbox *storage.Mailbox, store *session.Store, location *time.Location, notify *api.NotificationHandler) *EmailsHandler {
	return &EmailsHandler{
		base:   newBase(mailbox, store, location),
		notify: notify,
	}
}

// ShowEmails renders the email list, optionally filtered by ?status=
func (h *EmailsHandler) ShowEmails(c *fiber.Ctx) error {
	filter := models.Status(c.Query("status"))
	if !filter.Valid() {
		filter = ""
	}

	emails := h.mailbox.Emails()
	loc := localizer(c)

	counts := make(map[models.Status]int)
	rows := make([]emailRow, 0, len(emails))
	for i := range emails {
		email := &emails[i]
		counts[email.Status()]++
		if filter != "" && email.Status() != filter {
			continue
		}
		rows = append(rows, h.row(c, email))
	}

	tabs := []statusTab{{Label: utils.T(loc, "filter_all"), Count: len(emails), Active: filter == ""}}
	for _, s := range []models.Status{models.StatusSent, models.StatusScheduled, models.StatusSnoozed, models.StatusDraft} {
		tabs = append(tabs, statusTab{
			Status: s,
			Label:  utils.T(loc, "filter_"+string(s)),
			Count:  counts[s],
			Active: filter == s,
		})
	}

	return h.render(c, "emails", fiber.Map{
		"Emails":      rows,
		"Tabs":        tabs,
		"Filter":      filter,
		"SnoozeHours": DefaultSnoozeHours,
	})
}

// HandleSnooze snoozes an email for the posted number of hours. Malformed or
// out of range hours and unknown ids are ignored.
func (h *EmailsHandler) HandleSnooze(c *fiber.Ctx) error {
	back := listURL(c)

	hours, err := strconv.ParseFloat(strings.TrimSpace(c.FormValue("hours")), 64)
	d, ok := models.SnoozeDuration(hours)
	if err != nil || !ok {
		utils.Log.Debug("Ignoring snooze with hours %q", c.FormValue("hours"))
		return seeOther(c, back)
	}

	until := time.Now().Add(d)
	if email, ok := h.mailbox.SnoozeEmail(c.Params("id"), until); ok {
		metrics.IncrementStatusChange(string(models.StatusSnoozed))
		h.notify.NotifyStatusChange(email)
	}
	return seeOther(c, back)
}

// HandleUnsnooze returns an email to draft
func (h *EmailsHandler) HandleUnsnooze(c *fiber.Ctx) error {
	if email, ok := h.mailbox.UnsnoozeEmail(c.Params("id")); ok {
		metrics.IncrementStatusChange(string(models.StatusDraft))
		h.notify.NotifyStatusChange(email)
	}
	return seeOther(c, listURL(c))
}

func (h *EmailsHandler) row(c *fiber.Ctx, email *models.Email) emailRow {
	row := emailRow{
		ID:          email.ID,
		Status:      email.Status(),
		StatusText:  h.statusText(c, email),
		Subject:     email.Subject,
		To:          strings.Join(email.To, ", "),
		IsHTML:      email.IsHTML,
		Preview:     email.Body,
		CanSnooze:   email.Status() == models.StatusSent,
		CanUnsnooze: email.Status() == models.StatusSnoozed,
	}
	if email.IsHTML {
		row.Preview = utils.Preview(utils.StripHTML(email.Body), emailPreviewLength)
	}
	if email.Status() == models.StatusSent {
		row.Tracking = email.Tracking()
		if row.Tracking != nil && row.Tracking.LastOpened != nil {
			row.LastOpened = h.formatTime(*row.Tracking.LastOpened)
		}
	}
	return row
}

// statusText describes the status in the request language
func (h *EmailsHandler) statusText(c *fiber.Ctx, email *models.Email) string {
	loc := localizer(c)
	switch s := email.State.(type) {
	case models.Scheduled:
		return utils.TWithData(loc, "status_scheduled", map[string]interface{}{"Time": h.formatTime(s.For)})
	case models.Snoozed:
		return utils.TWithData(loc, "status_snoozed", map[string]interface{}{"Time": h.formatTime(s.Until)})
	case models.Sent:
		return utils.TWithData(loc, "status_sent", map[string]interface{}{"Time": h.formatTime(s.At)})
	default:
		return utils.T(loc, "status_draft")
	}
}

// listURL keeps the list filter across the snooze round trip
func listURL(c *fiber.Ctx) string {
	if status := models.Status(c.FormValue("filter")); status.Valid() {
		return "/emails?status=" + string(status)
	}
	return "/emails"
}

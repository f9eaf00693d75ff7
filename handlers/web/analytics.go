package web

import (
	"time"

	"mailbutler/analytics"
	"mailbutler/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
)

type activityRow struct {
	analytics.Activity
	SentAt string
}

type linkRow struct {
	URL         string
	Clicks      int
	LastClicked string
}

// AnalyticsHandler renders the analytics dashboard
type AnalyticsHandler struct {
	base
}

func NewAnalyticsHandler(mailbox *storage.Mailbox, store *session.Store, location *time.Location) *AnalyticsHandler {
	return &AnalyticsHandler{base: newBase(mailbox, store, location)}
}

// ShowAnalytics renders the summary over the current emails
func (h *AnalyticsHandler) ShowAnalytics(c *fiber.Ctx) error {
	summary := analytics.Summarize(h.mailbox.Emails())

	recent := make([]activityRow, len(summary.Recent))
	for i, a := range summary.Recent {
		recent[i] = activityRow{Activity: a, SentAt: h.formatTime(a.SentAt)}
	}

	links := make([]linkRow, len(summary.TopLinks))
	for i, l := range summary.TopLinks {
		links[i] = linkRow{URL: l.URL, Clicks: l.Clicks}
		if !l.LastClicked.IsZero() {
			links[i].LastClicked = h.formatTime(l.LastClicked)
		}
	}

	return h.render(c, "analytics", fiber.Map{
		"Summary":      summary,
		"OpenRate":     analytics.FormatRate(summary.OpenRate),
		"ClickRate":    analytics.FormatRate(summary.ClickRate),
		"RichText":     analytics.Percent(summary.RichTextRatio),
		"OpenRateBar":  analytics.BarWidth(summary.OpenRate),
		"ClickRateBar": analytics.BarWidth(summary.ClickRate),
		"RecentEmails": recent,
		"TopLinks":     links,
	})
}

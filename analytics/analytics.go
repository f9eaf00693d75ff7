// Package analytics derives dashboard counters from the email collection.
package analytics

import (
	"fmt"
	"sort"
	"time"

	"mailbutler/models"
)

const (
	topLinksLimit = 5
	recentLimit   = 5
)

// Summary holds aggregate counters over a set of emails. Engagement totals
// and rates only consider sent emails.
type Summary struct {
	SentCount      int                `json:"sent_count"`
	ScheduledCount int                `json:"scheduled_count"`
	SnoozedCount   int                `json:"snoozed_count"`
	TotalOpens     int                `json:"total_opens"`
	TotalClicks    int                `json:"total_clicks"`
	LinkClicks     int                `json:"link_clicks"`
	RichTextRatio  float64            `json:"rich_text_ratio"` // 0..1
	OpenRate       float64            `json:"open_rate"`       // opens per sent email
	ClickRate      float64            `json:"click_rate"`      // clicks per sent email
	TopLinks       []models.LinkClick `json:"top_links"`
	Recent         []Activity         `json:"recent"`
}

// Activity is a sent email with its engagement totals
type Activity struct {
	ID         string    `json:"id"`
	Subject    string    `json:"subject"`
	IsHTML     bool      `json:"is_html"`
	SentAt     time.Time `json:"sent_at"`
	Opens      int       `json:"opens"`
	Clicks     int       `json:"clicks"`
	LinkClicks int       `json:"link_clicks"`
	HasLinks   bool      `json:"has_links"`
}

// Summarize folds emails into a Summary. It does not modify emails.
func Summarize(emails []models.Email) Summary {
	s := Summary{
		TopLinks: []models.LinkClick{},
		Recent:   []Activity{},
	}

	var links []models.LinkClick
	rich := 0

	for i := range emails {
		email := &emails[i]
		switch email.Status() {
		case models.StatusScheduled:
			s.ScheduledCount++
			continue
		case models.StatusSnoozed:
			s.SnoozedCount++
			continue
		case models.StatusSent:
		default:
			continue
		}

		s.SentCount++
		if email.IsHTML {
			rich++
		}

		tracking := email.Tracking()
		activity := Activity{
			ID:      email.ID,
			Subject: email.Subject,
			IsHTML:  email.IsHTML,
		}
		activity.SentAt, _ = email.SentAt()

		if tracking != nil {
			s.TotalOpens += tracking.Opens
			s.TotalClicks += tracking.Clicks
			s.LinkClicks += tracking.LinkClickTotal()
			links = append(links, tracking.LinkClicks...)

			activity.Opens = tracking.Opens
			activity.Clicks = tracking.Clicks
			activity.LinkClicks = tracking.LinkClickTotal()
			activity.HasLinks = len(tracking.LinkClicks) > 0
		}

		if len(s.Recent) < recentLimit {
			s.Recent = append(s.Recent, activity)
		}
	}

	if s.SentCount > 0 {
		sent := float64(s.SentCount)
		s.OpenRate = float64(s.TotalOpens) / sent
		s.ClickRate = float64(s.TotalClicks) / sent
		s.RichTextRatio = float64(rich) / sent
	}

	s.TopLinks = TopLinks(links, topLinksLimit)
	return s
}

// TopLinks returns up to limit links ordered by clicks, highest first. Links
// with equal clicks keep their input order.
func TopLinks(links []models.LinkClick, limit int) []models.LinkClick {
	sorted := make([]models.LinkClick, len(links))
	copy(sorted, links)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Clicks > sorted[j].Clicks
	})

	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

// FormatRate renders a rate with one decimal, e.g. "1.5"
func FormatRate(v float64) string {
	return fmt.Sprintf("%.1f", v)
}

// Percent renders a ratio as a percentage with one decimal, e.g. "50.0%"
func Percent(ratio float64) string {
	return fmt.Sprintf("%.1f%%", ratio*100)
}

// BarWidth caps a rate at 100 for progress bars
func BarWidth(v float64) float64 {
	if v > 100 {
		return 100
	}
	if v < 0 {
		return 0
	}
	return v
}

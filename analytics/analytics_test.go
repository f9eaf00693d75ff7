package analytics

import (
	"testing"
	"time"

	"mailbutler/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sentEmail(id string, html bool, tracking *models.EmailTracking) models.Email {
	return models.Email{
		ID:      id,
		Subject: "subject " + id,
		IsHTML:  html,
		State:   models.Sent{At: time.Now(), Tracking: tracking},
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)

	assert.Zero(t, s.SentCount)
	assert.Zero(t, s.OpenRate)
	assert.Zero(t, s.ClickRate)
	assert.Zero(t, s.RichTextRatio)
	assert.Empty(t, s.TopLinks)
	assert.Empty(t, s.Recent)
}

func TestSummarizeCountsOnlySentEngagement(t *testing.T) {
	tracked := &models.EmailTracking{
		Opens:  4,
		Clicks: 2,
		LinkClicks: []models.LinkClick{
			{URL: "https://a", Clicks: 2},
		},
	}
	emails := []models.Email{
		sentEmail("1", true, tracked),
		sentEmail("2", false, nil),
		{ID: "3", State: models.Scheduled{For: time.Now()}},
		{ID: "4", State: models.Snoozed{Until: time.Now(), Tracking: &models.EmailTracking{Opens: 100, Clicks: 100}}},
		{ID: "5", State: models.Draft{}},
	}

	s := Summarize(emails)

	assert.Equal(t, 2, s.SentCount)
	assert.Equal(t, 1, s.ScheduledCount)
	assert.Equal(t, 1, s.SnoozedCount)
	assert.Equal(t, 4, s.TotalOpens)
	assert.Equal(t, 2, s.TotalClicks)
	assert.Equal(t, 2, s.LinkClicks)
	assert.InDelta(t, 0.5, s.RichTextRatio, 1e-9)
	assert.InDelta(t, 2.0, s.OpenRate, 1e-9)
	assert.InDelta(t, 1.0, s.ClickRate, 1e-9)

	require.Len(t, s.Recent, 2)
	assert.Equal(t, "1", s.Recent[0].ID)
	assert.True(t, s.Recent[0].HasLinks)
	assert.False(t, s.Recent[1].HasLinks)
}

func TestTopLinksStableOnTies(t *testing.T) {
	emails := []models.Email{
		sentEmail("1", false, &models.EmailTracking{LinkClicks: []models.LinkClick{
			{URL: "a", Clicks: 1},
			{URL: "b", Clicks: 3},
			{URL: "c", Clicks: 1},
		}}),
		sentEmail("2", false, &models.EmailTracking{LinkClicks: []models.LinkClick{
			{URL: "d", Clicks: 3},
			{URL: "e", Clicks: 1},
			{URL: "f", Clicks: 0},
		}}),
	}

	s := Summarize(emails)

	urls := make([]string, len(s.TopLinks))
	for i, l := range s.TopLinks {
		urls[i] = l.URL
	}
	assert.Equal(t, []string{"b", "d", "a", "c", "e"}, urls)
}

func TestRecentActivityLimit(t *testing.T) {
	var emails []models.Email
	for i := 0; i < 8; i++ {
		emails = append(emails, sentEmail(string(rune('a'+i)), false, nil))
	}

	s := Summarize(emails)
	assert.Len(t, s.Recent, recentLimit)
	assert.Equal(t, "a", s.Recent[0].ID)
}

func TestSummarizeDoesNotReorderInput(t *testing.T) {
	links := []models.LinkClick{{URL: "low", Clicks: 1}, {URL: "high", Clicks: 9}}
	emails := []models.Email{sentEmail("1", false, &models.EmailTracking{LinkClicks: links})}

	Summarize(emails)
	assert.Equal(t, "low", links[0].URL)
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "1.5", FormatRate(1.5))
	assert.Equal(t, "33.3%", Percent(1.0/3))
	assert.Equal(t, 100.0, BarWidth(250))
	assert.Equal(t, 0.0, BarWidth(-1))
	assert.Equal(t, 42.0, BarWidth(42))
}

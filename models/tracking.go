package models

import "time"

// EmailTracking holds open and click engagement for a sent email
type EmailTracking struct {
	Opens       int                 `json:"opens" yaml:"opens"`
	Clicks      int                 `json:"clicks" yaml:"clicks"`
	LinkClicks  []LinkClick         `json:"link_clicks" yaml:"link_clicks"`
	LastOpened  *time.Time          `json:"last_opened,omitempty" yaml:"last_opened,omitempty"`
	LastClicked *time.Time          `json:"last_clicked,omitempty" yaml:"last_clicked,omitempty"`
	Recipients  []TrackingRecipient `json:"recipients" yaml:"recipients"`
}

// LinkClick aggregates clicks on one URL
type LinkClick struct {
	URL         string    `json:"url" yaml:"url"`
	Clicks      int       `json:"clicks" yaml:"clicks"`
	LastClicked time.Time `json:"last_clicked" yaml:"last_clicked"`
	Recipients  []string  `json:"recipients" yaml:"recipients"`
}

// TrackingRecipient is the engagement of a single recipient
type TrackingRecipient struct {
	Email       string               `json:"email" yaml:"email"`
	Opened      bool                 `json:"opened" yaml:"opened"`
	Clicked     bool                 `json:"clicked" yaml:"clicked"`
	OpenCount   int                  `json:"open_count" yaml:"open_count"`
	ClickCount  int                  `json:"click_count" yaml:"click_count"`
	LinkClicks  []RecipientLinkCount `json:"link_clicks" yaml:"link_clicks"`
	LastOpened  *time.Time           `json:"last_opened,omitempty" yaml:"last_opened,omitempty"`
	LastClicked *time.Time           `json:"last_clicked,omitempty" yaml:"last_clicked,omitempty"`
}

// RecipientLinkCount is how often a recipient clicked one URL
type RecipientLinkCount struct {
	URL   string `json:"url" yaml:"url"`
	Count int    `json:"count" yaml:"count"`
}

// RecordOpen counts an open by recipient at the given time
func (t *EmailTracking) RecordOpen(recipient string, at time.Time) {
	t.Opens++
	t.LastOpened = &at

	r := t.recipient(recipient)
	r.Opened = true
	r.OpenCount++
	r.LastOpened = &at
}

// RecordClick counts a click on url by recipient at the given time
func (t *EmailTracking) RecordClick(recipient, url string, at time.Time) {
	t.Clicks++
	t.LastClicked = &at

	link := t.link(url)
	link.Clicks++
	link.LastClicked = at
	if !containsString(link.Recipients, recipient) {
		link.Recipients = append(link.Recipients, recipient)
	}

	r := t.recipient(recipient)
	r.Clicked = true
	r.ClickCount++
	r.LastClicked = &at
	for i := range r.LinkClicks {
		if r.LinkClicks[i].URL == url {
			r.LinkClicks[i].Count++
			return
		}
	}
	r.LinkClicks = append(r.LinkClicks, RecipientLinkCount{URL: url, Count: 1})
}

// LinkClickTotal sums the clicks of every link record
func (t *EmailTracking) LinkClickTotal() int {
	if t == nil {
		return 0
	}
	total := 0
	for _, l := range t.LinkClicks {
		total += l.Clicks
	}
	return total
}

// Clone returns a deep copy of the tracking record
func (t *EmailTracking) Clone() *EmailTracking {
	if t == nil {
		return nil
	}
	c := *t
	c.LastOpened = cloneTime(t.LastOpened)
	c.LastClicked = cloneTime(t.LastClicked)

	c.LinkClicks = make([]LinkClick, len(t.LinkClicks))
	for i, l := range t.LinkClicks {
		l.Recipients = cloneStrings(l.Recipients)
		c.LinkClicks[i] = l
	}

	c.Recipients = make([]TrackingRecipient, len(t.Recipients))
	for i, r := range t.Recipients {
		r.LastOpened = cloneTime(r.LastOpened)
		r.LastClicked = cloneTime(r.LastClicked)
		r.LinkClicks = append([]RecipientLinkCount(nil), r.LinkClicks...)
		c.Recipients[i] = r
	}
	return &c
}

func (t *EmailTracking) link(url string) *LinkClick {
	for i := range t.LinkClicks {
		if t.LinkClicks[i].URL == url {
			return &t.LinkClicks[i]
		}
	}
	t.LinkClicks = append(t.LinkClicks, LinkClick{URL: url})
	return &t.LinkClicks[len(t.LinkClicks)-1]
}

func (t *EmailTracking) recipient(email string) *TrackingRecipient {
	for i := range t.Recipients {
		if t.Recipients[i].Email == email {
			return &t.Recipients[i]
		}
	}
	t.Recipients = append(t.Recipients, TrackingRecipient{Email: email})
	return &t.Recipients[len(t.Recipients)-1]
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

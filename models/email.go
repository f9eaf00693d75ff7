package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status is the delivery status label of an email
type Status string

const (
	StatusDraft     Status = "draft"
	StatusScheduled Status = "scheduled"
	StatusSent      Status = "sent"
	StatusSnoozed   Status = "snoozed"
)

// Valid reports whether s is one of the known statuses
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusScheduled, StatusSent, StatusSnoozed:
		return true
	}
	return false
}

// State is the delivery state of an email. Each status carries only the
// fields that are meaningful for it.
type State interface {
	Status() Status
	state()
}

// Draft is an email that is neither sent, scheduled nor snoozed. An email
// that returns to draft keeps its earlier schedule time and tracking.
type Draft struct {
	ScheduledFor *time.Time
	Tracking     *EmailTracking
}

// Scheduled is an email waiting for its send time
type Scheduled struct {
	For time.Time
}

// Sent is a delivered email and its engagement data
type Sent struct {
	At       time.Time
	Tracking *EmailTracking
}

// Snoozed is an email hidden until a given time. Tracking collected while
// the email was sent is kept, as is the schedule time of a scheduled email.
type Snoozed struct {
	Until        time.Time
	ScheduledFor *time.Time
	Tracking     *EmailTracking
}

func (Draft) Status() Status     { return StatusDraft }
func (Scheduled) Status() Status { return StatusScheduled }
func (Sent) Status() Status      { return StatusSent }
func (Snoozed) Status() Status   { return StatusSnoozed }

func (Draft) state()     {}
func (Scheduled) state() {}
func (Sent) state()      {}
func (Snoozed) state()   {}

// MaxSnoozeHours bounds a relative snooze to ten years
const MaxSnoozeHours = 10 * 365 * 24

// SnoozeDuration converts a number of hours into a duration. It reports false
// for values that are not positive, not a number or above MaxSnoozeHours.
func SnoozeDuration(hours float64) (time.Duration, bool) {
	if !(hours > 0 && hours <= MaxSnoozeHours) {
		return 0, false
	}
	return time.Duration(hours * float64(time.Hour)), true
}

// Email represents a composed email
type Email struct {
	ID         string
	To         []string
	Cc         []string
	Bcc        []string
	Subject    string
	Body       string
	IsHTML     bool
	State      State
	CreatedAt  time.Time
	TemplateID string
}

// SendInput holds the fields needed to create a new email
type SendInput struct {
	To           []string   `json:"to"`
	Cc           []string   `json:"cc,omitempty"`
	Bcc          []string   `json:"bcc,omitempty"`
	Subject      string     `json:"subject"`
	Body         string     `json:"body"`
	IsHTML       bool       `json:"is_html"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
	TemplateID   string     `json:"template_id,omitempty"`
}

// Status returns the status label of the email
func (e *Email) Status() Status {
	if e.State == nil {
		return StatusDraft
	}
	return e.State.Status()
}

// ScheduledFor returns the scheduled send time, if the email is scheduled
func (e *Email) ScheduledFor() (time.Time, bool) {
	if s, ok := e.State.(Scheduled); ok {
		return s.For, true
	}
	return time.Time{}, false
}

// SentAt returns the send time, if the email is sent
func (e *Email) SentAt() (time.Time, bool) {
	if s, ok := e.State.(Sent); ok {
		return s.At, true
	}
	return time.Time{}, false
}

// SnoozedUntil returns the snooze time, if the email is snoozed
func (e *Email) SnoozedUntil() (time.Time, bool) {
	if s, ok := e.State.(Snoozed); ok {
		return s.Until, true
	}
	return time.Time{}, false
}

// Tracking returns the engagement data collected while the email was sent
func (e *Email) Tracking() *EmailTracking {
	switch s := e.State.(type) {
	case Sent:
		return s.Tracking
	case Snoozed:
		return s.Tracking
	case Draft:
		return s.Tracking
	}
	return nil
}

// PlannedFor returns the schedule time the email carries in any state. Unlike
// ScheduledFor it also reports the time kept by snoozed and draft emails.
func (e *Email) PlannedFor() *time.Time {
	switch s := e.State.(type) {
	case Scheduled:
		at := s.For
		return &at
	case Snoozed:
		return cloneTime(s.ScheduledFor)
	case Draft:
		return cloneTime(s.ScheduledFor)
	}
	return nil
}

// Recipients returns to, cc and bcc addresses in that order
func (e *Email) Recipients() []string {
	all := make([]string, 0, len(e.To)+len(e.Cc)+len(e.Bcc))
	all = append(all, e.To...)
	all = append(all, e.Cc...)
	all = append(all, e.Bcc...)
	return all
}

// Clone returns a deep copy of the email
func (e *Email) Clone() *Email {
	c := *e
	c.To = cloneStrings(e.To)
	c.Cc = cloneStrings(e.Cc)
	c.Bcc = cloneStrings(e.Bcc)
	switch s := e.State.(type) {
	case Sent:
		s.Tracking = s.Tracking.Clone()
		c.State = s
	case Snoozed:
		s.ScheduledFor = cloneTime(s.ScheduledFor)
		s.Tracking = s.Tracking.Clone()
		c.State = s
	case Draft:
		s.ScheduledFor = cloneTime(s.ScheduledFor)
		s.Tracking = s.Tracking.Clone()
		c.State = s
	}
	return &c
}

type emailJSON struct {
	ID           string         `json:"id"`
	To           []string       `json:"to"`
	Cc           []string       `json:"cc,omitempty"`
	Bcc          []string       `json:"bcc,omitempty"`
	Subject      string         `json:"subject"`
	Body         string         `json:"body"`
	IsHTML       bool           `json:"is_html"`
	Status       Status         `json:"status"`
	ScheduledFor *time.Time     `json:"scheduled_for,omitempty"`
	SentAt       *time.Time     `json:"sent_at,omitempty"`
	SnoozedUntil *time.Time     `json:"snoozed_until,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	TemplateID   string         `json:"template_id,omitempty"`
	Tracking     *EmailTracking `json:"tracking,omitempty"`
}

// MarshalJSON flattens the state into a status label and its time field
func (e Email) MarshalJSON() ([]byte, error) {
	out := emailJSON{
		ID:           e.ID,
		To:           e.To,
		Cc:           e.Cc,
		Bcc:          e.Bcc,
		Subject:      e.Subject,
		Body:         e.Body,
		IsHTML:       e.IsHTML,
		Status:       e.Status(),
		ScheduledFor: e.PlannedFor(),
		CreatedAt:    e.CreatedAt,
		TemplateID:   e.TemplateID,
		Tracking:     e.Tracking(),
	}
	if out.To == nil {
		out.To = []string{}
	}
	switch s := e.State.(type) {
	case Sent:
		out.SentAt = &s.At
	case Snoozed:
		out.SnoozedUntil = &s.Until
	}
	return json.Marshal(out)
}

// UnmarshalJSON rebuilds the state from the flattened form
func (e *Email) UnmarshalJSON(data []byte) error {
	var in emailJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	state, err := buildState(in.Status, in.ScheduledFor, in.SentAt, in.SnoozedUntil, in.Tracking)
	if err != nil {
		return fmt.Errorf("email %s: %w", in.ID, err)
	}

	*e = Email{
		ID:         in.ID,
		To:         in.To,
		Cc:         in.Cc,
		Bcc:        in.Bcc,
		Subject:    in.Subject,
		Body:       in.Body,
		IsHTML:     in.IsHTML,
		State:      state,
		CreatedAt:  in.CreatedAt,
		TemplateID: in.TemplateID,
	}
	return nil
}

// BuildState returns the state for a status and its time field. It fails when
// the field the status requires is missing.
func BuildState(status Status, scheduledFor, sentAt, snoozedUntil *time.Time, tracking *EmailTracking) (State, error) {
	return buildState(status, scheduledFor, sentAt, snoozedUntil, tracking)
}

func buildState(status Status, scheduledFor, sentAt, snoozedUntil *time.Time, tracking *EmailTracking) (State, error) {
	switch status {
	case StatusDraft, "":
		return Draft{ScheduledFor: scheduledFor, Tracking: tracking}, nil
	case StatusScheduled:
		if scheduledFor == nil {
			return nil, fmt.Errorf("scheduled email without scheduled_for")
		}
		return Scheduled{For: *scheduledFor}, nil
	case StatusSent:
		if sentAt == nil {
			return nil, fmt.Errorf("sent email without sent_at")
		}
		return Sent{At: *sentAt, Tracking: tracking}, nil
	case StatusSnoozed:
		if snoozedUntil == nil {
			return nil, fmt.Errorf("snoozed email without snoozed_until")
		}
		return Snoozed{Until: *snoozedUntil, ScheduledFor: scheduledFor, Tracking: tracking}, nil
	default:
		return nil, fmt.Errorf("unknown status %q", status)
	}
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

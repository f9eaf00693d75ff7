// Package composer holds the compose form state kept between requests and
// turns it into a send input.
package composer

import (
	"errors"
	"strings"
	"time"

	"mailbutler/models"
	"mailbutler/utils"
)

// ScheduleLayout is the format of a datetime-local input
const ScheduleLayout = "2006-01-02T15:04"

// CustomCategory is assigned to templates saved from the composer
const CustomCategory = "Custom"

var (
	ErrMissingFields   = errors.New("to, subject and body are required")
	ErrInvalidSchedule = errors.New("invalid schedule time")
)

// Form is the compose form as the user sees it
type Form struct {
	To           string `json:"to" form:"to"`
	Cc           string `json:"cc" form:"cc"`
	Bcc          string `json:"bcc" form:"bcc"`
	Subject      string `json:"subject" form:"subject"`
	Body         string `json:"body" form:"body"`
	IsHTML       bool   `json:"is_html" form:"is_html"`
	ScheduledFor string `json:"scheduled_for" form:"scheduled_for"`
	TemplateID   string `json:"template_id" form:"-"`

	ShowTemplates  bool `json:"show_templates" form:"-"`
	ShowSignatures bool `json:"show_signatures" form:"-"`
	ShowSchedule   bool `json:"show_schedule" form:"-"`
}

// CanSend reports whether the required fields are filled in
func (f *Form) CanSend() bool {
	return strings.TrimSpace(f.To) != "" &&
		strings.TrimSpace(f.Subject) != "" &&
		strings.TrimSpace(f.Body) != ""
}

// CanSaveTemplate reports whether the form has content worth saving
func (f *Form) CanSaveTemplate() bool {
	return strings.TrimSpace(f.Subject) != "" && strings.TrimSpace(f.Body) != ""
}

// SplitRecipients splits a comma separated list. Entries are trimmed and
// empty entries dropped; an empty list is nil.
func SplitRecipients(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if addr := strings.TrimSpace(part); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

// Build validates the form and returns the send input. The schedule time is
// interpreted in loc.
func (f *Form) Build(loc *time.Location) (models.SendInput, error) {
	if !f.CanSend() {
		return models.SendInput{}, ErrMissingFields
	}

	to := SplitRecipients(f.To)
	if len(to) == 0 {
		return models.SendInput{}, ErrMissingFields
	}

	in := models.SendInput{
		To:         to,
		Cc:         SplitRecipients(f.Cc),
		Bcc:        SplitRecipients(f.Bcc),
		Subject:    f.Subject,
		Body:       f.Body,
		IsHTML:     f.IsHTML,
		TemplateID: f.TemplateID,
	}

	if s := strings.TrimSpace(f.ScheduledFor); s != "" {
		if loc == nil {
			loc = time.Local
		}
		at, err := time.ParseInLocation(ScheduleLayout, s, loc)
		if err != nil {
			return models.SendInput{}, ErrInvalidSchedule
		}
		in.ScheduledFor = &at
	}

	return in, nil
}

// ApplyTemplate copies the template subject, body and content kind into the
// form and closes the picker.
func (f *Form) ApplyTemplate(t models.EmailTemplate) {
	f.Subject = t.Subject
	f.Body = t.Body
	f.IsHTML = t.IsHTML
	f.TemplateID = t.ID
	f.ShowTemplates = false
}

// ApplySignature appends the signature to the body, converting between rich
// and plain content as needed, and closes the picker.
func (f *Form) ApplySignature(s models.EmailSignature) {
	content := s.Content
	switch {
	case f.IsHTML && !s.IsHTML:
		content = utils.TextToHTML(content)
	case !f.IsHTML && s.IsHTML:
		content = utils.HTMLToText(content)
	}

	if f.IsHTML {
		f.Body += "<br><br>" + content
	} else {
		f.Body += "\n\n" + content
	}
	f.ShowSignatures = false
}

// AsTemplate returns the template input for "save as template"
func (f *Form) AsTemplate(name string) (models.TemplateInput, error) {
	if strings.TrimSpace(name) == "" || !f.CanSaveTemplate() {
		return models.TemplateInput{}, ErrMissingFields
	}
	return models.TemplateInput{
		Name:     strings.TrimSpace(name),
		Subject:  f.Subject,
		Body:     f.Body,
		IsHTML:   f.IsHTML,
		Category: CustomCategory,
	}, nil
}

// Toggle flips one of the form panels. Unknown panels report false.
func (f *Form) Toggle(panel string) bool {
	switch panel {
	case "templates":
		f.ShowTemplates = !f.ShowTemplates
	case "signatures":
		f.ShowSignatures = !f.ShowSignatures
	case "schedule":
		f.ShowSchedule = !f.ShowSchedule
		if !f.ShowSchedule {
			f.ScheduledFor = ""
		}
	case "format":
		f.IsHTML = !f.IsHTML
	default:
		return false
	}
	return true
}

// Reset clears the form
func (f *Form) Reset() {
	*f = Form{}
}

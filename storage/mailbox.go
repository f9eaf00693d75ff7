package storage

import (
	"sync"
	"time"

	"mailbutler/models"
	"mailbutler/utils"

	"github.com/google/uuid"
)

// Snapshotter persists the mailbox collections
type Snapshotter interface {
	Save(snap *Snapshot) error
	Load() (*Snapshot, error)
}

// Snapshot is the full mailbox state
type Snapshot struct {
	Emails     []*models.Email          `json:"emails"`
	Templates  []*models.EmailTemplate  `json:"templates"`
	Signatures []*models.EmailSignature `json:"signatures"`
	Settings   models.Settings          `json:"settings"`
}

// Mailbox owns the emails, templates, signatures and settings. It is the only
// component that mutates them; readers always receive copies.
type Mailbox struct {
	mu         sync.RWMutex
	emails     []*models.Email
	templates  []*models.EmailTemplate
	signatures []*models.EmailSignature
	settings   models.Settings

	snapshots Snapshotter
	now       func() time.Time
	newID     func() string
}

// Option configures a Mailbox
type Option func(*Mailbox)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(m *Mailbox) { m.now = now }
}

// WithIDGenerator overrides the identifier source
func WithIDGenerator(newID func() string) Option {
	return func(m *Mailbox) { m.newID = newID }
}

// WithSnapshots persists every mutation through s
func WithSnapshots(s Snapshotter) Option {
	return func(m *Mailbox) { m.snapshots = s }
}

// NewMailbox creates an empty mailbox with default settings
func NewMailbox(opts ...Option) *Mailbox {
	m := &Mailbox{
		settings: models.DefaultSettings(),
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Restore replaces the mailbox contents with snap
func (m *Mailbox) Restore(snap *Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.emails = snap.Emails
	m.templates = snap.Templates
	m.signatures = snap.Signatures
	m.settings = snap.Settings
	m.settings.Normalize()
}

// SendEmail creates an email from in and prepends it. The email is scheduled
// when in carries a schedule time, sent otherwise.
func (m *Mailbox) SendEmail(in models.SendInput) *models.Email {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	email := &models.Email{
		ID:         m.newID(),
		To:         copyList(in.To),
		Cc:         copyList(in.Cc),
		Bcc:        copyList(in.Bcc),
		Subject:    in.Subject,
		Body:       in.Body,
		IsHTML:     in.IsHTML,
		CreatedAt:  now,
		TemplateID: in.TemplateID,
	}
	if in.ScheduledFor != nil {
		email.State = models.Scheduled{For: *in.ScheduledFor}
	} else {
		email.State = models.Sent{At: now}
	}

	m.emails = append([]*models.Email{email}, m.emails...)
	m.persistLocked()

	utils.Log.Info("Email %s created: status=%s to=%v", email.ID, email.Status(), email.To)
	return email.Clone()
}

// SnoozeEmail marks the email as snoozed until the given time. It reports
// false when no email has that id.
func (m *Mailbox) SnoozeEmail(id string, until time.Time) (*models.Email, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	email := m.findEmailLocked(id)
	if email == nil {
		return nil, false
	}

	email.State = models.Snoozed{Until: until, ScheduledFor: email.PlannedFor(), Tracking: email.Tracking()}
	m.persistLocked()

	utils.Log.Info("Email %s snoozed until %s", id, until.Format(time.RFC3339))
	return email.Clone(), true
}

// UnsnoozeEmail returns the email to draft, keeping its tracking and schedule
// time. It reports false when no email has that id.
func (m *Mailbox) UnsnoozeEmail(id string) (*models.Email, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	email := m.findEmailLocked(id)
	if email == nil {
		return nil, false
	}

	email.State = models.Draft{ScheduledFor: email.PlannedFor(), Tracking: email.Tracking()}
	m.persistLocked()

	utils.Log.Info("Email %s unsnoozed", id)
	return email.Clone(), true
}

// SaveTemplate creates a template from in and prepends it
func (m *Mailbox) SaveTemplate(in models.TemplateInput) *models.EmailTemplate {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	tmpl := &models.EmailTemplate{
		ID:        m.newID(),
		Name:      in.Name,
		Subject:   in.Subject,
		Body:      in.Body,
		IsHTML:    in.IsHTML,
		Category:  in.Category,
		CreatedAt: now,
		UpdatedAt: now,
	}

	m.templates = append([]*models.EmailTemplate{tmpl}, m.templates...)
	m.persistLocked()

	c := *tmpl
	return &c
}

// SaveSignature creates a signature from in and prepends it. A new default
// signature clears the flag on the others.
func (m *Mailbox) SaveSignature(in models.SignatureInput) *models.EmailSignature {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	sig := &models.EmailSignature{
		ID:        m.newID(),
		Name:      in.Name,
		Content:   in.Content,
		IsHTML:    in.IsHTML,
		IsDefault: in.IsDefault,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if sig.IsDefault {
		for _, s := range m.signatures {
			if s.IsDefault {
				s.IsDefault = false
				s.UpdatedAt = now
			}
		}
	}

	m.signatures = append([]*models.EmailSignature{sig}, m.signatures...)
	m.persistLocked()

	c := *sig
	return &c
}

// UpdateSettings replaces the settings and returns the stored value
func (m *Mailbox) UpdateSettings(s models.Settings) models.Settings {
	m.mu.Lock()
	defer m.mu.Unlock()

	s.Normalize()
	m.settings = s
	m.persistLocked()
	return m.settings
}

// ModifySettings applies mutate to a copy of the current settings under the
// lock and stores the result. When mutate fails nothing changes.
func (m *Mailbox) ModifySettings(mutate func(*models.Settings) error) (models.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.settings
	if err := mutate(&s); err != nil {
		return m.settings, err
	}
	s.Normalize()
	m.settings = s
	m.persistLocked()
	return m.settings, nil
}

// RecordOpen counts an open of a sent email. Events for unknown, unsent
// emails or while tracking is disabled are ignored and reported as false.
func (m *Mailbox) RecordOpen(id, recipient string) (*models.Email, bool) {
	return m.recordEvent(id, func(t *models.EmailTracking, at time.Time) {
		t.RecordOpen(recipient, at)
	})
}

// RecordClick counts a click on url in a sent email. Same rules as RecordOpen.
func (m *Mailbox) RecordClick(id, recipient, url string) (*models.Email, bool) {
	return m.recordEvent(id, func(t *models.EmailTracking, at time.Time) {
		t.RecordClick(recipient, url, at)
	})
}

func (m *Mailbox) recordEvent(id string, apply func(*models.EmailTracking, time.Time)) (*models.Email, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.settings.TrackingEnabled {
		return nil, false
	}

	email := m.findEmailLocked(id)
	if email == nil {
		return nil, false
	}
	sent, ok := email.State.(models.Sent)
	if !ok {
		return nil, false
	}

	if sent.Tracking == nil {
		sent.Tracking = &models.EmailTracking{
			LinkClicks: []models.LinkClick{},
			Recipients: []models.TrackingRecipient{},
		}
	}
	apply(sent.Tracking, m.now())
	email.State = sent
	m.persistLocked()

	return email.Clone(), true
}

// Emails returns copies of all emails, newest first
func (m *Mailbox) Emails() []models.Email {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Email, len(m.emails))
	for i, e := range m.emails {
		out[i] = *e.Clone()
	}
	return out
}

// Email returns a copy of the email with the given id
func (m *Mailbox) Email(id string) (*models.Email, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	email := m.findEmailLocked(id)
	if email == nil {
		return nil, false
	}
	return email.Clone(), true
}

// Templates returns copies of all templates, newest first
func (m *Mailbox) Templates() []models.EmailTemplate {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.EmailTemplate, len(m.templates))
	for i, t := range m.templates {
		out[i] = *t
	}
	return out
}

// Template returns a copy of the template with the given id
func (m *Mailbox) Template(id string) (*models.EmailTemplate, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, t := range m.templates {
		if t.ID == id {
			c := *t
			return &c, true
		}
	}
	return nil, false
}

// Signatures returns copies of all signatures, newest first
func (m *Mailbox) Signatures() []models.EmailSignature {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.EmailSignature, len(m.signatures))
	for i, s := range m.signatures {
		out[i] = *s
	}
	return out
}

// Signature returns a copy of the signature with the given id
func (m *Mailbox) Signature(id string) (*models.EmailSignature, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.signatures {
		if s.ID == id {
			c := *s
			return &c, true
		}
	}
	return nil, false
}

// Settings returns the current settings
func (m *Mailbox) Settings() models.Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.settings
}

func (m *Mailbox) findEmailLocked(id string) *models.Email {
	for _, e := range m.emails {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// persistLocked writes a snapshot when persistence is configured. Failures
// are logged; the in-memory state stays authoritative.
func (m *Mailbox) persistLocked() {
	if m.snapshots == nil {
		return
	}
	snap := &Snapshot{
		Emails:     m.emails,
		Templates:  m.templates,
		Signatures: m.signatures,
		Settings:   m.settings,
	}
	if err := m.snapshots.Save(snap); err != nil {
		utils.Log.Error("Failed to save mailbox snapshot: %v", err)
	}
}

// copyList copies a recipient list; empty lists become nil so optional
// recipients stay absent
func copyList(list []string) []string {
	if len(list) == 0 {
		return nil
	}
	return append([]string(nil), list...)
}

package storage

import (
	_ "embed"
	"fmt"
	"time"

	"mailbutler/models"

	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var seedData []byte

type seedEmail struct {
	ID          string                `yaml:"id"`
	To          []string              `yaml:"to"`
	Cc          []string              `yaml:"cc"`
	Bcc         []string              `yaml:"bcc"`
	Subject     string                `yaml:"subject"`
	Body        string                `yaml:"body"`
	IsHTML      bool                  `yaml:"is_html"`
	Status      models.Status         `yaml:"status"`
	CreatedAt   time.Time             `yaml:"created_at"`
	SentAt      *time.Time            `yaml:"sent_at"`
	ScheduledIn string                `yaml:"scheduled_in"`
	SnoozedIn   string                `yaml:"snoozed_in"`
	TemplateID  string                `yaml:"template_id"`
	Tracking    *models.EmailTracking `yaml:"tracking"`
}

type seedFile struct {
	Emails     []seedEmail              `yaml:"emails"`
	Templates  []*models.EmailTemplate  `yaml:"templates"`
	Signatures []*models.EmailSignature `yaml:"signatures"`
}

// MockSnapshot returns the built-in mock data. Scheduled and snoozed times are
// offsets from now.
func MockSnapshot(now time.Time) (*Snapshot, error) {
	return ParseSeed(seedData, now)
}

// ParseSeed decodes YAML seed data into a snapshot
func ParseSeed(data []byte, now time.Time) (*Snapshot, error) {
	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse seed data: %w", err)
	}

	snap := &Snapshot{
		Templates:  file.Templates,
		Signatures: file.Signatures,
		Settings:   models.DefaultSettings(),
	}

	for _, se := range file.Emails {
		scheduledFor, err := offset(now, se.ScheduledIn)
		if err != nil {
			return nil, fmt.Errorf("email %s: scheduled_in: %w", se.ID, err)
		}
		snoozedUntil, err := offset(now, se.SnoozedIn)
		if err != nil {
			return nil, fmt.Errorf("email %s: snoozed_in: %w", se.ID, err)
		}

		state, err := models.BuildState(se.Status, scheduledFor, se.SentAt, snoozedUntil, se.Tracking)
		if err != nil {
			return nil, fmt.Errorf("email %s: %w", se.ID, err)
		}

		snap.Emails = append(snap.Emails, &models.Email{
			ID:         se.ID,
			To:         se.To,
			Cc:         copyList(se.Cc),
			Bcc:        copyList(se.Bcc),
			Subject:    se.Subject,
			Body:       se.Body,
			IsHTML:     se.IsHTML,
			State:      state,
			CreatedAt:  se.CreatedAt,
			TemplateID: se.TemplateID,
		})
	}

	return snap, nil
}

func offset(now time.Time, in string) (*time.Time, error) {
	if in == "" {
		return nil, nil
	}
	d, err := time.ParseDuration(in)
	if err != nil {
		return nil, err
	}
	t := now.Add(d)
	return &t, nil
}

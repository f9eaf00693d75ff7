package models

// Themes offered by the settings page
var Themes = []string{"light", "dark", "auto"}

// Settings represents the dashboard preferences
type Settings struct {
	DisplayName        string `json:"display_name"`
	EmailAddress       string `json:"email_address"`
	EmailNotifications bool   `json:"email_notifications"`
	TrackingEnabled    bool   `json:"tracking_enabled"`
	AutoSave           bool   `json:"auto_save"`
	DefaultSignature   string `json:"default_signature"`
	Theme              string `json:"theme"`
	Language           string `json:"language"`
}

// DefaultSettings returns the settings a fresh dashboard starts with
func DefaultSettings() Settings {
	return Settings{
		DisplayName:        "John Doe",
		EmailAddress:       "john@example.com",
		EmailNotifications: true,
		TrackingEnabled:    true,
		AutoSave:           true,
		DefaultSignature:   "Professional",
		Theme:              "light",
		Language:           "en",
	}
}

// Normalize replaces unsupported theme and language values with defaults
func (s *Settings) Normalize() {
	valid := false
	for _, t := range Themes {
		if s.Theme == t {
			valid = true
			break
		}
	}
	if !valid {
		s.Theme = "light"
	}
	if s.Language != "en" && s.Language != "ja" {
		s.Language = "en"
	}
}

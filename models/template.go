package models

import "time"

// TemplateCategories lists the categories offered by the template form
var TemplateCategories = []string{"General", "Sales", "Support", "Marketing", "Onboarding", "Follow-up"}

// EmailTemplate is a reusable subject and body
type EmailTemplate struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	Subject   string    `json:"subject" yaml:"subject"`
	Body      string    `json:"body" yaml:"body"`
	IsHTML    bool      `json:"is_html" yaml:"is_html"`
	Category  string    `json:"category" yaml:"category"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// TemplateInput holds the user-supplied fields of a template
type TemplateInput struct {
	Name     string `json:"name" yaml:"name"`
	Subject  string `json:"subject" yaml:"subject"`
	Body     string `json:"body" yaml:"body"`
	IsHTML   bool   `json:"is_html" yaml:"is_html"`
	Category string `json:"category" yaml:"category"`
}

// EmailSignature is a reusable block appended to a body
type EmailSignature struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	Content   string    `json:"content" yaml:"content"`
	IsHTML    bool      `json:"is_html" yaml:"is_html"`
	IsDefault bool      `json:"is_default" yaml:"is_default"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// SignatureInput holds the user-supplied fields of a signature
type SignatureInput struct {
	Name      string `json:"name" yaml:"name"`
	Content   string `json:"content" yaml:"content"`
	IsHTML    bool   `json:"is_html" yaml:"is_html"`
	IsDefault bool   `json:"is_default" yaml:"is_default"`
}

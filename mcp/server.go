// Package mcp exposes the dashboard's JSON API to MCP clients over stdio.
package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mailbutler/analytics"
	"mailbutler/models"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server provides MCP access to a running dashboard
type Server struct {
	apiURL   string
	client   *http.Client
	username string
	password string
}

// Option configures a Server
type Option func(*Server)

// WithBasicAuth sends the dashboard credentials with every API call
func WithBasicAuth(username, password string) Option {
	return func(s *Server) {
		s.username = username
		s.password = password
	}
}

// NewServer creates a new MCP server that talks to the dashboard at apiURL
func NewServer(apiURL string, opts ...Option) *Server {
	s := &Server{
		apiURL: strings.TrimRight(apiURL, "/"),
		client: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListEmailsInput defines input for list_emails tool
type ListEmailsInput struct {
	Status string `json:"status,omitempty" jsonschema:"only return emails with this status: draft, scheduled, sent or snoozed"`
}

// ListEmailsOutput defines output for list_emails tool
type ListEmailsOutput struct {
	Emails []EmailSummary `json:"emails"`
	Count  int            `json:"count"`
}

// EmailSummary provides a brief email summary
type EmailSummary struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	When    string `json:"when,omitempty"`
	Opens   int    `json:"opens"`
	Clicks  int    `json:"clicks"`
}

// SearchEmailsInput defines input for search_emails tool
type SearchEmailsInput struct {
	Query    string `json:"query"`
	SearchIn string `json:"search_in,omitempty" jsonschema:"field to search: all, to, subject or body"`
	Status   string `json:"status,omitempty"`
}

// SendEmailInput defines input for send_email tool
type SendEmailInput struct {
	To           []string `json:"to" jsonschema:"recipient addresses"`
	Cc           []string `json:"cc,omitempty"`
	Bcc          []string `json:"bcc,omitempty"`
	Subject      string   `json:"subject"`
	Body         string   `json:"body"`
	IsHTML       bool     `json:"is_html,omitempty" jsonschema:"the body is HTML"`
	ScheduledFor string   `json:"scheduled_for,omitempty" jsonschema:"RFC 3339 time to schedule the email for"`
	TemplateID   string   `json:"template_id,omitempty"`
}

// SnoozeEmailInput defines input for snooze_email tool
type SnoozeEmailInput struct {
	ID    string  `json:"id"`
	Hours float64 `json:"hours,omitempty" jsonschema:"snooze for this many hours"`
	Until string  `json:"until,omitempty" jsonschema:"RFC 3339 time to snooze until"`
}

// EmailIDInput defines input for tools that act on one email
type EmailIDInput struct {
	ID string `json:"id"`
}

// EmailOutput wraps a single email
type EmailOutput struct {
	Email EmailSummary `json:"email"`
}

// emailResponse is the API envelope around one email
type emailResponse struct {
	Email models.Email `json:"email"`
}

// TemplatesOutput defines output for list_templates tool
type TemplatesOutput struct {
	Templates []models.EmailTemplate `json:"templates"`
	Count     int                    `json:"count"`
}

// Build registers the tools and resources on a new MCP server
func (s *Server) Build() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "mailbutler",
		Version: "1.0.0",
	}, nil)

	// Add resources
	server.AddResource(
		&mcp.Resource{
			URI:         "email://list",
			Name:        "Email List",
			Description: "All emails in the dashboard, newest first",
			MIMEType:    "application/json",
		},
		s.resourceEmailList,
	)

	// Add tools
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_emails",
		Description: "List emails with an optional status filter",
	}, s.listEmails)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_emails",
		Description: "Search emails by recipient, subject or body text",
	}, s.searchEmails)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "send_email",
		Description: "Send an email now, or schedule it when scheduled_for is set",
	}, s.sendEmail)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "snooze_email",
		Description: "Snooze an email for a number of hours or until a time",
	}, s.snoozeEmail)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "unsnooze_email",
		Description: "Return a snoozed email to draft",
	}, s.unsnoozeEmail)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_analytics",
		Description: "Get sent, scheduled and snoozed counts with open and click rates",
	}, s.getAnalytics)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_templates",
		Description: "List the saved email templates",
	}, s.listTemplates)

	return server
}

// Run starts the MCP server
func (s *Server) Run(ctx context.Context) error {
	// Run with stdio transport
	return s.Build().Run(ctx, &mcp.StdioTransport{})
}

// resourceEmailList provides the email list resource
func (s *Server) resourceEmailList(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	emails, err := s.fetchEmails(ctx, "")
	if err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(emails, "", "  ")
	if err != nil {
		return nil, err
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      "email://list",
				MIMEType: "application/json",
				Text:     string(data),
			},
		},
	}, nil
}

// listEmails tool implementation
func (s *Server) listEmails(ctx context.Context, req *mcp.CallToolRequest, input ListEmailsInput) (*mcp.CallToolResult, *ListEmailsOutput, error) {
	emails, err := s.fetchEmails(ctx, input.Status)
	if err != nil {
		return nil, nil, err
	}

	summaries := make([]EmailSummary, 0, len(emails))
	for i := range emails {
		summaries = append(summaries, summarize(&emails[i]))
	}

	return nil, &ListEmailsOutput{
		Emails: summaries,
		Count:  len(summaries),
	}, nil
}

// searchEmails tool implementation
func (s *Server) searchEmails(ctx context.Context, req *mcp.CallToolRequest, input SearchEmailsInput) (*mcp.CallToolResult, *ListEmailsOutput, error) {
	body := map[string]interface{}{
		"query":     input.Query,
		"search_in": input.SearchIn,
		"status":    input.Status,
		"page_size": 1000,
	}

	var out struct {
		Results models.PaginatedEmails `json:"results"`
	}
	if err := s.do(ctx, http.MethodPost, "/api/search", body, &out); err != nil {
		return nil, nil, err
	}

	summaries := make([]EmailSummary, 0, len(out.Results.Emails))
	for i := range out.Results.Emails {
		summaries = append(summaries, summarize(&out.Results.Emails[i]))
	}

	return nil, &ListEmailsOutput{
		Emails: summaries,
		Count:  out.Results.TotalEmails,
	}, nil
}

// sendEmail tool implementation
func (s *Server) sendEmail(ctx context.Context, req *mcp.CallToolRequest, input SendEmailInput) (*mcp.CallToolResult, *EmailOutput, error) {
	body := models.SendInput{
		To:         input.To,
		Cc:         input.Cc,
		Bcc:        input.Bcc,
		Subject:    input.Subject,
		Body:       input.Body,
		IsHTML:     input.IsHTML,
		TemplateID: input.TemplateID,
	}
	if input.ScheduledFor != "" {
		at, err := time.Parse(time.RFC3339, input.ScheduledFor)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid scheduled_for: %w", err)
		}
		body.ScheduledFor = &at
	}

	var resp emailResponse
	if err := s.do(ctx, http.MethodPost, "/api/emails", body, &resp); err != nil {
		return nil, nil, err
	}
	return nil, &EmailOutput{Email: summarize(&resp.Email)}, nil
}

// snoozeEmail tool implementation
func (s *Server) snoozeEmail(ctx context.Context, req *mcp.CallToolRequest, input SnoozeEmailInput) (*mcp.CallToolResult, *EmailOutput, error) {
	body := map[string]interface{}{}
	switch {
	case input.Until != "":
		until, err := time.Parse(time.RFC3339, input.Until)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid until: %w", err)
		}
		body["until"] = until
	case input.Hours > 0:
		body["hours"] = input.Hours
	default:
		return nil, nil, fmt.Errorf("either hours or until is required")
	}

	var resp emailResponse
	if err := s.do(ctx, http.MethodPost, "/api/emails/"+url.PathEscape(input.ID)+"/snooze", body, &resp); err != nil {
		return nil, nil, err
	}
	return nil, &EmailOutput{Email: summarize(&resp.Email)}, nil
}

// unsnoozeEmail tool implementation
func (s *Server) unsnoozeEmail(ctx context.Context, req *mcp.CallToolRequest, input EmailIDInput) (*mcp.CallToolResult, *EmailOutput, error) {
	var resp emailResponse
	if err := s.do(ctx, http.MethodPost, "/api/emails/"+url.PathEscape(input.ID)+"/unsnooze", nil, &resp); err != nil {
		return nil, nil, err
	}
	return nil, &EmailOutput{Email: summarize(&resp.Email)}, nil
}

// getAnalytics tool implementation
func (s *Server) getAnalytics(ctx context.Context, req *mcp.CallToolRequest, input struct{}) (*mcp.CallToolResult, *analytics.Summary, error) {
	var out struct {
		Analytics analytics.Summary `json:"analytics"`
	}
	if err := s.do(ctx, http.MethodGet, "/api/analytics", nil, &out); err != nil {
		return nil, nil, err
	}
	return nil, &out.Analytics, nil
}

// listTemplates tool implementation
func (s *Server) listTemplates(ctx context.Context, req *mcp.CallToolRequest, input struct{}) (*mcp.CallToolResult, *TemplatesOutput, error) {
	var out TemplatesOutput
	if err := s.do(ctx, http.MethodGet, "/api/templates", nil, &out); err != nil {
		return nil, nil, err
	}
	out.Count = len(out.Templates)
	return nil, &out, nil
}

// fetchEmails retrieves emails from the dashboard
func (s *Server) fetchEmails(ctx context.Context, status string) ([]models.Email, error) {
	path := "/api/emails"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}

	var out struct {
		Emails []models.Email `json:"emails"`
	}
	if err := s.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Emails, nil
}

// do sends a JSON request to the dashboard API and decodes the response into
// out. Non-2xx responses become errors carrying the API's message.
func (s *Server) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.apiURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.username != "" {
		req.SetBasicAuth(s.username, s.password)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("API returned status %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func summarize(email *models.Email) EmailSummary {
	summary := EmailSummary{
		ID:      email.ID,
		Status:  string(email.Status()),
		To:      strings.Join(email.To, ", "),
		Subject: email.Subject,
	}

	switch s := email.State.(type) {
	case models.Scheduled:
		summary.When = s.For.Format(time.RFC3339)
	case models.Snoozed:
		summary.When = s.Until.Format(time.RFC3339)
	case models.Sent:
		summary.When = s.At.Format(time.RFC3339)
	}

	if t := email.Tracking(); t != nil {
		summary.Opens = t.Opens
		summary.Clicks = t.Clicks
	}
	return summary
}

package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mailbutler/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sentAt = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleEmail() models.Email {
	return models.Email{
		ID:        "e1",
		To:        []string{"a@x.com", "b@x.com"},
		Subject:   "Hello",
		Body:      "Body",
		CreatedAt: sentAt,
		State: models.Sent{At: sentAt, Tracking: &models.EmailTracking{
			Opens:      2,
			Clicks:     1,
			LinkClicks: []models.LinkClick{},
			Recipients: []models.TrackingRecipient{},
		}},
	}
}

// fakeAPI records the last request and answers with a canned response
type fakeAPI struct {
	method string
	path   string
	query  string
	body   map[string]interface{}
	user   string
	pass   string
	authed bool
}

func newFakeAPI(t *testing.T, status int, response interface{}, opts ...Option) (*fakeAPI, *Server) {
	t.Helper()
	api := &fakeAPI{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.method = r.Method
		api.path = r.URL.Path
		api.query = r.URL.RawQuery
		api.user, api.pass, api.authed = r.BasicAuth()
		api.body = nil
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&api.body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(response)
	}))
	t.Cleanup(srv.Close)

	return api, NewServer(srv.URL+"/", opts...)
}

func TestBasicAuthIsSent(t *testing.T) {
	api, s := newFakeAPI(t, http.StatusOK, map[string]interface{}{
		"success": true,
		"emails":  []models.Email{},
	}, WithBasicAuth("admin", "hunter2"))

	_, _, err := s.listEmails(context.Background(), nil, ListEmailsInput{})
	require.NoError(t, err)
	assert.True(t, api.authed)
	assert.Equal(t, "admin", api.user)
	assert.Equal(t, "hunter2", api.pass)
}

func TestNoCredentialsWithoutBasicAuth(t *testing.T) {
	api, s := newFakeAPI(t, http.StatusOK, map[string]interface{}{
		"success": true,
		"emails":  []models.Email{},
	})

	_, _, err := s.listEmails(context.Background(), nil, ListEmailsInput{})
	require.NoError(t, err)
	assert.False(t, api.authed)
}

func TestListEmails(t *testing.T) {
	api, s := newFakeAPI(t, http.StatusOK, map[string]interface{}{
		"success": true,
		"emails":  []models.Email{sampleEmail()},
	})

	_, out, err := s.listEmails(context.Background(), nil, ListEmailsInput{Status: "sent"})
	require.NoError(t, err)

	assert.Equal(t, "/api/emails", api.path)
	assert.Equal(t, "status=sent", api.query)
	require.Equal(t, 1, out.Count)
	assert.Equal(t, EmailSummary{
		ID:      "e1",
		Status:  "sent",
		To:      "a@x.com, b@x.com",
		Subject: "Hello",
		When:    sentAt.Format(time.RFC3339),
		Opens:   2,
		Clicks:  1,
	}, out.Emails[0])
}

func TestSendEmailSchedules(t *testing.T) {
	email := sampleEmail()
	api, s := newFakeAPI(t, http.StatusCreated, map[string]interface{}{"success": true, "email": email})

	_, out, err := s.sendEmail(context.Background(), nil, SendEmailInput{
		To:           []string{"a@x.com"},
		Subject:      "Hello",
		Body:         "Body",
		ScheduledFor: "2030-01-02T03:04:00Z",
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, api.method)
	assert.Equal(t, "/api/emails", api.path)
	assert.Equal(t, "2030-01-02T03:04:00Z", api.body["scheduled_for"])
	assert.Equal(t, "e1", out.Email.ID)
}

func TestSendEmailRejectsBadSchedule(t *testing.T) {
	_, s := newFakeAPI(t, http.StatusCreated, nil)

	_, _, err := s.sendEmail(context.Background(), nil, SendEmailInput{ScheduledFor: "tomorrow"})

	assert.ErrorContains(t, err, "invalid scheduled_for")
}

func TestSnoozeEmail(t *testing.T) {
	api, s := newFakeAPI(t, http.StatusOK, map[string]interface{}{"success": true, "email": sampleEmail()})

	_, _, err := s.snoozeEmail(context.Background(), nil, SnoozeEmailInput{ID: "e1", Hours: 2})
	require.NoError(t, err)
	assert.Equal(t, "/api/emails/e1/snooze", api.path)
	assert.Equal(t, 2.0, api.body["hours"])

	_, _, err = s.snoozeEmail(context.Background(), nil, SnoozeEmailInput{ID: "e1"})
	assert.Error(t, err)
}

func TestAPIErrorsAreReported(t *testing.T) {
	_, s := newFakeAPI(t, http.StatusNotFound, map[string]string{"error": "Email not found"})

	_, _, err := s.unsnoozeEmail(context.Background(), nil, EmailIDInput{ID: "missing"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "Email not found")
}

func TestGetAnalytics(t *testing.T) {
	_, s := newFakeAPI(t, http.StatusOK, map[string]interface{}{
		"success":   true,
		"analytics": map[string]interface{}{"sent_count": 3, "open_rate": 1.5},
	})

	_, out, err := s.getAnalytics(context.Background(), nil, struct{}{})
	require.NoError(t, err)

	assert.Equal(t, 3, out.SentCount)
	assert.Equal(t, 1.5, out.OpenRate)
}

func TestListTemplates(t *testing.T) {
	_, s := newFakeAPI(t, http.StatusOK, map[string]interface{}{
		"success":   true,
		"templates": []models.EmailTemplate{{ID: "t1", Name: "Intro"}, {ID: "t2", Name: "Follow-up"}},
	})

	_, out, err := s.listTemplates(context.Background(), nil, struct{}{})
	require.NoError(t, err)

	assert.Equal(t, 2, out.Count)
	assert.Equal(t, "Intro", out.Templates[0].Name)
}

func TestSearchEmails(t *testing.T) {
	api, s := newFakeAPI(t, http.StatusOK, map[string]interface{}{
		"success": true,
		"results": models.Paginate([]models.Email{sampleEmail()}, 1, 10),
	})

	_, out, err := s.searchEmails(context.Background(), nil, SearchEmailsInput{Query: "hello", SearchIn: "subject"})
	require.NoError(t, err)

	assert.Equal(t, "/api/search", api.path)
	assert.Equal(t, "hello", api.body["query"])
	assert.Equal(t, 1, out.Count)
}

func TestEmailListResource(t *testing.T) {
	_, s := newFakeAPI(t, http.StatusOK, map[string]interface{}{
		"success": true,
		"emails":  []models.Email{sampleEmail()},
	})

	res, err := s.resourceEmailList(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)

	assert.Equal(t, "email://list", res.Contents[0].URI)
	assert.Contains(t, res.Contents[0].Text, `"subject": "Hello"`)
}

func TestBuildRegistersServer(t *testing.T) {
	s := NewServer("http://localhost:4173")

	assert.NotNil(t, s.Build())
}

package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"mailbutler/config"
	"mailbutler/models"
	"mailbutler/storage"
	"mailbutler/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// browser replays cookies between requests like a real client
type browser struct {
	t       *testing.T
	app     *fiber.App
	cookies map[string]string
}

func newTestServer(t *testing.T) (*browser, *storage.Mailbox) {
	t.Helper()

	cfg := config.Default()
	cfg.Server.BaseURL = "http://mail.test"
	cfg.Tracking.Secret = "test-secret"
	cfg.RateLimit.Requests = 1000

	mailbox := storage.NewMailbox()
	app := New(cfg, mailbox)

	return &browser{t: t, app: app, cookies: map[string]string{}}, mailbox
}

func TestNewWarnsAboutDefaultTrackingSecret(t *testing.T) {
	prev := utils.Log
	t.Cleanup(func() { utils.Log = prev })

	var logs bytes.Buffer
	utils.Log = utils.NewLoggerTo(&logs, "warn")
	New(config.Default(), storage.NewMailbox())
	assert.Contains(t, logs.String(), "Tracking secret is not set")

	logs.Reset()
	cfg := config.Default()
	cfg.Tracking.Secret = "a-real-secret"
	New(cfg, storage.NewMailbox())
	assert.NotContains(t, logs.String(), "Tracking secret is not set")
}

func (b *browser) do(req *http.Request) *http.Response {
	b.t.Helper()
	for name, value := range b.cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}

	resp, err := b.app.Test(req, -1)
	require.NoError(b.t, err)

	for _, c := range resp.Cookies() {
		if c.Value == "" || c.MaxAge < 0 {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c.Value
	}
	return resp
}

func (b *browser) get(path string) *http.Response {
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) postForm(path string, form url.Values) *http.Response {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	return b.do(req)
}

func (b *browser) postJSON(path string, body interface{}) *http.Response {
	data, err := json.Marshal(body)
	require.NoError(b.t, err)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(string(data)))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return b.do(req)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func composeForm(b *browser, to, subject, body string) url.Values {
	return url.Values{
		"_csrf":   {b.cookies["csrf_token"]},
		"compose": {"1"},
		"is_html": {"false"},
		"to":      {to},
		"subject": {subject},
		"body":    {body},
	}
}

func TestHealth(t *testing.T) {
	b, _ := newTestServer(t)

	resp := b.get("/health")

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), `"status":"ok"`)
}

func TestRootRedirectsToCompose(t *testing.T) {
	b, _ := newTestServer(t)

	resp := b.get("/")

	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/compose", resp.Header.Get(fiber.HeaderLocation))
}

func TestPagesRender(t *testing.T) {
	b, _ := newTestServer(t)

	for _, path := range []string{"/compose", "/emails", "/analytics", "/templates", "/settings"} {
		resp := b.get(path)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode, path)
		assert.Contains(t, resp.Header.Get(fiber.HeaderContentType), "text/html", path)
	}
}

func TestComposeSendFlow(t *testing.T) {
	b, mailbox := newTestServer(t)

	b.get("/compose")
	require.NotEmpty(t, b.cookies["csrf_token"])

	resp := b.postForm("/compose/send", composeForm(b, "a@x.com, b@x.com", "Hello", "Body"))
	require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/compose", resp.Header.Get(fiber.HeaderLocation))

	emails := mailbox.Emails()
	require.Len(t, emails, 1)
	assert.Equal(t, models.StatusSent, emails[0].Status())
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, emails[0].To)

	page := readBody(t, b.get("/compose"))
	assert.Contains(t, page, "Email sent")
	assert.NotContains(t, page, `value="Hello"`)
}

func TestComposeScheduleFlow(t *testing.T) {
	b, mailbox := newTestServer(t)
	b.get("/compose")

	form := composeForm(b, "a@x.com", "Later", "Body")
	resp := b.postForm("/compose/toggle/schedule", form)
	require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)

	at := time.Now().Add(48 * time.Hour).Format("2006-01-02T15:04")
	form.Set("scheduled_for", at)
	resp = b.postForm("/compose/send", form)
	require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)

	emails := mailbox.Emails()
	require.Len(t, emails, 1)
	assert.Equal(t, models.StatusScheduled, emails[0].Status())
}

func TestComposeMissingFieldsRerenders(t *testing.T) {
	b, mailbox := newTestServer(t)
	b.get("/compose")

	resp := b.postForm("/compose/send", composeForm(b, "", "Hello", "Body"))

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	page := readBody(t, resp)
	assert.Contains(t, page, "To, subject and message are required")
	assert.Contains(t, page, `value="Hello"`)
	assert.Empty(t, mailbox.Emails())
}

func TestComposeRejectsMissingCSRFToken(t *testing.T) {
	b, mailbox := newTestServer(t)
	b.get("/compose")

	form := composeForm(b, "a@x.com", "Hello", "Body")
	form.Del("_csrf")
	resp := b.postForm("/compose/send", form)

	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Empty(t, mailbox.Emails())
}

func TestComposeRejectsWrongCSRFToken(t *testing.T) {
	b, _ := newTestServer(t)
	b.get("/compose")

	form := composeForm(b, "a@x.com", "Hello", "Body")
	form.Set("_csrf", "forged")
	resp := b.postForm("/compose/send", form)

	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestComposeApplyTemplate(t *testing.T) {
	b, mailbox := newTestServer(t)
	tmpl := mailbox.SaveTemplate(models.TemplateInput{Name: "Intro", Subject: "Hi there", Body: "Template body", Category: "General"})
	b.get("/compose")

	resp := b.postForm("/compose/template/"+tmpl.ID, url.Values{"_csrf": {b.cookies["csrf_token"]}})
	require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)

	page := readBody(t, b.get("/compose"))
	assert.Contains(t, page, `value="Hi there"`)
	assert.Contains(t, page, "Template body")
}

func TestComposeUnknownPanel(t *testing.T) {
	b, _ := newTestServer(t)
	b.get("/compose")

	resp := b.postForm("/compose/toggle/nope", url.Values{"_csrf": {b.cookies["csrf_token"]}})

	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestSnoozeAndUnsnoozeFromList(t *testing.T) {
	b, mailbox := newTestServer(t)
	email := mailbox.SendEmail(models.SendInput{To: []string{"a@x.com"}, Subject: "S", Body: "B"})
	b.get("/emails")
	token := b.cookies["csrf_token"]

	resp := b.postForm("/emails/"+email.ID+"/snooze", url.Values{"_csrf": {token}, "hours": {"3"}, "filter": {"sent"}})
	require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/emails?status=sent", resp.Header.Get(fiber.HeaderLocation))

	got, _ := mailbox.Email(email.ID)
	assert.Equal(t, models.StatusSnoozed, got.Status())

	resp = b.postForm("/emails/"+email.ID+"/unsnooze", url.Values{"_csrf": {token}})
	require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)

	got, _ = mailbox.Email(email.ID)
	assert.Equal(t, models.StatusDraft, got.Status())
}

func TestSnoozeIgnoresMalformedHours(t *testing.T) {
	b, mailbox := newTestServer(t)
	email := mailbox.SendEmail(models.SendInput{To: []string{"a@x.com"}, Subject: "S", Body: "B"})
	b.get("/emails")

	for _, hours := range []string{"soon", "NaN", "3000000"} {
		resp := b.postForm("/emails/"+email.ID+"/snooze", url.Values{"_csrf": {b.cookies["csrf_token"]}, "hours": {hours}})

		assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode, hours)
		got, _ := mailbox.Email(email.ID)
		assert.Equal(t, models.StatusSent, got.Status(), hours)
	}
}

func TestEmailsFilter(t *testing.T) {
	b, mailbox := newTestServer(t)
	mailbox.SendEmail(models.SendInput{To: []string{"a@x.com"}, Subject: "Delivered", Body: "B"})
	at := time.Now().Add(time.Hour)
	mailbox.SendEmail(models.SendInput{To: []string{"a@x.com"}, Subject: "Pending", Body: "B", ScheduledFor: &at})

	page := readBody(t, b.get("/emails?status=scheduled"))

	assert.Contains(t, page, "Pending")
	assert.NotContains(t, page, "Delivered")
}

func TestSettingsUpdate(t *testing.T) {
	b, mailbox := newTestServer(t)
	b.get("/settings")

	resp := b.postForm("/settings", url.Values{
		"_csrf":        {b.cookies["csrf_token"]},
		"display_name": {"Jane"},
		"theme":        {"dark"},
		"language":     {"ja"},
	})
	require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)

	settings := mailbox.Settings()
	assert.Equal(t, "Jane", settings.DisplayName)
	assert.Equal(t, "dark", settings.Theme)
	assert.Equal(t, "ja", settings.Language)
	assert.False(t, settings.TrackingEnabled)
	assert.Equal(t, "ja", b.cookies["lang"])

	page := readBody(t, b.get("/settings"))
	assert.Contains(t, page, "設定を保存しました")
}

func TestUnknownRoute(t *testing.T) {
	b, _ := newTestServer(t)

	resp := b.get("/nope")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentType), "text/html")

	resp = b.get("/api/nope")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	var body map[string]string
	decode(t, resp, &body)
	assert.Equal(t, "Page not found", body["error"])
}

func TestAPICreateAndList(t *testing.T) {
	b, _ := newTestServer(t)

	resp := b.postJSON("/api/emails", map[string]interface{}{
		"to":      []string{" a@x.com ", ""},
		"subject": "Hello",
		"body":    "Body",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var created struct {
		Success bool         `json:"success"`
		Email   models.Email `json:"email"`
	}
	decode(t, resp, &created)
	assert.True(t, created.Success)
	assert.Equal(t, []string{"a@x.com"}, created.Email.To)
	assert.Equal(t, models.StatusSent, created.Email.Status())

	var list struct {
		Emails []models.Email `json:"emails"`
	}
	decode(t, b.get("/api/emails?status=sent"), &list)
	require.Len(t, list.Emails, 1)
	assert.Equal(t, created.Email.ID, list.Emails[0].ID)

	decode(t, b.get("/api/emails?status=draft"), &list)
	assert.Empty(t, list.Emails)
}

func TestAPIValidation(t *testing.T) {
	b, _ := newTestServer(t)

	resp := b.postJSON("/api/emails", map[string]interface{}{"to": []string{"a@x.com"}, "body": "Body"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = b.postJSON("/api/emails", map[string]interface{}{
		"to": []string{"a@x.com"}, "subject": "S", "body": "B", "template_id": "missing",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = b.get("/api/emails?status=archived")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestAPIUnknownEmail(t *testing.T) {
	b, _ := newTestServer(t)

	resp := b.get("/api/emails/missing")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	var body map[string]string
	decode(t, resp, &body)
	assert.Equal(t, "Email not found", body["error"])

	resp = b.postJSON("/api/emails/missing/snooze", map[string]interface{}{"hours": 1})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = b.postJSON("/api/emails/missing/unsnooze", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestAPISnooze(t *testing.T) {
	b, mailbox := newTestServer(t)
	email := mailbox.SendEmail(models.SendInput{To: []string{"a@x.com"}, Subject: "S", Body: "B"})
	until := time.Date(2030, 1, 2, 3, 4, 0, 0, time.UTC)

	resp := b.postJSON("/api/emails/"+email.ID+"/snooze", map[string]interface{}{"until": until})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	got, _ := mailbox.Email(email.ID)
	snoozed, ok := got.SnoozedUntil()
	require.True(t, ok)
	assert.True(t, until.Equal(snoozed))

	resp = b.postJSON("/api/emails/"+email.ID+"/snooze", map[string]interface{}{})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestAPISnoozeRejectsOutOfRangeHours(t *testing.T) {
	b, mailbox := newTestServer(t)
	email := mailbox.SendEmail(models.SendInput{To: []string{"a@x.com"}, Subject: "S", Body: "B"})

	for _, hours := range []float64{-1, 3000000} {
		resp := b.postJSON("/api/emails/"+email.ID+"/snooze", map[string]interface{}{"hours": hours})
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, hours)
	}

	got, _ := mailbox.Email(email.ID)
	assert.Equal(t, models.StatusSent, got.Status())

	resp := b.postJSON("/api/emails/"+email.ID+"/snooze", map[string]interface{}{"hours": 1.5})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	got, _ = mailbox.Email(email.ID)
	until, ok := got.SnoozedUntil()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(90*time.Minute), until, time.Minute)
}

func TestAPISearch(t *testing.T) {
	b, mailbox := newTestServer(t)
	mailbox.SendEmail(models.SendInput{To: []string{"alice@x.com"}, Subject: "Quarterly report", Body: "Numbers"})
	mailbox.SendEmail(models.SendInput{To: []string{"bob@x.com"}, Subject: "Lunch", Body: "<p>See the <b>report</b></p>", IsHTML: true})

	var out struct {
		Results models.PaginatedEmails `json:"results"`
	}
	decode(t, b.postJSON("/api/search", map[string]interface{}{"query": "REPORT"}), &out)
	assert.Equal(t, 2, out.Results.TotalEmails)

	decode(t, b.postJSON("/api/search", map[string]interface{}{"query": "report", "search_in": "subject"}), &out)
	require.Equal(t, 1, out.Results.TotalEmails)
	assert.Equal(t, "Quarterly report", out.Results.Emails[0].Subject)

	decode(t, b.postJSON("/api/search", map[string]interface{}{"query": "bob", "search_in": "to"}), &out)
	assert.Equal(t, 1, out.Results.TotalEmails)

	resp := b.postJSON("/api/search", map[string]interface{}{"search_in": "cc"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

var clickToken = regexp.MustCompile(`/t/click/([A-Za-z0-9_.\-]+)`)
var openToken = regexp.MustCompile(`/t/open/([A-Za-z0-9_.\-]+)`)

func TestTrackingRoundTrip(t *testing.T) {
	b, mailbox := newTestServer(t)
	email := mailbox.SendEmail(models.SendInput{
		To:      []string{"a@x.com"},
		Subject: "Launch",
		Body:    `<p>Read <a href="https://example.com/post">the post</a></p>`,
		IsHTML:  true,
	})

	var tracked struct {
		Body string `json:"body"`
	}
	resp := b.get("/api/emails/" + email.ID + "/tracked-body")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decode(t, resp, &tracked)

	click := clickToken.FindStringSubmatch(tracked.Body)
	require.Len(t, click, 2)
	open := openToken.FindStringSubmatch(tracked.Body)
	require.Len(t, open, 2)

	resp = b.get("/t/click/" + click[1])
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "https://example.com/post", resp.Header.Get(fiber.HeaderLocation))

	resp = b.get("/t/open/" + open[1])
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/gif", resp.Header.Get(fiber.HeaderContentType))

	got, _ := mailbox.Email(email.ID)
	tracking := got.Tracking()
	require.NotNil(t, tracking)
	assert.Equal(t, 1, tracking.Opens)
	assert.Equal(t, 1, tracking.Clicks)
	require.Len(t, tracking.LinkClicks, 1)
	assert.Equal(t, "https://example.com/post", tracking.LinkClicks[0].URL)
}

func TestTrackedBodyRejectsStranger(t *testing.T) {
	b, mailbox := newTestServer(t)
	email := mailbox.SendEmail(models.SendInput{To: []string{"a@x.com"}, Subject: "S", Body: "B"})

	resp := b.get("/api/emails/" + email.ID + "/tracked-body?recipient=eve@x.com")

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestTrackingRejectsInvalidToken(t *testing.T) {
	b, _ := newTestServer(t)

	assert.Equal(t, fiber.StatusNotFound, b.get("/t/open/garbage").StatusCode)
	assert.Equal(t, fiber.StatusNotFound, b.get("/t/click/garbage").StatusCode)
}

func TestAPITemplatesAndSignatures(t *testing.T) {
	b, _ := newTestServer(t)

	resp := b.postJSON("/api/templates", map[string]interface{}{"name": "Intro", "subject": "Hi", "body": "Hello"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = b.postJSON("/api/templates", map[string]interface{}{"name": "Broken"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var templates struct {
		Templates []models.EmailTemplate `json:"templates"`
	}
	decode(t, b.get("/api/templates"), &templates)
	require.Len(t, templates.Templates, 1)
	assert.Equal(t, models.TemplateCategories[0], templates.Templates[0].Category)

	resp = b.postJSON("/api/signatures", map[string]interface{}{"name": "Short", "content": "-- J", "is_default": true})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var signatures struct {
		Signatures []models.EmailSignature `json:"signatures"`
	}
	decode(t, b.get("/api/signatures"), &signatures)
	require.Len(t, signatures.Signatures, 1)
	assert.True(t, signatures.Signatures[0].IsDefault)
}

func TestAPISettingsAndAnalytics(t *testing.T) {
	b, mailbox := newTestServer(t)
	mailbox.SendEmail(models.SendInput{To: []string{"a@x.com"}, Subject: "S", Body: "B"})

	var analytics struct {
		Analytics struct {
			SentCount int `json:"sent_count"`
		} `json:"analytics"`
	}
	decode(t, b.get("/api/analytics"), &analytics)
	assert.Equal(t, 1, analytics.Analytics.SentCount)

	req := httptest.NewRequest(http.MethodPut, "/api/settings", strings.NewReader(`{"theme":"dark","tracking_enabled":false}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp := b.do(req)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	settings := mailbox.Settings()
	assert.Equal(t, "dark", settings.Theme)
	assert.False(t, settings.TrackingEnabled)
	assert.Equal(t, "John Doe", settings.DisplayName)
}

func TestTranslations(t *testing.T) {
	b, _ := newTestServer(t)

	var messages map[string]string
	decode(t, b.get("/api/i18n/ja"), &messages)
	assert.Equal(t, "メールを送信しました", messages["message_sent_success"])

	decode(t, b.get("/api/i18n/xx"), &messages)
	assert.Equal(t, "Email sent", messages["message_sent_success"])
}

func TestMetricsEndpoint(t *testing.T) {
	b, _ := newTestServer(t)
	b.get("/health")

	resp := b.get("/metrics")

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "http_request_duration_seconds")
}

package composer

import (
	"testing"
	"time"

	"mailbutler/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitRecipients(t *testing.T) {
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, SplitRecipients("a@x.com, b@x.com"))
	assert.Equal(t, []string{"a@x.com"}, SplitRecipients(" a@x.com ,, "))
	assert.Nil(t, SplitRecipients(""))
	assert.Nil(t, SplitRecipients("  ,  "))
}

func TestCanSend(t *testing.T) {
	f := Form{To: "a@x.com", Subject: "S", Body: "B"}
	assert.True(t, f.CanSend())

	f.Body = "   "
	assert.False(t, f.CanSend())
}

func TestBuild(t *testing.T) {
	f := Form{To: "a@x.com, b@x.com", Cc: " ", Subject: "S", Body: "B", TemplateID: "t1"}

	in, err := f.Build(time.UTC)
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, in.To)
	assert.Nil(t, in.Cc)
	assert.Nil(t, in.Bcc)
	assert.Nil(t, in.ScheduledFor)
	assert.Equal(t, "t1", in.TemplateID)
}

func TestBuildSchedule(t *testing.T) {
	f := Form{To: "a@x.com", Subject: "S", Body: "B", ScheduledFor: "2024-05-01T09:30"}

	in, err := f.Build(time.UTC)
	require.NoError(t, err)
	require.NotNil(t, in.ScheduledFor)
	assert.Equal(t, time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC), *in.ScheduledFor)

	f.ScheduledFor = "tomorrow"
	_, err = f.Build(time.UTC)
	assert.ErrorIs(t, err, ErrInvalidSchedule)
}

func TestBuildMissingFields(t *testing.T) {
	f := Form{To: " , ", Subject: "S", Body: "B"}
	_, err := f.Build(time.UTC)
	assert.ErrorIs(t, err, ErrMissingFields)

	f = Form{To: "a@x.com", Body: "B"}
	_, err = f.Build(time.UTC)
	assert.ErrorIs(t, err, ErrMissingFields)
}

func TestApplyTemplateOverridesContentKind(t *testing.T) {
	f := Form{To: "a@x.com", IsHTML: false, ShowTemplates: true}
	f.ApplyTemplate(models.EmailTemplate{ID: "t1", Subject: "Hello", Body: "<p>Hi</p>", IsHTML: true})

	assert.Equal(t, "Hello", f.Subject)
	assert.Equal(t, "<p>Hi</p>", f.Body)
	assert.True(t, f.IsHTML)
	assert.Equal(t, "t1", f.TemplateID)
	assert.False(t, f.ShowTemplates)
	assert.Equal(t, "a@x.com", f.To)
}

func TestApplySignature(t *testing.T) {
	plainSig := models.EmailSignature{Content: "Best,\nJohn <Doe>"}
	richSig := models.EmailSignature{Content: "<b>Best</b><br>John &amp; Co", IsHTML: true}

	f := Form{Body: "Hi", ShowSignatures: true}
	f.ApplySignature(plainSig)
	assert.Equal(t, "Hi\n\nBest,\nJohn <Doe>", f.Body)
	assert.False(t, f.ShowSignatures)

	f = Form{Body: "<p>Hi</p>", IsHTML: true}
	f.ApplySignature(plainSig)
	assert.Equal(t, "<p>Hi</p><br><br>Best,<br>John &lt;Doe&gt;", f.Body)

	f = Form{Body: "Hi"}
	f.ApplySignature(richSig)
	assert.Equal(t, "Hi\n\nBest\nJohn & Co", f.Body)

	f = Form{Body: "<p>Hi</p>", IsHTML: true}
	f.ApplySignature(richSig)
	assert.Equal(t, "<p>Hi</p><br><br><b>Best</b><br>John &amp; Co", f.Body)
}

func TestAsTemplate(t *testing.T) {
	f := Form{Subject: "S", Body: "B", IsHTML: true}

	in, err := f.AsTemplate("  Mine ")
	require.NoError(t, err)
	assert.Equal(t, models.TemplateInput{Name: "Mine", Subject: "S", Body: "B", IsHTML: true, Category: CustomCategory}, in)

	_, err = f.AsTemplate("")
	assert.ErrorIs(t, err, ErrMissingFields)

	f.Body = ""
	_, err = f.AsTemplate("Mine")
	assert.ErrorIs(t, err, ErrMissingFields)
}

func TestToggle(t *testing.T) {
	var f Form
	assert.True(t, f.Toggle("templates"))
	assert.True(t, f.ShowTemplates)
	assert.True(t, f.Toggle("format"))
	assert.True(t, f.IsHTML)

	f.Toggle("schedule")
	f.ScheduledFor = "2024-05-01T09:30"
	f.Toggle("schedule")
	assert.False(t, f.ShowSchedule)
	assert.Empty(t, f.ScheduledFor)

	assert.False(t, f.Toggle("bogus"))
}

func TestReset(t *testing.T) {
	f := Form{To: "a", Subject: "b", ShowSchedule: true}
	f.Reset()
	assert.Equal(t, Form{}, f)
}

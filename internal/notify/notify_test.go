package notify

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	gomail "gopkg.in/mail.v2"

	"github.com/spigell/hh-matcher/internal/jobs"
	"github.com/spigell/hh-matcher/internal/relevance"
)

type fakeSender struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeSender) DialAndSend(m ...*gomail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m...)
	return nil
}

func testDigest() Digest {
	return Digest{
		Skills: []string{"python", "sql"},
		Postings: []*jobs.Posting{
			{
				JobPosting:     relevance.JobPosting{ID: "1", Title: "Python Developer", Company: "Acme", Link: "https://hh.ru/vacancy/1", Salary: "100000-150000 RUR"},
				RelevanceScore: 45.52,
			},
			{
				JobPosting:        relevance.JobPosting{ID: "2", Title: "PHP & Python <Backend>", Company: "Globex"},
				RelevanceScore:    5,
				MatchedExclusions: []string{"php"},
				AI:                &jobs.AIAssessment{Fit: true, Reason: "close enough"},
			},
		},
	}
}

func TestRender(t *testing.T) {
	msg, err := Render(testDigest())
	require.NoError(t, err)

	assert.Equal(t, "hh-matcher: 2 matching postings, top: Python Developer", msg.Subject)

	assert.Contains(t, msg.Text, "Skills: python, sql")
	assert.Contains(t, msg.Text, "1. Python Developer [45.52]")
	assert.Contains(t, msg.Text, "2. PHP & Python <Backend> [5.00]")
	assert.Contains(t, msg.Text, "Penalized for: php")
	assert.Contains(t, msg.Text, "AI: close enough")
	assert.Contains(t, msg.Text, "https://hh.ru/vacancy/1")

	assert.Contains(t, msg.HTML, `<a href="https://hh.ru/vacancy/1">Python Developer</a>`)
	assert.Contains(t, msg.HTML, "PHP &amp; Python &lt;Backend&gt;")
	assert.Contains(t, msg.HTML, "45.52")
	assert.Contains(t, msg.HTML, "AI: close enough")
}

func TestRenderSubjects(t *testing.T) {
	msg, err := Render(Digest{})
	require.NoError(t, err)
	assert.Equal(t, "hh-matcher: no matching postings", msg.Subject)

	d := testDigest()
	d.Postings = d.Postings[:1]
	msg, err = Render(d)
	require.NoError(t, err)
	assert.Equal(t, "hh-matcher: 1 matching posting (Python Developer)", msg.Subject)
}

func TestNewEmailValidates(t *testing.T) {
	_, err := NewEmail(EmailConfig{}, "", nil)
	require.Error(t, err)

	_, err = NewEmail(EmailConfig{Server: "smtp.example.com", From: "me@example.com"}, "", nil)
	require.Error(t, err)

	e, err := NewEmail(EmailConfig{Server: "smtp.example.com", From: "me@example.com", To: []string{"you@example.com"}}, "secret", nil)
	require.NoError(t, err)
	assert.Equal(t, defaultSMTPPort, e.cfg.Port)
}

func TestEmailSend(t *testing.T) {
	fake := &fakeSender{}
	e := &Email{
		cfg:    EmailConfig{From: "me@example.com", To: []string{"a@example.com", "b@example.com"}},
		sender: fake,
		logger: zap.NewNop(),
	}

	msg, err := Render(testDigest())
	require.NoError(t, err)
	require.NoError(t, e.Send(context.Background(), msg))

	require.Len(t, fake.sent, 1)
	sent := fake.sent[0]
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, sent.GetHeader("To"))
	assert.Equal(t, []string{msg.Subject}, sent.GetHeader("Subject"))

	var raw bytes.Buffer
	_, err = sent.WriteTo(&raw)
	require.NoError(t, err)
	assert.True(t, strings.Contains(raw.String(), "text/plain"))
	assert.True(t, strings.Contains(raw.String(), "text/html"))
}

func TestEmailSendErrors(t *testing.T) {
	e := &Email{
		cfg:    EmailConfig{From: "me@example.com", To: []string{"a@example.com"}},
		sender: &fakeSender{err: errors.New("connection refused")},
		logger: zap.NewNop(),
	}

	require.Error(t, e.Send(context.Background(), nil))

	err := e.Send(context.Background(), &Message{Subject: "s", Text: "t"})
	require.ErrorContains(t, err, "connection refused")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, e.Send(ctx, &Message{Subject: "s", Text: "t"}), context.Canceled)
}

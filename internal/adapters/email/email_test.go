package email

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"virtualexpo/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTemplateRenderer_Render(t *testing.T) {
	r := NewTemplateRenderer()
	data := domain.EventLifecycleEmailData{
		EventID:    "ev-1",
		EventTitle: "Spring <Expo>",
		Action:     domain.ActionEventAutoStart,
		ActorID:    domain.SystemActorID,
		PrevState:  "payment_done",
		NewState:   "live",
		OccurredAt: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}

	subject, html, text, err := r.Render("event_live", data)
	require.NoError(t, err)
	assert.Equal(t, "[Virtual Expo] Spring <Expo> is now live", subject)
	assert.Contains(t, html, "Spring &lt;Expo&gt;")
	assert.Contains(t, text, "payment_done -> live")
	assert.Contains(t, text, "2025-03-01 09:00 UTC")

	subject, _, _, err = r.Render("event_closed", data)
	require.NoError(t, err)
	assert.Equal(t, "[Virtual Expo] Spring <Expo> has closed", subject)

	_, _, _, err = r.Render("missing", data)
	require.Error(t, err)
}

type fakeSES struct {
	input *ses.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSESMailer_Send(t *testing.T) {
	t.Run("builds the SES request", func(t *testing.T) {
		client := &fakeSES{}
		m := newSESMailer(client, MailerConfig{FromAddress: "ops@expo.test", FromName: "Expo Ops"}, discardLogger())

		require.NoError(t, m.Send("admin@expo.test", "Subject", "<p>hi</p>", ""))
		require.NotNil(t, client.input)
		assert.Equal(t, "Expo Ops <ops@expo.test>", aws.ToString(client.input.Source))
		assert.Equal(t, []string{"admin@expo.test"}, client.input.Destination.ToAddresses)
		assert.Equal(t, "Subject", aws.ToString(client.input.Message.Subject.Data))
		require.NotNil(t, client.input.Message.Body.Html)
		assert.Nil(t, client.input.Message.Body.Text)
	})

	t.Run("wraps client errors", func(t *testing.T) {
		client := &fakeSES{err: errors.New("throttled")}
		m := newSESMailer(client, MailerConfig{FromAddress: "ops@expo.test"}, discardLogger())

		err := m.Send("admin@expo.test", "Subject", "", "text")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "throttled")
		assert.Equal(t, "ops@expo.test", aws.ToString(client.input.Source))
	})
}

func TestNewMailer(t *testing.T) {
	m, err := NewMailer(MailerConfig{Provider: "noop"}, discardLogger())
	require.NoError(t, err)
	require.NoError(t, m.Send("a@b.c", "s", "h", "t"))

	m, err = NewMailer(MailerConfig{Provider: "smtp"}, discardLogger())
	require.NoError(t, err)
	assert.IsType(t, &noopMailer{}, m)

	_, err = NewMailer(MailerConfig{Provider: "ses"}, discardLogger())
	require.Error(t, err)
}

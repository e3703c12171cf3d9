package mail

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewSMTPSenderValidation(t *testing.T) {
	t.Parallel()
	_, err := NewSMTPSender(SMTPConfig{From: "info@example.org"})
	require.Error(t, err)

	_, err = NewSMTPSender(SMTPConfig{Host: "smtp.example.org", Port: 465})
	require.Error(t, err)

	s, err := NewSMTPSender(SMTPConfig{
		Host:     "smtp.example.org",
		Port:     465,
		SSL:      true,
		Username: "user",
		Password: "secret",
		From:     "info@example.org",
	})
	require.NoError(t, err)
	require.NotNil(t, s)
}

func TestBuildMessage(t *testing.T) {
	t.Parallel()
	m, err := buildMessage("info@example.org", Message{
		To:      "kontakt@loewen.ch",
		Subject: "Ihr Menü",
		HTML:    "<p>Grüezi</p>",
	})
	require.NoError(t, err)

	rcpts, err := m.GetRecipients()
	require.NoError(t, err)
	require.Equal(t, []string{"kontakt@loewen.ch"}, rcpts)
	require.Equal(t, []string{"Ihr Menü"}, m.GetGenHeader(gomail.HeaderSubject))

	var buf bytes.Buffer
	_, err = m.WriteTo(&buf)
	require.NoError(t, err)
	require.Contains(t, buf.String(), "text/html")
}

func TestBuildMessageRejectsBadRecipient(t *testing.T) {
	t.Parallel()
	_, err := buildMessage("info@example.org", Message{To: "not an address"})
	require.Error(t, err)
}

func TestLogSender(t *testing.T) {
	t.Parallel()
	core, logs := observer.New(zap.InfoLevel)
	s := NewLogSender(zap.New(core))

	require.NoError(t, s.Send(context.Background(), Message{To: "a@b.ch", Subject: "Ihr Menü", HTML: "<p>x</p>"}))
	require.Equal(t, 1, logs.Len())
	require.Equal(t, "a@b.ch", logs.All()[0].ContextMap()["to"])

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, s.Send(ctx, Message{}), context.Canceled)
}

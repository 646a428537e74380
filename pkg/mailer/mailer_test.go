package mailer

import (
	"context"
	"testing"

	"learnhub/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFallsBackToConsole(t *testing.T) {
	s := New(config.MailConfig{})
	_, ok := s.(*ConsoleSender)
	assert.True(t, ok)

	s = New(config.MailConfig{Host: "smtp.example.com", Port: 587, Username: "u"})
	smtp, ok := s.(*SMTPSender)
	require.True(t, ok)
	assert.Equal(t, "u", smtp.from)
}

func TestConsoleSenderRecords(t *testing.T) {
	s := NewConsoleSender()
	require.NoError(t, s.Send(context.Background(), OTPMessage("a@b.co", "123456", "reset_password")))

	sent := s.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "a@b.co", sent[0].To)
	assert.Equal(t, "Reset your password", sent[0].Subject)
	assert.Contains(t, sent[0].HTML, "123456")
}

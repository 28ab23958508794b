package mail

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/connectboard/internal/pkg/onboarding"
)

func TestSMTPMailerSend(t *testing.T) {
	m := NewSMTPMailer(Config{Host: "smtp.example.com", Port: "2525", Sender: "boarding@example.com"})
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		assert.Nil(t, a)
		return nil
	}

	require.NoError(t, m.Send(context.Background(), "a@x.com", "Hi", "<p>body</p>"))
	assert.Equal(t, "smtp.example.com:2525", gotAddr)
	assert.Equal(t, "boarding@example.com", gotFrom)
	assert.Equal(t, []string{"a@x.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: Hi\r\n")
	assert.True(t, strings.HasSuffix(string(gotMsg), "\r\n\r\n<p>body</p>"))
}

func TestSMTPMailerSendError(t *testing.T) {
	m := NewSMTPMailer(Config{Host: "h", Port: "25", Username: "u", Password: "p"})
	m.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("421 busy") }

	err := m.Send(context.Background(), "a@x.com", "s", "b")
	assert.ErrorContains(t, err, "421 busy")
}

type recordingSender struct {
	to, subject, body string
}

func (r *recordingSender) Send(_ context.Context, to, subject, body string) error {
	r.to, r.subject, r.body = to, subject, body
	return nil
}

func TestInviteNotifierEscapesInput(t *testing.T) {
	rec := &recordingSender{}
	n := NewInviteNotifier(rec)

	err := n.SendOnboardingInvite(context.Background(), onboarding.Invite{
		Name:  "<b>Acme</b>",
		Email: "a@x.com",
		URL:   "https://boarding.example.com/onboard-client?token=abc",
	})
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", rec.to)
	assert.Equal(t, inviteSubject, rec.subject)
	assert.Contains(t, rec.body, "&lt;b&gt;Acme&lt;/b&gt;")
	assert.Contains(t, rec.body, `href="https://boarding.example.com/onboard-client?token=abc"`)
}

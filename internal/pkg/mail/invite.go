package mail

import (
	"bytes"
	"context"
	"html/template"

	"github.com/ManuelReschke/connectboard/internal/pkg/onboarding"
)

const inviteSubject = "Complete your payment account setup"

var inviteTemplate = template.Must(template.New("invite").Parse(`<p>Hello {{.Name}},</p>
<p>your account has been created. To start accepting payments, finish the setup with your payment provider:</p>
<p><a href="{{.URL}}">{{.URL}}</a></p>
<p>The link can be used until the setup is complete.</p>`))

// Sender delivers one HTML email.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// InviteNotifier emails onboarding links to new tenants.
type InviteNotifier struct {
	sender Sender
}

func NewInviteNotifier(sender Sender) *InviteNotifier {
	return &InviteNotifier{sender: sender}
}

func (n *InviteNotifier) SendOnboardingInvite(ctx context.Context, invite onboarding.Invite) error {
	var body bytes.Buffer
	if err := inviteTemplate.Execute(&body, invite); err != nil {
		return err
	}
	return n.sender.Send(ctx, invite.Email, inviteSubject, body.String())
}

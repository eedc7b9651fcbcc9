package invite

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"time"
)

// MessageKind tells sinks which template a message was rendered from
type MessageKind string

const (
	MessageKindInvitation        MessageKind = "invitation"
	MessageKindAdminRegistration MessageKind = "admin_registration"
)

// Message is a rendered notification ready for delivery
type Message struct {
	Kind    MessageKind
	To      string
	Subject string
	HTML    string
	Text    string
	Link    string
}

// NotificationSinkFunc adapts a function to NotificationSink
type NotificationSinkFunc func(ctx context.Context, msg Message) error

// Send implements NotificationSink
func (f NotificationSinkFunc) Send(ctx context.Context, msg Message) error {
	if f == nil {
		return nil
	}
	return f(ctx, msg)
}

// LogSink writes messages to the logger instead of delivering them.
// Used when no mail transport is configured.
type LogSink struct {
	Logger Logger
}

// Send implements NotificationSink. Credentials in the link are masked,
// the full link is only written at debug level.
func (s LogSink) Send(_ context.Context, msg Message) error {
	logger := normalizeLogger(s.Logger)
	logger.Info("notification",
		"kind", msg.Kind,
		"to", msg.To,
		"subject", msg.Subject,
		"link", RedactLink(msg.Link),
	)
	logger.Debug("notification link", "to", msg.To, "link", msg.Link)
	return nil
}

var credentialParams = []string{"confirmationToken", "registrationToken"}

// RedactLink masks credential query parameters in link
func RedactLink(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return "[unparseable link]"
	}

	q := u.Query()
	changed := false
	for _, key := range credentialParams {
		if q.Has(key) {
			q.Set(key, "REDACTED")
			changed = true
		}
	}
	if changed {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// ValidityText renders a validity window for message bodies
func ValidityText(d time.Duration) string {
	if d <= 0 {
		d = DefaultValidity
	}
	switch {
	case d == time.Hour:
		return "1 hour"
	case d%time.Hour == 0:
		return fmt.Sprintf("%d hours", int(d/time.Hour))
	case d%time.Minute == 0:
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	}
	return d.String()
}

// NewInvitationMessage renders the end user invitation email for a
// credential valid for validity
func NewInvitationMessage(to, link string, validity time.Duration) Message {
	expires := ValidityText(validity)
	return Message{
		Kind:    MessageKindInvitation,
		To:      to,
		Subject: "Complete your registration",
		HTML: fmt.Sprintf(
			`<p>You have been invited to create an account.</p><p><a href="%s">Complete your registration</a></p><p>This link expires in %s.</p>`,
			html.EscapeString(link),
			expires,
		),
		Text: fmt.Sprintf("You have been invited to create an account.\n\nComplete your registration: %s\n\nThis link expires in %s.\n", link, expires),
		Link: link,
	}
}

// NewAdminRegistrationMessage renders the admin panel invitation email
func NewAdminRegistrationMessage(to, link string) Message {
	return Message{
		Kind:    MessageKindAdminRegistration,
		To:      to,
		Subject: "Admin account invitation",
		HTML: fmt.Sprintf(
			`<p>An administrator account was created for you.</p><p><a href="%s">Set up your admin account</a></p>`,
			html.EscapeString(link),
		),
		Text: fmt.Sprintf("An administrator account was created for you.\n\nSet up your admin account: %s\n", link),
		Link: link,
	}
}

package mailer

import (
	"context"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
	"gopkg.in/gomail.v2"

	invite "github.com/goliatone/go-auth-invite"
)

// Sender delivers a composed message. *gomail.Dialer satisfies it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Config holds the SMTP settings
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (c Config) validate() error {
	if c.Host == "" {
		return fmt.Errorf("missing SMTP host")
	}
	if c.Port == 0 {
		return fmt.Errorf("missing SMTP port")
	}
	if c.From == "" {
		return fmt.Errorf("missing SMTP sender address")
	}
	return nil
}

// Mailer is an invite.NotificationSink that sends messages over SMTP
type Mailer struct {
	from   string
	sender Sender
	logger invite.Logger
}

var _ invite.NotificationSink = (*Mailer)(nil)

// New creates a Mailer with a gomail dialer for cfg
func New(cfg Config, logger invite.Logger) (*Mailer, error) {
	if err := cfg.validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid mailer configuration")
	}

	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)

	return NewWithSender(cfg.From, dialer, logger), nil
}

// NewWithSender creates a Mailer that hands messages to sender
func NewWithSender(from string, sender Sender, logger invite.Logger) *Mailer {
	if logger == nil {
		logger = invite.NoopLogger()
	}
	return &Mailer{
		from:   from,
		sender: sender,
		logger: logger,
	}
}

// Send implements invite.NotificationSink
func (m *Mailer) Send(ctx context.Context, msg invite.Message) error {
	if msg.To == "" {
		return goerrors.New("no recipient specified", goerrors.CategoryBadInput)
	}

	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled before sending mail")
	default:
	}

	if err := m.sender.DialAndSend(m.compose(msg)); err != nil {
		m.logger.Error("mailer send failed", "kind", msg.Kind, "to", msg.To, "error", err)
		return goerrors.Wrap(err, goerrors.CategoryExternal, "failed to send email").
			WithTextCode(invite.TextCodeNotificationFailed)
	}

	m.logger.Debug("mailer sent", "kind", msg.Kind, "to", msg.To)
	return nil
}

func (m *Mailer) compose(msg invite.Message) *gomail.Message {
	out := gomail.NewMessage()
	out.SetHeader("From", m.from)
	out.SetHeader("To", msg.To)
	out.SetHeader("Subject", msg.Subject)

	if msg.HTML != "" {
		out.SetBody("text/html", msg.HTML)
		if msg.Text != "" {
			out.AddAlternative("text/plain", msg.Text)
		}
	} else {
		out.SetBody("text/plain", msg.Text)
	}

	return out
}

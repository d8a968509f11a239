package mailer

import (
	"context"
	"fmt"

	"github.com/goliatone/go-errors"
	"github.com/wneessen/go-mail"
)

// Mailer delivers out-of-band notifications. The OTP always goes to the
// fixed approver address, never to the registrant.
type Mailer interface {
	SendOTP(ctx context.Context, registrantEmail, otp string) error
	SendPasswordReset(ctx context.Context, to, link string) error
}

// Config holds SMTP transport settings.
type Config struct {
	Host string
	Port int
	User string
	Pass string

	From          string
	ApproverEmail string
}

// SMTPMailer sends mail through an SMTP relay.
type SMTPMailer struct {
	client *mail.Client
	cfg    Config
}

// New creates an SMTPMailer. The connection is dialed per send, the client
// itself is safe for concurrent use.
func New(cfg Config) (*SMTPMailer, error) {
	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.User),
		mail.WithPassword(cfg.Pass),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "could not create SMTP client")
	}

	return &SMTPMailer{client: client, cfg: cfg}, nil
}

// SendOTP mails an admin registration code to the approver address.
func (m *SMTPMailer) SendOTP(ctx context.Context, registrantEmail, otp string) error {
	body := fmt.Sprintf("Someone (Email: %s) is trying to register as Admin. OTP: %s", registrantEmail, otp)
	return m.send(ctx, m.cfg.ApproverEmail, "ADMIN REGISTRATION OTP", body)
}

// SendPasswordReset mails a reset link to the account's own address.
func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, link string) error {
	body := fmt.Sprintf("You requested a password reset. Open the link below to choose a new password. The link expires in one hour.\n\n%s\n\nIf you did not request this, you can ignore this email.", link)
	return m.send(ctx, to, "Password Reset", body)
}

func (m *SMTPMailer) send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "invalid sender address")
	}
	if err := msg.To(to); err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "invalid recipient address")
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "SMTP delivery failed")
	}

	return nil
}

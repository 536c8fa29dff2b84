package mailer

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/sells-group/feedback-cli/internal/config"
)

// Transport delivers follow-up emails. Implementations must be safe for
// concurrent use; the pipeline treats any returned error the same as a
// delivery failure.
type Transport interface {
	Send(ctx context.Context, to, subject, body string) error
	Verify(ctx context.Context) error
}

// SMTP implements Transport over gomail with STARTTLS.
type SMTP struct {
	cfg config.SMTPConfig
}

// NewSMTP creates an SMTP transport from config.
func NewSMTP(cfg config.SMTPConfig) *SMTP {
	return &SMTP{cfg: cfg}
}

// Send delivers a plain-text email to a single recipient.
func (s *SMTP) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "mailer: context cancelled")
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.cfg.FromEmail, s.cfg.FromName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.User, s.cfg.Password)

	// gomail has no context support; run the dial in a goroutine so a
	// cancelled caller is not stuck behind a slow SMTP handshake.
	done := make(chan error, 1)
	go func() {
		done <- d.DialAndSend(m)
	}()

	select {
	case err := <-done:
		if err != nil {
			return eris.Wrapf(err, "mailer: send to %s", to)
		}
		zap.L().Info("email sent", zap.String("to", to), zap.String("subject", subject))
		return nil
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "mailer: context cancelled during send")
	}
}

// Verify opens and closes an SMTP connection to confirm the transport
// is reachable with the configured credentials.
func (s *SMTP) Verify(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "mailer: context cancelled")
	}

	d := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.User, s.cfg.Password)

	done := make(chan error, 1)
	go func() {
		closer, err := d.Dial()
		if err != nil {
			done <- err
			return
		}
		done <- closer.Close()
	}()

	select {
	case err := <-done:
		return eris.Wrap(err, "mailer: verify connection")
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "mailer: context cancelled during verify")
	}
}

// Disabled is a Transport that refuses every send. It is wired when
// email dispatch is turned off so a drafted email is never delivered by
// accident.
type Disabled struct{}

// Send always fails.
func (Disabled) Send(_ context.Context, to, _, _ string) error {
	return eris.Errorf("mailer: dispatch disabled, not sending to %s", to)
}

// Verify always fails.
func (Disabled) Verify(context.Context) error {
	return eris.New("mailer: dispatch disabled")
}

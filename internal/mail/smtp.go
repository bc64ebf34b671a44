package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog/log"
)

const appName = "D-Access"

// SMTPMailer sends password-reset codes through a plain SMTP relay. It is
// constructed once at startup and held for the process lifetime.
type SMTPMailer struct {
	addr     string
	auth     smtp.Auth
	from     string
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	if from == "" {
		from = username
	}
	return &SMTPMailer{
		addr:     fmt.Sprintf("%s:%d", host, port),
		auth:     smtp.PlainAuth("", username, password, host),
		from:     from,
		sendMail: smtp.SendMail,
	}
}

// SendPasswordReset mails the raw reset code. Errors propagate: a reset the
// user never received must not be reported as sent.
func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %q <%s>\r\n", appName, m.from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s - Password Reset Code\r\n", appName)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	fmt.Fprintf(&b, "Your password reset code is: %s\r\n\r\n", token)
	b.WriteString("This code expires in 15 minutes.\r\nIf you did not request this, ignore this email.\r\n")

	if err := m.sendMail(m.addr, m.auth, m.from, []string{to}, []byte(b.String())); err != nil {
		log.Error().Err(err).Str("to", to).Msg("Failed to send reset email")
		return fmt.Errorf("sending reset email: %w", err)
	}
	log.Info().Str("to", to).Msg("Reset email sent")
	return nil
}

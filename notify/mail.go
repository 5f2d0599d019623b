// Package notify e-mails benchmark comparison reports: a plaintext CSV
// body plus an HTML alternative with the top movers up front.
package notify

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	gomail "gopkg.in/gomail.v2"
)

// MailConfig is the SMTP account and addressing for report mail.
type MailConfig struct {
	Sender     string
	Recipients []string
	SMTPServer string
	SMTPPort   int
	Password   string
}

// Mailer sends reports over SMTP with STARTTLS.
type Mailer struct {
	cfg MailConfig
}

// NewMailer validates the config and returns a Mailer.
func NewMailer(cfg MailConfig) (*Mailer, error) {
	if cfg.Sender == "" || cfg.SMTPServer == "" {
		return nil, errors.New("notify: mail sender and SMTP server are required")
	}
	if len(cfg.Recipients) == 0 {
		return nil, errors.New("notify: no mail recipients configured")
	}
	if cfg.SMTPPort == 0 {
		cfg.SMTPPort = 587
	}
	return &Mailer{cfg: cfg}, nil
}

// Send mails a multipart/alternative message: plain first, HTML when
// non-empty.
func (m *Mailer) Send(subject, plain, html string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.Sender)
	msg.SetHeader("To", m.cfg.Recipients...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", plain)
	if html != "" {
		msg.AddAlternative("text/html", html)
	}

	d := gomail.NewDialer(m.cfg.SMTPServer, m.cfg.SMTPPort, m.cfg.Sender, m.cfg.Password)
	if err := d.DialAndSend(msg); err != nil {
		return fmt.Errorf("notify: sending mail via %s:%d: %w", m.cfg.SMTPServer, m.cfg.SMTPPort, err)
	}

	log.Info().Strs("recipients", m.cfg.Recipients).Str("subject", subject).Msg("Report mail sent")
	return nil
}

package utils

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"mailforge/config"
	"mailforge/models"
)

// Mailer delivers generated drafts over SMTP.
type Mailer struct {
	cfg config.SMTPConfig
}

func NewMailer(cfg config.SMTPConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

// SendDraft delivers a draft to its recipient. The caller is responsible
// for the status transition; this only performs the SMTP exchange.
func (m *Mailer) SendDraft(draft *models.EmailDraft) error {
	if m.cfg.Host == "" {
		return fmt.Errorf("SMTP is not configured")
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.cfg.FromEmail, m.cfg.FromName)
	msg.SetAddressHeader("To", draft.RecipientEmail, draft.RecipientName)
	msg.SetHeader("Subject", draft.Subject)
	msg.SetBody("text/plain", draft.Body)

	dialer := gomail.NewDialer(
		m.cfg.Host,
		m.cfg.Port,
		m.cfg.Username,
		m.cfg.Password,
	)

	if err := dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// Package notification delivers one-time passcode email. Delivery
// failures propagate to the caller of the reset flow rather than being
// swallowed.
package notification

import (
	"fmt"
	"net/smtp"

	"go.uber.org/zap"

	"battsim/internal/config"
)

// Sender delivers a message to a single recipient
type Sender interface {
	Send(recipient, subject, body string) error
}

// SMTPMailer sends mail through a plain-auth SMTP relay
type SMTPMailer struct {
	config config.EmailConfig
	logger *zap.Logger
}

// NewSMTPMailer creates a mailer from config
func NewSMTPMailer(cfg config.EmailConfig, logger *zap.Logger) *SMTPMailer {
	return &SMTPMailer{config: cfg, logger: logger}
}

// Send delivers one message
func (m *SMTPMailer) Send(recipient, subject, body string) error {
	msg := fmt.Sprintf("From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		m.config.FromName, m.config.FromAddress, recipient, subject, body)

	auth := smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.SMTPHost)
	addr := fmt.Sprintf("%s:%d", m.config.SMTPHost, m.config.SMTPPort)

	if err := smtp.SendMail(addr, auth, m.config.FromAddress, []string{recipient}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send email via SMTP: %w", err)
	}

	m.logger.Info("email sent", zap.String("recipient", recipient), zap.String("subject", subject))
	return nil
}

// PasscodeBody formats the reset-code message text
func PasscodeBody(code string) string {
	return fmt.Sprintf("Your password reset code is %s. It expires in 10 minutes.\r\n\r\nIf you did not request a reset, ignore this message.", code)
}

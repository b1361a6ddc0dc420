package mailer

import (
	"fmt"
	"net/smtp"

	"github.com/rs/zerolog"

	"tikozetu/internal/model"
)

type Config struct {
	Host     string
	Port     int
	From     string
	Password string
}

type Mailer struct {
	cfg Config
	log *zerolog.Logger
}

func New(cfg Config, log *zerolog.Logger) *Mailer {
	return &Mailer{cfg: cfg, log: log}
}

// SendPaymentEmail notifies an attendee about a payment status change.
func (m *Mailer) SendPaymentEmail(recipientEmail, eventTitle, bookingReference, status string) error {
	var subject, body string
	switch status {
	case model.PaymentPending:
		subject = "Payment received for " + eventTitle
		body = fmt.Sprintf(
			"Hello!\n\nWe received your payment submission for \"%s\" (booking %s).\nThe organizer will review it shortly.",
			eventTitle, bookingReference,
		)
	case model.PaymentConfirmed:
		subject = "Payment confirmed for " + eventTitle
		body = fmt.Sprintf(
			"Hello!\n\nYour payment for \"%s\" (booking %s) has been confirmed.\nYour ticket and QR code are ready in your account. See you there!",
			eventTitle, bookingReference,
		)
	case model.PaymentRejected:
		subject = "Payment rejected for " + eventTitle
		body = fmt.Sprintf(
			"Hello!\n\nThe organizer could not verify your payment for \"%s\" (booking %s).\nPlease check the payment details and submit the proof again.",
			eventTitle, bookingReference,
		)
	default:
		return fmt.Errorf("unknown payment status %q", status)
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		m.cfg.From, recipientEmail, subject, body,
	)

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.From, m.cfg.Password, m.cfg.Host)

	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{recipientEmail}, []byte(msg)); err != nil {
		m.log.Warn().Msgf("Failed to send email to %s: %v", recipientEmail, err)
		return fmt.Errorf("send email: %w", err)
	}

	m.log.Info().Msgf("Email sent to %s (status: %s)", recipientEmail, status)
	return nil
}

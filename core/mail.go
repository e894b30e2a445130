package core

import "net/mail"

type (
	// EmailMessage is a plain-text outbound email.
	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		Subject string
		BodyStr string
	}

	// EmailService is any service that can send emails.
	EmailService interface {
		// SendMessages sends messages concurrently; failures are logged, never returned.
		SendMessages(messages ...*EmailMessage)

		// SendMessage sends one message synchronously and reports delivery failure.
		// Used where delivery confirmation is part of the contract (OTP issuance).
		SendMessage(message *EmailMessage) error
	}
)

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return m.BodyStr != "" }

package ports

import "context"

// EmailTemplate selects the message rendered for the recipient.
type EmailTemplate string

const (
	EmailTemplatePasswordReset     EmailTemplate = "password_reset"
	EmailTemplateEmailConfirmation EmailTemplate = "email_confirmation"
	EmailTemplateWelcome           EmailTemplate = "welcome"
)

// EmailMessage is a templated message. Data may carry secrets such as raw
// tokens, so dispatchers must not log it.
type EmailMessage struct {
	To       string
	Template EmailTemplate
	Data     map[string]any
}

// EmailDispatcher hands a message to the delivery channel. A nil error means
// the message was accepted for delivery.
type EmailDispatcher interface {
	Send(ctx context.Context, msg EmailMessage) error
}

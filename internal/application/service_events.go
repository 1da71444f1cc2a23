package application

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/intranet/credential-service/internal/domain"
	"github.com/viralforge/intranet/credential-service/internal/ports"
)

const (
	// eventTypeUserCreated is emitted when an account is provisioned.
	eventTypeUserCreated = "user.created"
	// eventTypeEmailConfirmed is emitted when a confirmation token is consumed.
	eventTypeEmailConfirmed = "user.email_confirmed"
	// eventTypePasswordReset is emitted when a reset token replaces the password.
	eventTypePasswordReset = "credential.password_reset"
	// eventTypePasswordChanged is emitted when the owner changes the password.
	eventTypePasswordChanged = "credential.password_changed"
)

// userEvent builds an outbox event partitioned by user so consumers see one
// user's changes in order. Payloads never carry secrets.
func userEvent(eventType string, user domain.User, at time.Time, extra map[string]any) *ports.OutboxEvent {
	body := map[string]any{
		"user_id":     user.UserID.String(),
		"email":       user.Email,
		"occurred_at": at,
	}
	for k, v := range extra {
		body[k] = v
	}
	payload, _ := json.Marshal(body)
	return &ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    eventType,
		PartitionKey: user.UserID.String(),
		Payload:      payload,
		OccurredAt:   at,
	}
}

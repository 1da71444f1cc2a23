package ports

import "context"

// EventPublisher relays outbox payloads to the event bus. partitionKey keeps
// one user's events ordered.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error
}

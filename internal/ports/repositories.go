package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/intranet/credential-service/internal/domain"
)

// CreateTokenParams captures a token issuance. The store invalidates every
// live token of the same kind for the user in the same transaction.
type CreateTokenParams struct {
	Kind      domain.TokenKind
	UserID    uuid.UUID
	Email     string
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// ConsumeTokenParams moves a token to its terminal consumed state and applies
// the credential change it authorises, atomically.
type ConsumeTokenParams struct {
	TokenID    uuid.UUID
	ConsumedAt time.Time
	// PasswordHash replaces the owner's hash when non-empty.
	PasswordHash string
	// ConfirmEmail marks the owner's email as confirmed.
	ConfirmEmail bool
	Event        *OutboxEvent
}

// CredentialStore owns users and their single-use credential tokens.
// Conflicting writes to the same user are serialized by the store.
type CredentialStore interface {
	FindUserByEmail(ctx context.Context, email string) (domain.User, error)
	SaveUser(ctx context.Context, user domain.User, event *OutboxEvent) (domain.User, error)
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string, updatedAt time.Time, event *OutboxEvent) error

	CreateToken(ctx context.Context, params CreateTokenParams) (domain.CredentialToken, error)
	FindToken(ctx context.Context, kind domain.TokenKind, tokenHash string) (domain.CredentialToken, error)
	ConsumeToken(ctx context.Context, params ConsumeTokenParams) error
	// InvalidatePriorTokens supersedes the user's live tokens of kind without
	// issuing a replacement. CreateToken applies the same rule inside its own
	// transaction.
	InvalidatePriorTokens(ctx context.Context, kind domain.TokenKind, userID uuid.UUID, at time.Time) (int64, error)
	PurgeExpiredTokens(ctx context.Context, before time.Time) (int64, error)
}

// ProfileStore persists profiles, their permissions and user assignments.
type ProfileStore interface {
	ListProfiles(ctx context.Context) ([]domain.Profile, error)
	ListPermissions(ctx context.Context, profile string) ([]string, error)
	ListUserProfiles(ctx context.Context, userID uuid.UUID) ([]string, error)
	AddAssignment(ctx context.Context, userID uuid.UUID, profile string, at time.Time) error
	RemoveAssignment(ctx context.Context, userID uuid.UUID, profile string) error
	GrantPermissions(ctx context.Context, profile string, permissions []string, at time.Time) error
	SeedDefaults(ctx context.Context, defaults []domain.Profile, at time.Time) (domain.SeedReport, error)
}

// OutboxEvent is the write-side event payload prior to storage.
type OutboxEvent struct {
	EventID      uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	OccurredAt   time.Time
}

// OutboxRecord represents durable outbox state, including retry/error metadata.
type OutboxRecord struct {
	OutboxID       uuid.UUID
	EventType      string
	PartitionKey   string
	Payload        []byte
	RetryCount     int
	LastError      *string
	CreatedAt      time.Time
	PublishedAt    *time.Time
	LastErrorAt    *time.Time
	ClaimToken     *string
	ClaimUntil     *time.Time
	DeadLetteredAt *time.Time
}

// OutboxRepository controls the publish-retry workflow for domain events.
type OutboxRepository interface {
	Enqueue(ctx context.Context, event OutboxEvent) error
	ClaimUnpublished(ctx context.Context, limit int, claimToken string, claimUntil time.Time) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, outboxID uuid.UUID, claimToken string, at time.Time) error
	MarkFailed(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
	MarkDeadLettered(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
}

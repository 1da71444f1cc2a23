package domain

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

const rawTokenLen = 32

// TokenKind scopes a credential token to one flow.
type TokenKind string

const (
	TokenKindPasswordReset     TokenKind = "password_reset"
	TokenKindEmailConfirmation TokenKind = "email_confirmation"
)

// CredentialToken is the server-side state of a single-use, time-bound token.
// Only the sha256 fingerprint of the raw value is ever persisted.
type CredentialToken struct {
	TokenID       uuid.UUID
	Kind          TokenKind
	UserID        uuid.UUID
	Email         string
	TokenHash     string
	CreatedAt     time.Time
	ExpiresAt     time.Time
	ConsumedAt    *time.Time
	InvalidatedAt *time.Time
}

// Check derives the token state at now. Consumed wins over expired so a
// replayed token always reports that it was already used.
func (t CredentialToken) Check(now time.Time) error {
	switch {
	case t.InvalidatedAt != nil:
		return ErrTokenNotFound
	case t.ConsumedAt != nil:
		return ErrTokenConsumed
	case !now.Before(t.ExpiresAt):
		return ErrTokenExpired
	default:
		return nil
	}
}

// RawToken is the plaintext value delivered by email. It must never be logged
// or persisted.
type RawToken string

// GenerateRawToken returns a new hex-encoded random token.
func GenerateRawToken() (RawToken, error) {
	raw := make([]byte, rawTokenLen)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return RawToken(hex.EncodeToString(raw)), nil
}

// Hash returns the one-way fingerprint used for storage and lookup.
func (t RawToken) Hash() string {
	return HashToken(string(t))
}

// LogValue implements slog.LogValuer.
func (t RawToken) LogValue() slog.Value {
	return slog.StringValue("[redacted]")
}

// HashToken fingerprints a client supplied token value.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(token)))
	return hex.EncodeToString(sum[:])
}

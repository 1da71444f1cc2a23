package ports

import "time"

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// SessionToken is a signed, stateless credential. It is never persisted.
type SessionToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	ExpiresIn int64     `json:"expires_in"`
}

type SessionClaims struct {
	TokenID   string
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenIssuer signs and validates session tokens with a process-wide key.
type TokenIssuer interface {
	Issue() (SessionToken, error)
	IssueFor(subject string) (SessionToken, error)
	Validate(raw string) (SessionClaims, error)
}

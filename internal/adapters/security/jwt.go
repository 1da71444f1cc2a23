package security

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/viralforge/intranet/credential-service/internal/domain"
	"github.com/viralforge/intranet/credential-service/internal/ports"
)

const DefaultSessionTTL = 2 * time.Hour

// Secret holds signing material and never renders its value in logs.
type Secret string

func (s Secret) LogValue() slog.Value {
	return slog.StringValue("[redacted]")
}

// HMACIssuer implements HS256 session token signing/validation.
// The key is read once at construction and never rotated in-process.
type HMACIssuer struct {
	key    []byte
	issuer string
	ttl    time.Duration
	nowFn  func() time.Time
}

// NewHMACIssuer builds an issuer from the configured signing key.
func NewHMACIssuer(key Secret, issuer string, ttl time.Duration) (*HMACIssuer, error) {
	if strings.TrimSpace(string(key)) == "" {
		return nil, fmt.Errorf("%w: session signing key is required", domain.ErrConfiguration)
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &HMACIssuer{
		key:    []byte(key),
		issuer: issuer,
		ttl:    ttl,
		nowFn:  time.Now,
	}, nil
}

// WithClock swaps the time source. Intended for tests.
func (s *HMACIssuer) WithClock(nowFn func() time.Time) *HMACIssuer {
	if nowFn != nil {
		s.nowFn = nowFn
	}
	return s
}

func (s *HMACIssuer) Issue() (ports.SessionToken, error) {
	return s.IssueFor("")
}

func (s *HMACIssuer) IssueFor(subject string) (ports.SessionToken, error) {
	now := s.nowFn().UTC()
	expiresAt := now.Add(s.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    s.issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})
	signed, err := token.SignedString(s.key)
	if err != nil {
		return ports.SessionToken{}, err
	}
	return ports.SessionToken{
		Token:     signed,
		ExpiresAt: expiresAt,
		ExpiresIn: int64(s.ttl.Seconds()),
	}, nil
}

func (s *HMACIssuer) Validate(raw string) (ports.SessionClaims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ports.SessionClaims{}, fmt.Errorf("%w: missing session token", domain.ErrUnauthorized)
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.nowFn),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	parsed, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(token *jwt.Token) (any, error) {
		return s.key, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ports.SessionClaims{}, fmt.Errorf("%w: session token expired", domain.ErrTokenExpired)
		}
		return ports.SessionClaims{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid {
		return ports.SessionClaims{}, fmt.Errorf("%w: invalid token claims", domain.ErrUnauthorized)
	}

	result := ports.SessionClaims{
		TokenID: claims.ID,
		Subject: claims.Subject,
	}
	if claims.IssuedAt != nil {
		result.IssuedAt = claims.IssuedAt.Time.UTC()
	}
	if claims.ExpiresAt != nil {
		result.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	return result, nil
}

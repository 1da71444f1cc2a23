package application

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/viralforge/intranet/credential-service/internal/domain"
	"github.com/viralforge/intranet/credential-service/internal/ports"
)

// normalizeEmail canonicalizes and validates email format before persistence/comparison.
func normalizeEmail(email string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(email))
	if trimmed == "" {
		return "", fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	}
	addr, err := mail.ParseAddress(trimmed)
	if err != nil || addr.Address != trimmed {
		return "", fmt.Errorf("%w: invalid email", domain.ErrInvalidInput)
	}
	return trimmed, nil
}

func normalizeProfile(name string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(name))
	if normalized == "" {
		return "", fmt.Errorf("%w: profile is required", domain.ErrInvalidInput)
	}
	return normalized, nil
}

func (s *Service) enforceRateLimit(ctx context.Context, key string, threshold int, window time.Duration) error {
	if s.lockouts == nil || threshold <= 0 || window <= 0 {
		return nil
	}
	if strings.TrimSpace(key) == "" {
		return nil
	}

	state, err := s.lockouts.Get(ctx, key)
	if err == nil && state.LockedUntil != nil && state.LockedUntil.After(s.nowFn()) {
		return domain.ErrRateLimited
	}

	// every request counts, the one past threshold is rejected
	now := s.nowFn()
	updated, err := s.lockouts.RecordFailure(ctx, key, now, threshold+1, window)
	if err != nil {
		slog.Default().WarnContext(ctx, "rate-limit state unavailable",
			"service", serviceName,
			"module", "application",
			"layer", "application",
			"operation", "rate_limit",
			"outcome", "warning",
			"key", key,
			"error", err,
		)
		return nil
	}
	if updated.LockedUntil != nil && updated.LockedUntil.After(now) {
		return domain.ErrRateLimited
	}
	return nil
}

type tokenDelivery struct {
	kind     domain.TokenKind
	ttl      time.Duration
	template ports.EmailTemplate
	path     string
	data     map[string]any
}

// issueCredentialToken stores a fresh token for the user, superseding prior
// live ones, and emails the raw value. The token stays valid when dispatch
// fails so the caller can retry.
func (s *Service) issueCredentialToken(ctx context.Context, user domain.User, delivery tokenDelivery) error {
	raw, err := domain.GenerateRawToken()
	if err != nil {
		return err
	}
	now := s.nowFn()
	token, err := s.credentials.CreateToken(ctx, ports.CreateTokenParams{
		Kind:      delivery.kind,
		UserID:    user.UserID,
		Email:     user.Email,
		TokenHash: raw.Hash(),
		CreatedAt: now,
		ExpiresAt: now.Add(delivery.ttl),
	})
	if err != nil {
		return fmt.Errorf("create %s token: %w", delivery.kind, err)
	}

	data := map[string]any{
		"Token":     string(raw),
		"Link":      s.actionLink(delivery.path, user.Email, raw),
		"ExpiresAt": token.ExpiresAt.Format(time.RFC3339),
	}
	for k, v := range delivery.data {
		data[k] = v
	}
	if err := s.dispatcher.Send(ctx, ports.EmailMessage{
		To:       user.Email,
		Template: delivery.template,
		Data:     data,
	}); err != nil {
		slog.Default().WarnContext(ctx, "credential email dispatch failed",
			"service", serviceName,
			"module", "application",
			"layer", "application",
			"operation", "dispatch_"+string(delivery.kind),
			"outcome", "failure",
			"token_id", token.TokenID,
			"error", err,
		)
		return fmt.Errorf("%w: %v", domain.ErrEmailDispatchFailure, err)
	}
	slog.Default().InfoContext(ctx, "credential token issued",
		"service", serviceName,
		"module", "application",
		"layer", "application",
		"operation", "issue_"+string(delivery.kind),
		"outcome", "success",
		"token_id", token.TokenID,
		"user_id", user.UserID,
	)
	return nil
}

// actionLink builds the front-end link that carries the raw token.
func (s *Service) actionLink(path, email string, raw domain.RawToken) string {
	base := strings.TrimRight(s.cfg.PublicBaseURL, "/")
	q := url.Values{}
	q.Set("token", string(raw))
	q.Set("email", email)
	return base + path + "?" + q.Encode()
}

const (
	tempPasswordLen     = 16
	tempPasswordUpper   = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	tempPasswordLower   = "abcdefghijkmnpqrstuvwxyz"
	tempPasswordDigits  = "23456789"
	tempPasswordSymbols = "!@#$%*?"
)

// generateTemporaryPassword returns a random password that satisfies the
// password policy.
func generateTemporaryPassword() (string, error) {
	classes := []string{tempPasswordUpper, tempPasswordLower, tempPasswordDigits, tempPasswordSymbols}
	alphabet := strings.Join(classes, "")
	for attempt := 0; attempt < 10; attempt++ {
		out := make([]byte, 0, tempPasswordLen)
		for _, class := range classes {
			c, err := randomChar(class)
			if err != nil {
				return "", err
			}
			out = append(out, c)
		}
		for len(out) < tempPasswordLen {
			c, err := randomChar(alphabet)
			if err != nil {
				return "", err
			}
			out = append(out, c)
		}
		if err := shuffle(out); err != nil {
			return "", err
		}
		if domain.ValidatePassword(string(out)) == nil {
			return string(out), nil
		}
	}
	return "", errors.New("could not generate a policy compliant password")
}

func randomChar(set string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(set))))
	if err != nil {
		return 0, err
	}
	return set[n.Int64()], nil
}

func shuffle(b []byte) error {
	for i := len(b) - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return err
		}
		b[i], b[j.Int64()] = b[j.Int64()], b[i]
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}

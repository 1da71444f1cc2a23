package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/viralforge/intranet/credential-service/internal/domain"
	"github.com/viralforge/intranet/credential-service/internal/ports"
)

const resetPath = "/password/reset"

// RequestPasswordReset issues a reset token and emails it when the user exists.
// It returns success for unknown users to avoid account enumeration.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	if err := s.enforceRateLimit(ctx, "reset:"+normalized, s.cfg.RecoveryRateLimitThreshold, s.cfg.RecoveryRateLimitWindow); err != nil {
		return err
	}

	user, err := s.credentials.FindUserByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			logOperation(ctx, "request_password_reset", "skipped")
			return nil
		}
		return err
	}

	return s.issueCredentialToken(ctx, user, tokenDelivery{
		kind:     domain.TokenKindPasswordReset,
		ttl:      s.cfg.ResetTokenTTL,
		template: ports.EmailTemplatePasswordReset,
		path:     resetPath,
	})
}

// ConfirmPasswordReset consumes a reset token and replaces the password hash.
// Token state is checked before the password policy.
func (s *Service) ConfirmPasswordReset(ctx context.Context, req PasswordResetRequest) error {
	if strings.TrimSpace(req.Token) == "" {
		return fmt.Errorf("%w: token is required", domain.ErrInvalidInput)
	}

	token, err := s.credentials.FindToken(ctx, domain.TokenKindPasswordReset, domain.HashToken(req.Token))
	if err != nil {
		return err
	}
	now := s.nowFn()
	if err := token.Check(now); err != nil {
		return err
	}
	if err := domain.ValidatePassword(req.NewPassword); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	owner := domain.User{UserID: token.UserID, Email: token.Email}
	if err := s.credentials.ConsumeToken(ctx, ports.ConsumeTokenParams{
		TokenID:      token.TokenID,
		ConsumedAt:   now,
		PasswordHash: hash,
		Event:        userEvent(eventTypePasswordReset, owner, now, nil),
	}); err != nil {
		return err
	}

	if s.lockouts != nil {
		if err := s.lockouts.Clear(ctx, loginLockoutKey(token.Email)); err != nil {
			slog.Default().WarnContext(ctx, "lockout reset failed",
				"service", serviceName,
				"module", "application",
				"layer", "application",
				"operation", "confirm_password_reset",
				"outcome", "warning",
				"error", err,
			)
		}
	}
	logOperation(ctx, "confirm_password_reset", "success")
	return nil
}

func logOperation(ctx context.Context, operation, outcome string) {
	slog.Default().InfoContext(ctx, "credential operation completed",
		"service", serviceName,
		"module", "application",
		"layer", "application",
		"operation", operation,
		"outcome", outcome,
	)
}

package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/viralforge/intranet/credential-service/internal/domain"
	"github.com/viralforge/intranet/credential-service/internal/ports"
)

const confirmPath = "/email/confirm"

// RequestEmailConfirmation issues a confirmation token for an unconfirmed user.
// Unknown and already confirmed users get success without side effects.
func (s *Service) RequestEmailConfirmation(ctx context.Context, email string) error {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	if err := s.enforceRateLimit(ctx, "confirm:"+normalized, s.cfg.RecoveryRateLimitThreshold, s.cfg.RecoveryRateLimitWindow); err != nil {
		return err
	}

	user, err := s.credentials.FindUserByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			logOperation(ctx, "request_email_confirmation", "skipped")
			return nil
		}
		return err
	}
	if user.EmailConfirmed {
		logOperation(ctx, "request_email_confirmation", "already_confirmed")
		return nil
	}

	return s.issueCredentialToken(ctx, user, s.confirmationDelivery(nil))
}

func (s *Service) confirmationDelivery(data map[string]any) tokenDelivery {
	return tokenDelivery{
		kind:     domain.TokenKindEmailConfirmation,
		ttl:      s.cfg.ConfirmationTokenTTL,
		template: ports.EmailTemplateEmailConfirmation,
		path:     confirmPath,
		data:     data,
	}
}

// ConfirmEmail consumes a confirmation token owned by email and marks the
// address confirmed. Replaying a token against a confirmed address succeeds.
func (s *Service) ConfirmEmail(ctx context.Context, req EmailConfirmationRequest) error {
	normalized, err := normalizeEmail(req.Email)
	if err != nil {
		return err
	}
	if strings.TrimSpace(req.Token) == "" {
		return fmt.Errorf("%w: token is required", domain.ErrInvalidInput)
	}

	token, err := s.credentials.FindToken(ctx, domain.TokenKindEmailConfirmation, domain.HashToken(req.Token))
	if err != nil {
		return err
	}
	if token.Email != normalized {
		return domain.ErrTokenNotFound
	}

	now := s.nowFn()
	if checkErr := token.Check(now); checkErr != nil {
		if errors.Is(checkErr, domain.ErrTokenConsumed) && s.alreadyConfirmed(ctx, normalized) {
			return nil
		}
		return checkErr
	}

	owner := domain.User{UserID: token.UserID, Email: token.Email}
	err = s.credentials.ConsumeToken(ctx, ports.ConsumeTokenParams{
		TokenID:      token.TokenID,
		ConsumedAt:   now,
		ConfirmEmail: true,
		Event:        userEvent(eventTypeEmailConfirmed, owner, now, nil),
	})
	if err != nil {
		// a concurrent confirm with the same token already did the work
		if errors.Is(err, domain.ErrTokenConsumed) && s.alreadyConfirmed(ctx, normalized) {
			return nil
		}
		return err
	}
	logOperation(ctx, "confirm_email", "success")
	return nil
}

// IsEmailConfirmed reports the confirmation flag of an existing user.
func (s *Service) IsEmailConfirmed(ctx context.Context, email string) (EmailConfirmedResponse, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return EmailConfirmedResponse{}, err
	}
	user, err := s.credentials.FindUserByEmail(ctx, normalized)
	if err != nil {
		return EmailConfirmedResponse{}, err
	}
	return EmailConfirmedResponse{Email: user.Email, Confirmed: user.EmailConfirmed}, nil
}

func (s *Service) alreadyConfirmed(ctx context.Context, email string) bool {
	user, err := s.credentials.FindUserByEmail(ctx, email)
	return err == nil && user.EmailConfirmed
}

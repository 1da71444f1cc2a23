package application

import (
	"context"
	"log/slog"

	"github.com/viralforge/intranet/credential-service/internal/domain"
	"github.com/viralforge/intranet/credential-service/internal/ports"
)

func loginLockoutKey(email string) string {
	return "login:" + email
}

// IssueToken mints an anonymous session token.
func (s *Service) IssueToken(ctx context.Context) (ports.SessionToken, error) {
	token, err := s.issuer.Issue()
	if err != nil {
		return ports.SessionToken{}, err
	}
	logOperation(ctx, "issue_token", "success")
	return token, nil
}

// ValidateToken verifies a bearer session token.
func (s *Service) ValidateToken(_ context.Context, raw string) (ports.SessionClaims, error) {
	return s.issuer.Validate(raw)
}

// Login verifies the password and issues a session token for the user.
// Unknown emails and wrong passwords are indistinguishable to the caller and
// both count towards the lockout.
func (s *Service) Login(ctx context.Context, req LoginRequest) (ports.SessionToken, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return ports.SessionToken{}, err
	}
	user, err := s.authenticate(ctx, "login", email, req.Password)
	if err != nil {
		return ports.SessionToken{}, err
	}

	token, err := s.issuer.IssueFor(user.Email)
	if err != nil {
		return ports.SessionToken{}, err
	}
	logOperation(ctx, "login", "success")
	return token, nil
}

// authenticate checks email and password behind the login lockout. Every
// password-proving operation goes through it so they share one failure
// counter per email. Without a lockout store no lock is enforced.
func (s *Service) authenticate(ctx context.Context, operation, email, password string) (domain.User, error) {
	lockKey := loginLockoutKey(email)
	if s.lockouts != nil {
		lockState, err := s.lockouts.Get(ctx, lockKey)
		if err == nil && lockState.LockedUntil != nil && lockState.LockedUntil.After(s.nowFn()) {
			slog.Default().WarnContext(ctx, "account lockout active",
				"service", serviceName,
				"module", "application",
				"layer", "application",
				"operation", operation,
				"outcome", "blocked",
				"locked_until", lockState.LockedUntil,
			)
			return domain.User{}, domain.ErrAccountLocked
		}
	}

	user, err := s.credentials.FindUserByEmail(ctx, email)
	if err != nil {
		if !isNotFound(err) {
			return domain.User{}, err
		}
		return domain.User{}, s.loginFailure(ctx, operation, lockKey)
	}
	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return domain.User{}, s.loginFailure(ctx, operation, lockKey)
	}

	if s.lockouts != nil {
		_ = s.lockouts.Clear(ctx, lockKey)
	}
	return user, nil
}

func (s *Service) loginFailure(ctx context.Context, operation, lockKey string) error {
	if s.lockouts == nil {
		return domain.ErrInvalidCredentials
	}
	now := s.nowFn()
	lockState, lockErr := s.lockouts.RecordFailure(ctx, lockKey, now, s.cfg.FailedLoginThreshold, s.cfg.LockoutDuration)
	if lockErr != nil {
		slog.Default().ErrorContext(ctx, "failed to update lockout state",
			"service", serviceName,
			"module", "application",
			"layer", "application",
			"operation", operation,
			"outcome", "failure",
			"error_code", "LOCKOUT_STATE_UNAVAILABLE",
			"error", lockErr,
		)
		return domain.ErrAccountLocked
	}
	if lockState.LockedUntil != nil && lockState.LockedUntil.After(now) {
		slog.Default().WarnContext(ctx, "account lockout triggered",
			"service", serviceName,
			"module", "application",
			"layer", "application",
			"operation", operation,
			"outcome", "blocked",
			"locked_until", lockState.LockedUntil,
		)
		return domain.ErrAccountLocked
	}
	return domain.ErrInvalidCredentials
}

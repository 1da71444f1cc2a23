package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/viralforge/intranet/credential-service/internal/domain"
	"github.com/viralforge/intranet/credential-service/internal/ports"
)

// CreateUser provisions an account with a generated temporary password and
// sends the welcome email carrying the password and a confirmation link.
// When only the email fails the account exists and the response is returned
// together with ErrEmailDispatchFailure.
func (s *Service) CreateUser(ctx context.Context, req CreateUserRequest) (CreateUserResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return CreateUserResponse{}, err
	}
	profiles := make([]string, 0, len(req.Profiles))
	for _, p := range req.Profiles {
		name, err := normalizeProfile(p)
		if err != nil {
			return CreateUserResponse{}, err
		}
		profiles = append(profiles, name)
	}
	if len(profiles) == 0 {
		profiles = append(profiles, strings.ToUpper(s.cfg.DefaultProfile))
	}

	password, err := generateTemporaryPassword()
	if err != nil {
		return CreateUserResponse{}, err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return CreateUserResponse{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.nowFn()
	user := domain.User{
		UserID:       uuid.New(),
		Email:        email,
		PasswordHash: hash,
		Profiles:     profiles,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	saved, err := s.credentials.SaveUser(ctx, user, userEvent(eventTypeUserCreated, user, now, map[string]any{
		"profiles": profiles,
	}))
	if err != nil {
		return CreateUserResponse{}, err
	}
	resp := CreateUserResponse{UserID: saved.UserID, Email: saved.Email, Profiles: saved.Profiles}

	delivery := s.confirmationDelivery(map[string]any{"TemporaryPassword": password})
	delivery.template = ports.EmailTemplateWelcome
	if err := s.issueCredentialToken(ctx, saved, delivery); err != nil {
		return resp, err
	}
	logOperation(ctx, "create_user", "success")
	return resp, nil
}

// ChangePassword replaces the password after verifying the current one and
// supersedes any outstanding password reset token. Verification shares the
// login lockout, so unknown emails and wrong current passwords both answer
// InvalidCredentials and count towards the lock.
func (s *Service) ChangePassword(ctx context.Context, req ChangePasswordRequest) error {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return err
	}
	user, err := s.authenticate(ctx, "change_password", email, req.CurrentPassword)
	if err != nil {
		return err
	}
	if err := domain.ValidatePassword(req.NewPassword); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	now := s.nowFn()
	if err := s.credentials.UpdatePassword(ctx, user.UserID, hash, now, userEvent(eventTypePasswordChanged, user, now, nil)); err != nil {
		return err
	}
	// a reset link mailed before the change must not undo it
	if _, err := s.credentials.InvalidatePriorTokens(ctx, domain.TokenKindPasswordReset, user.UserID, now); err != nil {
		return fmt.Errorf("invalidate reset tokens: %w", err)
	}
	logOperation(ctx, "change_password", "success")
	return nil
}

// SeedSuperUser creates the configured super administrator once, with a
// confirmed email and the SUPER_ADMIN profile. Roles are seeded first.
func (s *Service) SeedSuperUser(ctx context.Context) (SeedSuperUserResponse, error) {
	email, err := normalizeEmail(s.cfg.SuperAdminEmail)
	if err != nil {
		return SeedSuperUserResponse{}, fmt.Errorf("%w: super admin email not configured", domain.ErrInvalidInput)
	}
	if _, err := s.SeedRoles(ctx); err != nil {
		return SeedSuperUserResponse{}, err
	}

	existing, err := s.credentials.FindUserByEmail(ctx, email)
	switch {
	case err == nil:
		if !existing.HasProfile(superAdminProfile) {
			addErr := s.profiles.AddAssignment(ctx, existing.UserID, superAdminProfile, s.nowFn())
			if addErr != nil && !errors.Is(addErr, domain.ErrDuplicateAssignment) {
				return SeedSuperUserResponse{}, addErr
			}
		}
		logOperation(ctx, "seed_super_user", "noop")
		return SeedSuperUserResponse{Email: email, Created: false}, nil
	case !errors.Is(err, domain.ErrNotFound):
		return SeedSuperUserResponse{}, err
	}

	if err := domain.ValidatePassword(s.cfg.SuperAdminPassword); err != nil {
		return SeedSuperUserResponse{}, err
	}
	hash, err := s.hasher.Hash(s.cfg.SuperAdminPassword)
	if err != nil {
		return SeedSuperUserResponse{}, fmt.Errorf("hash password: %w", err)
	}
	now := s.nowFn()
	user := domain.User{
		UserID:         uuid.New(),
		Email:          email,
		PasswordHash:   hash,
		EmailConfirmed: true,
		Profiles:       []string{superAdminProfile},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	_, err = s.credentials.SaveUser(ctx, user, userEvent(eventTypeUserCreated, user, now, map[string]any{
		"profiles": user.Profiles,
	}))
	if errors.Is(err, domain.ErrConflict) {
		return SeedSuperUserResponse{Email: email, Created: false}, nil
	}
	if err != nil {
		return SeedSuperUserResponse{}, err
	}
	logOperation(ctx, "seed_super_user", "success")
	return SeedSuperUserResponse{Email: email, Created: true}, nil
}

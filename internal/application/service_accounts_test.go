package application

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/viralforge/intranet/credential-service/internal/domain"
	"github.com/viralforge/intranet/credential-service/internal/ports"
)

func TestCreateUserSendsWelcomeEmail(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	if _, err := f.service.SeedRoles(ctx); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	res, err := f.service.CreateUser(ctx, CreateUserRequest{Email: "New.Hire@Example.com"})
	if err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	if res.Email != "new.hire@example.com" || !reflect.DeepEqual(res.Profiles, []string{"EMPLOYEE"}) {
		t.Fatalf("unexpected response %+v", res)
	}

	msg := f.dispatcher.sent[0]
	if msg.Template != ports.EmailTemplateWelcome {
		t.Fatalf("unexpected template %q", msg.Template)
	}
	password, _ := msg.Data["TemporaryPassword"].(string)
	if err := domain.ValidatePassword(password); err != nil {
		t.Fatalf("temporary password breaks policy: %v", err)
	}
	if _, err := f.service.Login(ctx, LoginRequest{Email: "new.hire@example.com", Password: password}); err != nil {
		t.Fatalf("login with temporary password failed: %v", err)
	}
	if err := f.service.ConfirmEmail(ctx, EmailConfirmationRequest{Email: res.Email, Token: f.dispatcher.lastToken()}); err != nil {
		t.Fatalf("welcome token should confirm the email: %v", err)
	}
	if got := f.store.eventTypes(); !reflect.DeepEqual(got, []string{eventTypeUserCreated, eventTypeEmailConfirmed}) {
		t.Fatalf("unexpected events %v", got)
	}

	if _, err := f.service.CreateUser(ctx, CreateUserRequest{Email: "new.hire@example.com"}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestCreateUserDispatchFailureKeepsAccount(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	if _, err := f.service.SeedRoles(ctx); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	f.dispatcher.err = errBrokerDown

	res, err := f.service.CreateUser(ctx, CreateUserRequest{Email: "quiet@example.com", Profiles: []string{"hr"}})
	if !errors.Is(err, domain.ErrEmailDispatchFailure) {
		t.Fatalf("expected dispatch failure, got %v", err)
	}
	if res.Email != "quiet@example.com" {
		t.Fatalf("response should describe the created account, got %+v", res)
	}
	if _, err := f.store.FindUserByEmail(ctx, "quiet@example.com"); err != nil {
		t.Fatalf("account should exist: %v", err)
	}
}

func TestCreateUserUnknownProfile(t *testing.T) {
	t.Parallel()

	f := newFixture()
	if _, err := f.service.CreateUser(context.Background(), CreateUserRequest{Email: "x@example.com", Profiles: []string{"PILOT"}}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	f.addUser("alice@example.com", "OldPass123", true)

	err := f.service.ChangePassword(ctx, ChangePasswordRequest{Email: "alice@example.com", CurrentPassword: "nope", NewPassword: "NewPass123"})
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	err = f.service.ChangePassword(ctx, ChangePasswordRequest{Email: "alice@example.com", CurrentPassword: "OldPass123", NewPassword: "short"})
	if !errors.Is(err, domain.ErrPasswordPolicy) {
		t.Fatalf("expected policy violation, got %v", err)
	}
	err = f.service.ChangePassword(ctx, ChangePasswordRequest{Email: "ghost@example.com", CurrentPassword: "OldPass123", NewPassword: "NewPass123"})
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("unknown email should look like a wrong password, got %v", err)
	}
	if err := f.service.ChangePassword(ctx, ChangePasswordRequest{Email: "alice@example.com", CurrentPassword: "OldPass123", NewPassword: "NewPass123"}); err != nil {
		t.Fatalf("change password failed: %v", err)
	}
	if _, err := f.service.Login(ctx, LoginRequest{Email: "alice@example.com", Password: "NewPass123"}); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}
	if got := f.store.eventTypes(); !reflect.DeepEqual(got, []string{eventTypePasswordChanged}) {
		t.Fatalf("unexpected events %v", got)
	}
}

func TestChangePasswordSharesLoginLockout(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	f.addUser("carol@example.com", "OldPass123", true)

	wrong := ChangePasswordRequest{Email: "carol@example.com", CurrentPassword: "guess", NewPassword: "NewPass123"}
	for i := 1; i < f.service.cfg.FailedLoginThreshold; i++ {
		if err := f.service.ChangePassword(ctx, wrong); !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected invalid credentials, got %v", i, err)
		}
	}
	if err := f.service.ChangePassword(ctx, wrong); !errors.Is(err, domain.ErrAccountLocked) {
		t.Fatalf("threshold attempt should lock, got %v", err)
	}
	if err := f.service.ChangePassword(ctx, wrong); !errors.Is(err, domain.ErrAccountLocked) {
		t.Fatalf("attempt past threshold should stay locked, got %v", err)
	}

	right := ChangePasswordRequest{Email: "carol@example.com", CurrentPassword: "OldPass123", NewPassword: "NewPass123"}
	if err := f.service.ChangePassword(ctx, right); !errors.Is(err, domain.ErrAccountLocked) {
		t.Fatalf("lock should hold for correct current password, got %v", err)
	}
	if _, err := f.service.Login(ctx, LoginRequest{Email: "carol@example.com", Password: "OldPass123"}); !errors.Is(err, domain.ErrAccountLocked) {
		t.Fatalf("login should see the same lock, got %v", err)
	}
	if got := f.store.eventTypes(); len(got) != 0 {
		t.Fatalf("locked attempts must not change the password, events %v", got)
	}

	f.clock.Advance(16 * time.Minute)
	if err := f.service.ChangePassword(ctx, right); err != nil {
		t.Fatalf("change after lockout window failed: %v", err)
	}
}

func TestChangePasswordUnknownEmailCountsTowardsLock(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	req := ChangePasswordRequest{Email: "ghost@example.com", CurrentPassword: "x", NewPassword: "NewPass123"}
	var last error
	for i := 0; i < f.service.cfg.FailedLoginThreshold; i++ {
		last = f.service.ChangePassword(ctx, req)
	}
	if !errors.Is(last, domain.ErrAccountLocked) {
		t.Fatalf("unknown email should lock like a real one, got %v", last)
	}
}

func TestChangePasswordSupersedesResetToken(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	f.addUser("erin@example.com", "OldPass123", true)

	if err := f.service.RequestPasswordReset(ctx, "erin@example.com"); err != nil {
		t.Fatalf("request reset failed: %v", err)
	}
	stale := f.dispatcher.lastToken()

	f.clock.Advance(time.Minute)
	if err := f.service.ChangePassword(ctx, ChangePasswordRequest{Email: "erin@example.com", CurrentPassword: "OldPass123", NewPassword: "NewPass123"}); err != nil {
		t.Fatalf("change password failed: %v", err)
	}
	err := f.service.ConfirmPasswordReset(ctx, PasswordResetRequest{Token: stale, NewPassword: "Attack3rPass"})
	if !errors.Is(err, domain.ErrTokenNotFound) {
		t.Fatalf("reset link issued before the change should be superseded, got %v", err)
	}
	user, _ := f.store.FindUserByEmail(ctx, "erin@example.com")
	if user.PasswordHash != "hash:NewPass123" {
		t.Fatalf("changed password was overwritten: %q", user.PasswordHash)
	}
}

func TestSeedSuperUserIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	first, err := f.service.SeedSuperUser(ctx)
	if err != nil {
		t.Fatalf("seed super user failed: %v", err)
	}
	if !first.Created || first.Email != "root@example.com" {
		t.Fatalf("unexpected first result %+v", first)
	}
	user, err := f.store.FindUserByEmail(ctx, "root@example.com")
	if err != nil {
		t.Fatalf("super user missing: %v", err)
	}
	if !user.EmailConfirmed || !user.HasProfile("SUPER_ADMIN") {
		t.Fatalf("super user should be confirmed with SUPER_ADMIN, got %+v", user)
	}

	second, err := f.service.SeedSuperUser(ctx)
	if err != nil {
		t.Fatalf("second seed failed: %v", err)
	}
	if second.Created {
		t.Fatalf("second seed must not create the user again")
	}
}

func TestSeedSuperUserRequiresConfig(t *testing.T) {
	t.Parallel()

	cfg := defaultTestConfig()
	cfg.SuperAdminEmail = ""
	f := newFixtureWithConfig(cfg)
	if _, err := f.service.SeedSuperUser(context.Background()); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}

	cfg = defaultTestConfig()
	cfg.SuperAdminPassword = "weak"
	f = newFixtureWithConfig(cfg)
	if _, err := f.service.SeedSuperUser(context.Background()); !errors.Is(err, domain.ErrPasswordPolicy) {
		t.Fatalf("expected policy violation, got %v", err)
	}
}

func TestGenerateTemporaryPasswordSatisfiesPolicy(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		password, err := generateTemporaryPassword()
		if err != nil {
			t.Fatalf("generate failed: %v", err)
		}
		if err := domain.ValidatePassword(password); err != nil {
			t.Fatalf("generated %q breaks policy: %v", password, err)
		}
		seen[password] = true
	}
	if len(seen) < 50 {
		t.Fatalf("temporary passwords should not repeat")
	}
}

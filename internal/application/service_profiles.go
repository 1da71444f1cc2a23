package application

import (
	"context"
	"errors"
	"strings"

	"github.com/viralforge/intranet/credential-service/internal/domain"
)

const (
	superAdminProfile = "SUPER_ADMIN"
	adminProfile      = "ADMIN"
)

// IsAdministrator reports whether the profile set may call the privileged
// user, profile and seed operations.
func IsAdministrator(profiles []string) bool {
	for _, p := range profiles {
		if p == superAdminProfile || p == adminProfile {
			return true
		}
	}
	return false
}

// defaultProfiles is the role set installed by SeedRoles.
func defaultProfiles() []domain.Profile {
	return []domain.Profile{
		{Name: superAdminProfile, Description: "Full control of the intranet", Permissions: []string{
			"users.read", "users.write", "profiles.read", "profiles.write", "seed.run", "finance.read", "finance.write", "hr.read", "hr.write",
		}},
		{Name: adminProfile, Description: "Intranet administration", Permissions: []string{
			"users.read", "users.write", "profiles.read", "profiles.write",
		}},
		{Name: "MANAGER", Description: "Team management", Permissions: []string{
			"users.read", "profiles.read", "hr.read",
		}},
		{Name: "HR", Description: "Human resources", Permissions: []string{
			"users.read", "hr.read", "hr.write",
		}},
		{Name: "FINANCE", Description: "Finance and billing", Permissions: []string{
			"finance.read", "finance.write",
		}},
		{Name: "EMPLOYEE", Description: "Default employee access", Permissions: []string{
			"self.read", "self.write",
		}},
	}
}

// AddProfile assigns an existing profile to an existing user and grants the
// listed permissions to the profile. A repeated assignment succeeds.
func (s *Service) AddProfile(ctx context.Context, req AddProfileRequest) error {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return err
	}
	profile, err := normalizeProfile(req.Profile)
	if err != nil {
		return err
	}
	user, err := s.credentials.FindUserByEmail(ctx, email)
	if err != nil {
		return err
	}

	err = s.profiles.AddAssignment(ctx, user.UserID, profile, s.nowFn())
	switch {
	case errors.Is(err, domain.ErrDuplicateAssignment):
		logOperation(ctx, "add_profile", "already_assigned")
	case err != nil:
		return err
	}

	if perms := cleanPermissions(req.Permissions); len(perms) > 0 {
		if err := s.profiles.GrantPermissions(ctx, profile, perms, s.nowFn()); err != nil {
			return err
		}
	}
	logOperation(ctx, "add_profile", "success")
	return nil
}

// RemoveProfile deletes the (user, profile) pair. Removing an absent pair
// fails with ErrNotFound.
func (s *Service) RemoveProfile(ctx context.Context, profile, email string) error {
	normalizedEmail, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	normalizedProfile, err := normalizeProfile(profile)
	if err != nil {
		return err
	}
	user, err := s.credentials.FindUserByEmail(ctx, normalizedEmail)
	if err != nil {
		return err
	}
	if err := s.profiles.RemoveAssignment(ctx, user.UserID, normalizedProfile); err != nil {
		return err
	}
	logOperation(ctx, "remove_profile", "success")
	return nil
}

func (s *Service) ListProfiles(ctx context.Context) ([]ProfileItem, error) {
	profiles, err := s.profiles.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]ProfileItem, 0, len(profiles))
	for _, p := range profiles {
		perms := p.Permissions
		if perms == nil {
			perms = []string{}
		}
		items = append(items, ProfileItem{Name: p.Name, Description: p.Description, Permissions: perms})
	}
	return items, nil
}

func (s *Service) ListPermissions(ctx context.Context, profile string) ([]string, error) {
	normalized, err := normalizeProfile(profile)
	if err != nil {
		return nil, err
	}
	perms, err := s.profiles.ListPermissions(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if perms == nil {
		perms = []string{}
	}
	return perms, nil
}

// UserProfiles lists the profile names assigned to the user.
func (s *Service) UserProfiles(ctx context.Context, email string) ([]string, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	user, err := s.credentials.FindUserByEmail(ctx, normalized)
	if err != nil {
		return nil, err
	}
	names, err := s.profiles.ListUserProfiles(ctx, user.UserID)
	if err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// SeedRoles installs the default profile set. Re-running reports a no-op.
func (s *Service) SeedRoles(ctx context.Context) (SeedRolesResponse, error) {
	report, err := s.profiles.SeedDefaults(ctx, defaultProfiles(), s.nowFn())
	if err != nil {
		return SeedRolesResponse{}, err
	}
	outcome := "success"
	if report.Noop {
		outcome = "noop"
	}
	logOperation(ctx, "seed_roles", outcome)
	return SeedRolesResponse{
		CreatedProfiles:    report.CreatedProfiles,
		CreatedPermissions: report.CreatedPermissions,
		Noop:               report.Noop,
	}, nil
}

func cleanPermissions(perms []string) []string {
	out := make([]string, 0, len(perms))
	seen := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

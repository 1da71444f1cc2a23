package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the intranet identity record owned by the credential store.
// Email is always stored lower-cased so lookups stay case-insensitive.
type User struct {
	UserID         uuid.UUID
	Email          string
	PasswordHash   string
	EmailConfirmed bool
	Profiles       []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasProfile reports whether the named profile is assigned to the user.
func (u User) HasProfile(name string) bool {
	for _, p := range u.Profiles {
		if p == name {
			return true
		}
	}
	return false
}

// Profile is a named role bundling permissions.
type Profile struct {
	Name        string
	Description string
	Permissions []string
}

// SeedReport summarises an idempotent seeding run.
type SeedReport struct {
	CreatedProfiles    int
	CreatedPermissions int
	Noop               bool
}

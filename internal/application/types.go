package application

import (
	"time"

	"github.com/google/uuid"
)

type Config struct {
	ResetTokenTTL              time.Duration
	ConfirmationTokenTTL       time.Duration
	FailedLoginThreshold       int
	LockoutDuration            time.Duration
	RecoveryRateLimitThreshold int
	RecoveryRateLimitWindow    time.Duration
	PublicBaseURL              string
	DefaultProfile             string
	SuperAdminEmail            string
	SuperAdminPassword         string
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type PasswordResetRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type EmailConfirmationRequest struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

type ChangePasswordRequest struct {
	Email           string `json:"email"`
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type CreateUserRequest struct {
	Email    string   `json:"email"`
	Profiles []string `json:"profiles"`
}

type CreateUserResponse struct {
	UserID   uuid.UUID `json:"user_id"`
	Email    string    `json:"email"`
	Profiles []string  `json:"profiles"`
}

// AddProfileRequest assigns Profile to the user and grants Permissions to the
// profile.
type AddProfileRequest struct {
	Email       string   `json:"email"`
	Profile     string   `json:"profile"`
	Permissions []string `json:"permissions"`
}

type ProfileItem struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

type SeedRolesResponse struct {
	CreatedProfiles    int  `json:"created_profiles"`
	CreatedPermissions int  `json:"created_permissions"`
	Noop               bool `json:"noop"`
}

type SeedSuperUserResponse struct {
	Email   string `json:"email"`
	Created bool   `json:"created"`
}

type EmailConfirmedResponse struct {
	Email     string `json:"email"`
	Confirmed bool   `json:"confirmed"`
}

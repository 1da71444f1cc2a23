package application

import (
	"time"

	"github.com/viralforge/intranet/credential-service/internal/ports"
)

const serviceName = "credential-service"

type Service struct {
	cfg         Config
	credentials ports.CredentialStore
	profiles    ports.ProfileStore
	dispatcher  ports.EmailDispatcher
	lockouts    ports.LockoutStore
	hasher      ports.PasswordHasher
	issuer      ports.TokenIssuer
	nowFn       func() time.Time
}

// Dependencies wires the service. Lockouts is optional: when nil, neither the
// login lockout nor recovery rate limiting is enforced.
type Dependencies struct {
	Config      Config
	Credentials ports.CredentialStore
	Profiles    ports.ProfileStore
	Dispatcher  ports.EmailDispatcher
	Lockouts    ports.LockoutStore
	Hasher      ports.PasswordHasher
	Issuer      ports.TokenIssuer
	// Now overrides the clock. Defaults to UTC wall time.
	Now func() time.Time
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.ResetTokenTTL <= 0 {
		cfg.ResetTokenTTL = 2 * time.Hour
	}
	if cfg.ConfirmationTokenTTL <= 0 {
		cfg.ConfirmationTokenTTL = 2 * time.Hour
	}
	if cfg.FailedLoginThreshold <= 0 {
		cfg.FailedLoginThreshold = 5
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = 15 * time.Minute
	}
	if cfg.DefaultProfile == "" {
		cfg.DefaultProfile = "EMPLOYEE"
	}
	nowFn := deps.Now
	if nowFn == nil {
		nowFn = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		cfg:         cfg,
		credentials: deps.Credentials,
		profiles:    deps.Profiles,
		dispatcher:  deps.Dispatcher,
		lockouts:    deps.Lockouts,
		hasher:      deps.Hasher,
		issuer:      deps.Issuer,
		nowFn:       nowFn,
	}
}

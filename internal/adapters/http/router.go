package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/viralforge/intranet/credential-service/internal/application"
	"github.com/viralforge/intranet/credential-service/internal/ports"
)

// CredentialService is the set of use-cases the HTTP adapter exposes.
// *application.Service satisfies it.
type CredentialService interface {
	IssueToken(ctx context.Context) (ports.SessionToken, error)
	ValidateToken(ctx context.Context, raw string) (ports.SessionClaims, error)
	Login(ctx context.Context, req application.LoginRequest) (ports.SessionToken, error)

	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, req application.PasswordResetRequest) error
	ChangePassword(ctx context.Context, req application.ChangePasswordRequest) error

	RequestEmailConfirmation(ctx context.Context, email string) error
	ConfirmEmail(ctx context.Context, req application.EmailConfirmationRequest) error
	IsEmailConfirmed(ctx context.Context, email string) (application.EmailConfirmedResponse, error)

	CreateUser(ctx context.Context, req application.CreateUserRequest) (application.CreateUserResponse, error)
	UserProfiles(ctx context.Context, email string) ([]string, error)
	AddProfile(ctx context.Context, req application.AddProfileRequest) error
	RemoveProfile(ctx context.Context, profile, email string) error
	ListProfiles(ctx context.Context) ([]application.ProfileItem, error)
	ListPermissions(ctx context.Context, profile string) ([]string, error)
	SeedRoles(ctx context.Context) (application.SeedRolesResponse, error)
	SeedSuperUser(ctx context.Context) (application.SeedSuperUserResponse, error)
}

// ReadinessCheck reports whether a backing dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// Handler is the HTTP adapter entrypoint for credential use-cases.
type Handler struct {
	service CredentialService
	checks  map[string]ReadinessCheck
}

// NewHandler constructs an HTTP handler bound to the credential service.
func NewHandler(service CredentialService, checks map[string]ReadinessCheck) *Handler {
	return &Handler{service: service, checks: checks}
}

// NewRouter registers the HTTP routes and middleware stack.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)
	r.NotFound(handler.notFound)
	r.MethodNotAllowed(handler.methodNotAllowed)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)

	r.Route("/v1/auth", func(r chi.Router) {
		r.Get("/token", handler.issueToken)
		r.Post("/login", handler.login)

		r.Post("/password/reset-request", handler.passwordResetRequest)
		r.Post("/password/reset", handler.passwordReset)
		r.Post("/password/change", handler.passwordChange)

		r.Post("/email/confirmation-request", handler.emailConfirmationRequest)
		r.Post("/email/confirm", handler.emailConfirm)
		r.Get("/email/confirmed/{email}", handler.emailConfirmed)

		r.Get("/users/{email}/profiles", handler.userProfiles)
		r.Get("/profiles", handler.listProfiles)
		r.Get("/profiles/{profile}/permissions", handler.listPermissions)

		r.Group(func(r chi.Router) {
			r.Use(handler.authMiddleware)
			r.Post("/users", handler.createUser)
			r.Post("/users/{email}/profiles", handler.addProfile)
			r.Delete("/users/{email}/profiles/{profile}", handler.removeProfile)
			r.Post("/seed/roles", handler.seedRoles)
			r.Post("/seed/super-user", handler.seedSuperUser)
		})
	})

	return r
}

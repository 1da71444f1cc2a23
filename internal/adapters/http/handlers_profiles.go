package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/viralforge/intranet/credential-service/internal/application"
)

type addProfileBody struct {
	Profile     string   `json:"profile"`
	Permissions []string `json:"permissions"`
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req application.CreateUserRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeOutcome(r.Context(), w, "create_user", err, nil)
		return
	}
	res, err := h.service.CreateUser(r.Context(), req)
	if err != nil {
		// the account may exist even though the welcome email failed
		var data any
		if res.Email != "" {
			data = res
		}
		writeOutcome(r.Context(), w, "create_user", err, data)
		return
	}
	logActor(r, "create_user")
	writeSuccess(w, "user created", res)
}

func (h *Handler) userProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.service.UserProfiles(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		writeOutcome(r.Context(), w, "user_profiles", err, nil)
		return
	}
	writeSuccess(w, "ok", map[string]any{"profiles": profiles})
}

func (h *Handler) addProfile(w http.ResponseWriter, r *http.Request) {
	var body addProfileBody
	if err := decodeBody(w, r, &body); err != nil {
		writeOutcome(r.Context(), w, "add_profile", err, nil)
		return
	}
	err := h.service.AddProfile(r.Context(), application.AddProfileRequest{
		Email:       chi.URLParam(r, "email"),
		Profile:     body.Profile,
		Permissions: body.Permissions,
	})
	if err != nil {
		writeOutcome(r.Context(), w, "add_profile", err, nil)
		return
	}
	logActor(r, "add_profile")
	writeSuccess(w, "profile assigned", nil)
}

func (h *Handler) removeProfile(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RemoveProfile(r.Context(), chi.URLParam(r, "profile"), chi.URLParam(r, "email")); err != nil {
		writeOutcome(r.Context(), w, "remove_profile", err, nil)
		return
	}
	logActor(r, "remove_profile")
	writeSuccess(w, "profile removed", nil)
}

func (h *Handler) listProfiles(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListProfiles(r.Context())
	if err != nil {
		writeOutcome(r.Context(), w, "list_profiles", err, nil)
		return
	}
	writeSuccess(w, "ok", map[string]any{"profiles": items})
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.service.ListPermissions(r.Context(), chi.URLParam(r, "profile"))
	if err != nil {
		writeOutcome(r.Context(), w, "list_permissions", err, nil)
		return
	}
	writeSuccess(w, "ok", map[string]any{"permissions": perms})
}

func (h *Handler) seedRoles(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.SeedRoles(r.Context())
	if err != nil {
		writeOutcome(r.Context(), w, "seed_roles", err, nil)
		return
	}
	logActor(r, "seed_roles")
	writeSuccess(w, "roles seeded", res)
}

func (h *Handler) seedSuperUser(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.SeedSuperUser(r.Context())
	if err != nil {
		writeOutcome(r.Context(), w, "seed_super_user", err, nil)
		return
	}
	logActor(r, "seed_super_user")
	writeSuccess(w, "super user seeded", res)
}

// logActor records which session performed a privileged change.
func logActor(r *http.Request, operation string) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		return
	}
	requestLogger(r.Context()).InfoContext(r.Context(), "privileged operation",
		"operation", operation,
		"outcome", "success",
		"session_id", claims.TokenID,
		"actor", claims.Subject,
	)
}

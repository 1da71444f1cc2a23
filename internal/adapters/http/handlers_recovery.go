package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/viralforge/intranet/credential-service/internal/application"
)

type emailRequest struct {
	Email string `json:"email"`
}

func (h *Handler) passwordResetRequest(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeOutcome(r.Context(), w, "password_reset_request", err, nil)
		return
	}
	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeOutcome(r.Context(), w, "password_reset_request", err, nil)
		return
	}
	writeSuccess(w, "if the email exists, a password reset link has been sent", nil)
}

func (h *Handler) passwordReset(w http.ResponseWriter, r *http.Request) {
	var req application.PasswordResetRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeOutcome(r.Context(), w, "password_reset", err, nil)
		return
	}
	if err := h.service.ConfirmPasswordReset(r.Context(), req); err != nil {
		writeOutcome(r.Context(), w, "password_reset", err, nil)
		return
	}
	writeSuccess(w, "password reset successful", nil)
}

func (h *Handler) passwordChange(w http.ResponseWriter, r *http.Request) {
	var req application.ChangePasswordRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeOutcome(r.Context(), w, "password_change", err, nil)
		return
	}
	if err := h.service.ChangePassword(r.Context(), req); err != nil {
		writeOutcome(r.Context(), w, "password_change", err, nil)
		return
	}
	writeSuccess(w, "password changed", nil)
}

func (h *Handler) emailConfirmationRequest(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeOutcome(r.Context(), w, "email_confirmation_request", err, nil)
		return
	}
	if err := h.service.RequestEmailConfirmation(r.Context(), req.Email); err != nil {
		writeOutcome(r.Context(), w, "email_confirmation_request", err, nil)
		return
	}
	writeSuccess(w, "if the email needs confirmation, a link has been sent", nil)
}

func (h *Handler) emailConfirm(w http.ResponseWriter, r *http.Request) {
	var req application.EmailConfirmationRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeOutcome(r.Context(), w, "email_confirm", err, nil)
		return
	}
	if err := h.service.ConfirmEmail(r.Context(), req); err != nil {
		writeOutcome(r.Context(), w, "email_confirm", err, nil)
		return
	}
	writeSuccess(w, "email confirmed", nil)
}

func (h *Handler) emailConfirmed(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.IsEmailConfirmed(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		writeOutcome(r.Context(), w, "email_confirmed", err, nil)
		return
	}
	writeSuccess(w, "ok", res)
}

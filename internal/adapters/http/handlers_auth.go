package http

import (
	"net/http"

	"github.com/viralforge/intranet/credential-service/internal/application"
)

func (h *Handler) issueToken(w http.ResponseWriter, r *http.Request) {
	token, err := h.service.IssueToken(r.Context())
	if err != nil {
		writeOutcome(r.Context(), w, "issue_token", err, nil)
		return
	}
	writeSuccess(w, "token issued", token)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req application.LoginRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeOutcome(r.Context(), w, "login", err, nil)
		return
	}
	token, err := h.service.Login(r.Context(), req)
	if err != nil {
		writeOutcome(r.Context(), w, "login", err, nil)
		return
	}
	writeSuccess(w, "login successful", token)
}

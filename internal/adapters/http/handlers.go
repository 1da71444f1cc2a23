package http

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/viralforge/intranet/credential-service/internal/domain"
)

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, "ok", nil)
}

func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	failing := []string{}
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			httpLogger().WarnContext(ctx, "readiness check failed",
				"operation", "readyz",
				"outcome", "failure",
				"dependency", name,
				"error", err,
			)
			failing = append(failing, name)
		}
	}
	if len(failing) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, envelope{
			Code:        domain.OutcomeError,
			Description: "dependencies unavailable",
			Data:        map[string]any{"failing": failing},
		})
		return
	}
	writeSuccess(w, "ready", nil)
}

func (h *Handler) notFound(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusNotFound, envelope{Code: domain.OutcomeNotFound, Description: "route not found"})
}

func (h *Handler) methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, envelope{Code: domain.OutcomeInvalidInput, Description: "method not allowed"})
}

package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/viralforge/intranet/credential-service/internal/domain"
)

// envelope is the body of every response. Callers branch on Code.
type envelope struct {
	Code        domain.OutcomeCode `json:"code"`
	Description string             `json:"description"`
	Data        any                `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, description string, data any) {
	writeJSON(w, http.StatusOK, envelope{Code: domain.OutcomeSuccess, Description: description, Data: data})
}

// writeOutcome renders err as an envelope. Classified outcomes are answered
// with 200, anything else is an internal error.
func writeOutcome(ctx context.Context, w http.ResponseWriter, operation string, err error, data any) {
	outcome, known := domain.OutcomeFromError(err)
	status := http.StatusOK
	if !known {
		status = http.StatusInternalServerError
		data = nil
	}
	logHTTPOperationError(ctx, operation, status, outcome, err)
	writeJSON(w, status, envelope{Code: outcome.Code, Description: outcome.Description, Data: data})
}

func writeUnauthorized(ctx context.Context, w http.ResponseWriter, err error) {
	outcome, known := domain.OutcomeFromError(err)
	if !known {
		outcome, _ = domain.OutcomeFromError(domain.ErrUnauthorized)
	}
	logHTTPOperationError(ctx, "authenticate", http.StatusUnauthorized, outcome, err)
	writeJSON(w, http.StatusUnauthorized, envelope{Code: outcome.Code, Description: outcome.Description})
}

func writeInternalError(w http.ResponseWriter) {
	writeJSON(w, http.StatusInternalServerError, envelope{Code: domain.OutcomeError, Description: "internal server error"})
}

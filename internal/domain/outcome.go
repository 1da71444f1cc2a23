package domain

import "errors"

// OutcomeCode is the closed set of result kinds returned to callers.
// Callers branch on the code, never on the transport status.
type OutcomeCode string

const (
	OutcomeSuccess                 OutcomeCode = "Success"
	OutcomeError                   OutcomeCode = "Error"
	OutcomeInvalidInput            OutcomeCode = "InvalidInput"
	OutcomeNotFound                OutcomeCode = "NotFound"
	OutcomeTokenNotFound           OutcomeCode = "TokenNotFound"
	OutcomeTokenExpired            OutcomeCode = "TokenExpired"
	OutcomeTokenAlreadyConsumed    OutcomeCode = "TokenAlreadyConsumed"
	OutcomePasswordPolicyViolation OutcomeCode = "PasswordPolicyViolation"
	OutcomeDuplicateAssignment     OutcomeCode = "DuplicateAssignment"
	OutcomeEmailDispatchFailure    OutcomeCode = "EmailDispatchFailure"
	OutcomeInvalidCredentials      OutcomeCode = "InvalidCredentials"
	OutcomeAccountLocked           OutcomeCode = "AccountLocked"
	OutcomeRateLimited             OutcomeCode = "RateLimited"
	OutcomeConflict                OutcomeCode = "Conflict"
	OutcomeUnauthorized            OutcomeCode = "Unauthorized"
)

// Outcome is the {code, description} envelope of every operation.
type Outcome struct {
	Code        OutcomeCode
	Description string
}

// Succeeded reports whether the outcome is a success.
func (o Outcome) Succeeded() bool {
	return o.Code == OutcomeSuccess
}

// Success builds a success outcome with the given description.
func Success(description string) Outcome {
	return Outcome{Code: OutcomeSuccess, Description: description}
}

// OutcomeFromError classifies err into an outcome. Descriptions are fixed
// human-readable strings except for validation and policy failures, whose
// messages are built from caller input and carry no internal state.
// The boolean is false for unclassified errors, which callers treat as internal.
func OutcomeFromError(err error) (Outcome, bool) {
	var policy *PasswordPolicyError
	switch {
	case err == nil:
		return Success("ok"), true
	case errors.As(err, &policy):
		return Outcome{Code: OutcomePasswordPolicyViolation, Description: policy.Error()}, true
	case errors.Is(err, ErrInvalidInput):
		return Outcome{Code: OutcomeInvalidInput, Description: err.Error()}, true
	case errors.Is(err, ErrTokenNotFound):
		return Outcome{Code: OutcomeTokenNotFound, Description: "token is invalid or no longer available"}, true
	case errors.Is(err, ErrTokenExpired):
		return Outcome{Code: OutcomeTokenExpired, Description: "token expired"}, true
	case errors.Is(err, ErrTokenConsumed):
		return Outcome{Code: OutcomeTokenAlreadyConsumed, Description: "token was already used"}, true
	case errors.Is(err, ErrDuplicateAssignment):
		return Outcome{Code: OutcomeDuplicateAssignment, Description: "profile already assigned to user"}, true
	case errors.Is(err, ErrEmailDispatchFailure):
		return Outcome{Code: OutcomeEmailDispatchFailure, Description: "could not send email, try again later"}, true
	case errors.Is(err, ErrInvalidCredentials):
		return Outcome{Code: OutcomeInvalidCredentials, Description: "invalid email or password"}, true
	case errors.Is(err, ErrAccountLocked):
		return Outcome{Code: OutcomeAccountLocked, Description: "account temporarily locked"}, true
	case errors.Is(err, ErrRateLimited):
		return Outcome{Code: OutcomeRateLimited, Description: "too many requests"}, true
	case errors.Is(err, ErrConflict):
		return Outcome{Code: OutcomeConflict, Description: "resource already exists"}, true
	case errors.Is(err, ErrUnauthorized):
		return Outcome{Code: OutcomeUnauthorized, Description: "invalid or missing credentials"}, true
	case errors.Is(err, ErrNotFound):
		return Outcome{Code: OutcomeNotFound, Description: "resource not found"}, true
	default:
		return Outcome{Code: OutcomeError, Description: "internal server error"}, false
	}
}

package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/geoguess/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeInvalidCoordinate  = "INVALID_COORDINATE"
	CodeAuthFailed         = "AUTH_FAILED"
	CodeTestAuthDisabled   = "TEST_AUTH_DISABLED"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeNotAuthorized      = "NOT_AUTHORIZED"
	CodeRoundAlreadyOpen   = "ROUND_ALREADY_OPEN"
	CodeNoActiveRound      = "NO_ACTIVE_ROUND"
	CodeDuplicateGuess     = "DUPLICATE_GUESS"
	CodeParticipantMissing = "PARTICIPANT_NOT_FOUND"
	CodeInternalError      = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// Describe returns the user-visible code and message for err
func Describe(err error) APIError {
	return toHTTPError(err).apiError
}

// Status returns the HTTP status err maps to
func Status(err error) int {
	return toHTTPError(err).status
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	// Check for specific error types
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	// Every assertion failure looks the same to the client
	case model.IsAuthError(err):
		return &httpError{http.StatusUnauthorized, APIError{CodeAuthFailed, "Authentication failed"}}
	case errors.Is(err, model.ErrTestAuthDisabled):
		return &httpError{http.StatusForbidden, APIError{CodeTestAuthDisabled, "Test authentication is disabled"}}
	case errors.Is(err, model.ErrNotAuthenticated):
		return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
	case errors.Is(err, model.ErrParticipantNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeParticipantMissing, "Participant not found"}}

	// Map round errors
	case errors.Is(err, model.ErrNotAuthorized):
		return &httpError{http.StatusForbidden, APIError{CodeNotAuthorized, "You are not allowed to do that"}}
	case errors.Is(err, model.ErrRoundAlreadyOpen):
		return &httpError{http.StatusConflict, APIError{CodeRoundAlreadyOpen, "A round is already open"}}
	case errors.Is(err, model.ErrNoActiveRound):
		return &httpError{http.StatusConflict, APIError{CodeNoActiveRound, "There is no active round"}}
	case errors.Is(err, model.ErrDuplicateGuess):
		return &httpError{http.StatusConflict, APIError{CodeDuplicateGuess, "You have already guessed this round"}}
	case errors.Is(err, model.ErrInvalidCoordinate):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidCoordinate, "Latitude must be within [-90, 90] and longitude within [-180, 180]"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}

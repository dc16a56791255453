package model

import "errors"

// Common errors used across the application
var (
	// Auth errors
	ErrMalformedAssertion   = errors.New("malformed assertion")
	ErrMissingSignature     = errors.New("assertion has no signature")
	ErrSignatureMismatch    = errors.New("assertion signature mismatch")
	ErrMalformedUserPayload = errors.New("malformed user payload")
	ErrTestAuthDisabled     = errors.New("test authentication is disabled")

	// Session errors
	ErrNotAuthenticated    = errors.New("session is not authenticated")
	ErrParticipantNotFound = errors.New("participant not found")

	// Round errors
	ErrNotAuthorized    = errors.New("not authorized")
	ErrRoundAlreadyOpen = errors.New("a round is already open")
	ErrNoActiveRound    = errors.New("no active round")
	ErrDuplicateGuess   = errors.New("already guessed this round")

	// Validation errors
	ErrInvalidCoordinate = errors.New("invalid coordinate")
)

// IsAuthError returns true for failures to verify an identity assertion
func IsAuthError(err error) bool {
	return errors.Is(err, ErrMalformedAssertion) ||
		errors.Is(err, ErrMissingSignature) ||
		errors.Is(err, ErrSignatureMismatch) ||
		errors.Is(err, ErrMalformedUserPayload)
}

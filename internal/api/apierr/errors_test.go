package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/geoguess/internal/model"
)

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{model.ErrSignatureMismatch, http.StatusUnauthorized, CodeAuthFailed},
		{model.ErrMissingSignature, http.StatusUnauthorized, CodeAuthFailed},
		{model.ErrMalformedAssertion, http.StatusUnauthorized, CodeAuthFailed},
		{model.ErrMalformedUserPayload, http.StatusUnauthorized, CodeAuthFailed},
		{model.ErrTestAuthDisabled, http.StatusForbidden, CodeTestAuthDisabled},
		{model.ErrNotAuthenticated, http.StatusUnauthorized, CodeUnauthorized},
		{model.ErrNotAuthorized, http.StatusForbidden, CodeNotAuthorized},
		{model.ErrRoundAlreadyOpen, http.StatusConflict, CodeRoundAlreadyOpen},
		{model.ErrNoActiveRound, http.StatusConflict, CodeNoActiveRound},
		{model.ErrDuplicateGuess, http.StatusConflict, CodeDuplicateGuess},
		{model.ErrInvalidCoordinate, http.StatusBadRequest, CodeInvalidCoordinate},
		{fmt.Errorf("saving round: %w", model.ErrNoActiveRound), http.StatusConflict, CodeNoActiveRound},
		{errors.New("redis is down"), http.StatusInternalServerError, CodeInternalError},
		{NewInvalidRequestError("latitude is required"), http.StatusBadRequest, CodeInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.status, Status(tt.err))
			assert.Equal(t, tt.code, Describe(tt.err).Code)
		})
	}
}

func TestAuthFailuresDoNotRevealReason(t *testing.T) {
	mismatch := Describe(model.ErrSignatureMismatch)
	missing := Describe(model.ErrMissingSignature)

	assert.Equal(t, mismatch, missing)
	assert.NotContains(t, mismatch.Message, "signature")
}

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, model.ErrDuplicateGuess)

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, CodeDuplicateGuess, resp.Error.Code)
}

package handler

import (
	"encoding/json"
	"net/http"

	"github.com/mcoot/geoguess/internal/api/middleware"
	"github.com/mcoot/geoguess/internal/api/request"
	"github.com/mcoot/geoguess/internal/api/response"
	"github.com/mcoot/geoguess/internal/model"
	"github.com/mcoot/geoguess/internal/services/game"
	"github.com/mcoot/geoguess/internal/services/session"
)

// SessionHandler handles sign in and sign out
type SessionHandler struct {
	coordinator *game.Coordinator
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(coordinator *game.Coordinator) *SessionHandler {
	return &SessionHandler{
		coordinator: coordinator,
	}
}

// handleFor reuses the caller's token if it looks like one we minted, so
// re-authenticating rebinds the same session. Anything else gets a fresh handle.
func (h *SessionHandler) handleFor(r *http.Request) model.SessionHandle {
	if token := middleware.ExtractToken(r); session.IsHandle(token) {
		return model.SessionHandle(token)
	}
	return h.coordinator.NewHandle()
}

// Authenticate handles POST /api/v1/auth
func (h *SessionHandler) Authenticate(w http.ResponseWriter, r *http.Request) {
	var req request.AuthenticateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if req.Assertion == "" {
		WriteError(w, NewInvalidRequestError("assertion is required"))
		return
	}

	event, err := h.coordinator.AuthenticateWithAssertion(r.Context(), h.handleFor(r), req.Assertion)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.AuthResponseFromPayload(event.Payload.(model.AuthenticationPayload)))
}

// AuthenticateTest handles POST /api/v1/auth/test
func (h *SessionHandler) AuthenticateTest(w http.ResponseWriter, r *http.Request) {
	var req request.TestAuthenticateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if req.Role != request.RoleOperator && req.Role != request.RoleParticipant {
		WriteError(w, NewInvalidRequestError("role must be operator or participant"))
		return
	}

	event, err := h.coordinator.AuthenticateForTesting(
		r.Context(),
		h.handleFor(r),
		req.Role == request.RoleOperator,
		model.ExternalID(req.ExternalID),
		req.DisplayName,
	)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.AuthResponseFromPayload(event.Payload.(model.AuthenticationPayload)))
}

// Logout handles POST /api/v1/auth/logout
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	handle := middleware.MustGetSession(r.Context())

	if _, err := h.coordinator.Logout(r.Context(), handle); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

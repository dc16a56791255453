package handler

import (
	"encoding/json"
	"net/http"

	"github.com/mcoot/geoguess/internal/api/middleware"
	"github.com/mcoot/geoguess/internal/api/request"
	"github.com/mcoot/geoguess/internal/api/response"
	"github.com/mcoot/geoguess/internal/model"
	"github.com/mcoot/geoguess/internal/services/game"
)

// RoundHandler handles round and game state endpoints
type RoundHandler struct {
	coordinator *game.Coordinator
}

// NewRoundHandler creates a new round handler
func NewRoundHandler(coordinator *game.Coordinator) *RoundHandler {
	return &RoundHandler{
		coordinator: coordinator,
	}
}

func decodeCoordinate(r *http.Request) (model.Coordinate, error) {
	var req request.CoordinateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return model.Coordinate{}, NewInvalidRequestError("invalid request body")
	}
	c, err := req.ToModel()
	if err != nil {
		return model.Coordinate{}, NewInvalidRequestError(err.Error())
	}
	return c, nil
}

// Create handles POST /api/v1/rounds
func (h *RoundHandler) Create(w http.ResponseWriter, r *http.Request) {
	handle := middleware.MustGetSession(r.Context())

	secret, err := decodeCoordinate(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	event, err := h.coordinator.CreateRound(r.Context(), handle, secret)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.Created(w, response.PayloadFromModel(event.Payload))
}

// Guess handles POST /api/v1/rounds/current/guesses
func (h *RoundHandler) Guess(w http.ResponseWriter, r *http.Request) {
	handle := middleware.MustGetSession(r.Context())

	location, err := decodeCoordinate(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	event, err := h.coordinator.SubmitGuess(r.Context(), handle, location)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.Created(w, response.PayloadFromModel(event.Payload))
}

// Close handles POST /api/v1/rounds/current/close
func (h *RoundHandler) Close(w http.ResponseWriter, r *http.Request) {
	handle := middleware.MustGetSession(r.Context())

	event, err := h.coordinator.EndRound(r.Context(), handle)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PayloadFromModel(event.Payload))
}

// State handles GET /api/v1/state
func (h *RoundHandler) State(w http.ResponseWriter, r *http.Request) {
	handle := middleware.MustGetSession(r.Context())

	event, err := h.coordinator.RequestGameState(r.Context(), handle)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PayloadFromModel(event.Payload))
}

// History handles GET /api/v1/history
func (h *RoundHandler) History(w http.ResponseWriter, r *http.Request) {
	handle := middleware.MustGetSession(r.Context())

	event, err := h.coordinator.RequestHistory(r.Context(), handle)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PayloadFromModel(event.Payload))
}

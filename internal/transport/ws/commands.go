package ws

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mcoot/geoguess/internal/api/request"
	"github.com/mcoot/geoguess/internal/model"
	"github.com/mcoot/geoguess/internal/services/game"
)

// CommandType names an inbound command
type CommandType string

const (
	CmdAuthenticate                CommandType = "authenticate"
	CmdAuthenticateTestOperator    CommandType = "authenticate_test_operator"
	CmdAuthenticateTestParticipant CommandType = "authenticate_test_participant"
	CmdLogout                      CommandType = "logout"
	CmdCreateRound                 CommandType = "create_round"
	CmdSubmitGuess                 CommandType = "submit_guess"
	CmdEndRound                    CommandType = "end_round"
	CmdRequestGameState            CommandType = "request_game_state"
	CmdRequestHistory              CommandType = "request_history"
)

// Message is the websocket envelope format
type Message struct {
	Type    CommandType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// errInvalidCommand marks an envelope that could not be understood
type errInvalidCommand struct {
	reason string
}

func (e *errInvalidCommand) Error() string {
	return e.reason
}

func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return &errInvalidCommand{"payload is required"}
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &errInvalidCommand{"invalid payload"}
	}
	return nil
}

func decodeCoordinate(raw json.RawMessage) (model.Coordinate, error) {
	var req request.CoordinateRequest
	if err := decodePayload(raw, &req); err != nil {
		return model.Coordinate{}, err
	}
	c, err := req.ToModel()
	if err != nil {
		return model.Coordinate{}, &errInvalidCommand{err.Error()}
	}
	return c, nil
}

// dispatch runs one command for session and returns the direct reply
func dispatch(ctx context.Context, coordinator *game.Coordinator, session model.SessionHandle, msg Message) (model.Event, error) {
	switch msg.Type {
	case CmdAuthenticate:
		var req request.AuthenticateRequest
		if err := decodePayload(msg.Payload, &req); err != nil {
			return model.Event{}, err
		}
		return coordinator.AuthenticateWithAssertion(ctx, session, req.Assertion)

	case CmdAuthenticateTestOperator:
		return coordinator.AuthenticateForTesting(ctx, session, true, 0, "")

	case CmdAuthenticateTestParticipant:
		var req request.TestAuthenticateRequest
		if err := decodePayload(msg.Payload, &req); err != nil {
			return model.Event{}, err
		}
		return coordinator.AuthenticateForTesting(ctx, session, false, model.ExternalID(req.ExternalID), req.DisplayName)

	case CmdLogout:
		return coordinator.Logout(ctx, session)

	case CmdCreateRound:
		secret, err := decodeCoordinate(msg.Payload)
		if err != nil {
			return model.Event{}, err
		}
		return coordinator.CreateRound(ctx, session, secret)

	case CmdSubmitGuess:
		location, err := decodeCoordinate(msg.Payload)
		if err != nil {
			return model.Event{}, err
		}
		return coordinator.SubmitGuess(ctx, session, location)

	case CmdEndRound:
		return coordinator.EndRound(ctx, session)

	case CmdRequestGameState:
		return coordinator.RequestGameState(ctx, session)

	case CmdRequestHistory:
		return coordinator.RequestHistory(ctx, session)

	default:
		return model.Event{}, &errInvalidCommand{"unknown command type"}
	}
}

func isInvalidCommand(err error) bool {
	var ic *errInvalidCommand
	return errors.As(err, &ic)
}

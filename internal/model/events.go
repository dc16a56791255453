package model

import "time"

// EventType identifies the type of event
type EventType string

const (
	// Session events
	EventAuthenticationResult EventType = "authentication_result"
	EventLoggedOut            EventType = "logged_out"

	// State events
	EventGameStateUpdate EventType = "game_state_update"
	EventHistory         EventType = "history"

	// Round events
	EventRoundCreated   EventType = "round_created"
	EventGuessAccepted  EventType = "guess_accepted"
	EventGuessSubmitted EventType = "guess_submitted"
	EventRoundClosed    EventType = "round_closed"

	EventErrorMessage EventType = "error_message"
)

// Event is the base structure for all outbound messages
type Event struct {
	Type      EventType
	Timestamp time.Time
	Payload   any // Type-specific data
}

// AuthenticationPayload contains data for authentication result events
type AuthenticationPayload struct {
	Session     SessionHandle
	Participant Participant
}

// GameStatePayload is a viewer-specific snapshot of the game
type GameStatePayload struct {
	Participant Participant
	Current     ProjectedRound   // nil when no round is open
	History     []ProjectedRound // closed rounds, newest first
	OwnGuess    *Coordinate      // the viewer's guess in the open round
}

// HistoryPayload contains the closed rounds, newest first
type HistoryPayload struct {
	Rounds []ProjectedRound
}

// RoundCreatedPayload contains data for round created events
type RoundCreatedPayload struct {
	Round ProjectedRound
}

// GuessAcceptedPayload is the submitter's receipt for a guess
type GuessAcceptedPayload struct {
	RoundID RoundID
	Guess   Guess
}

// GuessSubmittedPayload announces a new guess.
// Location is only set on the operator's copy.
type GuessSubmittedPayload struct {
	RoundID       RoundID
	SubmitterID   ExternalID
	SubmitterName string
	GuessCount    int
	Location      *Coordinate
}

// RoundClosedPayload contains the scored round
type RoundClosedPayload struct {
	Round ProjectedRound
}

// ErrorPayload carries a user-visible error message
type ErrorPayload struct {
	Code    string
	Message string
}

package response

import (
	"time"

	"github.com/mcoot/geoguess/internal/model"
)

// Coordinate represents a point on the globe
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// CoordinateFromModel converts a model.Coordinate
func CoordinateFromModel(c model.Coordinate) Coordinate {
	return Coordinate{Latitude: c.Latitude, Longitude: c.Longitude}
}

func coordinatePtr(c *model.Coordinate) *Coordinate {
	if c == nil {
		return nil
	}
	out := CoordinateFromModel(*c)
	return &out
}

// Participant represents a participant in API responses
type Participant struct {
	ExternalID    int64  `json:"external_id"`
	DisplayName   string `json:"display_name"`
	SecondaryName string `json:"secondary_name,omitempty"`
	Handle        string `json:"handle,omitempty"`
	AvatarURL     string `json:"avatar_url,omitempty"`
	IsOperator    bool   `json:"is_operator"`
}

// ParticipantFromModel converts a model.Participant
func ParticipantFromModel(p model.Participant) Participant {
	return Participant{
		ExternalID:    int64(p.ID()),
		DisplayName:   p.Identity.DisplayName,
		SecondaryName: p.Identity.SecondaryName,
		Handle:        p.Identity.Handle,
		AvatarURL:     p.Identity.AvatarURL,
		IsOperator:    p.IsOperator,
	}
}

// AuthResponse is the response for authentication endpoints
type AuthResponse struct {
	SessionToken string      `json:"session_token"`
	Participant  Participant `json:"participant"`
}

// AuthResponseFromPayload creates an AuthResponse from an authentication result
func AuthResponseFromPayload(p model.AuthenticationPayload) AuthResponse {
	return AuthResponse{
		SessionToken: string(p.Session),
		Participant:  ParticipantFromModel(p.Participant),
	}
}

// Guess represents a guess in API responses
type Guess struct {
	SubmitterID   int64      `json:"submitter_id"`
	SubmitterName string     `json:"submitter_name"`
	Location      Coordinate `json:"location"`
	SubmittedAt   time.Time  `json:"submitted_at"`
	DistanceKm    *float64   `json:"distance_km"`
}

// GuessFromModel converts a model.Guess
func GuessFromModel(g model.Guess) Guess {
	return Guess{
		SubmitterID:   int64(g.SubmitterID),
		SubmitterName: g.SubmitterName,
		Location:      CoordinateFromModel(g.Location),
		SubmittedAt:   g.SubmittedAt,
		DistanceKm:    g.DistanceKm,
	}
}

// Submitter names someone who has guessed
type Submitter struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Round is a projected round. Which optional fields are present depends on
// visibility: "full" carries secret_location and guesses, "partial_self"
// carries own_guess, "hidden" carries neither.
type Round struct {
	Visibility     string      `json:"visibility"`
	ID             int64       `json:"id"`
	OpensAt        time.Time   `json:"opens_at"`
	ClosesAt       *time.Time  `json:"closes_at"`
	IsOpen         bool        `json:"is_open"`
	GuessCount     int         `json:"guess_count"`
	Submitters     []Submitter `json:"submitters"`
	SecretLocation *Coordinate `json:"secret_location,omitempty"`
	Guesses        []Guess     `json:"guesses,omitempty"`
	OwnGuess       *Guess      `json:"own_guess,omitempty"`
}

// RoundFromProjection converts a projected round. A nil projection yields nil.
func RoundFromProjection(p model.ProjectedRound) *Round {
	if p == nil {
		return nil
	}

	summary := p.Summary()
	r := &Round{
		Visibility: string(p.Visibility()),
		ID:         int64(summary.ID),
		OpensAt:    summary.OpensAt,
		ClosesAt:   summary.ClosesAt,
		IsOpen:     summary.IsOpen,
		GuessCount: summary.GuessCount,
		Submitters: make([]Submitter, len(summary.Submitters)),
	}
	for i, s := range summary.Submitters {
		r.Submitters[i] = Submitter{ID: int64(s.ID), Name: s.Name}
	}

	switch v := p.(type) {
	case model.FullRound:
		secret := CoordinateFromModel(v.SecretLocation)
		r.SecretLocation = &secret
		r.Guesses = make([]Guess, len(v.Guesses))
		for i, g := range v.Guesses {
			r.Guesses[i] = GuessFromModel(g)
		}
	case model.PartialRound:
		own := GuessFromModel(v.OwnGuess)
		r.OwnGuess = &own
	}

	return r
}

func roundsFromProjections(ps []model.ProjectedRound) []Round {
	rounds := make([]Round, 0, len(ps))
	for _, p := range ps {
		if r := RoundFromProjection(p); r != nil {
			rounds = append(rounds, *r)
		}
	}
	return rounds
}

// GameState is a viewer's snapshot of the game
type GameState struct {
	Participant Participant `json:"participant"`
	Current     *Round      `json:"current"`
	History     []Round     `json:"history"`
	OwnGuess    *Coordinate `json:"own_guess,omitempty"`
}

// GameStateFromPayload converts a game state payload
func GameStateFromPayload(p model.GameStatePayload) GameState {
	return GameState{
		Participant: ParticipantFromModel(p.Participant),
		Current:     RoundFromProjection(p.Current),
		History:     roundsFromProjections(p.History),
		OwnGuess:    coordinatePtr(p.OwnGuess),
	}
}

// History lists closed rounds, newest first
type History struct {
	Rounds []Round `json:"rounds"`
}

// HistoryFromPayload converts a history payload
func HistoryFromPayload(p model.HistoryPayload) History {
	return History{Rounds: roundsFromProjections(p.Rounds)}
}

// RoundEnvelope wraps a single projected round
type RoundEnvelope struct {
	Round *Round `json:"round"`
}

// GuessAccepted is the submitter's receipt
type GuessAccepted struct {
	RoundID int64 `json:"round_id"`
	Guess   Guess `json:"guess"`
}

// GuessSubmitted announces that someone guessed
type GuessSubmitted struct {
	RoundID       int64       `json:"round_id"`
	SubmitterID   int64       `json:"submitter_id"`
	SubmitterName string      `json:"submitter_name"`
	GuessCount    int         `json:"guess_count"`
	Location      *Coordinate `json:"location,omitempty"`
}

// ErrorMessage carries a user-visible error
type ErrorMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Event is a realtime message pushed to a client
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// EventFromModel converts a model.Event, translating its payload to wire types
func EventFromModel(e model.Event) Event {
	return Event{
		Type:      string(e.Type),
		Timestamp: e.Timestamp,
		Payload:   PayloadFromModel(e.Payload),
	}
}

// PayloadFromModel converts any event payload to its wire type
func PayloadFromModel(payload any) any {
	switch p := payload.(type) {
	case model.AuthenticationPayload:
		return AuthResponseFromPayload(p)
	case model.GameStatePayload:
		return GameStateFromPayload(p)
	case model.HistoryPayload:
		return HistoryFromPayload(p)
	case model.RoundCreatedPayload:
		return RoundEnvelope{Round: RoundFromProjection(p.Round)}
	case model.RoundClosedPayload:
		return RoundEnvelope{Round: RoundFromProjection(p.Round)}
	case model.GuessAcceptedPayload:
		return GuessAccepted{RoundID: int64(p.RoundID), Guess: GuessFromModel(p.Guess)}
	case model.GuessSubmittedPayload:
		return GuessSubmitted{
			RoundID:       int64(p.RoundID),
			SubmitterID:   int64(p.SubmitterID),
			SubmitterName: p.SubmitterName,
			GuessCount:    p.GuessCount,
			Location:      coordinatePtr(p.Location),
		}
	case model.ErrorPayload:
		return ErrorMessage{Code: p.Code, Message: p.Message}
	default:
		return payload
	}
}

// Health is the health check response
type Health struct {
	Status string `json:"status"`
	Phase  string `json:"phase,omitempty"`
}

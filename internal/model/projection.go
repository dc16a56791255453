package model

import "time"

// Visibility names the variant of a projected round
type Visibility string

const (
	VisibilityFull    Visibility = "full"         // Secret and every guess visible
	VisibilityPartial Visibility = "partial_self" // Only the viewer's own guess visible
	VisibilityHidden  Visibility = "hidden"       // Nothing but the aggregate visible
)

// Submitter identifies who has guessed without revealing where
type Submitter struct {
	ID   ExternalID
	Name string
}

// RoundSummary is the part of a round every viewer may see
type RoundSummary struct {
	ID         RoundID
	OpensAt    time.Time
	ClosesAt   *time.Time
	IsOpen     bool
	GuessCount int
	Submitters []Submitter // submission order
}

// ProjectedRound is a round as seen by one viewer.
// Implementations are FullRound, PartialRound and HiddenRound.
type ProjectedRound interface {
	Visibility() Visibility
	Summary() RoundSummary
}

// FullRound reveals the secret and every guess.
// Guesses are ranked when the round is closed, in submission order otherwise.
type FullRound struct {
	RoundSummary
	SecretLocation Coordinate
	Guesses        []Guess
}

func (FullRound) Visibility() Visibility  { return VisibilityFull }
func (r FullRound) Summary() RoundSummary { return r.RoundSummary }

// PartialRound reveals only the viewer's own guess of an open round
type PartialRound struct {
	RoundSummary
	OwnGuess Guess
}

func (PartialRound) Visibility() Visibility  { return VisibilityPartial }
func (r PartialRound) Summary() RoundSummary { return r.RoundSummary }

// HiddenRound is an open round for a viewer who has not guessed
type HiddenRound struct {
	RoundSummary
}

func (HiddenRound) Visibility() Visibility  { return VisibilityHidden }
func (r HiddenRound) Summary() RoundSummary { return r.RoundSummary }

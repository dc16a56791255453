package model

import (
	"sort"
	"time"
)

// RoundID is the store-assigned sequence number of a round
type RoundID int64

// RoundPhase is the store-level state of the round state machine
type RoundPhase string

const (
	PhaseNoActiveRound RoundPhase = "no_active_round" // A new round may be opened
	PhaseOpen          RoundPhase = "open"            // The head round is accepting guesses
)

// Guess is one participant's answer for a round
type Guess struct {
	SubmitterID   ExternalID
	SubmitterName string
	Location      Coordinate
	SubmittedAt   time.Time
	DistanceKm    *float64 // nil until the round closes
}

// Round is one open-then-closed unit of play around a secret location
type Round struct {
	ID             RoundID
	SecretLocation Coordinate
	OpensAt        time.Time
	ClosesAt       *time.Time // set exactly once, at close
	IsOpen         bool

	// Guesses in submission order, at most one per submitter
	Guesses []Guess
}

// GuessBy returns the guess submitted by the given participant, or nil
func (r *Round) GuessBy(id ExternalID) *Guess {
	for i := range r.Guesses {
		if r.Guesses[i].SubmitterID == id {
			return &r.Guesses[i]
		}
	}
	return nil
}

// HasGuessed returns true if the participant already has a guess in this round
func (r *Round) HasGuessed(id ExternalID) bool {
	return r.GuessBy(id) != nil
}

// Ranked returns a copy of the guesses ordered by ascending distance,
// then ascending submission time. Unscored guesses sort last.
func (r *Round) Ranked() []Guess {
	ranked := make([]Guess, len(r.Guesses))
	copy(ranked, r.Guesses)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.DistanceKm == nil || b.DistanceKm == nil {
			return a.DistanceKm != nil && b.DistanceKm == nil
		}
		if *a.DistanceKm != *b.DistanceKm {
			return *a.DistanceKm < *b.DistanceKm
		}
		return a.SubmittedAt.Before(b.SubmittedAt)
	})

	return ranked
}

// Clone returns a deep copy of the round
func (r *Round) Clone() *Round {
	c := *r
	if r.ClosesAt != nil {
		closesAt := *r.ClosesAt
		c.ClosesAt = &closesAt
	}
	c.Guesses = make([]Guess, len(r.Guesses))
	for i, g := range r.Guesses {
		if g.DistanceKm != nil {
			d := *g.DistanceKm
			g.DistanceKm = &d
		}
		c.Guesses[i] = g
	}
	return &c
}

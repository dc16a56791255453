// Package visibility decides what one viewer may see of a round.
package visibility

import (
	"time"

	"github.com/mcoot/geoguess/internal/model"
)

// Projector produces per-viewer projections of rounds.
// It holds no state; call Project once per recipient.
type Projector struct{}

// New creates a new projector
func New() *Projector {
	return &Projector{}
}

// Project returns round as viewer may see it:
//   - the operator, and everyone once the round is closed, see everything
//   - a participant who has guessed in an open round sees only their own guess
//   - anyone else sees only who has guessed
//
// The result never shares memory with round.
func (p *Projector) Project(round *model.Round, viewer model.Participant) model.ProjectedRound {
	summary := summarize(round)

	if viewer.IsOperator || !round.IsOpen {
		guesses := copyGuesses(round.Guesses)
		if !round.IsOpen {
			guesses = round.Ranked()
			for i := range guesses {
				guesses[i] = copyGuess(guesses[i])
			}
		}
		return model.FullRound{
			RoundSummary:   summary,
			SecretLocation: round.SecretLocation,
			Guesses:        guesses,
		}
	}

	if own := round.GuessBy(viewer.ID()); own != nil {
		return model.PartialRound{
			RoundSummary: summary,
			OwnGuess:     copyGuess(*own),
		}
	}

	return model.HiddenRound{RoundSummary: summary}
}

// ProjectAll projects every round for viewer, preserving order
func (p *Projector) ProjectAll(rounds []*model.Round, viewer model.Participant) []model.ProjectedRound {
	projected := make([]model.ProjectedRound, len(rounds))
	for i, r := range rounds {
		projected[i] = p.Project(r, viewer)
	}
	return projected
}

func summarize(round *model.Round) model.RoundSummary {
	submitters := make([]model.Submitter, len(round.Guesses))
	for i, g := range round.Guesses {
		submitters[i] = model.Submitter{ID: g.SubmitterID, Name: g.SubmitterName}
	}

	var closesAt *time.Time
	if round.ClosesAt != nil {
		t := *round.ClosesAt
		closesAt = &t
	}

	return model.RoundSummary{
		ID:         round.ID,
		OpensAt:    round.OpensAt,
		ClosesAt:   closesAt,
		IsOpen:     round.IsOpen,
		GuessCount: len(round.Guesses),
		Submitters: submitters,
	}
}

func copyGuesses(guesses []model.Guess) []model.Guess {
	out := make([]model.Guess, len(guesses))
	for i, g := range guesses {
		out[i] = copyGuess(g)
	}
	return out
}

func copyGuess(g model.Guess) model.Guess {
	if g.DistanceKm != nil {
		d := *g.DistanceKm
		g.DistanceKm = &d
	}
	return g
}

// Package round implements the round state machine: at most one open round,
// one guess per participant, and distance scoring at close.
package round

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/mcoot/geoguess/internal/dependencies/clock"
	"github.com/mcoot/geoguess/internal/model"
	"github.com/mcoot/geoguess/internal/services/geo"
	"github.com/mcoot/geoguess/internal/storage"
)

// Store is the authority over the round history
type Store struct {
	storage storage.Storage
	clock   clock.Clock
	logger  *slog.Logger

	// Held for the whole of each transition, scoring included
	mu sync.Mutex
}

// New creates a new round store
func New(storage storage.Storage, clock clock.Clock, logger *slog.Logger) *Store {
	return &Store{
		storage: storage,
		clock:   clock,
		logger:  logger,
	}
}

// Phase reports whether a round is currently open
func (s *Store) Phase(ctx context.Context) (model.RoundPhase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.storage.GetOpenRound(ctx)
	if errors.Is(err, model.ErrNoActiveRound) {
		return model.PhaseNoActiveRound, nil
	}
	if err != nil {
		return "", err
	}
	return model.PhaseOpen, nil
}

// OpenRound starts a new round around secret. Only the operator may open a
// round, and only when no round is open.
func (s *Store) OpenRound(ctx context.Context, initiator model.Participant, secret model.Coordinate) (*model.Round, error) {
	if !initiator.IsOperator {
		return nil, model.ErrNotAuthorized
	}
	if err := secret.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.storage.GetOpenRound(ctx)
	if err == nil {
		return nil, model.ErrRoundAlreadyOpen
	}
	if !errors.Is(err, model.ErrNoActiveRound) {
		return nil, err
	}

	id, err := s.storage.NextRoundID(ctx)
	if err != nil {
		return nil, err
	}

	round := &model.Round{
		ID:             id,
		SecretLocation: secret,
		OpensAt:        s.clock.Now(),
		IsOpen:         true,
		Guesses:        []model.Guess{},
	}
	if err := s.storage.SaveOpenRound(ctx, round); err != nil {
		return nil, err
	}

	s.logger.Info("round opened", slog.Int64("round_id", int64(id)))
	return round, nil
}

// SubmitGuess records participant's guess in the open round. The operator
// cannot guess, and each participant gets one guess per round.
func (s *Store) SubmitGuess(ctx context.Context, participant model.Participant, location model.Coordinate) (*model.Guess, error) {
	if participant.IsOperator {
		return nil, model.ErrNotAuthorized
	}
	if err := location.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	round, err := s.storage.GetOpenRound(ctx)
	if err != nil {
		return nil, err
	}
	if round.HasGuessed(participant.ID()) {
		return nil, model.ErrDuplicateGuess
	}

	guess := model.Guess{
		SubmitterID:   participant.ID(),
		SubmitterName: participant.Identity.DisplayName,
		Location:      location,
		SubmittedAt:   s.clock.Now(),
	}
	round.Guesses = append(round.Guesses, guess)

	if err := s.storage.SaveOpenRound(ctx, round); err != nil {
		return nil, err
	}

	s.logger.Info("guess accepted",
		slog.Int64("round_id", int64(round.ID)),
		slog.Int64("submitter_id", int64(guess.SubmitterID)),
	)
	return &guess, nil
}

// CloseRound scores every guess against the secret location, closes the
// round and moves it into the history.
func (s *Store) CloseRound(ctx context.Context, initiator model.Participant) (*model.Round, error) {
	if !initiator.IsOperator {
		return nil, model.ErrNotAuthorized
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	round, err := s.storage.GetOpenRound(ctx)
	if err != nil {
		return nil, err
	}

	for i := range round.Guesses {
		d := geo.DistanceKm(round.Guesses[i].Location, round.SecretLocation)
		round.Guesses[i].DistanceKm = &d
	}
	closedAt := s.clock.Now()
	round.ClosesAt = &closedAt
	round.IsOpen = false

	if err := s.storage.ArchiveRound(ctx, round); err != nil {
		return nil, err
	}

	s.logger.Info("round closed",
		slog.Int64("round_id", int64(round.ID)),
		slog.Int("guesses", len(round.Guesses)),
	)
	return round, nil
}

// CurrentRound returns the open round, or ErrNoActiveRound
func (s *Store) CurrentRound(ctx context.Context) (*model.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storage.GetOpenRound(ctx)
}

// History returns rounds newest first. Closed rounds are always included;
// the open round is prepended unless excludeCurrent is set.
func (s *Store) History(ctx context.Context, excludeCurrent bool) ([]*model.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	closed, err := s.storage.ListClosedRounds(ctx)
	if err != nil {
		return nil, err
	}
	if excludeCurrent {
		return closed, nil
	}

	open, err := s.storage.GetOpenRound(ctx)
	if errors.Is(err, model.ErrNoActiveRound) {
		return closed, nil
	}
	if err != nil {
		return nil, err
	}
	return append([]*model.Round{open}, closed...), nil
}

package round

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/geoguess/internal/dependencies/mocks"
	"github.com/mcoot/geoguess/internal/model"
	"github.com/mcoot/geoguess/internal/services/geo"
	"github.com/mcoot/geoguess/internal/storage/memory"
	"github.com/mcoot/geoguess/internal/testutil"
)

type StoreSuite struct {
	suite.Suite
	storage *memory.Storage
	clock   *mocks.MockClock
	store   *Store
	ctx     context.Context

	operator model.Participant
	alice    model.Participant
	bob      model.Participant
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.store = New(s.storage, s.clock, testutil.NopLogger())
	s.ctx = context.Background()

	s.operator = model.Participant{Identity: model.VerifiedIdentity{ExternalID: 1, DisplayName: "Olga"}, IsOperator: true}
	s.alice = model.Participant{Identity: model.VerifiedIdentity{ExternalID: 2, DisplayName: "Alice"}}
	s.bob = model.Participant{Identity: model.VerifiedIdentity{ExternalID: 3, DisplayName: "Bob"}}
}

var secret = model.Coordinate{Latitude: 52.0, Longitude: 5.0}

func (s *StoreSuite) openRound() *model.Round {
	round, err := s.store.OpenRound(s.ctx, s.operator, secret)
	s.Require().NoError(err)
	return round
}

// OpenRound tests

func (s *StoreSuite) TestOpenRoundSucceeds() {
	round := s.openRound()

	s.Equal(model.RoundID(1), round.ID)
	s.True(round.IsOpen)
	s.Nil(round.ClosesAt)
	s.Empty(round.Guesses)
	s.Equal(secret, round.SecretLocation)
	s.Equal(s.clock.Now(), round.OpensAt)

	phase, err := s.store.Phase(s.ctx)
	s.Require().NoError(err)
	s.Equal(model.PhaseOpen, phase)
}

func (s *StoreSuite) TestOpenRoundRequiresOperator() {
	_, err := s.store.OpenRound(s.ctx, s.alice, secret)
	s.ErrorIs(err, model.ErrNotAuthorized)

	phase, _ := s.store.Phase(s.ctx)
	s.Equal(model.PhaseNoActiveRound, phase)
}

func (s *StoreSuite) TestOpenRoundRejectsInvalidCoordinate() {
	_, err := s.store.OpenRound(s.ctx, s.operator, model.Coordinate{Latitude: 91})
	s.ErrorIs(err, model.ErrInvalidCoordinate)
}

func (s *StoreSuite) TestOpenRoundWhileOpenFailsForAnyCaller() {
	s.openRound()

	_, err := s.store.OpenRound(s.ctx, s.operator, secret)
	s.ErrorIs(err, model.ErrRoundAlreadyOpen)

	// Authorization is checked before state
	_, err = s.store.OpenRound(s.ctx, s.alice, secret)
	s.ErrorIs(err, model.ErrNotAuthorized)
}

func (s *StoreSuite) TestRoundIDsIncrease() {
	s.openRound()
	_, _ = s.store.CloseRound(s.ctx, s.operator)

	second := s.openRound()
	s.Equal(model.RoundID(2), second.ID)
}

// SubmitGuess tests

func (s *StoreSuite) TestSubmitGuessSucceeds() {
	s.openRound()
	s.clock.Advance(time.Minute)

	guess, err := s.store.SubmitGuess(s.ctx, s.alice, model.Coordinate{Latitude: 51.9, Longitude: 5.0})
	s.Require().NoError(err)

	s.Equal(model.ExternalID(2), guess.SubmitterID)
	s.Equal("Alice", guess.SubmitterName)
	s.Equal(s.clock.Now(), guess.SubmittedAt)
	s.Nil(guess.DistanceKm)

	current, err := s.store.CurrentRound(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(current.Guesses, 1)
	s.Nil(current.Guesses[0].DistanceKm)
}

func (s *StoreSuite) TestSubmitGuessWithoutRound() {
	_, err := s.store.SubmitGuess(s.ctx, s.alice, secret)
	s.ErrorIs(err, model.ErrNoActiveRound)
}

func (s *StoreSuite) TestSubmitGuessAfterClose() {
	s.openRound()
	_, _ = s.store.CloseRound(s.ctx, s.operator)

	_, err := s.store.SubmitGuess(s.ctx, s.alice, secret)
	s.ErrorIs(err, model.ErrNoActiveRound)
}

func (s *StoreSuite) TestOperatorCannotGuess() {
	s.openRound()

	_, err := s.store.SubmitGuess(s.ctx, s.operator, secret)
	s.ErrorIs(err, model.ErrNotAuthorized)

	current, _ := s.store.CurrentRound(s.ctx)
	s.Empty(current.Guesses)
}

func (s *StoreSuite) TestDuplicateGuessKeepsFirst() {
	s.openRound()
	first := model.Coordinate{Latitude: 51.9, Longitude: 5.0}
	_, err := s.store.SubmitGuess(s.ctx, s.alice, first)
	s.Require().NoError(err)

	s.clock.Advance(time.Minute)
	_, err = s.store.SubmitGuess(s.ctx, s.alice, model.Coordinate{Latitude: 10, Longitude: 10})
	s.ErrorIs(err, model.ErrDuplicateGuess)

	current, _ := s.store.CurrentRound(s.ctx)
	s.Require().Len(current.Guesses, 1)
	s.Equal(first, current.Guesses[0].Location)
	s.Equal(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), current.Guesses[0].SubmittedAt)
}

func (s *StoreSuite) TestSubmitGuessRejectsInvalidCoordinate() {
	s.openRound()

	for _, c := range []model.Coordinate{
		{Latitude: -90.5, Longitude: 0},
		{Latitude: 0, Longitude: 180.1},
		{Latitude: math.NaN(), Longitude: 0},
		{Latitude: 0, Longitude: math.Inf(1)},
	} {
		_, err := s.store.SubmitGuess(s.ctx, s.alice, c)
		s.ErrorIs(err, model.ErrInvalidCoordinate)
	}

	current, _ := s.store.CurrentRound(s.ctx)
	s.Empty(current.Guesses)
}

// CloseRound tests

func (s *StoreSuite) TestCloseRoundScoresScenario() {
	s.openRound()
	a := model.Coordinate{Latitude: 51.9, Longitude: 5.0}
	b := model.Coordinate{Latitude: 52.0, Longitude: 5.1}
	_, _ = s.store.SubmitGuess(s.ctx, s.alice, a)
	_, _ = s.store.SubmitGuess(s.ctx, s.bob, b)
	s.clock.Advance(10 * time.Minute)

	closed, err := s.store.CloseRound(s.ctx, s.operator)
	s.Require().NoError(err)

	s.False(closed.IsOpen)
	s.Require().NotNil(closed.ClosesAt)
	s.Equal(s.clock.Now(), *closed.ClosesAt)

	s.Require().Len(closed.Guesses, 2)
	aliceGuess := closed.GuessBy(s.alice.ID())
	bobGuess := closed.GuessBy(s.bob.ID())
	s.Require().NotNil(aliceGuess.DistanceKm)
	s.Require().NotNil(bobGuess.DistanceKm)
	s.InDelta(geo.DistanceKm(a, secret), *aliceGuess.DistanceKm, 1e-9)
	s.InDelta(geo.DistanceKm(b, secret), *bobGuess.DistanceKm, 1e-9)
	s.InDelta(11.12, *aliceGuess.DistanceKm, 0.01)
	s.InDelta(6.85, *bobGuess.DistanceKm, 0.01)

	ranked := closed.Ranked()
	s.Equal(s.bob.ID(), ranked[0].SubmitterID)
	s.Equal(s.alice.ID(), ranked[1].SubmitterID)
}

func (s *StoreSuite) TestCloseRoundRequiresOperator() {
	s.openRound()

	_, err := s.store.CloseRound(s.ctx, s.alice)
	s.ErrorIs(err, model.ErrNotAuthorized)

	phase, _ := s.store.Phase(s.ctx)
	s.Equal(model.PhaseOpen, phase)
}

func (s *StoreSuite) TestCloseRoundWithoutRound() {
	_, err := s.store.CloseRound(s.ctx, s.operator)
	s.ErrorIs(err, model.ErrNoActiveRound)
}

func (s *StoreSuite) TestCloseRoundTwiceKeepsScores() {
	s.openRound()
	_, _ = s.store.SubmitGuess(s.ctx, s.alice, model.Coordinate{Latitude: 51.9, Longitude: 5.0})
	first, err := s.store.CloseRound(s.ctx, s.operator)
	s.Require().NoError(err)
	s.clock.Advance(time.Hour)

	_, err = s.store.CloseRound(s.ctx, s.operator)
	s.ErrorIs(err, model.ErrNoActiveRound)

	history, err := s.store.History(s.ctx, true)
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.InDelta(*first.Guesses[0].DistanceKm, *history[0].Guesses[0].DistanceKm, 1e-12)
	s.Equal(*first.ClosesAt, *history[0].ClosesAt)
}

func (s *StoreSuite) TestCloseRoundWithNoGuesses() {
	s.openRound()

	closed, err := s.store.CloseRound(s.ctx, s.operator)
	s.Require().NoError(err)
	s.Empty(closed.Guesses)
	s.False(closed.IsOpen)
}

func (s *StoreSuite) TestRankingBreaksTiesBySubmissionTime() {
	s.openRound()
	same := model.Coordinate{Latitude: 51.5, Longitude: 5.0}
	_, _ = s.store.SubmitGuess(s.ctx, s.bob, same)
	s.clock.Advance(time.Second)
	_, _ = s.store.SubmitGuess(s.ctx, s.alice, same)

	closed, _ := s.store.CloseRound(s.ctx, s.operator)

	ranked := closed.Ranked()
	s.Equal(s.bob.ID(), ranked[0].SubmitterID)
	s.Equal(s.alice.ID(), ranked[1].SubmitterID)
}

// CurrentRound / History tests

func (s *StoreSuite) TestCurrentRoundWhenNone() {
	_, err := s.store.CurrentRound(s.ctx)
	s.ErrorIs(err, model.ErrNoActiveRound)
}

func (s *StoreSuite) TestHistoryNewestFirst() {
	s.openRound()
	_, _ = s.store.CloseRound(s.ctx, s.operator)
	s.openRound()
	_, _ = s.store.CloseRound(s.ctx, s.operator)
	s.openRound()

	closedOnly, err := s.store.History(s.ctx, true)
	s.Require().NoError(err)
	s.Require().Len(closedOnly, 2)
	s.Equal(model.RoundID(2), closedOnly[0].ID)
	s.Equal(model.RoundID(1), closedOnly[1].ID)

	all, err := s.store.History(s.ctx, false)
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal(model.RoundID(3), all[0].ID)
	s.True(all[0].IsOpen)
	s.False(all[1].IsOpen)
}

func (s *StoreSuite) TestAtMostOneOpenRoundInHistory() {
	for i := 0; i < 3; i++ {
		s.openRound()
		_, _ = s.store.OpenRound(s.ctx, s.operator, secret)
		_, _ = s.store.CloseRound(s.ctx, s.operator)
	}
	s.openRound()

	all, _ := s.store.History(s.ctx, false)
	open := 0
	for i, r := range all {
		if r.IsOpen {
			open++
			s.Equal(0, i)
		}
	}
	s.Equal(1, open)
}

package factory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/geoguess/internal/model"
)

type IntegrationSuite struct {
	suite.Suite
	app *TestApp
	ctx context.Context
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	s.app = NewTestApp()
	s.ctx = context.Background()
}

func (s *IntegrationSuite) TearDownTest() {
	s.Require().NoError(s.app.Close())
}

func (s *IntegrationSuite) signIn(id int64, name string) model.SessionHandle {
	handle := s.app.Coordinator.NewHandle()
	_, err := s.app.Coordinator.AuthenticateWithAssertion(s.ctx, handle, s.app.Assertion(id, name))
	s.Require().NoError(err)
	return handle
}

// Test: Complete round flow from sign-in to scored history
func (s *IntegrationSuite) TestCompleteRoundFlow() {
	// Step 1: Everyone signs in
	op := s.signIn(int64(TestOperatorID), "Olga")
	alice := s.signIn(2, "Alice")
	bob := s.signIn(3, "Bob")

	// Step 2: Operator opens a round
	_, err := s.app.Coordinator.CreateRound(s.ctx, op, model.Coordinate{Latitude: 52.0, Longitude: 5.0})
	s.Require().NoError(err)

	// Step 3: Both participants guess
	s.app.MockClock.Advance(time.Minute)
	_, err = s.app.Coordinator.SubmitGuess(s.ctx, alice, model.Coordinate{Latitude: 51.9, Longitude: 5.0})
	s.Require().NoError(err)
	s.app.MockClock.Advance(time.Minute)
	_, err = s.app.Coordinator.SubmitGuess(s.ctx, bob, model.Coordinate{Latitude: 52.0, Longitude: 5.1})
	s.Require().NoError(err)

	// Step 4: Alice cannot see Bob's guess while open
	state, err := s.app.Coordinator.RequestGameState(s.ctx, alice)
	s.Require().NoError(err)
	partial, ok := state.Payload.(model.GameStatePayload).Current.(model.PartialRound)
	s.Require().True(ok)
	s.Equal(model.ExternalID(2), partial.OwnGuess.SubmitterID)
	s.Equal(2, partial.GuessCount)

	// Step 5: Operator closes the round
	s.app.MockClock.Advance(time.Minute)
	_, err = s.app.Coordinator.EndRound(s.ctx, op)
	s.Require().NoError(err)

	// Step 6: Everyone sees the ranked result in history
	history, err := s.app.Coordinator.RequestHistory(s.ctx, alice)
	s.Require().NoError(err)
	rounds := history.Payload.(model.HistoryPayload).Rounds
	s.Require().Len(rounds, 1)
	full, ok := rounds[0].(model.FullRound)
	s.Require().True(ok)
	s.Equal("Bob", full.Guesses[0].SubmitterName)
	s.Equal("Alice", full.Guesses[1].SubmitterName)

	// Step 7: Bob received a projected close broadcast
	bobEvents := s.app.Broadcasts.For(bob)
	s.Require().NotEmpty(bobEvents)
	last := bobEvents[len(bobEvents)-1]
	s.Equal(model.EventRoundClosed, last.Type)
	s.Equal(model.VisibilityFull, last.Payload.(model.RoundClosedPayload).Round.Visibility())
}

// Test: Rounds can follow one another
func (s *IntegrationSuite) TestConsecutiveRounds() {
	op := s.signIn(int64(TestOperatorID), "Olga")
	alice := s.signIn(2, "Alice")

	for i := 0; i < 3; i++ {
		_, err := s.app.Coordinator.CreateRound(s.ctx, op, model.Coordinate{Latitude: float64(i), Longitude: float64(i)})
		s.Require().NoError(err)
		_, err = s.app.Coordinator.SubmitGuess(s.ctx, alice, model.Coordinate{Latitude: 0, Longitude: 0})
		s.Require().NoError(err)
		_, err = s.app.Coordinator.EndRound(s.ctx, op)
		s.Require().NoError(err)
	}

	history, err := s.app.Rounds.History(s.ctx, true)
	s.Require().NoError(err)
	s.Require().Len(history, 3)
	s.Equal(model.RoundID(3), history[0].ID)
	s.InDelta(0, *history[2].Guesses[0].DistanceKm, 1e-9)
}

// Test: The operator flag survives reconnects under another handle
func (s *IntegrationSuite) TestOperatorReconnect() {
	first := s.signIn(int64(TestOperatorID), "Olga")
	s.Require().NoError(s.app.Coordinator.Disconnect(s.ctx, first))

	second := s.signIn(int64(TestOperatorID), "Olga")
	_, err := s.app.Coordinator.CreateRound(s.ctx, second, model.Coordinate{Latitude: 1, Longitude: 1})
	s.NoError(err)

	_, err = s.app.Coordinator.CreateRound(s.ctx, first, model.Coordinate{Latitude: 1, Longitude: 1})
	s.ErrorIs(err, model.ErrNotAuthenticated)
}

// Test: Commands from many sessions are serialized
func (s *IntegrationSuite) TestConcurrentGuesses() {
	op := s.signIn(int64(TestOperatorID), "Olga")
	_, err := s.app.Coordinator.CreateRound(s.ctx, op, model.Coordinate{Latitude: 10, Longitude: 10})
	s.Require().NoError(err)

	const players = 20
	handles := make([]model.SessionHandle, players)
	for i := range handles {
		handles[i] = s.signIn(int64(i+1), "Player")
	}

	errs := make(chan error, players*2)
	for _, h := range handles {
		go func(h model.SessionHandle) {
			_, err := s.app.Coordinator.SubmitGuess(s.ctx, h, model.Coordinate{Latitude: 1, Longitude: 1})
			errs <- err
		}(h)
		go func(h model.SessionHandle) {
			_, err := s.app.Coordinator.SubmitGuess(s.ctx, h, model.Coordinate{Latitude: 2, Longitude: 2})
			errs <- err
		}(h)
	}

	accepted := 0
	for i := 0; i < players*2; i++ {
		err := <-errs
		if err == nil {
			accepted++
			continue
		}
		s.ErrorIs(err, model.ErrDuplicateGuess)
	}
	s.Equal(players, accepted)

	current, err := s.app.Rounds.CurrentRound(s.ctx)
	s.Require().NoError(err)
	s.Len(current.Guesses, players)
}

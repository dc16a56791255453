package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/geoguess/internal/model"
)

type StorageSuite struct {
	suite.Suite
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.storage = New()
	s.ctx = context.Background()
}

func newRound(id model.RoundID) *model.Round {
	return &model.Round{
		ID:             id,
		SecretLocation: model.Coordinate{Latitude: 52.0, Longitude: 5.0},
		OpensAt:        time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		IsOpen:         true,
	}
}

// Participant tests

func (s *StorageSuite) TestSaveAndGetParticipant() {
	p := &model.Participant{
		Identity:   model.VerifiedIdentity{ExternalID: 42, DisplayName: "Alice"},
		IsOperator: true,
	}

	s.Require().NoError(s.storage.SaveParticipant(s.ctx, p))

	retrieved, err := s.storage.GetParticipant(s.ctx, 42)
	s.Require().NoError(err)
	s.Equal("Alice", retrieved.Identity.DisplayName)
	s.True(retrieved.IsOperator)
}

func (s *StorageSuite) TestGetParticipantNotFound() {
	_, err := s.storage.GetParticipant(s.ctx, 99)
	s.ErrorIs(err, model.ErrParticipantNotFound)
}

func (s *StorageSuite) TestSavedParticipantIsCopied() {
	p := &model.Participant{Identity: model.VerifiedIdentity{ExternalID: 1, DisplayName: "Alice"}}
	_ = s.storage.SaveParticipant(s.ctx, p)

	p.Identity.DisplayName = "Mallory"

	retrieved, _ := s.storage.GetParticipant(s.ctx, 1)
	s.Equal("Alice", retrieved.Identity.DisplayName)
}

// Session tests

func (s *StorageSuite) TestSaveGetDeleteSession() {
	s.Require().NoError(s.storage.SaveSession(s.ctx, "sess-1", 7))

	id, err := s.storage.GetSession(s.ctx, "sess-1")
	s.Require().NoError(err)
	s.Equal(model.ExternalID(7), id)

	s.Require().NoError(s.storage.DeleteSession(s.ctx, "sess-1"))

	_, err = s.storage.GetSession(s.ctx, "sess-1")
	s.ErrorIs(err, model.ErrNotAuthenticated)
}

func (s *StorageSuite) TestListSessions() {
	_ = s.storage.SaveSession(s.ctx, "sess-1", 1)
	_ = s.storage.SaveSession(s.ctx, "sess-2", 2)

	sessions, err := s.storage.ListSessions(s.ctx)
	s.Require().NoError(err)
	s.Equal(map[model.SessionHandle]model.ExternalID{"sess-1": 1, "sess-2": 2}, sessions)
}

// Round tests

func (s *StorageSuite) TestNextRoundIDIncrements() {
	first, _ := s.storage.NextRoundID(s.ctx)
	second, _ := s.storage.NextRoundID(s.ctx)
	s.Equal(model.RoundID(1), first)
	s.Equal(model.RoundID(2), second)
}

func (s *StorageSuite) TestGetOpenRoundWhenNone() {
	_, err := s.storage.GetOpenRound(s.ctx)
	s.ErrorIs(err, model.ErrNoActiveRound)
}

func (s *StorageSuite) TestOpenRoundIsCloned() {
	round := newRound(1)
	_ = s.storage.SaveOpenRound(s.ctx, round)

	round.Guesses = append(round.Guesses, model.Guess{SubmitterID: 5})

	stored, err := s.storage.GetOpenRound(s.ctx)
	s.Require().NoError(err)
	s.Empty(stored.Guesses)
}

func (s *StorageSuite) TestArchiveRoundClearsOpenAndPrepends() {
	first := newRound(1)
	_ = s.storage.SaveOpenRound(s.ctx, first)
	first.IsOpen = false
	s.Require().NoError(s.storage.ArchiveRound(s.ctx, first))

	second := newRound(2)
	_ = s.storage.SaveOpenRound(s.ctx, second)
	second.IsOpen = false
	s.Require().NoError(s.storage.ArchiveRound(s.ctx, second))

	_, err := s.storage.GetOpenRound(s.ctx)
	s.ErrorIs(err, model.ErrNoActiveRound)

	closed, err := s.storage.ListClosedRounds(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(closed, 2)
	s.Equal(model.RoundID(2), closed[0].ID)
	s.Equal(model.RoundID(1), closed[1].ID)
}

package memory

import (
	"context"
	"sync"

	"github.com/mcoot/geoguess/internal/model"
	"github.com/mcoot/geoguess/internal/storage"
)

// Storage is an in-memory implementation of the storage interface.
// Rounds are cloned on the way in and out so callers never share state.
type Storage struct {
	mu sync.RWMutex

	participants map[model.ExternalID]*model.Participant
	sessions     map[model.SessionHandle]model.ExternalID
	openRound    *model.Round
	closedRounds []*model.Round // newest first
	lastRoundID  model.RoundID
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		participants: make(map[model.ExternalID]*model.Participant),
		sessions:     make(map[model.SessionHandle]model.ExternalID),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Participant operations

func (s *Storage) SaveParticipant(ctx context.Context, participant *model.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := *participant
	s.participants[p.ID()] = &p
	return nil
}

func (s *Storage) GetParticipant(ctx context.Context, id model.ExternalID) (*model.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.participants[id]
	if !ok {
		return nil, model.ErrParticipantNotFound
	}
	out := *p
	return &out, nil
}

// Session operations

func (s *Storage) SaveSession(ctx context.Context, handle model.SessionHandle, id model.ExternalID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[handle] = id
	return nil
}

func (s *Storage) GetSession(ctx context.Context, handle model.SessionHandle) (model.ExternalID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.sessions[handle]
	if !ok {
		return 0, model.ErrNotAuthenticated
	}
	return id, nil
}

func (s *Storage) DeleteSession(ctx context.Context, handle model.SessionHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, handle)
	return nil
}

func (s *Storage) ListSessions(ctx context.Context) (map[model.SessionHandle]model.ExternalID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[model.SessionHandle]model.ExternalID, len(s.sessions))
	for handle, id := range s.sessions {
		result[handle] = id
	}
	return result, nil
}

// Round operations

func (s *Storage) NextRoundID(ctx context.Context) (model.RoundID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRoundID++
	return s.lastRoundID, nil
}

func (s *Storage) SaveOpenRound(ctx context.Context, round *model.Round) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openRound = round.Clone()
	return nil
}

func (s *Storage) GetOpenRound(ctx context.Context) (*model.Round, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.openRound == nil {
		return nil, model.ErrNoActiveRound
	}
	return s.openRound.Clone(), nil
}

func (s *Storage) ArchiveRound(ctx context.Context, round *model.Round) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openRound != nil && s.openRound.ID == round.ID {
		s.openRound = nil
	}
	s.closedRounds = append([]*model.Round{round.Clone()}, s.closedRounds...)
	return nil
}

func (s *Storage) ListClosedRounds(ctx context.Context) ([]*model.Round, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*model.Round, len(s.closedRounds))
	for i, r := range s.closedRounds {
		result[i] = r.Clone()
	}
	return result, nil
}

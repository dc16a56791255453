package storage

import (
	"context"

	"github.com/mcoot/geoguess/internal/model"
)

// Storage defines the interface for game state persistence
type Storage interface {
	// Participant registry operations
	SaveParticipant(ctx context.Context, participant *model.Participant) error
	GetParticipant(ctx context.Context, id model.ExternalID) (*model.Participant, error)

	// Session binding operations
	SaveSession(ctx context.Context, handle model.SessionHandle, id model.ExternalID) error
	GetSession(ctx context.Context, handle model.SessionHandle) (model.ExternalID, error)
	DeleteSession(ctx context.Context, handle model.SessionHandle) error
	ListSessions(ctx context.Context) (map[model.SessionHandle]model.ExternalID, error)

	// Round operations
	NextRoundID(ctx context.Context) (model.RoundID, error)
	SaveOpenRound(ctx context.Context, round *model.Round) error
	GetOpenRound(ctx context.Context) (*model.Round, error)
	ArchiveRound(ctx context.Context, round *model.Round) error
	ListClosedRounds(ctx context.Context) ([]*model.Round, error)
}

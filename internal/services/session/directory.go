// Package session maps opaque session handles to verified participants.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/mcoot/geoguess/internal/dependencies/clock"
	"github.com/mcoot/geoguess/internal/dependencies/random"
	"github.com/mcoot/geoguess/internal/model"
	"github.com/mcoot/geoguess/internal/storage"
)

// HandlePrefix is prepended to every minted session handle
const HandlePrefix = "sess_"

// Directory owns the participant registry and the handle -> participant bindings
type Directory struct {
	storage storage.Storage
	random  random.Random
	clock   clock.Clock
	logger  *slog.Logger

	// Serializes registry upserts against each other
	mu sync.Mutex
}

// New creates a new session directory
func New(storage storage.Storage, random random.Random, clock clock.Clock, logger *slog.Logger) *Directory {
	return &Directory{
		storage: storage,
		random:  random,
		clock:   clock,
		logger:  logger,
	}
}

// IsHandle reports whether token has the shape of a minted handle
func IsHandle(token string) bool {
	return len(token) > len(HandlePrefix) && strings.HasPrefix(token, HandlePrefix)
}

// NewHandle mints a fresh, unguessable session handle
func (d *Directory) NewHandle() model.SessionHandle {
	return model.SessionHandle(d.random.Token(HandlePrefix))
}

// Bind registers identity (if new) and binds handle to it, replacing any
// previous binding for that handle. isOperator is only honoured the first
// time an external ID is seen.
func (d *Directory) Bind(ctx context.Context, handle model.SessionHandle, identity model.VerifiedIdentity, isOperator bool) (*model.Participant, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.clock.Now()

	participant, err := d.storage.GetParticipant(ctx, identity.ExternalID)
	switch {
	case errors.Is(err, model.ErrParticipantNotFound):
		participant = &model.Participant{
			Identity:    identity,
			IsOperator:  isOperator,
			FirstSeenAt: now,
		}
		d.logger.Info("participant registered",
			slog.Int64("external_id", int64(identity.ExternalID)),
			slog.Bool("is_operator", isOperator),
		)
	case err != nil:
		return nil, err
	default:
		// Display fields follow the latest verified identity
		participant.Identity = identity
	}
	participant.LastSeenAt = now

	if err := d.storage.SaveParticipant(ctx, participant); err != nil {
		return nil, err
	}
	if err := d.storage.SaveSession(ctx, handle, identity.ExternalID); err != nil {
		return nil, err
	}

	return participant, nil
}

// Resolve returns the participant bound to handle, or ErrNotAuthenticated
func (d *Directory) Resolve(ctx context.Context, handle model.SessionHandle) (*model.Participant, error) {
	id, err := d.storage.GetSession(ctx, handle)
	if err != nil {
		return nil, err
	}

	participant, err := d.storage.GetParticipant(ctx, id)
	if errors.Is(err, model.ErrParticipantNotFound) {
		return nil, model.ErrNotAuthenticated
	}
	if err != nil {
		return nil, err
	}
	return participant, nil
}

// Unbind removes the binding for handle. Unknown handles are ignored.
func (d *Directory) Unbind(ctx context.Context, handle model.SessionHandle) error {
	return d.storage.DeleteSession(ctx, handle)
}

// Bindings returns every live binding, ordered by handle
func (d *Directory) Bindings(ctx context.Context) ([]model.SessionBinding, error) {
	sessions, err := d.storage.ListSessions(ctx)
	if err != nil {
		return nil, err
	}

	bindings := make([]model.SessionBinding, 0, len(sessions))
	participants := make(map[model.ExternalID]*model.Participant)
	for handle, id := range sessions {
		participant, ok := participants[id]
		if !ok {
			participant, err = d.storage.GetParticipant(ctx, id)
			if errors.Is(err, model.ErrParticipantNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			participants[id] = participant
		}
		bindings = append(bindings, model.SessionBinding{Handle: handle, Participant: *participant})
	}

	sort.Slice(bindings, func(i, j int) bool {
		return bindings[i].Handle < bindings[j].Handle
	})
	return bindings, nil
}

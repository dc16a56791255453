// Package game coordinates sessions, rounds and visibility into replies for
// the requester and per-recipient broadcasts for everyone else.
package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mcoot/geoguess/internal/dependencies/clock"
	"github.com/mcoot/geoguess/internal/metrics"
	"github.com/mcoot/geoguess/internal/model"
	"github.com/mcoot/geoguess/internal/services/notify"
	"github.com/mcoot/geoguess/internal/services/round"
	"github.com/mcoot/geoguess/internal/services/session"
	"github.com/mcoot/geoguess/internal/services/visibility"
)

// Verifier checks a raw identity assertion
type Verifier interface {
	Verify(assertion string) (*model.VerifiedIdentity, error)
}

// Publisher delivers an event to one session. Publish is called with the
// coordinator lock held and must not block.
type Publisher interface {
	Publish(session model.SessionHandle, event model.Event)
}

// Notifier queues side effects for asynchronous delivery
type Notifier interface {
	Enqueue(n notify.Notification)
}

// Config holds coordinator settings supplied by the host
type Config struct {
	// OperatorID is the external ID that becomes the operator on first sign-in
	OperatorID model.ExternalID

	// ProductionMode refuses test authentication
	ProductionMode bool
}

// delivery is one broadcast event bound for one session
type delivery struct {
	session model.SessionHandle
	event   model.Event
}

// Coordinator is the single entry point for inbound commands.
// Every command runs under one lock. Broadcasts are published before it is
// released so each session sees transitions in commit order; notifications
// are queued afterwards.
type Coordinator struct {
	verifier  Verifier
	sessions  *session.Directory
	rounds    *round.Store
	projector *visibility.Projector
	publisher Publisher
	notifier  Notifier
	metrics   *metrics.Metrics
	clock     clock.Clock
	cfg       Config
	logger    *slog.Logger

	mu sync.Mutex
}

// NewCoordinator creates a new game coordinator
func NewCoordinator(
	verifier Verifier,
	sessions *session.Directory,
	rounds *round.Store,
	projector *visibility.Projector,
	publisher Publisher,
	notifier Notifier,
	metrics *metrics.Metrics,
	clock clock.Clock,
	cfg Config,
	logger *slog.Logger,
) *Coordinator {
	return &Coordinator{
		verifier:  verifier,
		sessions:  sessions,
		rounds:    rounds,
		projector: projector,
		publisher: publisher,
		notifier:  notifier,
		metrics:   metrics,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
	}
}

// NewHandle mints a session handle for a new connection
func (c *Coordinator) NewHandle() model.SessionHandle {
	return c.sessions.NewHandle()
}

func (c *Coordinator) event(t model.EventType, payload any) model.Event {
	return model.Event{Type: t, Timestamp: c.clock.Now(), Payload: payload}
}

// Session commands

// AuthenticateWithAssertion verifies assertion and binds handle to the
// identity it carries
func (c *Coordinator) AuthenticateWithAssertion(ctx context.Context, handle model.SessionHandle, assertion string) (model.Event, error) {
	identity, err := c.verifier.Verify(assertion)
	if err != nil {
		c.recordAuthFailure(handle, err)
		return model.Event{}, err
	}
	return c.bind(ctx, handle, *identity)
}

// AuthenticateForTesting binds handle without an assertion. asOperator signs
// in as the configured operator; otherwise id and name describe a participant.
// Refused outright in production mode.
func (c *Coordinator) AuthenticateForTesting(ctx context.Context, handle model.SessionHandle, asOperator bool, id model.ExternalID, name string) (model.Event, error) {
	if c.cfg.ProductionMode {
		c.recordAuthFailure(handle, model.ErrTestAuthDisabled)
		return model.Event{}, model.ErrTestAuthDisabled
	}

	if asOperator {
		id = c.cfg.OperatorID
		if name == "" {
			name = "Operator"
		}
	} else if id == c.cfg.OperatorID {
		return model.Event{}, model.ErrNotAuthorized
	}
	if id == 0 || name == "" {
		return model.Event{}, model.ErrMalformedUserPayload
	}

	return c.bind(ctx, handle, model.VerifiedIdentity{ExternalID: id, DisplayName: name})
}

func (c *Coordinator) bind(ctx context.Context, handle model.SessionHandle, identity model.VerifiedIdentity) (model.Event, error) {
	c.mu.Lock()
	participant, err := c.sessions.Bind(ctx, handle, identity, identity.ExternalID == c.cfg.OperatorID)
	c.mu.Unlock()
	if err != nil {
		return model.Event{}, err
	}

	c.metrics.Authentications.Inc()
	c.logger.Info("session authenticated",
		slog.String("session", string(handle)),
		slog.Int64("external_id", int64(participant.ID())),
		slog.Bool("is_operator", participant.IsOperator),
	)

	return c.event(model.EventAuthenticationResult, model.AuthenticationPayload{
		Session:     handle,
		Participant: *participant,
	}), nil
}

func (c *Coordinator) recordAuthFailure(handle model.SessionHandle, err error) {
	reason := metrics.ReasonMalformed
	switch {
	case errors.Is(err, model.ErrMissingSignature):
		reason = metrics.ReasonMissingSignature
	case errors.Is(err, model.ErrSignatureMismatch):
		reason = metrics.ReasonSignatureMismatch
	case errors.Is(err, model.ErrMalformedUserPayload):
		reason = metrics.ReasonMalformedUser
	case errors.Is(err, model.ErrTestAuthDisabled):
		reason = metrics.ReasonTestAuthDisabled
	}
	c.metrics.RecordAuthFailure(reason)

	if errors.Is(err, model.ErrSignatureMismatch) || errors.Is(err, model.ErrTestAuthDisabled) {
		c.logger.Warn("authentication rejected",
			slog.String("session", string(handle)),
			slog.String("reason", reason),
		)
	}
}

// Logout removes the session's binding
func (c *Coordinator) Logout(ctx context.Context, handle model.SessionHandle) (model.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	participant, err := c.sessions.Resolve(ctx, handle)
	if err != nil {
		return model.Event{}, err
	}
	if err := c.sessions.Unbind(ctx, handle); err != nil {
		return model.Event{}, err
	}

	c.logger.Info("session logged out",
		slog.String("session", string(handle)),
		slog.Int64("external_id", int64(participant.ID())),
	)
	return c.event(model.EventLoggedOut, nil), nil
}

// Disconnect drops the binding of a session whose transport went away
func (c *Coordinator) Disconnect(ctx context.Context, handle model.SessionHandle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessions.Unbind(ctx, handle)
}

// Round commands

// CreateRound opens a round at secret and announces it to every session
func (c *Coordinator) CreateRound(ctx context.Context, handle model.SessionHandle, secret model.Coordinate) (model.Event, error) {
	c.mu.Lock()
	participant, err := c.sessions.Resolve(ctx, handle)
	if err != nil {
		c.mu.Unlock()
		return model.Event{}, err
	}

	r, err := c.rounds.OpenRound(ctx, *participant, secret)
	if err != nil {
		c.mu.Unlock()
		c.logRejected("create_round", handle, err)
		return model.Event{}, err
	}

	reply := c.event(model.EventRoundCreated, model.RoundCreatedPayload{
		Round: c.projector.Project(r, *participant),
	})
	deliveries, err := c.fanOut(ctx, handle, func(viewer model.Participant) model.Event {
		return c.event(model.EventRoundCreated, model.RoundCreatedPayload{
			Round: c.projector.Project(r, viewer),
		})
	})
	c.dispatch(deliveries, err)
	c.mu.Unlock()

	c.metrics.RoundsOpened.Inc()
	c.notifier.Enqueue(notify.Notification{
		Kind:    notify.KindRoundOpened,
		RoundID: r.ID,
		Message: fmt.Sprintf("Round %d is open, get guessing!", r.ID),
	})

	return reply, nil
}

// SubmitGuess records the caller's guess. The operator's sessions learn the
// location; everyone else only learns that someone guessed.
func (c *Coordinator) SubmitGuess(ctx context.Context, handle model.SessionHandle, location model.Coordinate) (model.Event, error) {
	c.mu.Lock()
	participant, err := c.sessions.Resolve(ctx, handle)
	if err != nil {
		c.mu.Unlock()
		return model.Event{}, err
	}

	guess, err := c.rounds.SubmitGuess(ctx, *participant, location)
	if err != nil {
		c.mu.Unlock()
		c.logRejected("submit_guess", handle, err)
		return model.Event{}, err
	}

	current, err := c.rounds.CurrentRound(ctx)
	if err != nil {
		c.mu.Unlock()
		return model.Event{}, err
	}

	reply := c.event(model.EventGuessAccepted, model.GuessAcceptedPayload{
		RoundID: current.ID,
		Guess:   *guess,
	})
	deliveries, err := c.fanOut(ctx, handle, func(viewer model.Participant) model.Event {
		payload := model.GuessSubmittedPayload{
			RoundID:       current.ID,
			SubmitterID:   guess.SubmitterID,
			SubmitterName: guess.SubmitterName,
			GuessCount:    len(current.Guesses),
		}
		if viewer.IsOperator {
			loc := guess.Location
			payload.Location = &loc
		}
		return c.event(model.EventGuessSubmitted, payload)
	})
	c.dispatch(deliveries, err)
	c.mu.Unlock()

	c.metrics.GuessesAccepted.Inc()
	c.notifier.Enqueue(notify.Notification{
		Kind:    notify.KindGuessPosted,
		RoundID: current.ID,
		Message: fmt.Sprintf("%s has made a guess", guess.SubmitterName),
	})

	return reply, nil
}

// EndRound closes and scores the open round and sends every session its
// view of the results
func (c *Coordinator) EndRound(ctx context.Context, handle model.SessionHandle) (model.Event, error) {
	c.mu.Lock()
	participant, err := c.sessions.Resolve(ctx, handle)
	if err != nil {
		c.mu.Unlock()
		return model.Event{}, err
	}

	r, err := c.rounds.CloseRound(ctx, *participant)
	if err != nil {
		c.mu.Unlock()
		c.logRejected("end_round", handle, err)
		return model.Event{}, err
	}

	reply := c.event(model.EventRoundClosed, model.RoundClosedPayload{
		Round: c.projector.Project(r, *participant),
	})
	deliveries, err := c.fanOut(ctx, handle, func(viewer model.Participant) model.Event {
		return c.event(model.EventRoundClosed, model.RoundClosedPayload{
			Round: c.projector.Project(r, viewer),
		})
	})
	c.dispatch(deliveries, err)
	c.mu.Unlock()

	c.metrics.RoundsClosed.Inc()
	c.notifier.Enqueue(notify.Notification{
		Kind:    notify.KindRoundClosed,
		RoundID: r.ID,
		Message: closedMessage(r),
	})

	return reply, nil
}

func closedMessage(r *model.Round) string {
	ranked := r.Ranked()
	if len(ranked) == 0 || ranked[0].DistanceKm == nil {
		return fmt.Sprintf("Round %d is over, nobody guessed", r.ID)
	}
	return fmt.Sprintf("Round %d is over, %s was closest at %.1f km", r.ID, ranked[0].SubmitterName, *ranked[0].DistanceKm)
}

// Queries

// RequestGameState returns the caller's view of the open round and history
func (c *Coordinator) RequestGameState(ctx context.Context, handle model.SessionHandle) (model.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	participant, err := c.sessions.Resolve(ctx, handle)
	if err != nil {
		return model.Event{}, err
	}

	payload := model.GameStatePayload{Participant: *participant}

	current, err := c.rounds.CurrentRound(ctx)
	switch {
	case err == nil:
		payload.Current = c.projector.Project(current, *participant)
		if own := current.GuessBy(participant.ID()); own != nil {
			loc := own.Location
			payload.OwnGuess = &loc
		}
	case !errors.Is(err, model.ErrNoActiveRound):
		return model.Event{}, err
	}

	history, err := c.rounds.History(ctx, true)
	if err != nil {
		return model.Event{}, err
	}
	payload.History = c.projector.ProjectAll(history, *participant)

	return c.event(model.EventGameStateUpdate, payload), nil
}

// RequestHistory returns the closed rounds, newest first
func (c *Coordinator) RequestHistory(ctx context.Context, handle model.SessionHandle) (model.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	participant, err := c.sessions.Resolve(ctx, handle)
	if err != nil {
		return model.Event{}, err
	}

	history, err := c.rounds.History(ctx, true)
	if err != nil {
		return model.Event{}, err
	}

	return c.event(model.EventHistory, model.HistoryPayload{
		Rounds: c.projector.ProjectAll(history, *participant),
	}), nil
}

// fanOut builds one event per bound session other than the requester.
// Must be called with c.mu held.
func (c *Coordinator) fanOut(ctx context.Context, requester model.SessionHandle, build func(viewer model.Participant) model.Event) ([]delivery, error) {
	bindings, err := c.sessions.Bindings(ctx)
	if err != nil {
		return nil, err
	}

	deliveries := make([]delivery, 0, len(bindings))
	for _, b := range bindings {
		if b.Handle == requester {
			continue
		}
		deliveries = append(deliveries, delivery{session: b.Handle, event: build(b.Participant)})
	}
	return deliveries, nil
}

// dispatch publishes deliveries. A failure to list sessions is logged but
// never undoes the committed transition. Must be called with c.mu held.
func (c *Coordinator) dispatch(deliveries []delivery, err error) {
	if err != nil {
		c.logger.Error("failed to list sessions for broadcast", slog.Any("error", err))
		return
	}
	for _, d := range deliveries {
		c.publisher.Publish(d.session, d.event)
	}
}

func (c *Coordinator) logRejected(command string, handle model.SessionHandle, err error) {
	c.logger.Info("command rejected",
		slog.String("command", command),
		slog.String("session", string(handle)),
		slog.String("error", err.Error()),
	)
}

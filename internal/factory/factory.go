package factory

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/mcoot/geoguess/internal/dependencies/clock"
	"github.com/mcoot/geoguess/internal/dependencies/random"
	"github.com/mcoot/geoguess/internal/metrics"
	"github.com/mcoot/geoguess/internal/model"
	"github.com/mcoot/geoguess/internal/services/game"
	"github.com/mcoot/geoguess/internal/services/identity"
	"github.com/mcoot/geoguess/internal/services/notify"
	"github.com/mcoot/geoguess/internal/services/round"
	"github.com/mcoot/geoguess/internal/services/session"
	"github.com/mcoot/geoguess/internal/services/visibility"
	"github.com/mcoot/geoguess/internal/storage"
	"github.com/mcoot/geoguess/internal/storage/memory"
	redisstorage "github.com/mcoot/geoguess/internal/storage/redis"
	"github.com/mcoot/geoguess/internal/transport/ws"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	Metrics     *metrics.Metrics
	Notifier    *notify.Dispatcher
	Sessions    *session.Directory
	Rounds      *round.Store
	Coordinator *game.Coordinator

	// Transport
	Hub       *ws.Hub
	WSHandler *ws.Handler

	logger *slog.Logger
}

// Config holds configuration for the application factory
type Config struct {
	// BotToken is the shared secret assertions are signed with
	BotToken string
	// OperatorID is the external ID of the operator
	OperatorID model.ExternalID
	// ProductionMode refuses test authentication
	ProductionMode bool
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// NotifyConfig sizes the notification queue (optional)
	NotifyConfig notify.Config
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	// Create storage based on type
	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	return newWithDependencies(store, clock.New(), random.New(), cfg, logger, nil), nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing).
// If observer is non-nil it receives every broadcast alongside the hub.
func newWithDependencies(store storage.Storage, clk clock.Clock, rnd random.Random, cfg Config, logger *slog.Logger, observer game.Publisher) *App {
	m := metrics.New()
	dispatcher := notify.NewDispatcher(notify.NewLogNotifier(logger), cfg.NotifyConfig, logger)
	sessions := session.New(store, rnd, clk, logger)
	rounds := round.New(store, clk, logger)
	hub := ws.NewHub(logger)

	var publisher game.Publisher = hub
	if observer != nil {
		publisher = teePublisher{hub, observer}
	}

	coordinator := game.NewCoordinator(
		identity.NewVerifier(cfg.BotToken),
		sessions,
		rounds,
		visibility.New(),
		publisher,
		dispatcher,
		m,
		clk,
		game.Config{OperatorID: cfg.OperatorID, ProductionMode: cfg.ProductionMode},
		logger,
	)

	return &App{
		Storage:     store,
		Clock:       clk,
		Random:      rnd,
		Metrics:     m,
		Notifier:    dispatcher,
		Sessions:    sessions,
		Rounds:      rounds,
		Coordinator: coordinator,
		Hub:         hub,
		WSHandler:   ws.NewHandler(hub, coordinator, clk, logger),
		logger:      logger,
	}
}

// Start launches background workers
func (a *App) Start(ctx context.Context) {
	a.Notifier.Start(ctx)
}

// Close stops background workers, drops connections and releases storage
func (a *App) Close() error {
	a.Hub.Close()
	a.Notifier.Close()
	if closer, ok := a.Storage.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// teePublisher publishes to several publishers in order
type teePublisher []game.Publisher

func (t teePublisher) Publish(session model.SessionHandle, event model.Event) {
	for _, p := range t {
		p.Publish(session, event)
	}
}

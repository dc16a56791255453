// Package notify delivers out-of-band notifications about committed game
// events without blocking the game state.
package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mcoot/geoguess/internal/model"
)

// Kind names the game event a notification reports
type Kind string

const (
	KindRoundOpened Kind = "round_opened"
	KindGuessPosted Kind = "guess_posted"
	KindRoundClosed Kind = "round_closed"
)

// Notification is one queued side effect
type Notification struct {
	Kind    Kind
	RoundID model.RoundID
	Message string
}

// Notifier delivers a notification to an external channel
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to the log
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a notifier backed by logger
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the notification
func (n *LogNotifier) Notify(ctx context.Context, notification Notification) error {
	n.logger.Info("notification",
		slog.String("kind", string(notification.Kind)),
		slog.Int64("round_id", int64(notification.RoundID)),
		slog.String("message", notification.Message),
	)
	return nil
}

// Config holds dispatcher settings
type Config struct {
	QueueSize int
}

// DefaultConfig returns default dispatcher configuration
func DefaultConfig() Config {
	return Config{QueueSize: 64}
}

// Dispatcher queues notifications and delivers them on a background worker.
// A full queue drops the notification rather than blocking the caller.
type Dispatcher struct {
	notifier Notifier
	logger   *slog.Logger

	queue chan Notification
	done  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once
}

// NewDispatcher creates a dispatcher; call Start to begin delivery
func NewDispatcher(notifier Notifier, cfg Config, logger *slog.Logger) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	return &Dispatcher{
		notifier: notifier,
		logger:   logger,
		queue:    make(chan Notification, cfg.QueueSize),
		done:     make(chan struct{}),
	}
}

// Start launches the delivery worker
func (d *Dispatcher) Start(ctx context.Context) {
	d.wg.Add(1)
	go d.run(ctx)
}

func (d *Dispatcher) run(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case n := <-d.queue:
			d.deliver(ctx, n)
		case <-d.done:
			// Drain what was queued before shutdown
			for {
				select {
				case n := <-d.queue:
					d.deliver(ctx, n)
				default:
					return
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, n Notification) {
	if err := d.notifier.Notify(ctx, n); err != nil {
		d.logger.Warn("notification failed",
			slog.String("kind", string(n.Kind)),
			slog.Int64("round_id", int64(n.RoundID)),
			slog.Any("error", err),
		)
	}
}

// Enqueue queues n for delivery without blocking
func (d *Dispatcher) Enqueue(n Notification) {
	select {
	case <-d.done:
		return
	default:
	}

	select {
	case d.queue <- n:
	default:
		d.logger.Warn("notification dropped - queue full",
			slog.String("kind", string(n.Kind)))
	}
}

// Close stops accepting notifications and waits for the worker to drain
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		close(d.done)
	})
	d.wg.Wait()
}

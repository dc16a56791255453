package mocks

import (
	"sync"

	"github.com/mcoot/geoguess/internal/model"
)

// Delivery is one event published to one session
type Delivery struct {
	Session model.SessionHandle
	Event   model.Event
}

// RecordingPublisher records every published event for assertions
type RecordingPublisher struct {
	mu         sync.Mutex
	deliveries []Delivery
}

// NewRecordingPublisher creates an empty RecordingPublisher
func NewRecordingPublisher() *RecordingPublisher {
	return &RecordingPublisher{}
}

// Publish records the event
func (p *RecordingPublisher) Publish(session model.SessionHandle, event model.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deliveries = append(p.deliveries, Delivery{Session: session, Event: event})
}

// Deliveries returns a copy of everything published so far
func (p *RecordingPublisher) Deliveries() []Delivery {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Delivery, len(p.deliveries))
	copy(out, p.deliveries)
	return out
}

// For returns the events published to one session, in order
func (p *RecordingPublisher) For(session model.SessionHandle) []model.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var events []model.Event
	for _, d := range p.deliveries {
		if d.Session == session {
			events = append(events, d.Event)
		}
	}
	return events
}

// Reset clears recorded deliveries
func (p *RecordingPublisher) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deliveries = nil
}

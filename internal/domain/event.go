package domain

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent is an immutable record of something that happened inside an
// aggregate. Events accumulate on the aggregate during a call and are drained
// by the unit of work after a successful save; nothing is dispatched if the
// save fails.
type DomainEvent interface {
	EventName() string
	OccurredAt() time.Time
	CorrelationID() uuid.UUID
	EntityKind() string
	EntityID() string
	Payload() map[string]any
}

// AggregateRoot lets the unit of work collect events across heterogeneous
// aggregate types without knowing their concrete type.
type AggregateRoot interface {
	PendingEvents() []DomainEvent
	ClearEvents()
}

// eventRecorder is embedded in every aggregate and owns the pending list.
type eventRecorder struct {
	pending []DomainEvent
}

func (r *eventRecorder) raise(evt DomainEvent) {
	r.pending = append(r.pending, evt)
}

func (r *eventRecorder) PendingEvents() []DomainEvent { return r.pending }

func (r *eventRecorder) ClearEvents() { r.pending = nil }

// eventBase carries the fields shared by all events.
type eventBase struct {
	at  time.Time
	cid uuid.UUID
}

func newEventBase(now time.Time) eventBase {
	return eventBase{at: now.UTC(), cid: uuid.New()}
}

func (e eventBase) OccurredAt() time.Time    { return e.at }
func (e eventBase) CorrelationID() uuid.UUID { return e.cid }

package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	SlotCreated    Type = "slot.created"
	SlotClaimed    Type = "slot.claimed"
	SlotReleased   Type = "slot.released"
	SlotDeleted    Type = "slot.deleted"
	BookingCreated Type = "booking.created"
	BookingUpdated Type = "booking.updated"
)

// Event is emitted after the unit of work that produced it has committed.
type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	SlotID     *int64    `json:"slotId,omitempty"`
	BookingID  *int64    `json:"bookingId,omitempty"`
	StudentID  *int64    `json:"studentId,omitempty"`
	Status     string    `json:"status,omitempty"`
	Count      int       `json:"count,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

func New(eventType Type) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
	}
}

func (e Event) ForSlot(slotID int64) Event {
	e.SlotID = &slotID
	return e
}

func (e Event) ForBooking(bookingID, studentID int64, status string) Event {
	e.BookingID = &bookingID
	e.StudentID = &studentID
	e.Status = status
	return e
}

// Private reports whether the event concerns one student's booking.
func (e Event) Private() bool {
	return e.StudentID != nil
}

// Publisher delivery is best effort; failures are logged by the implementation.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, event Event) {
	for _, p := range f {
		if p != nil {
			p.Publish(ctx, event)
		}
	}
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) {}

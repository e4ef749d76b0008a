// Package queue defines the schedule events exchanged over the message
// broker, the publisher used by the services and the audit consumer.
package queue

import (
    "context"
    "time"

    "github.com/google/uuid"
)

// Event types published after a scheduling transaction commits.
const (
    EventSlotGenerated       = "slot.generated"
    EventBatchSelected       = "batch.selected"
    EventRescheduleRequested = "reschedule.requested"
    EventRescheduleDecided   = "reschedule.decided"
    EventReschedulePaid      = "reschedule.paid"
    EventRescheduleCompleted = "reschedule.completed"
)

// ScheduleEvent carries enough information for downstream consumers to log
// or notify without querying the primary database.  Fields that do not
// apply to an event type are left zero and omitted from the payload.
type ScheduleEvent struct {
    ID         string    `json:"id"`
    Type       string    `json:"type"`
    OccurredAt time.Time `json:"occurred_at"`
    StudentID  uint64    `json:"student_id,omitempty"`
    CourseID   uint64    `json:"course_id,omitempty"`
    SlotID     uint64    `json:"slot_id,omitempty"`
    BatchID    uint64    `json:"batch_id,omitempty"`
    SeatNumber int       `json:"seat_number,omitempty"`
    RequestID  uint64    `json:"request_id,omitempty"`
    Status     string    `json:"status,omitempty"`
    Action     string    `json:"action,omitempty"`
    BatchCount int       `json:"batch_count,omitempty"`
}

// NewEvent stamps a fresh id and the current UTC time on an event of the
// given type.
func NewEvent(eventType string) ScheduleEvent {
    return ScheduleEvent{
        ID:         uuid.NewString(),
        Type:       eventType,
        OccurredAt: time.Now().UTC(),
    }
}

// Publisher delivers schedule events.  Implementations must be safe for
// concurrent use.
type Publisher interface {
    Publish(ctx context.Context, ev ScheduleEvent) error
}

// NopPublisher drops every event.  Used when no broker is configured and
// in tests.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, ScheduleEvent) error { return nil }

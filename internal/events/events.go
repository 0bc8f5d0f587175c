// Package events publishes household activity to interested consumers.
//
// Publishing is fire-and-forget: services call Emit, which waits at most
// PublishTimeout, logs a failed or slow publish and carries on. Balances
// never depend on an event being delivered.
package events

import (
	"context"
	"log/slog"
	"time"
)

// Type names an activity.
type Type string

const (
	ExpenseCreated       Type = "expense.created"
	ExpenseUpdated       Type = "expense.updated"
	ExpenseDeleted       Type = "expense.deleted"
	MemberAdded          Type = "member.added"
	MemberRemoved        Type = "member.removed"
	PaymentStatusChanged Type = "payment.status_changed"
)

// Event is one household activity record.
type Event struct {
	Type        Type   `json:"type"`
	HouseholdID string `json:"household_id"`
	// ActorID is the user who triggered the activity.
	ActorID string `json:"actor_id,omitempty"`
	// SubjectID is the expense, member or payment key concerned.
	SubjectID string `json:"subject_id"`
	Amount    int64  `json:"amount,omitempty"`
	Paid      bool   `json:"paid,omitempty"`
	At        int64  `json:"at"`
}

// New returns an event of type t stamped with the current time.
func New(t Type, householdID, actorID, subjectID string) Event {
	return Event{
		Type:        t,
		HouseholdID: householdID,
		ActorID:     actorID,
		SubjectID:   subjectID,
		At:          time.Now().Unix(),
	}
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// PublishTimeout bounds how long Emit holds up the caller.
var PublishTimeout = 2 * time.Second

// Emit publishes event and logs, rather than returns, any failure. A
// publish still running after PublishTimeout is left to finish in the
// background.
func Emit(ctx context.Context, p Publisher, event Event) {
	if p == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), PublishTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- p.Publish(ctx, event) }()

	select {
	case err := <-done:
		if err != nil {
			slog.Warn("Failed to publish event",
				"type", event.Type,
				"household_id", event.HouseholdID,
				"subject_id", event.SubjectID,
				"error", err,
			)
			return
		}
		slog.Debug("Event published", "type", event.Type, "household_id", event.HouseholdID)
	case <-ctx.Done():
		slog.Warn("Event publish timed out",
			"type", event.Type,
			"household_id", event.HouseholdID,
			"subject_id", event.SubjectID,
			"timeout", PublishTimeout,
		)
	}
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

func (NopPublisher) Close() error { return nil }

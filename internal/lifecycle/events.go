package lifecycle

import (
	"context"
	"time"
)

// EventType classifies lifecycle notifications.
type EventType string

const (
	EventProvisioned      EventType = "customer.provisioned"
	EventUpdated          EventType = "customer.updated"
	EventDeprovisioned    EventType = "customer.deprovisioned"
	EventIdentityOrphaned EventType = "identity.orphaned"
)

// Event is published after an operation commits something, and whenever an
// identity is left without a customer record.
type Event struct {
	Type       EventType
	CustomerID string
	IdentityID string
	Email      string
	Step       Step
	Detail     string
	Steps      []StepOutcome
	OccurredAt time.Time
}

// Notifier delivers lifecycle events.  Delivery is best effort: a failing
// notifier is logged and never changes an operation's outcome.
type Notifier interface {
	Publish(ctx context.Context, ev Event) error
}

type nopNotifier struct{}

func (nopNotifier) Publish(context.Context, Event) error { return nil }

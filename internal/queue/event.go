// Package queue carries customer lifecycle events over RabbitMQ: a
// publisher used by the server and a consumer used by the audit command.
package queue

import (
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/storefront-admin/internal/lifecycle"
)

// LifecycleQueue is the durable queue every lifecycle event is routed to.
const LifecycleQueue = "customer.lifecycle"

// LifecycleEvent is the wire form of lifecycle.Event.
type LifecycleEvent struct {
	Type       string      `json:"type"`
	CustomerID string      `json:"customer_id,omitempty"`
	IdentityID string      `json:"identity_id,omitempty"`
	Email      string      `json:"email,omitempty"`
	Step       string      `json:"step,omitempty"`
	Detail     string      `json:"detail,omitempty"`
	Steps      []EventStep `json:"steps,omitempty"`
	OccurredAt string      `json:"occurred_at"`
}

// EventStep is one step outcome inside a LifecycleEvent.
type EventStep struct {
	Step   string `json:"step"`
	Status string `json:"status"`
}

// FromLifecycle converts ev to its wire form.
func FromLifecycle(ev lifecycle.Event) LifecycleEvent {
	out := LifecycleEvent{
		Type:       string(ev.Type),
		CustomerID: ev.CustomerID,
		IdentityID: ev.IdentityID,
		Email:      ev.Email,
		Step:       string(ev.Step),
		Detail:     ev.Detail,
		OccurredAt: ev.OccurredAt.UTC().Format(time.RFC3339),
	}
	for _, s := range ev.Steps {
		out.Steps = append(out.Steps, EventStep{Step: string(s.Step), Status: string(s.Status)})
	}
	return out
}

// Orphaned reports whether the event announces an identity left behind.
func (e LifecycleEvent) Orphaned() bool {
	return e.Type == string(lifecycle.EventIdentityOrphaned)
}

// Line renders the event as one audit log line.
func (e LifecycleEvent) Line() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s | customer_id=%s", e.OccurredAt, e.Type, e.CustomerID)
	if e.IdentityID != "" && e.IdentityID != e.CustomerID {
		fmt.Fprintf(&b, " | identity_id=%s", e.IdentityID)
	}
	if e.Email != "" {
		fmt.Fprintf(&b, " | email=%s", e.Email)
	}
	if e.Step != "" {
		fmt.Fprintf(&b, " | step=%s", e.Step)
	}
	if len(e.Steps) > 0 {
		parts := make([]string, len(e.Steps))
		for i, s := range e.Steps {
			parts[i] = s.Step + "=" + s.Status
		}
		fmt.Fprintf(&b, " | steps=[%s]", strings.Join(parts, ","))
	}
	if e.Detail != "" {
		fmt.Fprintf(&b, " | detail=%q", e.Detail)
	}
	if e.Orphaned() {
		b.WriteString(" | ACTION REQUIRED: orphaned identity")
	}
	b.WriteString("\n")
	return b.String()
}

// Package notify tells administrators about delivery failures. Notifiers are
// best effort: callers log a returned error and carry on.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xraph/hookgate/id"
)

// Kind distinguishes a failed round from a final escalation.
type Kind string

const (
	KindDeliveryFailed Kind = "delivery_failed"
	KindEscalated      Kind = "escalated"
)

// Message describes a failed event.
type Message struct {
	Kind       Kind      `json:"kind"`
	EventID    id.ID     `json:"event_id"`
	EventType  string    `json:"event_type,omitempty"`
	ProjectID  id.ID     `json:"project_id"`
	EndpointID id.ID     `json:"endpoint_id"`
	Attempts   int       `json:"attempts"`
	FailedAt   time.Time `json:"failed_at"`
	Reason     string    `json:"reason"`
}

// Subject is a one-line summary.
func (m Message) Subject() string {
	if m.Kind == KindEscalated {
		return fmt.Sprintf("[hookgate] event %s moved to dead-letter queue", m.EventID)
	}
	return fmt.Sprintf("[hookgate] delivery of event %s failed (attempt %d)", m.EventID, m.Attempts)
}

// Text renders the message as plain text.
func (m Message) Text() string {
	var b strings.Builder
	b.WriteString(m.Subject())
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Event:    %s\n", m.EventID)
	if m.EventType != "" {
		fmt.Fprintf(&b, "Type:     %s\n", m.EventType)
	}
	fmt.Fprintf(&b, "Project:  %s\n", m.ProjectID)
	fmt.Fprintf(&b, "Endpoint: %s\n", m.EndpointID)
	fmt.Fprintf(&b, "Attempts: %d\n", m.Attempts)
	fmt.Fprintf(&b, "Failed:   %s\n", m.FailedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Reason:   %s\n", m.Reason)
	return b.String()
}

// Notifier delivers a Message to administrators.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// Nop discards every message.
type Nop struct{}

func (Nop) Notify(context.Context, Message) error { return nil }

// Multi fans a message out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

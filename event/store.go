package event

import (
	"context"
	"time"

	"github.com/xraph/hookgate/id"
)

// Store defines the persistence contract for events.
type Store interface {
	// CreateEvent persists an event. Must be durable before returning.
	CreateEvent(ctx context.Context, evt *Event) error

	// GetEvent returns an event by ID.
	GetEvent(ctx context.Context, evtID id.ID) (*Event, error)

	// ListEvents returns events newest first.
	ListEvents(ctx context.Context, opts ListOpts) ([]*Event, error)

	// UpdateEvent writes back an event's mutable state.
	UpdateEvent(ctx context.Context, evt *Event) error

	// DueEvents returns up to limit events ready for a delivery round:
	// pending or failed with NextAttemptAt <= now, and processing events whose
	// LastAttemptAt is before staleBefore (abandoned by a crashed worker).
	DueEvents(ctx context.Context, now, staleBefore time.Time, limit int) ([]*Event, error)

	// BeginAttempt claims an event for a delivery round in one atomic step:
	// it increments DeliveryAttempts, stamps LastAttemptAt = now and sets
	// processing. Only events that DueEvents would return are claimable;
	// anything else (terminal, still backing off, or processing with a lease
	// newer than staleBefore) yields ErrNotClaimable.
	BeginAttempt(ctx context.Context, evtID id.ID, now, staleBefore time.Time) (*Event, error)

	// CountEvents returns the number of events in status.
	CountEvents(ctx context.Context, status Status) (int64, error)
}

// Claimable reports whether BeginAttempt may claim evt at now. Stores that
// cannot express the rule in their query language use it under their own
// lock. A failed event stays unclaimable until its backoff has elapsed.
func Claimable(evt *Event, now, staleBefore time.Time) bool {
	return Due(evt, now, staleBefore)
}

// Due reports whether evt belongs in DueEvents.
func Due(evt *Event, now, staleBefore time.Time) bool {
	switch evt.Status {
	case StatusPending, StatusFailed:
		return !evt.NextAttemptAt.After(now)
	case StatusProcessing:
		return evt.LastAttemptAt == nil || evt.LastAttemptAt.Before(staleBefore)
	}
	return false
}

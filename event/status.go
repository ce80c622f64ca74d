package event

import "errors"

// Status is the delivery state of an event.
type Status string

const (
	StatusPending           Status = "pending"
	StatusProcessing        Status = "processing"
	StatusDelivered         Status = "delivered"
	StatusFailed            Status = "failed"
	StatusPermanentlyFailed Status = "permanently_failed"
)

// ErrNotClaimable is returned by Store.BeginAttempt when the event is
// terminal or held by another worker.
var ErrNotClaimable = errors.New("event: not claimable")

var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing},
	StatusProcessing: {StatusDelivered, StatusFailed, StatusPermanentlyFailed},
	StatusFailed:     {StatusProcessing, StatusPermanentlyFailed},
}

// CanTransition reports whether from may move to to. Delivered and
// permanently failed events never change.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether s is a final state.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusPermanentlyFailed
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusDelivered, StatusFailed, StatusPermanentlyFailed:
		return true
	}
	return false
}

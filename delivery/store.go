package delivery

import (
	"context"

	"github.com/xraph/hookgate/id"
)

// Store defines the persistence contract for the delivery ledger. Rows are
// only ever appended.
type Store interface {
	// RecordDelivery appends a ledger row.
	RecordDelivery(ctx context.Context, d *EventDelivery) error

	// ListDeliveries returns an event's ledger in attempt order.
	ListDeliveries(ctx context.Context, evtID id.ID) ([]*EventDelivery, error)

	// CountDeliveries returns the number of rows for an event and destination.
	CountDeliveries(ctx context.Context, evtID id.ID, destination string) (int, error)
}

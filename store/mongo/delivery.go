package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/xraph/hookgate/delivery"
	"github.com/xraph/hookgate/id"
)

// RecordDelivery appends a ledger row.
func (s *Store) RecordDelivery(ctx context.Context, d *delivery.EventDelivery) error {
	if _, err := s.mdb.NewInsert(toDeliveryModel(d)).Exec(ctx); err != nil {
		return fmt.Errorf("hookgate/mongo: record delivery: %w", err)
	}

	return nil
}

// ListDeliveries returns an event's ledger in attempt order.
func (s *Store) ListDeliveries(ctx context.Context, evtID id.ID) ([]*delivery.EventDelivery, error) {
	var models []deliveryModel

	if err := s.mdb.NewFind(&models).
		Filter(bson.M{"event_id": evtID.String()}).
		Sort(bson.D{{Key: "attempted_at", Value: 1}, {Key: "_id", Value: 1}}).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("hookgate/mongo: list deliveries: %w", err)
	}

	return convert(models, fromDeliveryModel)
}

// CountDeliveries counts ledger rows for one destination of an event.
func (s *Store) CountDeliveries(ctx context.Context, evtID id.ID, destination string) (int, error) {
	count, err := s.mdb.NewFind((*deliveryModel)(nil)).
		Filter(bson.M{"event_id": evtID.String(), "destination": destination}).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("hookgate/mongo: count deliveries: %w", err)
	}

	return int(count), nil
}

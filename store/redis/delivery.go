package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/xraph/hookgate/delivery"
	"github.com/xraph/hookgate/id"
)

// RecordDelivery appends the row to the event's ledger list and bumps the
// per-destination counter in the same MULTI.
func (s *Store) RecordDelivery(ctx context.Context, d *delivery.EventDelivery) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("hookgate/redis: record delivery marshal: %w", err)
	}
	eid := d.EventID.String()

	pipe := s.rdb.TxPipeline()
	pipe.RPush(ctx, lDeliveryEvent+eid, raw)
	pipe.HIncrBy(ctx, hDeliveryCounter+eid, d.Destination, 1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("hookgate/redis: record delivery: %w", err)
	}
	return nil
}

func (s *Store) ListDeliveries(ctx context.Context, evtID id.ID) ([]*delivery.EventDelivery, error) {
	rows, err := s.rdb.LRange(ctx, lDeliveryEvent+evtID.String(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("hookgate/redis: list deliveries: %w", err)
	}
	result := make([]*delivery.EventDelivery, 0, len(rows))
	for _, row := range rows {
		var d delivery.EventDelivery
		if err := json.Unmarshal([]byte(row), &d); err != nil {
			return nil, fmt.Errorf("hookgate/redis: decode delivery: %w", err)
		}
		result = append(result, &d)
	}
	return result, nil
}

func (s *Store) CountDeliveries(ctx context.Context, evtID id.ID, destination string) (int, error) {
	n, err := s.rdb.HGet(ctx, hDeliveryCounter+evtID.String(), destination).Int()
	if err != nil {
		if isRedisNil(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("hookgate/redis: count deliveries: %w", err)
	}
	return n, nil
}

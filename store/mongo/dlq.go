package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/xraph/hookgate"
	"github.com/xraph/hookgate/dlq"
	"github.com/xraph/hookgate/id"
)

// Push stores a permanently failed event in the DLQ.
func (s *Store) Push(ctx context.Context, entry *dlq.Entry) error {
	if _, err := s.mdb.NewInsert(toDLQEntryModel(entry)).Exec(ctx); err != nil {
		return fmt.Errorf("hookgate/mongo: push dlq: %w", err)
	}

	return nil
}

// ListDLQ returns DLQ entries, most recent failure first.
func (s *Store) ListDLQ(ctx context.Context, opts dlq.ListOpts) ([]*dlq.Entry, error) {
	var models []dlqEntryModel

	filter := bson.M{}
	if !opts.ProjectID.IsNil() {
		filter["project_id"] = opts.ProjectID.String()
	}

	if !opts.EndpointID.IsNil() {
		filter["endpoint_id"] = opts.EndpointID.String()
	}

	if r := timeRange(opts.From, opts.To); r != nil {
		filter["failed_at"] = r
	}

	if opts.Pending {
		filter["replayed_at"] = nil
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "failed_at", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}

	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("hookgate/mongo: list dlq: %w", err)
	}

	return convert(models, fromDLQEntryModel)
}

// GetDLQ returns a DLQ entry by ID.
func (s *Store) GetDLQ(ctx context.Context, dlqID id.ID) (*dlq.Entry, error) {
	var m dlqEntryModel

	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": dlqID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, hookgate.ErrDLQNotFound
		}

		return nil, fmt.Errorf("hookgate/mongo: get dlq: %w", err)
	}

	return fromDLQEntryModel(&m)
}

// MarkReplayed stamps the entry's replay time.
func (s *Store) MarkReplayed(ctx context.Context, dlqID id.ID, at time.Time) error {
	res, err := s.mdb.NewUpdate((*dlqEntryModel)(nil)).
		Filter(bson.M{"_id": dlqID.String()}).
		Set("replayed_at", at).
		Set("updated_at", at).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("hookgate/mongo: mark replayed: %w", err)
	}

	if res.MatchedCount() == 0 {
		return hookgate.ErrDLQNotFound
	}

	return nil
}

// Purge deletes DLQ entries that failed before a threshold.
func (s *Store) Purge(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.mdb.NewDelete((*dlqEntryModel)(nil)).
		Many().
		Filter(bson.M{"failed_at": bson.M{"$lt": before}}).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("hookgate/mongo: purge: %w", err)
	}

	return res.DeletedCount(), nil
}

// CountDLQ returns the total number of DLQ entries.
func (s *Store) CountDLQ(ctx context.Context) (int64, error) {
	count, err := s.mdb.NewFind((*dlqEntryModel)(nil)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("hookgate/mongo: count dlq: %w", err)
	}

	return count, nil
}

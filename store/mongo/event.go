package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/hookgate"
	"github.com/xraph/hookgate/event"
	"github.com/xraph/hookgate/id"
)

// CreateEvent persists an event.
func (s *Store) CreateEvent(ctx context.Context, evt *event.Event) error {
	if _, err := s.mdb.NewInsert(toEventModel(evt)).Exec(ctx); err != nil {
		return fmt.Errorf("hookgate/mongo: create event: %w", err)
	}

	return nil
}

// GetEvent returns an event by ID.
func (s *Store) GetEvent(ctx context.Context, evtID id.ID) (*event.Event, error) {
	var m eventModel

	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": evtID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, hookgate.ErrEventNotFound
		}

		return nil, fmt.Errorf("hookgate/mongo: get event: %w", err)
	}

	return fromEventModel(&m)
}

// ListEvents returns events newest first.
func (s *Store) ListEvents(ctx context.Context, opts event.ListOpts) ([]*event.Event, error) {
	var models []eventModel

	filter := bson.M{}
	if !opts.ProjectID.IsNil() {
		filter["project_id"] = opts.ProjectID.String()
	}

	if !opts.EndpointID.IsNil() {
		filter["endpoint_id"] = opts.EndpointID.String()
	}

	if opts.Status != nil {
		filter["status"] = string(*opts.Status)
	}

	if opts.Type != "" {
		filter["type"] = opts.Type
	}

	if r := timeRange(opts.From, opts.To); r != nil {
		filter["created_at"] = r
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}

	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("hookgate/mongo: list events: %w", err)
	}

	return convert(models, fromEventModel)
}

// UpdateEvent replaces an event document.
func (s *Store) UpdateEvent(ctx context.Context, evt *event.Event) error {
	m := toEventModel(evt)

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("hookgate/mongo: update event: %w", err)
	}

	if res.MatchedCount() == 0 {
		return hookgate.ErrEventNotFound
	}

	return nil
}

// due matches events ready for a round. BeginAttempt claims with the same
// filter, so a failed event is not retried before its backoff elapses.
func due(now, staleBefore time.Time) bson.A {
	return bson.A{
		bson.M{
			"status":          bson.M{"$in": bson.A{string(event.StatusPending), string(event.StatusFailed)}},
			"next_attempt_at": bson.M{"$lte": now},
		},
		bson.M{
			"status": string(event.StatusProcessing),
			"$or": bson.A{
				bson.M{"last_attempt_at": nil},
				bson.M{"last_attempt_at": bson.M{"$lt": staleBefore}},
			},
		},
	}
}

// DueEvents returns events ready for a delivery round, earliest first.
func (s *Store) DueEvents(ctx context.Context, now, staleBefore time.Time, limit int) ([]*event.Event, error) {
	var models []eventModel

	filter := bson.M{"$or": due(now, staleBefore)}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "next_attempt_at", Value: 1}})

	if limit > 0 {
		q = q.Limit(int64(limit))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("hookgate/mongo: due events: %w", err)
	}

	return convert(models, fromEventModel)
}

// BeginAttempt claims an event with a single FindOneAndUpdate, so concurrent
// workers cannot both win the same round.
func (s *Store) BeginAttempt(ctx context.Context, evtID id.ID, now, staleBefore time.Time) (*event.Event, error) {
	filter := bson.M{
		"_id": evtID.String(),
		"$or": due(now, staleBefore),
	}

	update := bson.M{
		"$inc": bson.M{"delivery_attempts": 1},
		"$set": bson.M{
			"status":          string(event.StatusProcessing),
			"last_attempt_at": now,
			"updated_at":      now,
		},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var m eventModel

	err := s.mdb.Collection(colEvents).FindOneAndUpdate(ctx, filter, update, opts).Decode(&m)
	if err != nil {
		if !isNoDocuments(err) {
			return nil, fmt.Errorf("hookgate/mongo: begin attempt: %w", err)
		}

		if _, err := s.GetEvent(ctx, evtID); err != nil {
			return nil, err
		}

		return nil, event.ErrNotClaimable
	}

	return fromEventModel(&m)
}

// CountEvents returns the number of events in status.
func (s *Store) CountEvents(ctx context.Context, status event.Status) (int64, error) {
	count, err := s.mdb.NewFind((*eventModel)(nil)).
		Filter(bson.M{"status": string(status)}).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("hookgate/mongo: count events: %w", err)
	}

	return count, nil
}

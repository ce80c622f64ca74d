package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/hookgate"
	"github.com/xraph/hookgate/event"
	"github.com/xraph/hookgate/id"
)

var allStatuses = []event.Status{
	event.StatusPending,
	event.StatusProcessing,
	event.StatusDelivered,
	event.StatusFailed,
	event.StatusPermanentlyFailed,
}

// indexEvent queues the writes that place evt in the due, processing and
// status indexes matching its current status.
func indexEvent(ctx context.Context, pipe goredis.Pipeliner, evt *event.Event) {
	eid := evt.ID.String()

	switch evt.Status {
	case event.StatusPending, event.StatusFailed:
		pipe.ZAdd(ctx, zEventDue, goredis.Z{Score: scoreFromTime(evt.NextAttemptAt), Member: eid})
		pipe.ZRem(ctx, zEventProcessing, eid)
	case event.StatusProcessing:
		var score float64
		if evt.LastAttemptAt != nil {
			score = scoreFromTime(*evt.LastAttemptAt)
		}
		pipe.ZAdd(ctx, zEventProcessing, goredis.Z{Score: score, Member: eid})
		pipe.ZRem(ctx, zEventDue, eid)
	default:
		pipe.ZRem(ctx, zEventDue, eid)
		pipe.ZRem(ctx, zEventProcessing, eid)
	}

	for _, st := range allStatuses {
		if st != evt.Status {
			pipe.SRem(ctx, sEventStatus+string(st), eid)
		}
	}
	pipe.SAdd(ctx, sEventStatus+string(evt.Status), eid)
}

func (s *Store) CreateEvent(ctx context.Context, evt *event.Event) error {
	raw, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("hookgate/redis: create event marshal: %w", err)
	}
	eid := evt.ID.String()
	created := goredis.Z{Score: scoreFromTime(evt.CreatedAt), Member: eid}

	// One MULTI so a crash never leaves an event outside the due index.
	_, err = s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, entityKey(prefixEvent, eid), raw, 0)
		pipe.ZAdd(ctx, zEventAll, created)
		pipe.ZAdd(ctx, zEventProject+evt.ProjectID.String(), created)
		indexEvent(ctx, pipe, evt)
		return nil
	})
	if err != nil {
		return fmt.Errorf("hookgate/redis: create event: %w", err)
	}
	return nil
}

func (s *Store) GetEvent(ctx context.Context, evtID id.ID) (*event.Event, error) {
	var evt event.Event
	if err := s.getEntity(ctx, entityKey(prefixEvent, evtID.String()), &evt); err != nil {
		if isNotFound(err) {
			return nil, hookgate.ErrEventNotFound
		}
		return nil, fmt.Errorf("hookgate/redis: get event: %w", err)
	}
	return &evt, nil
}

func (s *Store) ListEvents(ctx context.Context, opts event.ListOpts) ([]*event.Event, error) {
	zKey := zEventAll
	if !opts.ProjectID.IsNil() {
		zKey = zEventProject + opts.ProjectID.String()
	}

	rng := &goredis.ZRangeBy{Min: "-inf", Max: "+inf"}
	if opts.From != nil {
		rng.Min = strconv.FormatFloat(scoreFromTime(*opts.From), 'f', -1, 64)
	}
	if opts.To != nil {
		rng.Max = strconv.FormatFloat(scoreFromTime(*opts.To), 'f', -1, 64)
	}
	ids, err := s.rdb.ZRevRangeByScore(ctx, zKey, rng).Result()
	if err != nil {
		return nil, fmt.Errorf("hookgate/redis: list events: %w", err)
	}

	all, err := loadAll[event.Event](ctx, s, prefixEvent, ids)
	if err != nil {
		return nil, fmt.Errorf("hookgate/redis: list events: %w", err)
	}
	result := all[:0]
	for _, evt := range all {
		if opts.Matches(evt) {
			result = append(result, evt)
		}
	}
	return applyPagination(result, opts.Offset, opts.Limit), nil
}

func (s *Store) UpdateEvent(ctx context.Context, evt *event.Event) error {
	key := entityKey(prefixEvent, evt.ID.String())

	exists, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("hookgate/redis: update event get: %w", err)
	}
	if exists == 0 {
		return hookgate.ErrEventNotFound
	}

	raw, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("hookgate/redis: update event marshal: %w", err)
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, key, raw, 0)
		indexEvent(ctx, pipe, evt)
		return nil
	})
	if err != nil {
		return fmt.Errorf("hookgate/redis: update event: %w", err)
	}
	return nil
}

func (s *Store) DueEvents(ctx context.Context, now, staleBefore time.Time, limit int) ([]*event.Event, error) {
	due := &goredis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatFloat(scoreFromTime(now), 'f', -1, 64),
	}
	stale := &goredis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatFloat(scoreFromTime(staleBefore), 'f', -1, 64),
	}
	if limit > 0 {
		due.Count = int64(limit)
		stale.Count = int64(limit)
	}

	dueIDs, err := s.rdb.ZRangeByScore(ctx, zEventDue, due).Result()
	if err != nil {
		return nil, fmt.Errorf("hookgate/redis: due events: %w", err)
	}
	staleIDs, err := s.rdb.ZRangeByScore(ctx, zEventProcessing, stale).Result()
	if err != nil {
		return nil, fmt.Errorf("hookgate/redis: stale events: %w", err)
	}

	all, err := loadAll[event.Event](ctx, s, prefixEvent, append(dueIDs, staleIDs...))
	if err != nil {
		return nil, fmt.Errorf("hookgate/redis: due events: %w", err)
	}

	// Indexes are rewritten with the entity, but a concurrent claim may land
	// between the range read and the load.
	result := all[:0]
	for _, evt := range all {
		if event.Due(evt, now, staleBefore) {
			result = append(result, evt)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].NextAttemptAt.Before(result[j].NextAttemptAt) })
	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}

// BeginAttempt claims the event inside WATCH/MULTI. A concurrent write to the
// event key aborts the transaction, and the loser reports ErrNotClaimable.
func (s *Store) BeginAttempt(ctx context.Context, evtID id.ID, now, staleBefore time.Time) (*event.Event, error) {
	key := entityKey(prefixEvent, evtID.String())
	var claimed event.Event

	err := s.rdb.Watch(ctx, func(tx *goredis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if isRedisNil(err) {
				return hookgate.ErrEventNotFound
			}
			return err
		}
		if err := json.Unmarshal(raw, &claimed); err != nil {
			return fmt.Errorf("decode event: %w", err)
		}
		if !event.Claimable(&claimed, now, staleBefore) {
			return event.ErrNotClaimable
		}

		claimed.DeliveryAttempts++
		t := now
		claimed.LastAttemptAt = &t
		claimed.Status = event.StatusProcessing
		claimed.UpdatedAt = now

		out, err := json.Marshal(&claimed)
		if err != nil {
			return fmt.Errorf("encode event: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			indexEvent(ctx, pipe, &claimed)
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		return &claimed, nil
	case errors.Is(err, goredis.TxFailedErr):
		return nil, event.ErrNotClaimable
	case errors.Is(err, hookgate.ErrEventNotFound), errors.Is(err, event.ErrNotClaimable):
		return nil, err
	default:
		return nil, fmt.Errorf("hookgate/redis: begin attempt: %w", err)
	}
}

func (s *Store) CountEvents(ctx context.Context, status event.Status) (int64, error) {
	n, err := s.rdb.SCard(ctx, sEventStatus+string(status)).Result()
	if err != nil {
		return 0, fmt.Errorf("hookgate/redis: count events: %w", err)
	}
	return n, nil
}

package redis

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/hookgate"
	"github.com/xraph/hookgate/dlq"
	"github.com/xraph/hookgate/id"
)

func (s *Store) Push(ctx context.Context, entry *dlq.Entry) error {
	did := entry.ID.String()
	if err := s.setEntity(ctx, entityKey(prefixDLQ, did), entry); err != nil {
		return fmt.Errorf("hookgate/redis: push dlq: %w", err)
	}
	err := s.rdb.ZAdd(ctx, zDLQAll, goredis.Z{Score: scoreFromTime(entry.FailedAt), Member: did}).Err()
	if err != nil {
		return fmt.Errorf("hookgate/redis: push dlq indexes: %w", err)
	}
	return nil
}

func (s *Store) ListDLQ(ctx context.Context, opts dlq.ListOpts) ([]*dlq.Entry, error) {
	rng := &goredis.ZRangeBy{Min: "-inf", Max: "+inf"}
	if opts.From != nil {
		rng.Min = strconv.FormatFloat(scoreFromTime(*opts.From), 'f', -1, 64)
	}
	if opts.To != nil {
		rng.Max = strconv.FormatFloat(scoreFromTime(*opts.To), 'f', -1, 64)
	}
	ids, err := s.rdb.ZRevRangeByScore(ctx, zDLQAll, rng).Result()
	if err != nil {
		return nil, fmt.Errorf("hookgate/redis: list dlq: %w", err)
	}

	all, err := loadAll[dlq.Entry](ctx, s, prefixDLQ, ids)
	if err != nil {
		return nil, fmt.Errorf("hookgate/redis: list dlq: %w", err)
	}
	result := all[:0]
	for _, e := range all {
		if opts.Matches(e) {
			result = append(result, e)
		}
	}
	return applyPagination(result, opts.Offset, opts.Limit), nil
}

func (s *Store) GetDLQ(ctx context.Context, dlqID id.ID) (*dlq.Entry, error) {
	var e dlq.Entry
	if err := s.getEntity(ctx, entityKey(prefixDLQ, dlqID.String()), &e); err != nil {
		if isNotFound(err) {
			return nil, hookgate.ErrDLQNotFound
		}
		return nil, fmt.Errorf("hookgate/redis: get dlq: %w", err)
	}
	return &e, nil
}

func (s *Store) MarkReplayed(ctx context.Context, dlqID id.ID, at time.Time) error {
	e, err := s.GetDLQ(ctx, dlqID)
	if err != nil {
		return err
	}
	t := at
	e.ReplayedAt = &t
	e.UpdatedAt = at
	if err := s.setEntity(ctx, entityKey(prefixDLQ, dlqID.String()), e); err != nil {
		return fmt.Errorf("hookgate/redis: mark replayed: %w", err)
	}
	return nil
}

func (s *Store) Purge(ctx context.Context, before time.Time) (int64, error) {
	ids, err := s.zRangeByScoreIDs(ctx, zDLQAll, math.Inf(-1), scoreFromTime(before))
	if err != nil {
		return 0, fmt.Errorf("hookgate/redis: purge dlq: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	var count int64
	pipe := s.rdb.Pipeline()
	for _, entryID := range ids {
		var e dlq.Entry
		if err := s.getEntity(ctx, entityKey(prefixDLQ, entryID), &e); err != nil {
			if isNotFound(err) {
				pipe.ZRem(ctx, zDLQAll, entryID)
				continue
			}
			return 0, fmt.Errorf("hookgate/redis: purge dlq get: %w", err)
		}
		if !e.FailedAt.Before(before) {
			continue
		}
		pipe.Del(ctx, entityKey(prefixDLQ, entryID))
		pipe.ZRem(ctx, zDLQAll, entryID)
		count++
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("hookgate/redis: purge dlq: %w", err)
	}
	return count, nil
}

func (s *Store) CountDLQ(ctx context.Context) (int64, error) {
	n, err := s.rdb.ZCard(ctx, zDLQAll).Result()
	if err != nil {
		return 0, fmt.Errorf("hookgate/redis: count dlq: %w", err)
	}
	return n, nil
}

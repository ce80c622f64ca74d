package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/hookgate"
	"github.com/xraph/hookgate/id"
	"github.com/xraph/hookgate/routing"
	"github.com/xraph/hookgate/transform"
)

// Rule match statistics live in their own hash so definition writes never
// race with RecordMatch.
const (
	statCount       = "count"
	statLastMatched = "last_matched_at"
)

// ==================== Routing Rule Store ====================

func (s *Store) CreateRule(ctx context.Context, r *routing.Rule) error {
	ruleID := r.ID.String()
	if err := s.setEntity(ctx, entityKey(prefixRule, ruleID), r); err != nil {
		return fmt.Errorf("hookgate/redis: create rule: %w", err)
	}

	pipe := s.rdb.Pipeline()
	pipe.ZAdd(ctx, zRuleEndpoint+r.EndpointID.String(), goredis.Z{Score: float64(r.Priority), Member: ruleID})
	pipe.HSet(ctx, hRuleStats+ruleID, statCount, r.MatchCount)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("hookgate/redis: create rule indexes: %w", err)
	}
	return nil
}

func (s *Store) GetRule(ctx context.Context, ruleID id.ID) (*routing.Rule, error) {
	var r routing.Rule
	if err := s.getEntity(ctx, entityKey(prefixRule, ruleID.String()), &r); err != nil {
		if isNotFound(err) {
			return nil, hookgate.ErrRuleNotFound
		}
		return nil, fmt.Errorf("hookgate/redis: get rule: %w", err)
	}
	if err := s.mergeRuleStats(ctx, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// UpdateRule rewrites the rule definition. Match statistics stay in the
// stats hash and are left untouched.
func (s *Store) UpdateRule(ctx context.Context, r *routing.Rule) error {
	ruleID := r.ID.String()
	key := entityKey(prefixRule, ruleID)

	exists, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("hookgate/redis: update rule get: %w", err)
	}
	if exists == 0 {
		return hookgate.ErrRuleNotFound
	}

	if err := s.setEntity(ctx, key, r); err != nil {
		return fmt.Errorf("hookgate/redis: update rule: %w", err)
	}
	err = s.rdb.ZAdd(ctx, zRuleEndpoint+r.EndpointID.String(), goredis.Z{Score: float64(r.Priority), Member: ruleID}).Err()
	if err != nil {
		return fmt.Errorf("hookgate/redis: update rule indexes: %w", err)
	}
	return nil
}

func (s *Store) DeleteRule(ctx context.Context, ruleID id.ID) error {
	var r routing.Rule
	key := entityKey(prefixRule, ruleID.String())
	if err := s.getEntity(ctx, key, &r); err != nil {
		if isNotFound(err) {
			return hookgate.ErrRuleNotFound
		}
		return fmt.Errorf("hookgate/redis: delete rule get: %w", err)
	}

	if err := s.kv.Delete(ctx, key); err != nil {
		return fmt.Errorf("hookgate/redis: delete rule: %w", err)
	}
	pipe := s.rdb.Pipeline()
	pipe.ZRem(ctx, zRuleEndpoint+r.EndpointID.String(), ruleID.String())
	pipe.Del(ctx, hRuleStats+ruleID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("hookgate/redis: delete rule indexes: %w", err)
	}
	return nil
}

// ListRules reads the endpoint's priority index. Equal priorities fall back
// to member order, and rule IDs sort by creation time.
func (s *Store) ListRules(ctx context.Context, endpointID id.ID) ([]*routing.Rule, error) {
	ids, err := s.rdb.ZRange(ctx, zRuleEndpoint+endpointID.String(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("hookgate/redis: list rules: %w", err)
	}
	rules, err := loadAll[routing.Rule](ctx, s, prefixRule, ids)
	if err != nil {
		return nil, fmt.Errorf("hookgate/redis: list rules: %w", err)
	}
	for _, r := range rules {
		if err := s.mergeRuleStats(ctx, r); err != nil {
			return nil, err
		}
	}
	return rules, nil
}

func (s *Store) RecordMatch(ctx context.Context, ruleID id.ID, at time.Time) error {
	exists, err := s.rdb.Exists(ctx, entityKey(prefixRule, ruleID.String())).Result()
	if err != nil {
		return fmt.Errorf("hookgate/redis: record match: %w", err)
	}
	if exists == 0 {
		return hookgate.ErrRuleNotFound
	}

	pipe := s.rdb.TxPipeline()
	pipe.HIncrBy(ctx, hRuleStats+ruleID.String(), statCount, 1)
	pipe.HSet(ctx, hRuleStats+ruleID.String(), statLastMatched, at.UTC().Format(time.RFC3339Nano))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("hookgate/redis: record match: %w", err)
	}
	return nil
}

func (s *Store) mergeRuleStats(ctx context.Context, r *routing.Rule) error {
	stats, err := s.rdb.HGetAll(ctx, hRuleStats+r.ID.String()).Result()
	if err != nil {
		return fmt.Errorf("hookgate/redis: rule stats: %w", err)
	}
	if v, ok := stats[statCount]; ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("hookgate/redis: rule stats count %q: %w", v, err)
		}
		r.MatchCount = n
	}
	if v, ok := stats[statLastMatched]; ok {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return fmt.Errorf("hookgate/redis: rule stats last match %q: %w", v, err)
		}
		r.LastMatchedAt = &t
	}
	return nil
}

// ==================== Transformation Store ====================

func (s *Store) CreateTransformation(ctx context.Context, t *transform.Transformation) error {
	tid := t.ID.String()
	if err := s.setEntity(ctx, entityKey(prefixTransformation, tid), t); err != nil {
		return fmt.Errorf("hookgate/redis: create transformation: %w", err)
	}
	err := s.rdb.ZAdd(ctx, zTransformEndpoint+t.EndpointID.String(), goredis.Z{Score: float64(t.Priority), Member: tid}).Err()
	if err != nil {
		return fmt.Errorf("hookgate/redis: create transformation indexes: %w", err)
	}
	return nil
}

func (s *Store) GetTransformation(ctx context.Context, transformID id.ID) (*transform.Transformation, error) {
	var t transform.Transformation
	if err := s.getEntity(ctx, entityKey(prefixTransformation, transformID.String()), &t); err != nil {
		if isNotFound(err) {
			return nil, hookgate.ErrTransformationNotFound
		}
		return nil, fmt.Errorf("hookgate/redis: get transformation: %w", err)
	}
	return &t, nil
}

func (s *Store) UpdateTransformation(ctx context.Context, t *transform.Transformation) error {
	tid := t.ID.String()
	key := entityKey(prefixTransformation, tid)

	exists, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("hookgate/redis: update transformation get: %w", err)
	}
	if exists == 0 {
		return hookgate.ErrTransformationNotFound
	}

	if err := s.setEntity(ctx, key, t); err != nil {
		return fmt.Errorf("hookgate/redis: update transformation: %w", err)
	}
	err = s.rdb.ZAdd(ctx, zTransformEndpoint+t.EndpointID.String(), goredis.Z{Score: float64(t.Priority), Member: tid}).Err()
	if err != nil {
		return fmt.Errorf("hookgate/redis: update transformation indexes: %w", err)
	}
	return nil
}

func (s *Store) DeleteTransformation(ctx context.Context, transformID id.ID) error {
	t, err := s.GetTransformation(ctx, transformID)
	if err != nil {
		return err
	}
	if err := s.kv.Delete(ctx, entityKey(prefixTransformation, transformID.String())); err != nil {
		return fmt.Errorf("hookgate/redis: delete transformation: %w", err)
	}
	if err := s.rdb.ZRem(ctx, zTransformEndpoint+t.EndpointID.String(), transformID.String()).Err(); err != nil {
		return fmt.Errorf("hookgate/redis: delete transformation indexes: %w", err)
	}
	return nil
}

func (s *Store) ListTransformations(ctx context.Context, endpointID id.ID) ([]*transform.Transformation, error) {
	ids, err := s.rdb.ZRange(ctx, zTransformEndpoint+endpointID.String(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("hookgate/redis: list transformations: %w", err)
	}
	result, err := loadAll[transform.Transformation](ctx, s, prefixTransformation, ids)
	if err != nil {
		return nil, fmt.Errorf("hookgate/redis: list transformations: %w", err)
	}
	return result, nil
}

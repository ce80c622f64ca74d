package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/xraph/hookgate"
	"github.com/xraph/hookgate/id"
	"github.com/xraph/hookgate/routing"
	"github.com/xraph/hookgate/transform"
)

var byPriority = bson.D{{Key: "priority", Value: 1}, {Key: "created_at", Value: 1}}

// CreateRule persists a routing rule.
func (s *Store) CreateRule(ctx context.Context, r *routing.Rule) error {
	if _, err := s.mdb.NewInsert(toRuleModel(r)).Exec(ctx); err != nil {
		return fmt.Errorf("hookgate/mongo: create rule: %w", err)
	}

	return nil
}

// GetRule returns a routing rule by ID.
func (s *Store) GetRule(ctx context.Context, ruleID id.ID) (*routing.Rule, error) {
	var m ruleModel

	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": ruleID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, hookgate.ErrRuleNotFound
		}

		return nil, fmt.Errorf("hookgate/mongo: get rule: %w", err)
	}

	return fromRuleModel(&m)
}

// UpdateRule rewrites the rule definition and leaves match statistics to
// RecordMatch.
func (s *Store) UpdateRule(ctx context.Context, r *routing.Rule) error {
	m := toRuleModel(r)

	res, err := s.mdb.NewUpdate((*ruleModel)(nil)).
		Filter(bson.M{"_id": m.ID}).
		Set("name", m.Name).
		Set("action", m.Action).
		Set("priority", m.Priority).
		Set("active", m.Active).
		Set("conditions", m.Conditions).
		Set("destinations", m.Destinations).
		Set("updated_at", m.UpdatedAt).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("hookgate/mongo: update rule: %w", err)
	}

	if res.MatchedCount() == 0 {
		return hookgate.ErrRuleNotFound
	}

	return nil
}

// DeleteRule removes a routing rule.
func (s *Store) DeleteRule(ctx context.Context, ruleID id.ID) error {
	res, err := s.mdb.NewDelete((*ruleModel)(nil)).
		Filter(bson.M{"_id": ruleID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("hookgate/mongo: delete rule: %w", err)
	}

	if res.DeletedCount() == 0 {
		return hookgate.ErrRuleNotFound
	}

	return nil
}

// ListRules returns an endpoint's rules in evaluation order.
func (s *Store) ListRules(ctx context.Context, endpointID id.ID) ([]*routing.Rule, error) {
	var models []ruleModel

	if err := s.mdb.NewFind(&models).
		Filter(bson.M{"endpoint_id": endpointID.String()}).
		Sort(byPriority).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("hookgate/mongo: list rules: %w", err)
	}

	return convert(models, fromRuleModel)
}

// RecordMatch increments a rule's match counter server-side.
func (s *Store) RecordMatch(ctx context.Context, ruleID id.ID, at time.Time) error {
	res, err := s.mdb.Collection(colRules).UpdateOne(ctx,
		bson.M{"_id": ruleID.String()},
		bson.M{
			"$inc": bson.M{"match_count": 1},
			"$set": bson.M{"last_matched_at": at},
		},
	)
	if err != nil {
		return fmt.Errorf("hookgate/mongo: record match: %w", err)
	}

	if res.MatchedCount == 0 {
		return hookgate.ErrRuleNotFound
	}

	return nil
}

// CreateTransformation persists a transformation.
func (s *Store) CreateTransformation(ctx context.Context, t *transform.Transformation) error {
	if _, err := s.mdb.NewInsert(toTransformationModel(t)).Exec(ctx); err != nil {
		return fmt.Errorf("hookgate/mongo: create transformation: %w", err)
	}

	return nil
}

// GetTransformation returns a transformation by ID.
func (s *Store) GetTransformation(ctx context.Context, transformID id.ID) (*transform.Transformation, error) {
	var m transformationModel

	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": transformID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, hookgate.ErrTransformationNotFound
		}

		return nil, fmt.Errorf("hookgate/mongo: get transformation: %w", err)
	}

	return fromTransformationModel(&m)
}

// UpdateTransformation replaces a transformation document.
func (s *Store) UpdateTransformation(ctx context.Context, t *transform.Transformation) error {
	m := toTransformationModel(t)

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("hookgate/mongo: update transformation: %w", err)
	}

	if res.MatchedCount() == 0 {
		return hookgate.ErrTransformationNotFound
	}

	return nil
}

// DeleteTransformation removes a transformation.
func (s *Store) DeleteTransformation(ctx context.Context, transformID id.ID) error {
	res, err := s.mdb.NewDelete((*transformationModel)(nil)).
		Filter(bson.M{"_id": transformID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("hookgate/mongo: delete transformation: %w", err)
	}

	if res.DeletedCount() == 0 {
		return hookgate.ErrTransformationNotFound
	}

	return nil
}

// ListTransformations returns an endpoint's transformations in pipeline order.
func (s *Store) ListTransformations(ctx context.Context, endpointID id.ID) ([]*transform.Transformation, error) {
	var models []transformationModel

	if err := s.mdb.NewFind(&models).
		Filter(bson.M{"endpoint_id": endpointID.String()}).
		Sort(byPriority).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("hookgate/mongo: list transformations: %w", err)
	}

	return convert(models, fromTransformationModel)
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/hookgate"
	"github.com/xraph/hookgate/delivery"
	"github.com/xraph/hookgate/dlq"
	"github.com/xraph/hookgate/endpoint"
	"github.com/xraph/hookgate/event"
	"github.com/xraph/hookgate/id"
	"github.com/xraph/hookgate/project"
	"github.com/xraph/hookgate/routing"
	hgstore "github.com/xraph/hookgate/store"
	"github.com/xraph/hookgate/transform"
)

// compile-time interface check
var _ hgstore.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("hookgate/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("%w: sqlite: %w", hookgate.ErrMigrationFailed, err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Project Store ====================

func (s *Store) CreateProject(ctx context.Context, p *project.Project) error {
	_, err := s.sdb.NewInsert(toProjectModel(p)).Exec(ctx)
	return err
}

func (s *Store) GetProject(ctx context.Context, projectID id.ID) (*project.Project, error) {
	m := new(projectModel)
	if err := s.sdb.NewSelect(m).Where("id = ?", projectID.String()).Scan(ctx); err != nil {
		if isNoRows(err) {
			return nil, hookgate.ErrProjectNotFound
		}
		return nil, err
	}
	return fromProjectModel(m)
}

func (s *Store) GetProjectByAPIKey(ctx context.Context, apiKey string) (*project.Project, error) {
	m := new(projectModel)
	if err := s.sdb.NewSelect(m).Where("api_key = ?", apiKey).Scan(ctx); err != nil {
		if isNoRows(err) {
			return nil, hookgate.ErrProjectNotFound
		}
		return nil, err
	}
	return fromProjectModel(m)
}

func (s *Store) UpdateProject(ctx context.Context, p *project.Project) error {
	m := toProjectModel(p)
	res, err := s.sdb.NewUpdate(m).WherePK().Exec(ctx)
	return affected(res, err, hookgate.ErrProjectNotFound)
}

func (s *Store) ListProjects(ctx context.Context, opts project.ListOpts) ([]*project.Project, error) {
	var models []projectModel
	q := s.sdb.NewSelect(&models)
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	if err := q.OrderExpr("created_at ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return convert(models, fromProjectModel)
}

// ==================== Endpoint Store ====================

func (s *Store) CreateEndpoint(ctx context.Context, ep *endpoint.Endpoint) error {
	_, err := s.sdb.NewInsert(toEndpointModel(ep)).Exec(ctx)
	return err
}

func (s *Store) GetEndpoint(ctx context.Context, epID id.ID) (*endpoint.Endpoint, error) {
	m := new(endpointModel)
	if err := s.sdb.NewSelect(m).Where("id = ?", epID.String()).Scan(ctx); err != nil {
		if isNoRows(err) {
			return nil, hookgate.ErrEndpointNotFound
		}
		return nil, err
	}
	return fromEndpointModel(m)
}

func (s *Store) UpdateEndpoint(ctx context.Context, ep *endpoint.Endpoint) error {
	res, err := s.sdb.NewUpdate(toEndpointModel(ep)).WherePK().Exec(ctx)
	return affected(res, err, hookgate.ErrEndpointNotFound)
}

func (s *Store) DeleteEndpoint(ctx context.Context, epID id.ID) error {
	res, err := s.sdb.NewDelete((*endpointModel)(nil)).
		Where("id = ?", epID.String()).
		Exec(ctx)
	return affected(res, err, hookgate.ErrEndpointNotFound)
}

func (s *Store) ListEndpoints(ctx context.Context, projectID id.ID, opts endpoint.ListOpts) ([]*endpoint.Endpoint, error) {
	var models []endpointModel
	q := s.sdb.NewSelect(&models).Where("project_id = ?", projectID.String())
	if opts.Active != nil {
		q = q.Where("active = ?", *opts.Active)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	if err := q.OrderExpr("created_at ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return convert(models, fromEndpointModel)
}

// ==================== Routing Rule Store ====================

func (s *Store) CreateRule(ctx context.Context, r *routing.Rule) error {
	_, err := s.sdb.NewInsert(toRuleModel(r)).Exec(ctx)
	return err
}

func (s *Store) GetRule(ctx context.Context, ruleID id.ID) (*routing.Rule, error) {
	m := new(ruleModel)
	if err := s.sdb.NewSelect(m).Where("id = ?", ruleID.String()).Scan(ctx); err != nil {
		if isNoRows(err) {
			return nil, hookgate.ErrRuleNotFound
		}
		return nil, err
	}
	return fromRuleModel(m)
}

// UpdateRule rewrites the rule definition. match_count and last_matched_at
// belong to RecordMatch and are left alone.
func (s *Store) UpdateRule(ctx context.Context, r *routing.Rule) error {
	m := toRuleModel(r)
	res, err := s.sdb.NewUpdate((*ruleModel)(nil)).
		Set("name = ?", m.Name).
		Set("action = ?", m.Action).
		Set("priority = ?", m.Priority).
		Set("active = ?", m.Active).
		Set("conditions = ?", m.Conditions).
		Set("destinations = ?", m.Destinations).
		Set("updated_at = ?", m.UpdatedAt).
		Where("id = ?", m.ID).
		Exec(ctx)
	return affected(res, err, hookgate.ErrRuleNotFound)
}

func (s *Store) DeleteRule(ctx context.Context, ruleID id.ID) error {
	res, err := s.sdb.NewDelete((*ruleModel)(nil)).
		Where("id = ?", ruleID.String()).
		Exec(ctx)
	return affected(res, err, hookgate.ErrRuleNotFound)
}

func (s *Store) ListRules(ctx context.Context, endpointID id.ID) ([]*routing.Rule, error) {
	var models []ruleModel
	if err := s.sdb.NewSelect(&models).
		Where("endpoint_id = ?", endpointID.String()).
		OrderExpr("priority ASC, created_at ASC").
		Scan(ctx); err != nil {
		return nil, err
	}
	return convert(models, fromRuleModel)
}

func (s *Store) RecordMatch(ctx context.Context, ruleID id.ID, at time.Time) error {
	res, err := s.sdb.NewUpdate((*ruleModel)(nil)).
		Set("match_count = match_count + 1").
		Set("last_matched_at = ?", at).
		Where("id = ?", ruleID.String()).
		Exec(ctx)
	return affected(res, err, hookgate.ErrRuleNotFound)
}

// ==================== Transformation Store ====================

func (s *Store) CreateTransformation(ctx context.Context, t *transform.Transformation) error {
	_, err := s.sdb.NewInsert(toTransformationModel(t)).Exec(ctx)
	return err
}

func (s *Store) GetTransformation(ctx context.Context, transformID id.ID) (*transform.Transformation, error) {
	m := new(transformationModel)
	if err := s.sdb.NewSelect(m).Where("id = ?", transformID.String()).Scan(ctx); err != nil {
		if isNoRows(err) {
			return nil, hookgate.ErrTransformationNotFound
		}
		return nil, err
	}
	return fromTransformationModel(m)
}

func (s *Store) UpdateTransformation(ctx context.Context, t *transform.Transformation) error {
	res, err := s.sdb.NewUpdate(toTransformationModel(t)).WherePK().Exec(ctx)
	return affected(res, err, hookgate.ErrTransformationNotFound)
}

func (s *Store) DeleteTransformation(ctx context.Context, transformID id.ID) error {
	res, err := s.sdb.NewDelete((*transformationModel)(nil)).
		Where("id = ?", transformID.String()).
		Exec(ctx)
	return affected(res, err, hookgate.ErrTransformationNotFound)
}

func (s *Store) ListTransformations(ctx context.Context, endpointID id.ID) ([]*transform.Transformation, error) {
	var models []transformationModel
	if err := s.sdb.NewSelect(&models).
		Where("endpoint_id = ?", endpointID.String()).
		OrderExpr("priority ASC, created_at ASC").
		Scan(ctx); err != nil {
		return nil, err
	}
	return convert(models, fromTransformationModel)
}

// ==================== Event Store ====================

func (s *Store) CreateEvent(ctx context.Context, evt *event.Event) error {
	_, err := s.sdb.NewInsert(toEventModel(evt)).Exec(ctx)
	return err
}

func (s *Store) GetEvent(ctx context.Context, evtID id.ID) (*event.Event, error) {
	m := new(eventModel)
	if err := s.sdb.NewSelect(m).Where("id = ?", evtID.String()).Scan(ctx); err != nil {
		if isNoRows(err) {
			return nil, hookgate.ErrEventNotFound
		}
		return nil, err
	}
	return fromEventModel(m)
}

func (s *Store) ListEvents(ctx context.Context, opts event.ListOpts) ([]*event.Event, error) {
	var models []eventModel
	q := s.sdb.NewSelect(&models)

	if !opts.ProjectID.IsNil() {
		q = q.Where("project_id = ?", opts.ProjectID.String())
	}
	if !opts.EndpointID.IsNil() {
		q = q.Where("endpoint_id = ?", opts.EndpointID.String())
	}
	if opts.Status != nil {
		q = q.Where("status = ?", string(*opts.Status))
	}
	if opts.Type != "" {
		q = q.Where("type = ?", opts.Type)
	}
	if opts.From != nil {
		q = q.Where("created_at >= ?", *opts.From)
	}
	if opts.To != nil {
		q = q.Where("created_at <= ?", *opts.To)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	if err := q.OrderExpr("created_at DESC").Scan(ctx); err != nil {
		return nil, err
	}
	return convert(models, fromEventModel)
}

func (s *Store) UpdateEvent(ctx context.Context, evt *event.Event) error {
	res, err := s.sdb.NewUpdate(toEventModel(evt)).WherePK().Exec(ctx)
	return affected(res, err, hookgate.ErrEventNotFound)
}

func (s *Store) DueEvents(ctx context.Context, now, staleBefore time.Time, limit int) ([]*event.Event, error) {
	var models []eventModel
	q := s.sdb.NewSelect(&models).
		Where(`(status IN ('pending', 'failed') AND next_attempt_at <= ?)
			OR (status = 'processing' AND (last_attempt_at IS NULL OR last_attempt_at < ?))`, now, staleBefore).
		OrderExpr("next_attempt_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return convert(models, fromEventModel)
}

// BeginAttempt claims the event with a single conditional UPDATE. SQLite
// serializes writers, so the statement cannot interleave with another claim.
func (s *Store) BeginAttempt(ctx context.Context, evtID id.ID, now, staleBefore time.Time) (*event.Event, error) {
	var models []eventModel
	err := s.sdb.NewRaw(`
		UPDATE hookgate_events
		SET status = 'processing',
		    delivery_attempts = delivery_attempts + 1,
		    last_attempt_at = ?,
		    updated_at = ?
		WHERE id = ?
		  AND ((status IN ('pending', 'failed') AND next_attempt_at <= ?)
		       OR (status = 'processing' AND (last_attempt_at IS NULL OR last_attempt_at < ?)))
		RETURNING *
	`, now, now, evtID.String(), now, staleBefore).Scan(ctx, &models)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		if _, err := s.GetEvent(ctx, evtID); err != nil {
			return nil, err
		}
		return nil, event.ErrNotClaimable
	}
	return fromEventModel(&models[0])
}

func (s *Store) CountEvents(ctx context.Context, status event.Status) (int64, error) {
	return s.sdb.NewSelect((*eventModel)(nil)).
		Where("status = ?", string(status)).
		Count(ctx)
}

// ==================== Delivery Ledger Store ====================

func (s *Store) RecordDelivery(ctx context.Context, d *delivery.EventDelivery) error {
	_, err := s.sdb.NewInsert(toDeliveryModel(d)).Exec(ctx)
	return err
}

func (s *Store) ListDeliveries(ctx context.Context, evtID id.ID) ([]*delivery.EventDelivery, error) {
	var models []deliveryModel
	if err := s.sdb.NewSelect(&models).
		Where("event_id = ?", evtID.String()).
		OrderExpr("attempted_at ASC, id ASC").
		Scan(ctx); err != nil {
		return nil, err
	}
	return convert(models, fromDeliveryModel)
}

func (s *Store) CountDeliveries(ctx context.Context, evtID id.ID, destination string) (int, error) {
	n, err := s.sdb.NewSelect((*deliveryModel)(nil)).
		Where("event_id = ?", evtID.String()).
		Where("destination = ?", destination).
		Count(ctx)
	return int(n), err
}

// ==================== DLQ Store ====================

func (s *Store) Push(ctx context.Context, entry *dlq.Entry) error {
	_, err := s.sdb.NewInsert(toDLQEntryModel(entry)).Exec(ctx)
	return err
}

func (s *Store) ListDLQ(ctx context.Context, opts dlq.ListOpts) ([]*dlq.Entry, error) {
	var models []dlqEntryModel
	q := s.sdb.NewSelect(&models)

	if !opts.ProjectID.IsNil() {
		q = q.Where("project_id = ?", opts.ProjectID.String())
	}
	if !opts.EndpointID.IsNil() {
		q = q.Where("endpoint_id = ?", opts.EndpointID.String())
	}
	if opts.From != nil {
		q = q.Where("failed_at >= ?", *opts.From)
	}
	if opts.To != nil {
		q = q.Where("failed_at <= ?", *opts.To)
	}
	if opts.Pending {
		q = q.Where("replayed_at IS NULL")
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	if err := q.OrderExpr("failed_at DESC").Scan(ctx); err != nil {
		return nil, err
	}
	return convert(models, fromDLQEntryModel)
}

func (s *Store) GetDLQ(ctx context.Context, dlqID id.ID) (*dlq.Entry, error) {
	m := new(dlqEntryModel)
	if err := s.sdb.NewSelect(m).Where("id = ?", dlqID.String()).Scan(ctx); err != nil {
		if isNoRows(err) {
			return nil, hookgate.ErrDLQNotFound
		}
		return nil, err
	}
	return fromDLQEntryModel(m)
}

func (s *Store) MarkReplayed(ctx context.Context, dlqID id.ID, at time.Time) error {
	res, err := s.sdb.NewUpdate((*dlqEntryModel)(nil)).
		Set("replayed_at = ?", at).
		Set("updated_at = ?", at).
		Where("id = ?", dlqID.String()).
		Exec(ctx)
	return affected(res, err, hookgate.ErrDLQNotFound)
}

func (s *Store) Purge(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.sdb.NewDelete((*dlqEntryModel)(nil)).
		Where("failed_at < ?", before).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) CountDLQ(ctx context.Context) (int64, error) {
	return s.sdb.NewSelect((*dlqEntryModel)(nil)).Count(ctx)
}

// ==================== Helpers ====================

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

type rowsResult interface {
	RowsAffected() (int64, error)
}

// affected maps "no row touched" to notFound.
func affected(res rowsResult, err, notFound error) error {
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return notFound
	}
	return nil
}

func convert[M, T any](models []M, from func(*M) (*T, error)) ([]*T, error) {
	result := make([]*T, len(models))
	for i := range models {
		v, err := from(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = v
	}
	return result, nil
}

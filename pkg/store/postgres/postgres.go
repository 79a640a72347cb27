// Package postgres implements store.Store against a Postgres database
// migrated by pkg/migrator. Tuples live in a single wide table indexed for
// every lookup shape the evaluator issues; RelationConfig and
// ConditionDefinition records are stored as JSON documents, since they are
// read wholesale and never queried by sub-field.
//
// Querier is the minimal interface this package depends on: a *sql.DB,
// *sql.Tx, or *sql.Conn all satisfy it, so a caller can run a Store inside
// a transaction it controls (a request handler wrapping check + AddTuple
// in one commit, for instance).
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/relauth/relauth/pkg/schema"
	"github.com/relauth/relauth/pkg/tuple"
)

// Querier is the minimal *sql.DB-shaped interface Store needs.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements store.Store against a Postgres database.
type Store struct {
	db Querier
}

// New returns a Store over db. The schema must already be migrated
// (pkg/migrator.Migrate).
func New(db Querier) *Store {
	return &Store{db: db}
}

func (s *Store) FindDirectTuple(ctx context.Context, objectType, objectID, relation, subjectType, subjectID string) (tuple.Tuple, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT object_type, object_id, relation, subject_type, subject_id, subject_relation, condition_name, condition_context
		FROM relauth_tuples
		WHERE object_type = $1 AND object_id = $2 AND relation = $3
		  AND subject_type = $4 AND subject_id = $5 AND subject_relation = ''
	`, objectType, objectID, relation, subjectType, subjectID)
	t, err := scanTuple(row)
	if err == sql.ErrNoRows {
		return tuple.Tuple{}, false, nil
	}
	if err != nil {
		return tuple.Tuple{}, false, fmt.Errorf("postgres: finding direct tuple: %w", err)
	}
	return t, true, nil
}

func (s *Store) FindUsersetTuples(ctx context.Context, objectType, objectID, relation string) ([]tuple.Tuple, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT object_type, object_id, relation, subject_type, subject_id, subject_relation, condition_name, condition_context
		FROM relauth_tuples
		WHERE object_type = $1 AND object_id = $2 AND relation = $3 AND subject_relation <> ''
	`, objectType, objectID, relation)
	if err != nil {
		return nil, fmt.Errorf("postgres: finding userset tuples: %w", err)
	}
	return scanTuples(rows)
}

func (s *Store) FindTuplesByRelation(ctx context.Context, objectType, objectID, relation string) ([]tuple.Tuple, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT object_type, object_id, relation, subject_type, subject_id, subject_relation, condition_name, condition_context
		FROM relauth_tuples
		WHERE object_type = $1 AND object_id = $2 AND relation = $3
	`, objectType, objectID, relation)
	if err != nil {
		return nil, fmt.Errorf("postgres: finding tuples by relation: %w", err)
	}
	return scanTuples(rows)
}

func (s *Store) InsertTuple(ctx context.Context, t tuple.Tuple) error {
	var conditionContext any
	if t.ConditionContext != nil {
		b, err := json.Marshal(t.ConditionContext)
		if err != nil {
			return fmt.Errorf("postgres: marshaling condition context: %w", err)
		}
		conditionContext = b
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO relauth_tuples
			(object_type, object_id, relation, subject_type, subject_id, subject_relation, condition_name, condition_context)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (object_type, object_id, relation, subject_type, subject_id, subject_relation)
		DO UPDATE SET condition_name = EXCLUDED.condition_name, condition_context = EXCLUDED.condition_context
	`, t.Object.Type, t.Object.ID, t.Relation, t.Subject.Type, t.Subject.ID, t.Subject.Relation, t.ConditionName, conditionContext)
	if err != nil {
		return fmt.Errorf("postgres: inserting tuple: %w", err)
	}
	return nil
}

func (s *Store) DeleteTuple(ctx context.Context, id tuple.Identity) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM relauth_tuples
		WHERE object_type = $1 AND object_id = $2 AND relation = $3
		  AND subject_type = $4 AND subject_id = $5 AND subject_relation = $6
	`, id.ObjectType, id.ObjectID, id.Relation, id.SubjectType, id.SubjectID, id.SubjectRelation)
	if err != nil {
		return false, fmt.Errorf("postgres: deleting tuple: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("postgres: checking delete result: %w", err)
	}
	return n > 0, nil
}

func (s *Store) ListCandidateObjectIDs(ctx context.Context, objectType string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT object_id FROM relauth_tuples WHERE object_type = $1 ORDER BY object_id
	`, objectType)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing candidate object ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("postgres: scanning object id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) ListDirectSubjects(ctx context.Context, objectType, objectID, relation string) ([]tuple.SubjectRef, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT subject_type, subject_id, subject_relation
		FROM relauth_tuples
		WHERE object_type = $1 AND object_id = $2 AND relation = $3
	`, objectType, objectID, relation)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing direct subjects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []tuple.SubjectRef
	for rows.Next() {
		var ref tuple.SubjectRef
		if err := rows.Scan(&ref.Type, &ref.ID, &ref.Relation); err != nil {
			return nil, fmt.Errorf("postgres: scanning subject: %w", err)
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

func (s *Store) FindRelationConfig(ctx context.Context, objectType, relation string) (schema.RelationConfig, bool, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT config FROM relauth_relation_configs WHERE object_type = $1 AND relation = $2
	`, objectType, relation).Scan(&raw)
	if err == sql.ErrNoRows {
		return schema.RelationConfig{}, false, nil
	}
	if err != nil {
		return schema.RelationConfig{}, false, fmt.Errorf("postgres: finding relation config: %w", err)
	}
	var cfg schema.RelationConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return schema.RelationConfig{}, false, fmt.Errorf("postgres: unmarshaling relation config: %w", err)
	}
	return cfg, true, nil
}

func (s *Store) FindConditionDefinition(ctx context.Context, name string) (schema.ConditionDefinition, bool, error) {
	var expression string
	var paramsRaw []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT parameters, expression FROM relauth_condition_definitions WHERE name = $1
	`, name).Scan(&paramsRaw, &expression)
	if err == sql.ErrNoRows {
		return schema.ConditionDefinition{}, false, nil
	}
	if err != nil {
		return schema.ConditionDefinition{}, false, fmt.Errorf("postgres: finding condition definition: %w", err)
	}
	var params map[string]schema.ParamType
	if err := json.Unmarshal(paramsRaw, &params); err != nil {
		return schema.ConditionDefinition{}, false, fmt.Errorf("postgres: unmarshaling condition parameters: %w", err)
	}
	return schema.ConditionDefinition{Name: name, Parameters: params, Expression: expression}, true, nil
}

func (s *Store) UpsertRelationConfig(ctx context.Context, cfg schema.RelationConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("postgres: marshaling relation config: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO relauth_relation_configs (object_type, relation, config)
		VALUES ($1, $2, $3)
		ON CONFLICT (object_type, relation) DO UPDATE SET config = EXCLUDED.config
	`, cfg.ObjectType, cfg.Relation, raw)
	if err != nil {
		return fmt.Errorf("postgres: upserting relation config: %w", err)
	}
	return nil
}

func (s *Store) DeleteRelationConfig(ctx context.Context, objectType, relation string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM relauth_relation_configs WHERE object_type = $1 AND relation = $2
	`, objectType, relation)
	if err != nil {
		return false, fmt.Errorf("postgres: deleting relation config: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("postgres: checking delete result: %w", err)
	}
	return n > 0, nil
}

func (s *Store) UpsertConditionDefinition(ctx context.Context, def schema.ConditionDefinition) error {
	raw, err := json.Marshal(def.Parameters)
	if err != nil {
		return fmt.Errorf("postgres: marshaling condition parameters: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO relauth_condition_definitions (name, parameters, expression)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET parameters = EXCLUDED.parameters, expression = EXCLUDED.expression
	`, def.Name, raw, def.Expression)
	if err != nil {
		return fmt.Errorf("postgres: upserting condition definition: %w", err)
	}
	return nil
}

func (s *Store) DeleteConditionDefinition(ctx context.Context, name string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM relauth_condition_definitions WHERE name = $1`, name)
	if err != nil {
		return false, fmt.Errorf("postgres: deleting condition definition: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("postgres: checking delete result: %w", err)
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTuple(row rowScanner) (tuple.Tuple, error) {
	var t tuple.Tuple
	var conditionContext []byte
	err := row.Scan(&t.Object.Type, &t.Object.ID, &t.Relation, &t.Subject.Type, &t.Subject.ID, &t.Subject.Relation, &t.ConditionName, &conditionContext)
	if err != nil {
		return tuple.Tuple{}, err
	}
	if len(conditionContext) > 0 {
		if err := json.Unmarshal(conditionContext, &t.ConditionContext); err != nil {
			return tuple.Tuple{}, fmt.Errorf("unmarshaling condition context: %w", err)
		}
	}
	return t, nil
}

func scanTuples(rows *sql.Rows) ([]tuple.Tuple, error) {
	defer func() { _ = rows.Close() }()
	var out []tuple.Tuple
	for rows.Next() {
		t, err := scanTuple(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scanning tuple: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

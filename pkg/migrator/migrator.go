// Package migrator applies the Postgres schema pkg/store/postgres depends
// on: three tables (tuples, relation configs, condition definitions) and
// their secondary indexes. It is deliberately DDL-only -- the check
// evaluator lives in Go (pkg/check), so the database only needs to store
// rows, not compute decisions.
package migrator

import (
	"context"
	"fmt"
	"io"
)

// schemaDDL creates the three tables and four secondary indexes the
// Postgres store needs. Every statement is idempotent so migration is safe
// to run on every application startup.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS relauth_tuples (
	object_type       text NOT NULL,
	object_id         text NOT NULL,
	relation          text NOT NULL,
	subject_type      text NOT NULL,
	subject_id        text NOT NULL,
	subject_relation  text NOT NULL DEFAULT '',
	condition_name    text NOT NULL DEFAULT '',
	condition_context jsonb,
	created_at        timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (object_type, object_id, relation, subject_type, subject_id, subject_relation)
);

CREATE INDEX IF NOT EXISTS idx_relauth_tuples_lookup
	ON relauth_tuples (object_type, object_id, relation);

CREATE INDEX IF NOT EXISTS idx_relauth_tuples_object_type
	ON relauth_tuples (object_type);

CREATE INDEX IF NOT EXISTS idx_relauth_tuples_subject
	ON relauth_tuples (subject_type, subject_id);

CREATE INDEX IF NOT EXISTS idx_relauth_tuples_condition
	ON relauth_tuples (condition_name)
	WHERE condition_name <> '';

CREATE TABLE IF NOT EXISTS relauth_relation_configs (
	object_type text NOT NULL,
	relation    text NOT NULL,
	config      jsonb NOT NULL,
	PRIMARY KEY (object_type, relation)
);

CREATE TABLE IF NOT EXISTS relauth_condition_definitions (
	name       text PRIMARY KEY,
	parameters jsonb NOT NULL,
	expression text NOT NULL
);
`

// Migrator applies the relauth schema to a Postgres database. It is
// idempotent -- safe to run on every application startup.
type Migrator struct {
	db Execer
}

// New returns a Migrator over db, typically *sql.DB but may be *sql.Tx in
// tests that want to roll back afterward.
func New(db Execer) *Migrator {
	return &Migrator{db: db}
}

// Apply creates the schema if it does not already exist.
func (m *Migrator) Apply(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("migrator: applying schema: %w", err)
	}
	return nil
}

// DryRun writes the DDL that Apply would run to w, without touching the
// database. Useful for generating a migration file to check into a
// separate migration tool's history.
func (m *Migrator) DryRun(w io.Writer) error {
	_, err := fmt.Fprint(w, schemaDDL)
	return err
}

// Status reports whether the relauth tables already exist.
type Status struct {
	TuplesTableExists            bool
	RelationConfigsTableExists   bool
	ConditionDefsTableExists     bool
}

// GetStatus inspects pg_class for the three relauth tables.
func (m *Migrator) GetStatus(ctx context.Context) (*Status, error) {
	status := &Status{}
	for table, dst := range map[string]*bool{
		"relauth_tuples":                &status.TuplesTableExists,
		"relauth_relation_configs":      &status.RelationConfigsTableExists,
		"relauth_condition_definitions": &status.ConditionDefsTableExists,
	} {
		var exists bool
		err := m.db.QueryRowContext(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM pg_class c
				JOIN pg_namespace n ON n.oid = c.relnamespace
				WHERE c.relname = $1
				AND n.nspname = current_schema()
				AND c.relkind = 'r'
			)
		`, table).Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("migrator: checking table %s: %w", table, err)
		}
		*dst = exists
	}
	return status, nil
}

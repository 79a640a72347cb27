package main

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/relauth/relauth/internal/cli"
	"github.com/relauth/relauth/pkg/parser"
	"github.com/relauth/relauth/pkg/schema"
	"github.com/relauth/relauth/pkg/store"
	"github.com/relauth/relauth/pkg/store/memory"
	"github.com/relauth/relauth/pkg/store/postgres"
)

// openStore builds the store.Store configured in cfg.Store, loading the
// schema file into it when the backend doesn't persist schema itself (the
// memory store has no separate schema table; Postgres does, populated by
// "relauth migrate" instead). It returns the underlying *sql.DB too, non-nil
// only for the postgres backend, so callers that need raw DB access
// (doctor) don't open a second connection.
func openStore(ctx context.Context, schemaPath string) (store.Store, *sql.DB, error) {
	switch cfg.Store {
	case "", "memory":
		st := memory.New()
		relations, conditions, err := parser.ParseSchema(schemaPath)
		if err != nil {
			return nil, nil, cli.SchemaParseError(fmt.Sprintf("parsing schema %s", schemaPath), err)
		}
		for _, rel := range relations {
			if err := st.UpsertRelationConfig(ctx, rel); err != nil {
				return nil, nil, fmt.Errorf("loading relation config %s#%s: %w", rel.ObjectType, rel.Relation, err)
			}
		}
		for _, def := range conditions {
			if err := st.UpsertConditionDefinition(ctx, def); err != nil {
				return nil, nil, fmt.Errorf("loading condition definition %s: %w", def.Name, err)
			}
		}
		return st, nil, nil

	case "postgres":
		dsn, err := resolveDSN("")
		if err != nil {
			return nil, nil, err
		}
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, nil, cli.DBConnectError("opening database connection", err)
		}
		if err := db.PingContext(ctx); err != nil {
			return nil, nil, cli.DBConnectError("connecting to database", err)
		}
		return postgres.New(db), db, nil

	default:
		return nil, nil, cli.ConfigError(fmt.Sprintf("unknown store backend %q (expected \"memory\" or \"postgres\")", cfg.Store), nil)
	}
}

// registryFromSchema parses schemaPath into a schema.Registry, for commands
// that only need to inspect the model rather than evaluate against a store.
func registryFromSchema(schemaPath string) (*schema.Registry, []schema.RelationConfig, []schema.ConditionDefinition, error) {
	relations, conditions, err := parser.ParseSchema(schemaPath)
	if err != nil {
		return nil, nil, nil, err
	}
	reg := schema.NewRegistry()
	for _, rel := range relations {
		reg.UpsertRelationConfig(rel)
	}
	for _, def := range conditions {
		reg.UpsertConditionDefinition(def)
	}
	return reg, relations, conditions, nil
}

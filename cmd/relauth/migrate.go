package main

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/relauth/relauth/internal/cli"
	"github.com/relauth/relauth/pkg/migrator"
	"github.com/relauth/relauth/pkg/parser"
	"github.com/relauth/relauth/pkg/store/postgres"
)

var (
	migrateDryRun bool
	migrateDSN    string
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the Postgres schema, then load the schema file's relations and conditions",
	Long: `migrate creates the relauth_tuples, relauth_relation_configs, and
relauth_condition_definitions tables if they don't already exist, then
pushes every RelationConfig and ConditionDefinition parsed from the schema
file into the corresponding table, replacing whatever was there before.

Unlike the dynamic SQL-function generation this command's ancestor used,
relation evaluation always runs in the relauth process -- migrate only
ever issues DDL and idempotent upserts, never generates or replaces
stored procedures.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		dryRun := resolveBool(migrateDryRun, cfg.Migrate.DryRun)
		if dryRun {
			m := migrator.New((*sql.DB)(nil))
			return m.DryRun(os.Stdout)
		}

		dsn, err := resolveDSN(migrateDSN)
		if err != nil {
			return err
		}
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			return cli.DBConnectError("opening database connection", err)
		}
		defer db.Close()

		if err := db.PingContext(ctx); err != nil {
			return cli.DBConnectError("connecting to database", err)
		}

		if err := migrator.Migrate(ctx, db); err != nil {
			return fmt.Errorf("applying schema migration: %w", err)
		}
		fmt.Println("Applied relauth_tuples, relauth_relation_configs, relauth_condition_definitions")

		schemaPath := resolveString(schemaFlag, cfg.Schema)
		relations, conditions, err := parser.ParseSchema(schemaPath)
		if err != nil {
			return cli.SchemaParseError(fmt.Sprintf("parsing schema %s", schemaPath), err)
		}

		st := postgres.New(db)
		for _, rel := range relations {
			if err := st.UpsertRelationConfig(ctx, rel); err != nil {
				return fmt.Errorf("writing relation config %s#%s: %w", rel.ObjectType, rel.Relation, err)
			}
		}
		for _, def := range conditions {
			if err := st.UpsertConditionDefinition(ctx, def); err != nil {
				return fmt.Errorf("writing condition definition %s: %w", def.Name, err)
			}
		}

		fmt.Printf("Loaded %d relation(s) and %d condition definition(s) from %s\n",
			len(relations), len(conditions), schemaPath)
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "print the DDL without applying it or loading the schema")
	migrateCmd.Flags().StringVar(&migrateDSN, "db", "", "database connection string (default: config's database settings)")
}

package main

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/relauth/relauth/internal/cli"
	"github.com/relauth/relauth/pkg/migrator"
)

var statusDSN string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report which relauth tables exist in the configured Postgres database",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		dsn, err := resolveDSN(statusDSN)
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

		status, err := migrator.New(db).GetStatus(ctx)
		if err != nil {
			return fmt.Errorf("getting migration status: %w", err)
		}

		printTable := func(name string, exists bool) {
			mark := "missing"
			if exists {
				mark = "present"
			}
			fmt.Printf("  %-32s %s\n", name, mark)
		}
		fmt.Println("Tables:")
		printTable("relauth_tuples", status.TuplesTableExists)
		printTable("relauth_relation_configs", status.RelationConfigsTableExists)
		printTable("relauth_condition_definitions", status.ConditionDefsTableExists)

		if !status.TuplesTableExists || !status.RelationConfigsTableExists || !status.ConditionDefsTableExists {
			fmt.Println("\nRun 'relauth migrate' to create missing tables.")
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusDSN, "db", "", "database connection string (default: config's database settings)")
}

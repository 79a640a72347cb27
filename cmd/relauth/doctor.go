package main

import (
	"github.com/spf13/cobra"

	"github.com/relauth/relauth/internal/cli"
	"github.com/relauth/relauth/internal/doctor"
)

var doctorVerbose bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose a relauth deployment: schema validity, migration state, and data health",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		schemaPath := resolveString(schemaFlag, cfg.Schema)

		st, db, err := openStore(ctx, schemaPath)
		if err != nil {
			return err
		}
		if db != nil {
			defer db.Close()
		}

		d := doctor.New(db, st, schemaPath)
		report, err := d.Run(ctx)
		if err != nil {
			return err
		}

		report.Print(cmd.OutOrStdout(), resolveBool(doctorVerbose, verbose > 0))

		if report.HasErrors() {
			return &cli.ExitError{Code: cli.ExitGeneral, Message: "one or more health checks failed"}
		}
		return nil
	},
}

func init() {
	doctorCmd.PersistentFlags().StringVar(&schemaFlag, "schema", "", "path to schema file (default: config's schema path)")
	doctorCmd.Flags().BoolVar(&doctorVerbose, "verbose", false, "show check details")
}

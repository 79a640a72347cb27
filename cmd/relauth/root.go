package main

import (
	"github.com/spf13/cobra"

	"github.com/relauth/relauth/internal/cli"
)

var (
	// Global state set during PersistentPreRunE
	cfg        *cli.Config
	configPath string

	// Persistent flags
	cfgFile string
	verbose int
	quiet   bool
)

var rootCmd = &cobra.Command{
	Use:   "relauth",
	Short: "A Zanzibar-style relationship-based authorization service",
	Long: `relauth - relationship-based authorization

relauth evaluates "does subject S hold relation R on object O" against a
schema of relations and a store of relationship tuples, following the
Zanzibar check algorithm: direct tuples, userset unions, tuple-to-userset
rewrites, intersection, and exclusion.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "version" {
			return nil
		}

		var err error
		cfg, configPath, err = cli.LoadConfig(cfgFile)
		if err != nil {
			return cli.ConfigError("loading configuration", err)
		}
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Command group IDs
const (
	groupSchema  = "schema"
	groupData    = "data"
	groupUtility = "utility"
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: auto-discover relauth.yaml)")
	rootCmd.PersistentFlags().CountVarP(&verbose, "verbose", "v", "increase verbosity (can be repeated)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")

	rootCmd.AddGroup(
		&cobra.Group{ID: groupSchema, Title: "Schema:"},
		&cobra.Group{ID: groupData, Title: "Data:"},
		&cobra.Group{ID: groupUtility, Title: "Utility:"},
	)

	schemaCmd.GroupID = groupSchema
	migrateCmd.GroupID = groupSchema
	statusCmd.GroupID = groupSchema
	doctorCmd.GroupID = groupSchema
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(doctorCmd)

	checkCmd.GroupID = groupData
	tupleCmd.GroupID = groupData
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(tupleCmd)

	configCmd.GroupID = groupUtility
	versionCmd.GroupID = groupUtility
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		cli.ExitWithError(err)
	}
}

// resolveString returns the first non-empty string from the provided values.
// Used to implement precedence: flag > config > default.
func resolveString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// resolveBool returns true if any of the provided values is true.
func resolveBool(values ...bool) bool {
	for _, v := range values {
		if v {
			return true
		}
	}
	return false
}

func resolveDSN(flagDSN string) (string, error) {
	if flagDSN != "" {
		return flagDSN, nil
	}
	dsn, err := cfg.DSN()
	if err != nil {
		return "", cli.ConfigError("database configuration", err)
	}
	if dsn == "" {
		return "", cli.ConfigError("database URL is required (use --db or set database.* in config)", nil)
	}
	return dsn, nil
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/relauth/relauth/internal/cli"
	"github.com/relauth/relauth/pkg/parser"
	"github.com/relauth/relauth/pkg/schema"
)

var schemaFlag string

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Inspect and validate the authorization model",
}

var schemaValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Parse the schema file and report relation and condition counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := resolveString(schemaFlag, cfg.Schema)
		relations, conditions, err := parser.ParseSchema(path)
		if err != nil {
			return cli.SchemaParseError(fmt.Sprintf("parsing schema %s", path), err)
		}

		byType := make(map[string]int)
		for _, rel := range relations {
			byType[rel.ObjectType]++
		}

		fmt.Printf("Schema %s is valid\n", path)
		fmt.Printf("  %d object type(s), %d relation(s), %d condition definition(s)\n",
			len(byType), len(relations), len(conditions))
		return nil
	},
}

var schemaLintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Check the relation graph for cycles",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := resolveString(schemaFlag, cfg.Schema)
		registry, _, _, err := registryFromSchema(path)
		if err != nil {
			return cli.SchemaParseError(fmt.Sprintf("parsing schema %s", path), err)
		}

		cycles := schema.Lint(registry)
		if len(cycles) == 0 {
			fmt.Println("No cyclic relation references found")
			return nil
		}

		fmt.Printf("Found %d cyclic relation reference(s):\n", len(cycles))
		for _, c := range cycles {
			fmt.Printf("  %s\n", c.String())
		}
		return &cli.ExitError{Code: cli.ExitSchemaParse, Message: "schema has cycles"}
	},
}

func init() {
	schemaCmd.PersistentFlags().StringVar(&schemaFlag, "schema", "", "path to schema file (default: config's schema path)")
	schemaCmd.AddCommand(schemaValidateCmd, schemaLintCmd)
}

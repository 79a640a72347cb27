package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/relauth/relauth/internal/cli"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the effective configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration after merging flags, environment, and config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if configPath != "" {
			fmt.Printf("# loaded from %s\n", configPath)
		} else {
			fmt.Println("# no config file found; using defaults and environment variables")
		}

		out, err := yaml.Marshal(cfg)
		if err != nil {
			return cli.GeneralError("marshaling configuration", err)
		}
		fmt.Print(string(out))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
}

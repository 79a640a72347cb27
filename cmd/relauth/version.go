package main

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/relauth/relauth/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the relauth version",
	RunE: func(cmd *cobra.Command, args []string) error {
		if version.Short() == "dev" {
			if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
				fmt.Printf("relauth %s\n", info.Main.Version)
				return nil
			}
		}
		fmt.Println(version.Info())
		return nil
	},
}

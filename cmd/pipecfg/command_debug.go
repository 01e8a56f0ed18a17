package main

import (
	"fmt"

	"github.com/sourceplane/pipecfg/internal/render"
	"github.com/spf13/cobra"
)

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Dump the indexed settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		return debugSettings(cmd)
	},
}

func registerDebugCommand(root *cobra.Command) {
	root.AddCommand(debugCmd)
}

func debugSettings(cmd *cobra.Command) error {
	result, err := loadSettings(cmd.Context(), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	printIssues(cmd.OutOrStdout(), result.Issues)
	if result.Normalized == nil {
		return fmt.Errorf("settings could not be indexed")
	}

	fmt.Println(render.NewExporter(result.Normalized, result.Analyzer).DebugDump())
	return nil
}

package main

import (
	"fmt"
	"strings"

	"github.com/sourceplane/pipecfg/internal/render"
	"github.com/spf13/cobra"
)

var viewCmd = &cobra.Command{
	Use:   "view [tree|dependencies|buildtype=ID]",
	Short: "Show the settings tree",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode := "tree"
		if len(args) > 0 {
			mode = args[0]
		}
		return viewSettings(cmd, mode)
	},
}

func registerViewCommand(root *cobra.Command) {
	root.AddCommand(viewCmd)
}

func viewSettings(cmd *cobra.Command, mode string) error {
	result, err := loadSettings(cmd.Context(), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if result.Normalized == nil {
		printIssues(cmd.OutOrStdout(), result.Issues)
		return fmt.Errorf("settings could not be indexed")
	}

	viewer := render.NewSettingsViewer(result.Normalized, result.Analyzer)
	var output string

	switch {
	case mode == "tree":
		output = viewer.ViewTree()
	case mode == "dependencies":
		output, err = viewer.ViewDependencies()
	case strings.HasPrefix(mode, "buildtype="):
		output, err = viewer.ViewBuildType(strings.TrimPrefix(mode, "buildtype="))
	default:
		return fmt.Errorf("unknown view %q (use tree, dependencies or buildtype=ID)", mode)
	}
	if err != nil {
		return err
	}

	fmt.Println("\n" + output)
	return nil
}

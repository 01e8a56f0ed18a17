package main

import (
	"fmt"

	"github.com/sourceplane/pipecfg/internal/rules"
	"github.com/spf13/cobra"
)

var rulesCmd = &cobra.Command{
	Use:   "rules <buildTypeId> <path>...",
	Short: "Show which rules of a build type include a path",
	Long:  "Match each path against the checkout, artifact and report rules of the effective build type. The last matching rule wins.",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return matchRules(cmd, args[0], args[1:])
	},
}

func registerRulesCommand(root *cobra.Command) {
	root.AddCommand(rulesCmd)
}

func matchRules(cmd *cobra.Command, id string, paths []string) error {
	out := cmd.OutOrStdout()
	result, err := loadValidSettings(cmd.Context(), out)
	if err != nil {
		return err
	}

	eff, err := result.Analyzer.BuildType(id)
	if err != nil {
		return err
	}

	for _, path := range paths {
		results, err := rules.MatchBuildType(eff, path)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "→ %s\n", path)
		if len(results) == 0 {
			fmt.Fprintf(out, "  (no rules on %s)\n", id)
		}
		for _, r := range results {
			marker := "✗ excluded"
			if r.Included {
				marker = "✓ included"
			}
			fmt.Fprintf(out, "  %s by %s\n", marker, r.Source)
		}
	}
	return nil
}

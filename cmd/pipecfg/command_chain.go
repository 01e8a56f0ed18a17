package main

import (
	"fmt"
	"strings"

	"github.com/sourceplane/pipecfg/internal/chain"
	"github.com/spf13/cobra"
)

var chainCmd = &cobra.Command{
	Use:   "chain <buildTypeId>",
	Short: "Preview the build chain queued for a build type",
	Long:  "Show the build type and everything it transitively depends on, in the order the CI host would run them. Nothing is executed.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return previewChain(cmd, args[0])
	},
}

func registerChainCommand(root *cobra.Command) {
	root.AddCommand(chainCmd)
}

func previewChain(cmd *cobra.Command, target string) error {
	out := cmd.OutOrStdout()
	result, err := loadValidSettings(cmd.Context(), out)
	if err != nil {
		return err
	}

	c, err := chain.NewBuilder(result.Analyzer).Chain(target)
	if err != nil {
		return err
	}

	c.Print(out)
	fmt.Fprintf(out, "✓ %d build types in chain of %s: %s\n", len(c.Entries), target, strings.Join(c.IDs(), " → "))
	return nil
}

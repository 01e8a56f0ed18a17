package main

import (
	"fmt"

	"github.com/sourceplane/pipecfg/internal/resolve"
	"github.com/spf13/cobra"
)

var buildTypesCmd = &cobra.Command{
	Use:     "buildtypes [build-type-id]",
	Aliases: []string{"buildtype", "bt"},
	Short:   "List effective build types",
	Long:    "List all build types with their templates applied. Use 'pipecfg buildtypes <id>' for details.",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return listBuildTypes(cmd, args)
	},
}

func registerBuildTypesCommand(root *cobra.Command) {
	root.AddCommand(buildTypesCmd)

	buildTypesCmd.Flags().BoolVarP(&longFormat, "long", "l", false, "Show detailed information")
	buildTypesCmd.Flags().BoolVar(&expandSteps, "expand-steps", false, "Show step scripts in long format")
}

func listBuildTypes(cmd *cobra.Command, args []string) error {
	result, err := loadValidSettings(cmd.Context(), cmd.OutOrStdout())
	if err != nil {
		return err
	}

	effective, err := result.Analyzer.AnalyzeAll()
	if err != nil {
		return err
	}
	deps := resolve.NewDependencyResolver(effective)

	if len(args) == 1 {
		eff, err := result.Analyzer.BuildType(args[0])
		if err != nil {
			return err
		}
		PrintLongFormat(ExtractBuildTypeInfo(eff, result.Analyzer, deps), expandSteps)
		return nil
	}

	fmt.Printf("✓ %d build types\n\n", len(effective))
	for _, eff := range effective {
		info := ExtractBuildTypeInfo(eff, result.Analyzer, deps)
		if longFormat {
			PrintLongFormat(info, expandSteps)
		} else {
			PrintShortFormat(info)
		}
	}
	return nil
}

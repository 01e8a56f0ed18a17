package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the settings tree",
	Long:  "Load the settings, apply templates and report every problem found. Warnings do not fail the command unless --strict turns them into errors.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return validateSettings(cmd)
	},
}

func registerValidateCommand(root *cobra.Command) {
	root.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&strictMode, "strict", false, "Treat build types without a VCS root as errors")
}

func validateSettings(cmd *cobra.Command) error {
	result, err := loadSettings(cmd.Context(), cmd.OutOrStdout())
	if err != nil {
		return err
	}

	printIssues(cmd.OutOrStdout(), result.Issues)
	if result.HasErrors() {
		return fmt.Errorf("validation failed with %d errors and %d warnings", len(result.Errors()), len(result.Warnings()))
	}

	fmt.Printf("✓ Settings are valid (%d build types, %d templates, %d warnings)\n",
		len(result.Normalized.BuildTypeOrder), len(result.Normalized.TemplateOrder), len(result.Warnings()))
	return nil
}

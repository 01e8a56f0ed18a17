package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var templatesCmd = &cobra.Command{
	Use:     "templates [template-id]",
	Aliases: []string{"template"},
	Short:   "List templates and the build types applying them",
	Long:    "List all templates. Use 'pipecfg templates <id>' for details.",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return listTemplates(cmd, args)
	},
}

func registerTemplatesCommand(root *cobra.Command) {
	root.AddCommand(templatesCmd)

	templatesCmd.Flags().BoolVarP(&longFormat, "long", "l", false, "Show detailed information")
}

func listTemplates(cmd *cobra.Command, args []string) error {
	result, err := loadValidSettings(cmd.Context(), cmd.OutOrStdout())
	if err != nil {
		return err
	}

	summaries := result.Analyzer.Templates()
	if len(args) == 0 {
		fmt.Printf("✓ %d templates\n\n", len(summaries))
		for _, t := range summaries {
			PrintTemplate(t, longFormat)
		}
		return nil
	}

	for _, t := range summaries {
		if t.ID == args[0] {
			PrintTemplate(t, true)
			return nil
		}
	}
	return fmt.Errorf("unknown template %q", args[0])
}

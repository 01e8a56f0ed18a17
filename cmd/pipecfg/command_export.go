package main

import (
	"fmt"

	"github.com/sourceplane/pipecfg/internal/render"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Render the settings for the CI host",
	Long:  "Render the validated settings as canonical YAML/JSON, effective build types, a Kotlin settings.kts or a Graphviz dependency graph.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return exportSettings(cmd)
	},
}

func registerExportCommand(root *cobra.Command) {
	root.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&outputFormat, "format", "f", "", "Output format (yaml/json/effective-yaml/effective-json/kotlin/dot); inferred from --output when empty")
	exportCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (default stdout)")
}

func exportSettings(cmd *cobra.Command) error {
	var format render.Format
	if outputFormat != "" {
		f, err := render.ParseFormat(outputFormat)
		if err != nil {
			return err
		}
		format = f
	}

	// The document owns stdout when no file is given
	progress := cmd.OutOrStdout()
	if outputFile == "" {
		progress = cmd.ErrOrStderr()
	}

	result, err := loadValidSettings(cmd.Context(), progress)
	if err != nil {
		return err
	}
	exporter := render.NewExporter(result.Normalized, result.Analyzer)

	if outputFile == "" {
		if format == "" {
			format = render.FormatYAML
		}
		data, err := exporter.Render(format)
		if err != nil {
			return fmt.Errorf("failed to render %s: %w", format, err)
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}

	if format == "" {
		format = render.FormatFromPath(outputFile)
	}
	fmt.Fprintf(progress, "□ Rendering %s...\n", format)
	if err := exporter.WriteOutput(outputFile, format); err != nil {
		return err
	}

	fmt.Fprintf(progress, "✓ Exported %d build types\n", len(result.Normalized.BuildTypeOrder))
	fmt.Fprintf(progress, "✓ Saved to: %s\n", outputFile)
	return nil
}

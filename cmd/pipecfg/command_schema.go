package main

import (
	"github.com/sourceplane/pipecfg/internal/schema"
	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema of the settings document",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := schema.Document()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func registerSchemaCommand(root *cobra.Command) {
	root.AddCommand(schemaCmd)
}

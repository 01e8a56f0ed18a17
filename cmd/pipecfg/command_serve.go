package main

import (
	"fmt"

	"github.com/sourceplane/pipecfg/internal/ctxlog"
	"github.com/sourceplane/pipecfg/internal/server"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the settings over a read-only HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveSettings(cmd)
	},
}

func registerServeCommand(root *cobra.Command) {
	root.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default $PIPECFG_ADDR or :8111)")
}

func serveSettings(cmd *cobra.Command) error {
	ctx := cmd.Context()
	logger := ctxlog.FromContext(ctx)

	if !cmd.Flags().Changed("addr") {
		serveAddr = cfg.Server.Addr
	}

	result, err := loadSettings(ctx, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	printIssues(cmd.OutOrStdout(), result.Issues)

	srv, err := server.New(result, logger)
	if err != nil {
		return err
	}

	fmt.Printf("✓ Serving %d build types on %s\n", len(result.Normalized.BuildTypeOrder), serveAddr)
	logger.Info("Starting server", "addr", serveAddr)
	return server.Run(ctx, serveAddr, srv.Router())
}

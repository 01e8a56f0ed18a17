package main

import (
	"fmt"
	"os"

	"github.com/sourceplane/pipecfg/internal/config"
	"github.com/sourceplane/pipecfg/internal/ctxlog"
	"github.com/spf13/cobra"
)

var (
	cfg          *config.Config
	settingsPath string
	logLevel     string
	logFormat    string
	outputFile   string
	outputFormat string
	strictMode   bool
	longFormat   bool
	expandSteps  bool
)

var rootCmd = &cobra.Command{
	Use:           "pipecfg",
	Short:         "CI settings as code: validate, inspect and export",
	Long:          "pipecfg loads a CI settings tree (YAML, JSON, HCL or Starlark), applies templates, validates it and renders it for the CI host",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded

		// Flags override config
		flags := cmd.Flags()
		if !flags.Changed("settings") {
			settingsPath = cfg.Settings.Path
		}
		if !flags.Changed("log-level") {
			logLevel = cfg.Log.Level
		}
		if !flags.Changed("log-format") {
			logFormat = cfg.Log.Format
		}
		if !flags.Changed("strict") {
			strictMode = cfg.Settings.Strict
		}

		logger, err := ctxlog.New(os.Stderr, logLevel, logFormat)
		if err != nil {
			return err
		}
		cmd.SetContext(ctxlog.WithLogger(cmd.Context(), logger))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&settingsPath, "settings", "s", "", "Settings file or directory (default $PIPECFG_SETTINGS or .teamcity)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug/info/warn/error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format (text/json)")

	registerValidateCommand(rootCmd)
	registerExportCommand(rootCmd)
	registerViewCommand(rootCmd)
	registerChainCommand(rootCmd)
	registerTemplatesCommand(rootCmd)
	registerBuildTypesCommand(rootCmd)
	registerRulesCommand(rootCmd)
	registerSecretsCommand(rootCmd)
	registerServeCommand(rootCmd)
	registerSchemaCommand(rootCmd)
	registerDebugCommand(rootCmd)
}

package main

import (
	"fmt"

	"github.com/sourceplane/pipecfg/internal/ctxlog"
	"github.com/sourceplane/pipecfg/internal/secrets"
	"github.com/spf13/cobra"
)

var (
	secretsEnvFile  string
	secretsRedisURL string
	secretsGCP      bool
)

var secretsCmd = &cobra.Command{
	Use:   "secrets",
	Short: "Inspect secret references",
}

var secretsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that every secret reference resolves in its store",
	Long:  "Look up each env:, redis: and gcpsm: reference without reading its value. credentialsJSON references are managed by the CI host and reported as unchecked.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return checkSecrets(cmd)
	},
}

func registerSecretsCommand(root *cobra.Command) {
	root.AddCommand(secretsCmd)
	secretsCmd.AddCommand(secretsCheckCmd)

	secretsCheckCmd.Flags().StringVar(&secretsEnvFile, "env-file", "", "Env file consulted for env: references (default $PIPECFG_ENV_FILE)")
	secretsCheckCmd.Flags().StringVar(&secretsRedisURL, "redis-url", "", "Redis URL for redis: references (default $PIPECFG_REDIS_URL)")
	secretsCheckCmd.Flags().BoolVar(&secretsGCP, "gcp", false, "Check gcpsm: references against Secret Manager")
}

func checkSecrets(cmd *cobra.Command) error {
	ctx := cmd.Context()
	logger := ctxlog.FromContext(ctx)

	result, err := loadValidSettings(ctx, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	if !cmd.Flags().Changed("env-file") {
		secretsEnvFile = cfg.Secrets.EnvFile
	}
	if !cmd.Flags().Changed("redis-url") {
		secretsRedisURL = cfg.Secrets.RedisURL
	}

	var stores []secrets.Store
	envStore, err := secrets.NewEnvStore(secretsEnvFile)
	if err != nil {
		return err
	}
	stores = append(stores, envStore)

	if secretsRedisURL != "" {
		redisStore, err := secrets.NewRedisStore(secretsRedisURL, cfg.Secrets.RedisPrefix)
		if err != nil {
			return err
		}
		defer redisStore.Close()
		stores = append(stores, redisStore)
		logger.Debug("Redis secret store configured", "prefix", cfg.Secrets.RedisPrefix)
	}

	if secretsGCP {
		gcpStore, err := secrets.NewGCPStore(ctx, cfg.Secrets.GCPProject)
		if err != nil {
			return err
		}
		defer gcpStore.Close()
		stores = append(stores, gcpStore)
	}

	refs := secrets.Collect(result.Normalized)
	fmt.Printf("□ Checking %d secret references...\n", len(refs))

	results := secrets.NewChecker(stores...).Check(ctx, refs)
	for _, r := range results {
		marker := "✓"
		switch r.Status {
		case secrets.StatusMissing, secrets.StatusError:
			marker = "✗"
		case secrets.StatusUnchecked:
			marker = "-"
		}
		line := fmt.Sprintf("  %s %s  %s", marker, r.Path, r.Ref)
		if r.Message != "" {
			line += " (" + r.Message + ")"
		}
		fmt.Println(line)
	}

	counts := secrets.Summary(results)
	if failed := counts[secrets.StatusMissing] + counts[secrets.StatusError]; failed > 0 {
		return fmt.Errorf("%d of %d secret references did not resolve", failed, len(results))
	}

	fmt.Printf("✓ %d resolved, %d unchecked\n", counts[secrets.StatusOK], counts[secrets.StatusUnchecked])
	return nil
}

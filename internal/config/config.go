package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Settings SettingsConfig
	Log      LogConfig
	Server   ServerConfig
	Secrets  SecretsConfig
}

type SettingsConfig struct {
	Path   string
	Strict bool
}

type LogConfig struct {
	Level  string
	Format string
}

type ServerConfig struct {
	Addr string
}

type SecretsConfig struct {
	EnvFile     string
	RedisURL    string
	RedisPrefix string
	GCPProject  string // project for gcpsm locators that are not full resource names
}

// Load reads optional .env files (".env" when none are given) and then the
// PIPECFG_* environment variables.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil {
			slog.Debug("No env file loaded, using environment variables", "file", f)
		}
	}

	cfg := &Config{
		Settings: SettingsConfig{
			Path:   getEnv("PIPECFG_SETTINGS", ".teamcity"),
			Strict: getEnvAsBool("PIPECFG_STRICT", false),
		},
		Log: LogConfig{
			Level:  getEnv("PIPECFG_LOG_LEVEL", "warn"),
			Format: getEnv("PIPECFG_LOG_FORMAT", "text"),
		},
		Server: ServerConfig{
			Addr: getEnv("PIPECFG_ADDR", ":8111"),
		},
		Secrets: SecretsConfig{
			EnvFile:     getEnv("PIPECFG_ENV_FILE", ""),
			RedisURL:    getEnv("PIPECFG_REDIS_URL", ""),
			RedisPrefix: getEnv("PIPECFG_REDIS_PREFIX", "pipecfg:secret:"),
			GCPProject:  getEnv("PIPECFG_GCP_PROJECT", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Settings.Path == "" {
		return fmt.Errorf("PIPECFG_SETTINGS is required")
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("PIPECFG_LOG_FORMAT must be text or json, got %q", c.Log.Format)
	}

	if c.Secrets.RedisURL != "" && !strings.HasPrefix(c.Secrets.RedisURL, "redis://") && !strings.HasPrefix(c.Secrets.RedisURL, "rediss://") {
		return fmt.Errorf("PIPECFG_REDIS_URL must start with redis:// or rediss://")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		slog.Warn("Invalid boolean, using default", "key", key, "default", defaultValue)
		return defaultValue
	}

	return value
}

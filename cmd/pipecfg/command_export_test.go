package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sourceplane/pipecfg/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const fixtureSettings = "../../internal/loader/testdata/tcdsl"

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	outputFile, outputFormat = "", ""

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestExportToStdoutKotlin(t *testing.T) {
	stdout, stderr, err := runCLI(t, "export", "-f", "kotlin", "-s", fixtureSettings)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(stdout, "import jetbrains.buildServer.configs.kotlin.*\n"), stdout)
	assert.NotContains(t, stdout, "□")
	assert.Contains(t, stderr, "□ Loading settings...\n□ Validating settings...\n")
}

func TestExportToStdoutParses(t *testing.T) {
	stdout, _, err := runCLI(t, "export", "-f", "yaml", "-s", fixtureSettings)
	require.NoError(t, err)

	var settings model.Settings
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &settings))
	assert.Equal(t, "2022.10", settings.Version)
	assert.Len(t, settings.Project.SubProjects, 2)
}

func TestExportToFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "settings.kts")
	stdout, _, err := runCLI(t, "export", "-o", out, "-s", fixtureSettings)
	require.NoError(t, err)

	assert.Contains(t, stdout, "□ Loading settings...")
	assert.Contains(t, stdout, "✓ Saved to: "+out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "import jetbrains"))
}

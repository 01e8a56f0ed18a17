package render

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/sourceplane/pipecfg/internal/loader"
	"github.com/sourceplane/pipecfg/internal/model"
	"github.com/sourceplane/pipecfg/internal/normalize"
	"github.com/sourceplane/pipecfg/internal/resolve"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFixture(t *testing.T, path string) (*model.NormalizedSettings, *resolve.Analyzer) {
	t.Helper()
	settings, err := loader.Load(context.Background(), path)
	require.NoError(t, err)
	n, err := normalize.NormalizeSettings(settings)
	require.NoError(t, err)
	return n, resolve.NewAnalyzer(n)
}

func TestExportRoundTrip(t *testing.T) {
	for _, name := range []string{"settings.yaml", "settings.json"} {
		t.Run(name, func(t *testing.T) {
			n, analyzer := loadFixture(t, "../loader/testdata/tcdsl")

			out := filepath.Join(t.TempDir(), "nested", "dir", name)
			require.NoError(t, NewExporter(n, analyzer).WriteOutput(out, ""))

			reloaded, _ := loadFixture(t, out)
			if diff := cmp.Diff(n.Settings, reloaded.Settings, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("round trip mismatch (-exported +reloaded):\n%s", diff)
			}
		})
	}
}

func TestExportEffectiveJSON(t *testing.T) {
	n, analyzer := loadFixture(t, "../loader/testdata/tcdsl")

	data, err := NewExporter(n, analyzer).Render(FormatEffectiveJSON)
	require.NoError(t, err)

	var effective model.EffectiveSettings
	require.NoError(t, json.Unmarshal(data, &effective))
	assert.Equal(t, "2022.10", effective.Version)
	require.Len(t, effective.BuildTypes, len(n.BuildTypeOrder))

	byID := make(map[string]model.EffectiveBuildType)
	for _, bt := range effective.BuildTypes {
		byID[bt.ID] = bt
	}
	survey := byID["Backend_BackendSurvey"]
	require.Len(t, survey.Steps, 1)
	assert.Equal(t, "RUNNER_14", survey.Steps[0].ID)
	assert.Equal(t, "survey", survey.Params["env.BACKEND_UNIT_SCOPE"])
	assert.Equal(t, "analytics", byID["Backend_BackendUnitAnalytics"].Params["env.BACKEND_UNIT_SCOPE"])
	assert.Equal(t, "UNIT_BACKEND", survey.VcsRootSource)
}

func TestWriteOutputInfersFormat(t *testing.T) {
	n, analyzer := loadFixture(t, "../loader/testdata/tcdsl")
	exporter := NewExporter(n, analyzer)
	dir := t.TempDir()

	kts := filepath.Join(dir, ".teamcity", "settings.kts")
	require.NoError(t, exporter.WriteOutput(kts, ""))
	data, err := os.ReadFile(kts)
	require.NoError(t, err)
	assert.Contains(t, string(data), "import jetbrains.buildServer.configs.kotlin.*")

	dot := filepath.Join(dir, "graph.dot")
	require.NoError(t, exporter.WriteOutput(dot, ""))
	data, err = os.ReadFile(dot)
	require.NoError(t, err)
	assert.Contains(t, string(data), "digraph snapshots {")

	forced := filepath.Join(dir, "effective.txt")
	require.NoError(t, exporter.WriteOutput(forced, FormatEffectiveYAML))
	data, err = os.ReadFile(forced)
	require.NoError(t, err)
	assert.Contains(t, string(data), "vcsRootSource: UNIT_BACKEND")
}

func TestFormats(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatFromPath("out/settings.yml"))
	assert.Equal(t, FormatKotlin, FormatFromPath("settings.kts"))
	assert.Equal(t, FormatDOT, FormatFromPath("deps.gv"))
	assert.Equal(t, FormatJSON, FormatFromPath("settings"))

	f, err := ParseFormat("Effective-YAML")
	require.NoError(t, err)
	assert.Equal(t, FormatEffectiveYAML, f)

	_, err = ParseFormat("xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kotlin")
}

func TestRenderDOT(t *testing.T) {
	n, analyzer := loadFixture(t, "../loader/testdata/tcdsl")

	data, err := NewExporter(n, analyzer).Render(FormatDOT)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `"Backend_BackendSurvey" -> "Backend_MakeBackendUnitTests";`)
	assert.Contains(t, out, `"Backend_MakeBackendUnitTests" [label="Backend_MakeBackendUnitTests\nMake backend unit-tests", style=dashed];`)
	assert.Contains(t, out, `"HelloWorld1" [label="HelloWorld1\nHello world #1"];`)
}

func TestDebugDump(t *testing.T) {
	n, analyzer := loadFixture(t, "../loader/testdata/tcdsl")

	out := NewExporter(n, analyzer).DebugDump()
	assert.Contains(t, out, "Projects: 3, VCS roots: 1, templates: 2, build types: 8")
	assert.Contains(t, out, "BuildType: Backend_BackendSurvey\n  Project: Backend\n")
}

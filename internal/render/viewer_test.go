package render

import (
	"errors"
	"testing"

	"github.com/sourceplane/pipecfg/internal/normalize"
	"github.com/sourceplane/pipecfg/internal/resolve"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewTree(t *testing.T) {
	n, analyzer := loadFixture(t, "../loader/testdata/tcdsl")
	out := NewSettingsViewer(n, analyzer).ViewTree()

	assert.Contains(t, out, "TCDSL [_Root]")
	assert.Contains(t, out, "├─ vcs HttpsGithubComGrmmvvTcdslGit")
	assert.Contains(t, out, `├─ buildType Playwright "playwright"`)
	assert.Contains(t, out, "BACKEND [Backend]")
	assert.Contains(t, out, "│  ├─ template UNIT_BACKEND\n")
	assert.Contains(t, out, `buildType Backend_MakeBackendUnitTests "Make backend unit-tests" [composite]`)
	assert.Contains(t, out, `buildType Backend_BackendSurvey "Backend (Survey)" ← UNIT_BACKEND`)
	assert.Contains(t, out, "Summary: 3 projects, 1 VCS roots, 2 templates, 8 build types")
}

func TestViewDependencies(t *testing.T) {
	n, analyzer := loadFixture(t, "../loader/testdata/tcdsl")
	out, err := NewSettingsViewer(n, analyzer).ViewDependencies()
	require.NoError(t, err)

	assert.Contains(t, out, "Backend_BackendSurvey (Backend)\n  └─ (required by) Backend_MakeBackendUnitTests\n")
	assert.Contains(t, out, "  ├─ (depends on) Backend_BackendUnitAnalytics\n  └─ (depends on) Backend_BackendSurvey\n")
	assert.Contains(t, out, "(no dependencies)")
}

func TestViewBuildType(t *testing.T) {
	n, analyzer := loadFixture(t, "../loader/testdata/tcdsl")
	viewer := NewSettingsViewer(n, analyzer)

	out, err := viewer.ViewBuildType("Backend_BackendSurvey")
	require.NoError(t, err)
	assert.Contains(t, out, "Backend_BackendSurvey [REGULAR]")
	assert.Contains(t, out, "Templates: UNIT_BACKEND\n")
	assert.Contains(t, out, "VCS roots (from UNIT_BACKEND):\n  - HttpsGithubComGrmmvvTcdslGit [absolute]\n")
	assert.Contains(t, out, "  env.BACKEND_UNIT_SCOPE = survey\n")
	assert.Contains(t, out, "└─ BACKEND_UNIT | echo \"Backend unit-test: %env.BACKEND_UNIT_SCOPE%\"\n")
	assert.Contains(t, out, "  - COMMIT_STATUS_PUBLISHER (BUILD_EXT_9)\n")

	out, err = viewer.ViewBuildType("ThisIsAnotherProject")
	require.NoError(t, err)
	assert.Contains(t, out, "! no VCS root attached")

	_, err = viewer.ViewBuildType("Nope")
	assert.True(t, errors.Is(err, resolve.ErrUnknownBuildType))
}

func TestViewTreeExplicitRootID(t *testing.T) {
	n, err := normalize.NormalizeSettings(explicitRootSettings())
	require.NoError(t, err)
	out := NewSettingsViewer(n, nil).ViewTree()

	assert.Contains(t, out, "Main [Main]")
	assert.Contains(t, out, `├─ buildType Build "Build"`)
	assert.Contains(t, out, "└─ Tools [Tools]")
	assert.Contains(t, out, "Summary: 2 projects, 1 VCS roots, 0 templates, 1 build types")
}

package render

import (
	"testing"

	"github.com/sourceplane/pipecfg/internal/model"
	"github.com/sourceplane/pipecfg/internal/normalize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderKotlin(t *testing.T) {
	n, _ := loadFixture(t, "../loader/testdata/tcdsl")
	out := RenderKotlin(n)

	for _, want := range []string{
		`version = "2022.10"`,
		"project {\n    vcsRoot(HttpsGithubComGrmmvvTcdslGit)\n",
		"    subProject(Backend)\n    subProject(Frontend)\n}\n",
		"object HttpsGithubComGrmmvvTcdslGit : GitVcsRoot({\n",
		"    checkoutPolicy = GitVcsRoot.AgentCheckoutPolicy.SHALLOW_CLONE\n",
		`password = "credentialsJSON:757b93d4-4abe-4211-a875-d15bb135d3da"`,
		`token = "env:GITHUB_STATUS_TOKEN"`,
		"object Playwright : BuildType({\n    name = \"playwright\"\n",
		"dockerImagePlatform = ScriptBuildStep.ImagePlatform.Linux",
		"vcsRootExtId = \"${HttpsGithubComGrmmvvTcdslGit.id}\"",
		"reportType = XmlReport.XmlReportType.JUNIT",
		"enabled = false\n            numberOfBatches = 2",
		"object UNIT_BACKEND : Template({",
		"object Backend_BackendSurvey : BuildType({\n    templates(UNIT_BACKEND)\n",
		"    type = BuildTypeSettings.Type.COMPOSITE\n",
		"snapshot(Backend_BackendSurvey) {\n            onDependencyFailure = FailureAction.FAIL_TO_START\n            reuseBuilds = ReuseBuilds.SUCCESSFUL\n",
		"object Backend : Project({\n    name = \"BACKEND\"\n",
		`scriptContent = "echo \"Backend unit-test: %env.BACKEND_UNIT_SCOPE%\""`,
	} {
		assert.Contains(t, out, want)
	}
}

func TestRenderKotlinRedactsLiterals(t *testing.T) {
	settings := &model.Settings{
		Version: "2022.10",
		Project: model.Project{
			Name:         "Root",
			SecureParams: map[string]model.SecretRef{"env.TOKEN": "hunter2"},
			VcsRoots: []model.VcsRoot{{
				URL:  "https://example.com/repo.git",
				Auth: &model.AuthMethod{Type: model.AuthPassword, Password: "hunter3"},
			}},
		},
	}
	n, err := normalize.NormalizeSettings(settings)
	require.NoError(t, err)

	out := RenderKotlin(n)
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "hunter3")
	assert.Contains(t, out, `password("env.TOKEN", "<literal redacted>")`)
}

func TestKotlinString(t *testing.T) {
	assert.Equal(t, `"a \"b\" \$HOME\nc\\d"`, kotlinString("a \"b\" $HOME\nc\\d"))
}

func explicitRootSettings() *model.Settings {
	return &model.Settings{
		Version: "2022.10",
		Project: model.Project{
			ID:   "Main",
			Name: "Main",
			VcsRoots: []model.VcsRoot{{
				ID:  "Repo",
				URL: "https://example.com/repo.git",
			}},
			BuildTypes: []model.BuildType{{
				BuildSettings: model.BuildSettings{
					Name:  "Build",
					Vcs:   &model.VcsSettings{Roots: []model.VcsRootEntry{{Root: "Repo", Absolute: true}}},
					Steps: []model.Step{{ScriptContent: "make"}},
				},
			}},
			SubProjects: []model.Project{{Name: "Tools"}},
		},
	}
}

func TestRenderKotlinExplicitRootID(t *testing.T) {
	n, err := normalize.NormalizeSettings(explicitRootSettings())
	require.NoError(t, err)
	assert.Equal(t, "Main", n.RootID)

	out := RenderKotlin(n)
	assert.Contains(t, out, "project {\n    vcsRoot(Repo)\n    buildType(Build)\n    subProject(Tools)\n}\n")
	assert.NotContains(t, out, "object Main : Project(")
	assert.Contains(t, out, "object Tools : Project({\n    name = \"Tools\"\n")
}

func TestRenderKotlinAbsoluteVcsRoot(t *testing.T) {
	n, err := normalize.NormalizeSettings(explicitRootSettings())
	require.NoError(t, err)

	assert.Contains(t, RenderKotlin(n), `root(AbsoluteId("Repo"))`)
}

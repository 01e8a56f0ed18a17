package rules

import (
	"testing"

	"github.com/sourceplane/pipecfg/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("artifact rule with target", func(t *testing.T) {
		rs, err := Parse("+:playwright-report => playwright-report.zip")
		require.NoError(t, err)
		require.Len(t, rs, 1)
		assert.False(t, rs[0].Exclude)
		assert.Equal(t, "playwright-report", rs[0].Pattern)
		assert.Equal(t, "playwright-report.zip", rs[0].Target)
		assert.True(t, rs.HasTargets())
	})

	t.Run("branch spec lines", func(t *testing.T) {
		rs, err := Parse("+:refs/heads/*\n\n-:refs/heads/experimental/**\n")
		require.NoError(t, err)
		require.Len(t, rs, 2)
		assert.Equal(t, "refs/heads/*", rs[0].Pattern)
		assert.True(t, rs[1].Exclude)
		assert.Equal(t, 3, rs[1].Line)
		assert.False(t, rs.HasTargets())
	})

	t.Run("sign is optional", func(t *testing.T) {
		rs, err := Parse("results.xml")
		require.NoError(t, err)
		require.Len(t, rs, 1)
		assert.False(t, rs[0].Exclude)
		assert.Equal(t, "+:results.xml", rs[0].String())
	})

	t.Run("dangling arrow fails", func(t *testing.T) {
		_, err := Parse("+:dist =>")
		assert.ErrorContains(t, err, "line 1")
	})

	t.Run("empty text yields no rules", func(t *testing.T) {
		rs, err := Parse("  \n")
		require.NoError(t, err)
		assert.Empty(t, rs)
	})
}

func TestMatch(t *testing.T) {
	rs, err := Parse("+:reports/**/*.xml\n-:reports/tmp/**")
	require.NoError(t, err)

	tests := []struct {
		path string
		want bool
	}{
		{"reports/unit/results.xml", true},
		{"reports/results.xml", true},
		{"reports/tmp/results.xml", false},
		{"results.xml", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := rs.Match(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRulesString(t *testing.T) {
	rs, err := Parse("a/** => b.zip\n-:c")
	require.NoError(t, err)
	assert.Equal(t, "+:a/** => b.zip\n-:c", rs.String())
}

func TestMatchBuildType(t *testing.T) {
	eff := &model.EffectiveBuildType{
		ID:            "Playwright",
		VcsRoots:      []model.VcsRootEntry{{Root: "Repo", CheckoutRules: "+:e2e/**\n-:e2e/fixtures/**"}, {Root: "Tools"}},
		ArtifactRules: "+:playwright-report/** => playwright-report.zip",
		Features: []model.Feature{
			{Type: model.FeatureParallelTests, ParallelTests: &model.ParallelTests{NumberOfBatches: 2}},
			{Type: model.FeatureXMLReport, XMLReport: &model.XMLReport{ReportType: model.ReportJUnit, Rules: "+:results.xml"}},
		},
	}

	results, err := MatchBuildType(eff, "playwright-report/index.html")
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "vcsRoots/Repo/checkoutRules", results[0].Source)
	assert.False(t, results[0].Included)
	assert.Equal(t, "artifactRules", results[1].Source)
	assert.Equal(t, "+:playwright-report/** => playwright-report.zip", results[1].Rules)
	assert.True(t, results[1].Included)
	assert.Equal(t, "features/1/xmlReport/rules", results[2].Source)
	assert.False(t, results[2].Included)

	results, err = MatchBuildType(eff, "e2e/fixtures/user.json")
	require.NoError(t, err)
	assert.False(t, results[0].Included)
}

func TestMatchBuildTypeNoRules(t *testing.T) {
	results, err := MatchBuildType(&model.EffectiveBuildType{ID: "Empty"}, "any/path")
	require.NoError(t, err)
	assert.Empty(t, results)
}

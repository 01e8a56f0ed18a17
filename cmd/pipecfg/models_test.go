package main

import (
	"context"
	"testing"

	"github.com/sourceplane/pipecfg/internal/loader"
	"github.com/sourceplane/pipecfg/internal/resolve"
	"github.com/sourceplane/pipecfg/internal/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFixture(t *testing.T) (*validate.Result, *resolve.DependencyResolver) {
	t.Helper()
	settings, err := loader.Load(context.Background(), "../../internal/loader/testdata/tcdsl")
	require.NoError(t, err)
	result := validate.Validate(settings, validate.Options{})
	require.False(t, result.HasErrors())

	effective, err := result.Analyzer.AnalyzeAll()
	require.NoError(t, err)
	return result, resolve.NewDependencyResolver(effective)
}

func TestExtractBuildTypeInfo(t *testing.T) {
	result, deps := loadFixture(t)

	eff, err := result.Analyzer.BuildType("Backend_MakeBackendUnitTests")
	require.NoError(t, err)
	info := ExtractBuildTypeInfo(eff, result.Analyzer, deps)

	assert.Equal(t, "Backend", info.Project)
	assert.Equal(t, "COMPOSITE", info.Type)
	assert.ElementsMatch(t, []string{"Backend_BackendUnitAnalytics", "Backend_BackendSurvey"}, info.DependsOn)
	assert.Empty(t, info.RequiredBy)
	assert.Empty(t, info.Steps)

	survey, err := result.Analyzer.BuildType("Backend_BackendSurvey")
	require.NoError(t, err)
	info = ExtractBuildTypeInfo(survey, result.Analyzer, deps)
	assert.Equal(t, []string{"Backend_MakeBackendUnitTests"}, info.RequiredBy)
	assert.Equal(t, []string{"Backend_MakeBackendUnitTests"}, info.Downstream)
	assert.False(t, info.MissingVcs)
}

func TestExtractBuildTypeInfoMissingVcs(t *testing.T) {
	result, deps := loadFixture(t)

	eff, err := result.Analyzer.BuildType("ThisIsAnotherProject")
	require.NoError(t, err)
	info := ExtractBuildTypeInfo(eff, result.Analyzer, deps)

	assert.True(t, info.MissingVcs)
	assert.Empty(t, info.VcsRoots)
}

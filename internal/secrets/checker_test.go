package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/sourceplane/pipecfg/internal/loader"
	"github.com/sourceplane/pipecfg/internal/model"
	"github.com/sourceplane/pipecfg/internal/normalize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapStore struct {
	scheme string
	keys   map[string]bool
	err    error
}

func (s *mapStore) Scheme() string { return s.scheme }

func (s *mapStore) Exists(_ context.Context, locator string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.keys[locator], nil
}

func TestCheck(t *testing.T) {
	checker := NewChecker(
		&mapStore{scheme: model.SchemeEnv, keys: map[string]bool{"GITHUB_TOKEN": true}},
		&mapStore{scheme: model.SchemeRedis, err: errors.New("connection refused")},
	)

	refs := []Reference{
		{Path: "a", Ref: "env:GITHUB_TOKEN"},
		{Path: "b", Ref: "env:MISSING"},
		{Path: "c", Ref: "credentialsJSON:757b93d4-4abe-4211-a875-d15bb135d3da"},
		{Path: "d", Ref: "credentialsJSON:nope"},
		{Path: "e", Ref: "redis:ci/github"},
		{Path: "f", Ref: "gcpsm:github"},
		{Path: "g", Ref: "hunter2"},
	}
	results := checker.Check(context.Background(), refs)
	require.Len(t, results, len(refs))

	want := []Status{StatusOK, StatusMissing, StatusUnchecked, StatusError, StatusError, StatusUnchecked, StatusError}
	for i, r := range results {
		assert.Equal(t, refs[i].Path, r.Path)
		assert.Equal(t, want[i], r.Status, r.Path)
	}
	assert.Equal(t, "connection refused", results[4].Message)
	assert.Equal(t, "no gcpsm store configured", results[5].Message)

	assert.Equal(t, "<literal redacted>", results[6].Ref)
	assert.NotContains(t, results[6].Message, "hunter2")

	assert.Equal(t, map[Status]int{StatusOK: 1, StatusMissing: 1, StatusUnchecked: 2, StatusError: 3}, Summary(results))
}

func TestCollect(t *testing.T) {
	settings, err := loader.Load(context.Background(), "../loader/testdata/tcdsl")
	require.NoError(t, err)
	n, err := normalize.NormalizeSettings(settings)
	require.NoError(t, err)

	refs := Collect(n)
	assert.Equal(t, []Reference{
		{Path: "vcsRoots/HttpsGithubComGrmmvvTcdslGit/auth/password", Ref: "credentialsJSON:757b93d4-4abe-4211-a875-d15bb135d3da"},
		{Path: "templates/UNIT_BACKEND/features/0/commitStatusPublisher/publisher/auth/token", Ref: "env:GITHUB_STATUS_TOKEN"},
		{Path: "templates/UNIT_FRONTEND/features/0/commitStatusPublisher/publisher/auth/token", Ref: "env:GITHUB_STATUS_TOKEN"},
		{Path: "buildTypes/Playwright/features/0/commitStatusPublisher/publisher/auth/password", Ref: "credentialsJSON:757b93d4-4abe-4211-a875-d15bb135d3da"},
	}, refs)
}

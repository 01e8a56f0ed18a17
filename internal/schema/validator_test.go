package schema

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func decode(t *testing.T, doc string) interface{} {
	t.Helper()
	var data interface{}
	require.NoError(t, yaml.Unmarshal([]byte(doc), &data))
	return data
}

const validSettings = `
version: "2022.10"
project:
  name: Root
  vcsRoots:
    - id: Repo
      name: repo
      url: https://github.com/grmmvv/TCDSL.git
      branch: refs/heads/main
      checkoutPolicy: AUTO
      auth:
        type: PASSWORD
        userName: grmmvv
        password: credentialsJSON:757b93d4-4abe-4211-a875-d15bb135d3da
  templates:
    - id: Base
      name: Base
      steps:
        - scriptContent: echo "x"
      failureConditions:
        executionTimeoutMin: 30
  buildTypes:
    - name: Hello world
      templates: [Base]
      vcs:
        roots:
          - root: Repo
      features:
        - type: PARALLEL_TESTS
          parallelTests:
            numberOfBatches: 2
      dependencies:
        - buildType: Other
          onDependencyFailure: FAIL_TO_START
`

func TestValidateDocument(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	t.Run("valid document", func(t *testing.T) {
		assert.NoError(t, v.ValidateDocument(decode(t, validSettings)))
	})

	tests := []struct {
		name     string
		doc      string
		location string
	}{
		{
			name:     "missing project name",
			doc:      "version: '1'\nproject: {}\n",
			location: "/project",
		},
		{
			name:     "literal password",
			doc:      "version: '1'\nproject:\n  name: R\n  secureParams:\n    token: hunter2\n",
			location: "/project/secureParams/token",
		},
		{
			name:     "unknown build type property",
			doc:      "version: '1'\nproject:\n  name: R\n  buildTypes:\n    - name: A\n      script: echo\n",
			location: "/project/buildTypes/0",
		},
		{
			name:     "lowercase enum",
			doc:      "version: '1'\nproject:\n  name: R\n  vcsRoots:\n    - name: r\n      url: u\n      checkoutPolicy: auto\n",
			location: "/project/vcsRoots/0/checkoutPolicy",
		},
		{
			name:     "zero batches",
			doc:      "version: '1'\nproject:\n  name: R\n  buildTypes:\n    - name: A\n      features:\n        - type: PARALLEL_TESTS\n          parallelTests:\n            numberOfBatches: 0\n",
			location: "/project/buildTypes/0/features/0/parallelTests/numberOfBatches",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateDocument(decode(t, tt.doc))
			require.Error(t, err)

			violations := Violations(err)
			require.NotEmpty(t, violations)

			found := false
			for _, violation := range violations {
				if strings.HasPrefix(violation.Location, tt.location) {
					found = true
				}
			}
			assert.True(t, found, "no violation under %s in %v", tt.location, violations)
		})
	}
}

func TestValidateProject(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	assert.NoError(t, v.ValidateProject(decode(t, "name: Backend\nbuildTypes:\n  - name: Build\n")))
	assert.Error(t, v.ValidateProject(decode(t, "version: '1'\nname: Backend\n")))
}

func TestViolationsIgnoresOtherErrors(t *testing.T) {
	assert.Nil(t, Violations(assert.AnError))
}

func TestDocument(t *testing.T) {
	doc, err := Document()
	require.NoError(t, err)

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(doc, &parsed))
	assert.Equal(t, settingsSchemaURL, parsed["$id"])
	assert.Contains(t, parsed, "$defs")
}

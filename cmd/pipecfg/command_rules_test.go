package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRulesCommand(t *testing.T) {
	stdout, _, err := runCLI(t, "rules", "Playwright", "results.xml", "playwright-report", "-s", fixtureSettings)
	require.NoError(t, err)

	assert.Contains(t, stdout, "→ results.xml\n  ✗ excluded by artifactRules\n  ✓ included by features/1/xmlReport/rules\n")
	assert.Contains(t, stdout, "→ playwright-report\n  ✓ included by artifactRules\n  ✗ excluded by features/1/xmlReport/rules\n")
}

func TestRulesCommandUnknownBuildType(t *testing.T) {
	_, _, err := runCLI(t, "rules", "Nope", "a.txt", "-s", fixtureSettings)
	assert.ErrorContains(t, err, "unknown build type")
}

func TestChainCommand(t *testing.T) {
	stdout, _, err := runCLI(t, "chain", "Backend_MakeBackendUnitTests", "-s", fixtureSettings)
	require.NoError(t, err)

	assert.Contains(t, stdout, "→ Backend_MakeBackendUnitTests (Backend/COMPOSITE)")
	assert.Contains(t, stdout, "✓ 3 build types in chain of Backend_MakeBackendUnitTests: ")
	assert.Contains(t, stdout, " → Backend_MakeBackendUnitTests\n")
}

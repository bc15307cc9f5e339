package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Scenario S1: compiling a simple feature set succeeds.
func TestCompile_S1_SimpleFeatureSetSucceeds(t *testing.T) {
	result := Compile(`(Hello: Greeting) { <Extract> the <name: id> from the <request>. Publish as <name> <name>. }`)
	assert.True(t, result.Success())
	require.NotNil(t, result.Analyzed)
	assert.Len(t, result.Analyzed.FeatureSets, 1)
}

// Scenario S2: an immutability violation is reported with an error
// diagnostic and compilation is not a success.
func TestCompile_S2_ImmutabilityViolationFails(t *testing.T) {
	result := Compile(`(F: A) { <Extract> the <x: id> from the <request>. <Compute> the <x> from the <y>. }`)
	assert.False(t, result.Success())
	require.NotEmpty(t, result.Diagnostics)
}

func TestCompile_LexErrorAbortsBeforeAnalysis(t *testing.T) {
	result := Compile(`(F: A) { <Extract> the <x: id> from the "unterminated. }`)
	assert.False(t, result.Success())
	assert.Nil(t, result.Analyzed)
}

func TestCompile_ParseErrorStillRunsAnalysisOnWhatParsed(t *testing.T) {
	result := Compile(`(F: A) { <Extract> }`)
	assert.False(t, result.Success())
	require.NotEmpty(t, result.Diagnostics)
	require.NotNil(t, result.Analyzed)
}

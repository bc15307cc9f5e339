package optimizer

import (
	"testing"

	"github.com/aro-lang/aro/internal/compiler/ast"
	"github.com/aro-lang/aro/internal/compiler/lexer"
	"github.com/aro-lang/aro/internal/compiler/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParseFeatureSet(t *testing.T, source string) *ast.FeatureSet {
	t.Helper()
	lx := lexer.New(source)
	tokens, lexErrs := lx.ScanTokens()
	require.Empty(t, lexErrs)
	prog, parseErrs := parser.New(tokens).Parse()
	require.Empty(t, parseErrs)
	require.Len(t, prog.FeatureSets, 1)
	return prog.FeatureSets[0]
}

func TestOptimize_SwapEarlier_WhenFilterIsIndependentOfPreviousOutput(t *testing.T) {
	fs := mustParseFeatureSet(t, `(F: A) {
		<Extract> the <x: id> from the <request>.
		<Extract> the <y: id> from the <request>.
		<Filter> the <z> from the <x> where status is "ok".
	}`)
	plan := Optimize(fs)
	assert.Equal(t, []int{2}, plan.SwapEarlier, "filter reads x, not the immediately preceding statement's output y")
}

func TestOptimize_NoSwap_WhenFilterDependsOnPrecedingOutput(t *testing.T) {
	fs := mustParseFeatureSet(t, `(F: A) {
		<Extract> the <x: id> from the <request>.
		<Filter> the <z> from the <x> where status is "ok".
	}`)
	plan := Optimize(fs)
	assert.Empty(t, plan.SwapEarlier, "filter's object is x, the immediately preceding statement's output")
}

func TestOptimize_ProjectedFields_UnionsWhereFieldsAndResultNames(t *testing.T) {
	fs := mustParseFeatureSet(t, `(F: A) {
		<Extract> the <x: id> from the <request>.
		<Filter> the <y> from the <x> where status is "ok".
		<Compute> the <z> from the <y> where amount > 10.
	}`)
	plan := Optimize(fs)
	assert.Equal(t, []string{"amount", "status", "x", "y", "z"}, plan.ProjectedFields)
}

func TestOptimize_FusesMaximalRunsOfAdjacentFilters(t *testing.T) {
	fs := mustParseFeatureSet(t, `(F: A) {
		<Extract> the <x: id> from the <request>.
		<Filter> the <a> from the <x> where status is "ok".
		<Filter> the <b> from the <a> where amount > 1.
		<Filter> the <c> from the <b> where amount < 100.
		<Compute> the <d> from the <c>.
		<Filter> the <e> from the <d> where status is "ok".
	}`)
	plan := Optimize(fs)
	require.Len(t, plan.FusedFilterGroups, 1, "only the 3-run of consecutive filters should fuse; the trailing lone filter should not")
	assert.Equal(t, []int{1, 2, 3}, plan.FusedFilterGroups[0])
}

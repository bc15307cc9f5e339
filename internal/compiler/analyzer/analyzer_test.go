package analyzer

import (
	"testing"

	"github.com/aro-lang/aro/internal/compiler/ast"
	"github.com/aro-lang/aro/internal/compiler/lexer"
	"github.com/aro-lang/aro/internal/compiler/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, source string) *ast.Program {
	t.Helper()
	lx := lexer.New(source)
	tokens, lexErrs := lx.ScanTokens()
	require.Empty(t, lexErrs, "source must lex cleanly")
	prog, parseErrs := parser.New(tokens).Parse()
	require.Empty(t, parseErrs, "source must parse cleanly")
	return prog
}

func findFeatureSet(ap *AnalyzedProgram, name string) *FeatureSetAnalysis {
	for _, fsa := range ap.FeatureSets {
		if fsa.Name == name {
			return fsa
		}
	}
	return nil
}

// S1 (compile simple): extracting from the request and publishing the
// result succeeds (no error-severity diagnostic), binds "name", and
// registers it under its published alias.
func TestAnalyze_S1_CompileSimple(t *testing.T) {
	prog := mustParse(t, `(Hello: Greeting) { <Extract> the <name: id> from the <request>. Publish as <name> <name>. }`)
	ap := Analyze(prog)

	assert.True(t, ap.Success())
	fsa := findFeatureSet(ap, "Hello")
	require.NotNil(t, fsa)
	assert.True(t, fsa.Outputs["name"])
	_, published := ap.Global.Lookup("name")
	assert.True(t, published, "name should be registered under its external alias")
}

// S2 (immutability error): rebinding 'x' with a non-rebinding verb produces
// an error diagnostic at the second definition, with an immutability hint.
func TestAnalyze_S2_ImmutabilityError(t *testing.T) {
	prog := mustParse(t, `(F: A) { <Extract> the <x: id> from the <request>. <Compute> the <x> from the <y>. }`)
	ap := Analyze(prog)

	require.False(t, ap.Success())
	count := 0
	for _, d := range ap.Diagnostics {
		if d.Kind == "immutability-violation" {
			count++
			assert.Contains(t, d.Hints[0]+d.Message, "immutability")
		}
	}
	assert.Equal(t, 1, count, "expected exactly one immutability diagnostic")
}

// Testable property 8: across mutually exclusive match branches, defining
// the same symbol in two branches produces zero rebinding errors.
func TestAnalyze_MatchBranchesMayReuseNames(t *testing.T) {
	prog := mustParse(t, `(Classify: Routing) {
		<Extract> the <status: id> from the <request>.
		match <status> {
			case "ok" { <Compute> the <outcome> from the <status>. }
			otherwise { <Compute> the <outcome> from the <status>. }
		}
		<Return> the <outcome> to the <response>.
	}`)
	ap := Analyze(prog)

	for _, d := range ap.Diagnostics {
		assert.NotEqual(t, "immutability-violation", string(d.Kind))
	}
}

// Testable property 10: Publish of an undefined internal variable produces
// an error.
func TestAnalyze_PublishUndefinedVariableIsError(t *testing.T) {
	prog := mustParse(t, `(F: A) { Publish as <out> <missing>. }`)
	ap := Analyze(prog)

	require.False(t, ap.Success())
	assert.Equal(t, diagKind(ap, "invalid-publish"), true)
}

// Testable property 9: emitting event E from feature set F1 when no
// "E Handler" exists produces exactly one warning; adding F2 with activity
// "E Handler" removes it.
func TestAnalyze_OrphanEventDetection(t *testing.T) {
	withoutHandler := mustParse(t, `(F1: Ordering) { <Emit> the <OrderPlaced> to the <queue>. }`)
	ap := Analyze(withoutHandler)
	assert.True(t, diagKind(ap, "orphan-event"))

	withHandler := mustParse(t, `
		(F1: Ordering) { <Emit> the <OrderPlaced> to the <queue>. }
		(F2: OrderPlaced Handler) { <Extract> the <payload: id> from the <request>. }
	`)
	ap2 := Analyze(withHandler)
	assert.False(t, diagKind(ap2, "orphan-event"))
}

func diagKind(ap *AnalyzedProgram, kind string) bool {
	for _, d := range ap.Diagnostics {
		if string(d.Kind) == kind {
			return true
		}
	}
	return false
}

package analyzer

import (
	"fmt"
	"strings"

	"github.com/aro-lang/aro/internal/compiler/ast"
	"github.com/aro-lang/aro/internal/compiler/diagnostics"
)

// verifyGlobalDependencies is pass 2: every feature set's dependency name
// must resolve against its own scope, the global published registry, or
// the built-in known-external set.
func verifyGlobalDependencies(ap *AnalyzedProgram) []diagnostics.Diagnostic {
	var diags []diagnostics.Diagnostic
	for _, fsa := range ap.FeatureSets {
		for name := range fsa.Inputs {
			if isKnownExternal(name) {
				continue
			}
			if _, ok := fsa.Scope.Lookup(name); ok {
				continue
			}
			if _, ok := ap.Global.Lookup(name); ok {
				continue
			}
			diags = append(diags, diagnostics.NewSemantic(
				diagnostics.SeverityWarning, diagnostics.KindUndefinedExternalDependency,
				fmt.Sprintf("feature set '%s' depends on undefined name '%s'", fsa.Name, name),
				ast.SourceLocation{},
			))
		}
	}
	return diags
}

// handlerEventType reports whether activity names an event handler
// ("<EventType> Handler") and, if so, the event type it handles.
func handlerEventType(activity string) (string, bool) {
	const suffix = " Handler"
	if !strings.HasSuffix(activity, suffix) {
		return "", false
	}
	return strings.TrimSuffix(activity, suffix), true
}

// detectCircularEvents is pass 3: a directed graph with an edge from an
// event-handler's event type to every event type it emits; a cycle is a
// hard error rendered with its chain.
func detectCircularEvents(ap *AnalyzedProgram) []diagnostics.Diagnostic {
	adj := map[string][]string{}
	for _, fsa := range ap.FeatureSets {
		if et, ok := handlerEventType(fsa.Activity); ok {
			adj[et] = append(adj[et], fsa.EmittedEvents...)
		}
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := map[string]int{}
	var diags []diagnostics.Diagnostic
	var stack []string

	var dfs func(node string)
	dfs = func(node string) {
		color[node] = gray
		stack = append(stack, node)
		for _, next := range adj[node] {
			switch color[next] {
			case white:
				dfs(next)
			case gray:
				chain := cycleChain(stack, next)
				diags = append(diags, diagnostics.NewSemantic(
					diagnostics.SeverityError, diagnostics.KindCircularDependency,
					"circular event chain: "+strings.Join(chain, " -> "),
					ast.SourceLocation{},
				))
			}
		}
		stack = stack[:len(stack)-1]
		color[node] = black
	}

	for node := range adj {
		if color[node] == white {
			dfs(node)
		}
	}
	return diags
}

// cycleChain renders the path from the first occurrence of target in stack
// through to the end, closing the loop back to target.
func cycleChain(stack []string, target string) []string {
	for i, n := range stack {
		if n == target {
			chain := append([]string{}, stack[i:]...)
			return append(chain, target)
		}
	}
	return append(append([]string{}, stack...), target)
}

// detectOrphanEvents is pass 4: every emitted event type without a
// handler (excluding built-in system events) is a warning.
func detectOrphanEvents(ap *AnalyzedProgram) []diagnostics.Diagnostic {
	handled := map[string]bool{}
	for _, fsa := range ap.FeatureSets {
		if et, ok := handlerEventType(fsa.Activity); ok {
			handled[et] = true
		}
	}

	var diags []diagnostics.Diagnostic
	reported := map[string]bool{}
	for _, fsa := range ap.FeatureSets {
		for _, emitted := range fsa.EmittedEvents {
			if handled[emitted] || systemEvents[emitted] || reported[emitted] {
				continue
			}
			reported[emitted] = true
			diags = append(diags, diagnostics.NewSemantic(
				diagnostics.SeverityWarning, diagnostics.KindOrphanEvent,
				"event '"+emitted+"' is emitted but has no '"+emitted+" Handler' feature set",
				ast.SourceLocation{},
			))
		}
	}
	return diags
}

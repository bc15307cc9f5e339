// Package optimizer implements the pure pipeline optimizer described in
// spec §4.L: predicate pushdown, projection pruning, and adjacent-filter
// fusion over a feature set's top-level statement list. It never
// executes anything; the runtime consults the returned Plan when
// wiring operators.
package optimizer

import (
	"sort"
	"strings"

	"github.com/aro-lang/aro/internal/compiler/ast"
)

// Plan records everything the optimizer decided about one feature set.
type Plan struct {
	// SwapEarlier holds the statement indices of filter actions whose
	// input variables don't include the immediately preceding
	// statement's output — safe candidates to reorder earlier.
	SwapEarlier []int
	// ProjectedFields is the union of every where.field and result
	// specifier referenced anywhere in the feature set, sorted.
	ProjectedFields []string
	// FusedFilterGroups holds maximal runs of consecutive top-level
	// filter statements, each identified by its statement indices.
	FusedFilterGroups [][]int
}

// Optimize analyzes fs and produces its Plan.
func Optimize(fs *ast.FeatureSet) *Plan {
	return &Plan{
		SwapEarlier:       swapEarlierCandidates(fs.Statements),
		ProjectedFields:   projectedFields(fs.Statements),
		FusedFilterGroups: fuseAdjacentFilters(fs.Statements),
	}
}

func isFilterStatement(s ast.StmtNode) (*ast.AROStatement, bool) {
	a, ok := s.(*ast.AROStatement)
	if !ok || !strings.EqualFold(a.Action.Verb, "filter") {
		return nil, false
	}
	return a, true
}

func outputName(s ast.StmtNode) (string, bool) {
	a, ok := s.(*ast.AROStatement)
	if !ok || a.Result == nil || a.Result.Base == "" {
		return "", false
	}
	return a.Result.Base, true
}

// swapEarlierCandidates implements spec §4.L's predicate-pushdown rule:
// for every filter-action whose input variables do not include the
// immediately preceding statement's output, it is a candidate to move
// earlier.
func swapEarlierCandidates(stmts []ast.StmtNode) []int {
	var out []int
	for i := 1; i < len(stmts); i++ {
		filterStmt, ok := isFilterStatement(stmts[i])
		if !ok {
			continue
		}
		prevOut, hasOut := outputName(stmts[i-1])
		if !hasOut {
			continue
		}
		if !inputVars(filterStmt)[prevOut] {
			out = append(out, i)
		}
	}
	return out
}

// inputVars collects every variable an AROStatement reads from: its
// where-clause value, its object (when given as an expression or as a
// plain noun reference), its source expression, and its to/with/when
// modifiers.
func inputVars(stmt *ast.AROStatement) map[string]bool {
	vars := map[string]bool{}
	if stmt.Where != nil {
		collectVarRefs(stmt.Where.Value, vars)
	}
	if stmt.Object != nil {
		if stmt.Object.IsExpression {
			collectVarRefs(stmt.Object.Expr, vars)
		} else if stmt.Object.Noun != nil && stmt.Object.Noun.Base != "" {
			vars[stmt.Object.Noun.Base] = true
		}
	}
	if stmt.Source != nil {
		collectVarRefs(stmt.Source.Expr, vars)
	}
	collectVarRefs(stmt.To, vars)
	collectVarRefs(stmt.With, vars)
	collectVarRefs(stmt.Guard, vars)
	return vars
}

// collectVarRefs recursively collects every VariableRef name reachable
// from expr, mirroring internal/compiler/analyzer's walkExprDeps.
func collectVarRefs(expr ast.ExprNode, vars map[string]bool) {
	switch e := expr.(type) {
	case nil:
		return
	case *ast.VariableRef:
		vars[e.Name] = true
	case *ast.BinaryExpr:
		collectVarRefs(e.Left, vars)
		collectVarRefs(e.Right, vars)
	case *ast.UnaryExpr:
		collectVarRefs(e.Operand, vars)
	case *ast.MemberAccessExpr:
		collectVarRefs(e.Object, vars)
	case *ast.SubscriptExpr:
		collectVarRefs(e.Object, vars)
		collectVarRefs(e.Index, vars)
	case *ast.GroupedExpr:
		collectVarRefs(e.Inner, vars)
	case *ast.ExistenceExpr:
		collectVarRefs(e.Operand, vars)
	case *ast.TypeCheckExpr:
		collectVarRefs(e.Operand, vars)
	case *ast.ArrayLiteralExpr:
		for _, el := range e.Elements {
			collectVarRefs(el, vars)
		}
	case *ast.MapLiteralExpr:
		for _, p := range e.Pairs {
			collectVarRefs(p.Key, vars)
			collectVarRefs(p.Value, vars)
		}
	case *ast.InterpolatedStringExpr:
		for _, sub := range e.Exprs {
			collectVarRefs(sub, vars)
		}
	case *ast.LiteralExpr:
		// no dependencies
	}
}

// projectedFields walks every statement (including match/for-each
// bodies) and unions every where.field and result-specifier name.
func projectedFields(stmts []ast.StmtNode) []string {
	set := map[string]bool{}
	var walk func([]ast.StmtNode)
	walk = func(stmts []ast.StmtNode) {
		for _, s := range stmts {
			switch n := s.(type) {
			case *ast.AROStatement:
				if n.Where != nil && n.Where.Field != "" {
					set[n.Where.Field] = true
				}
				if n.Result != nil && n.Result.Base != "" && n.Result.Base != "_expression_" {
					set[n.Result.Base] = true
				}
			case *ast.MatchStatement:
				for _, c := range n.Cases {
					walk(c.Body)
				}
				walk(n.Otherwise)
			case *ast.ForEachLoop:
				walk(n.Body)
			}
		}
	}
	walk(stmts)

	out := make([]string, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// fuseAdjacentFilters groups maximal runs of consecutive top-level
// filter statements; single, unfused filters are omitted.
func fuseAdjacentFilters(stmts []ast.StmtNode) [][]int {
	var groups [][]int
	var current []int
	flush := func() {
		if len(current) > 1 {
			groups = append(groups, current)
		}
		current = nil
	}
	for i, s := range stmts {
		if _, ok := isFilterStatement(s); ok {
			current = append(current, i)
		} else {
			flush()
		}
	}
	flush()
	return groups
}

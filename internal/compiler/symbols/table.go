package symbols

import "github.com/aro-lang/aro/internal/compiler/ast"

// Visibility is the closed set of symbol visibilities (spec §4.G).
type Visibility string

const (
	VisibilityInternal Visibility = "internal"
	VisibilityExternal Visibility = "external"
	VisibilityPublished Visibility = "published"
	VisibilityAlias     Visibility = "alias"
)

// SourceKind is the closed set of symbol-origin kinds.
type SourceKind string

const (
	SourceBinding   SourceKind = "binding"   // bound by an ARO statement's result
	SourceExtracted SourceKind = "extracted" // Require statement
	SourceLoopVar   SourceKind = "loop-var"  // for-each item/index
	SourceParameter SourceKind = "parameter"
)

// Symbol is one entry in a Table: a name bound within a feature set (or the
// global published registry), its inferred type, where it came from, and
// where it was first defined.
type Symbol struct {
	Name       string
	Type       Type
	Visibility Visibility
	Source     SourceKind
	// ExtractedFrom records the Require statement's source descriptor
	// ("framework", "environment", or a feature-set name) when
	// Source == SourceExtracted.
	ExtractedFrom string
	DefinedAt     ast.SourceLocation
}

// Table is an immutable symbol-table snapshot with an optional parent for
// lookup fallthrough (spec §4.F / §9: "immutable tables with structural
// sharing"). Construct one via Builder.Build — there is no public
// constructor that lets you mutate a Table in place.
type Table struct {
	parent  *Table
	symbols map[string]Symbol
}

// Lookup finds a symbol by name, walking to the parent on a miss.
func (t *Table) Lookup(name string) (Symbol, bool) {
	if t == nil {
		return Symbol{}, false
	}
	if s, ok := t.symbols[name]; ok {
		return s, true
	}
	return t.parent.Lookup(name)
}

// Names returns the symbol names defined directly in this table (not its
// parent chain), in no particular order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.symbols))
	for n := range t.symbols {
		names = append(names, n)
	}
	return names
}

// Parent returns the table's parent scope, or nil at the root.
func (t *Table) Parent() *Table { return t.parent }

// Builder accumulates symbol definitions for one scope and freezes them
// into an immutable Table via Build.
type Builder struct {
	parent  *Table
	symbols map[string]Symbol
}

// NewBuilder starts a builder for a scope nested under parent (nil for the
// root/global scope).
func NewBuilder(parent *Table) *Builder {
	return &Builder{parent: parent, symbols: make(map[string]Symbol)}
}

// Define adds or overwrites a symbol in the scope under construction.
func (b *Builder) Define(sym Symbol) {
	b.symbols[sym.Name] = sym
}

// NamesSnapshot returns the names defined directly in this builder's scope
// at the time of the call (not the parent chain).
func (b *Builder) NamesSnapshot() []string {
	names := make([]string, 0, len(b.symbols))
	for n := range b.symbols {
		names = append(names, n)
	}
	return names
}

// Get looks up a symbol already defined directly in this builder's scope
// (not the parent chain) — used by the analyzer to detect rebinding before
// freezing the table.
func (b *Builder) Get(name string) (Symbol, bool) {
	s, ok := b.symbols[name]
	return s, ok
}

// Build freezes the accumulated definitions into an immutable Table.
func (b *Builder) Build() *Table {
	frozen := make(map[string]Symbol, len(b.symbols))
	for k, v := range b.symbols {
		frozen[k] = v
	}
	return &Table{parent: b.parent, symbols: frozen}
}

// Clone returns a Builder pre-populated with a copy of this builder's
// current definitions, sharing the same parent — used for the match
// statement's per-branch scope copies (spec §4.G) so branches may each
// define the same symbol without colliding.
func (b *Builder) Clone() *Builder {
	cp := make(map[string]Symbol, len(b.symbols))
	for k, v := range b.symbols {
		cp[k] = v
	}
	return &Builder{parent: b.parent, symbols: cp}
}

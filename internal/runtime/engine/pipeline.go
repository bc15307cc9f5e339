// Package engine ties the streaming runtime components (stream, tee,
// extsort, spillhash, source, optimizer — spec §4.H-L) into pipelines
// a caller can describe declaratively rather than by hand-wiring
// operators. It is the layer the gateway's pipeline endpoints sit on:
// POST /v1/pipelines takes a Spec, Build turns it into a
// stream.Stream[source.Row], and Registry wraps the result in a
// tee.Tee so multiple consumers can read the same run independently.
//
// The compiler (components A-G) validates ARO source and produces an
// analyzed feature set; it does not itself interpret that feature set
// back into a running stream pipeline. Spec describes the data-side of
// a pipeline (its source and its sequence of filter/take/drop/sort/
// distinct steps) independently of the language frontend, so a feature
// set compiled via internal/compiler can be named by the caller and
// its where-clauses translated into Steps without this package
// depending on the AST at all.
package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/aro-lang/aro/internal/runtime/extsort"
	"github.com/aro-lang/aro/internal/runtime/source"
	"github.com/aro-lang/aro/internal/runtime/spillhash"
	"github.com/aro-lang/aro/internal/runtime/stream"
)

// SourceKind selects which source.From* reader builds the pipeline's
// input stream.
type SourceKind string

const (
	SourceCSV       SourceKind = "csv"
	SourceJSONL     SourceKind = "jsonl"
	SourceJSONArray SourceKind = "json_array"
)

// FilterOp is the set of comparison operators a FilterStep may apply to
// a Row field, mirroring the where-clause operators the parser accepts
// (internal/compiler/parser/parser.go's parseWhereOperator).
type FilterOp string

const (
	OpEquals      FilterOp = "equals"
	OpNotEquals   FilterOp = "not_equals"
	OpLessThan    FilterOp = "less_than"
	OpGreaterThan FilterOp = "greater_than"
	OpContains    FilterOp = "contains"
)

// Step is one stage of a Spec's pipeline. Concrete step kinds are the
// XxxStep structs below; apply wraps in with the stage's operator.
type Step interface {
	apply(ctx context.Context, eng *Engine, in stream.Stream[source.Row]) (stream.Stream[source.Row], error)
}

// FilterStep keeps rows where Field compares to Value per Op.
type FilterStep struct {
	Field string
	Op    FilterOp
	Value any
}

func (s FilterStep) apply(_ context.Context, _ *Engine, in stream.Stream[source.Row]) (stream.Stream[source.Row], error) {
	pred, err := s.predicate()
	if err != nil {
		return nil, err
	}
	return stream.Filter(in, pred), nil
}

func (s FilterStep) predicate() (func(source.Row) bool, error) {
	switch s.Op {
	case OpEquals:
		return func(r source.Row) bool { return compareEqual(r[s.Field], s.Value) }, nil
	case OpNotEquals:
		return func(r source.Row) bool { return !compareEqual(r[s.Field], s.Value) }, nil
	case OpLessThan:
		return func(r source.Row) bool { return compareOrdered(r[s.Field], s.Value) < 0 }, nil
	case OpGreaterThan:
		return func(r source.Row) bool { return compareOrdered(r[s.Field], s.Value) > 0 }, nil
	case OpContains:
		return func(r source.Row) bool {
			haystack, _ := r[s.Field].(string)
			needle, _ := s.Value.(string)
			return strings.Contains(haystack, needle)
		}, nil
	default:
		return nil, fmt.Errorf("engine: unknown filter operator %q", s.Op)
	}
}

// TakeStep yields at most N rows.
type TakeStep struct{ N int }

func (s TakeStep) apply(_ context.Context, _ *Engine, in stream.Stream[source.Row]) (stream.Stream[source.Row], error) {
	return stream.Take(in, s.N), nil
}

// DropStep skips the first N rows.
type DropStep struct{ N int }

func (s DropStep) apply(_ context.Context, _ *Engine, in stream.Stream[source.Row]) (stream.Stream[source.Row], error) {
	return stream.Drop(in, s.N), nil
}

// DistinctStep keeps the first row seen for each distinct value of
// Field, spilling the seen-set to the engine's Store once it outgrows
// memory (component K, via spillhash.Distinct).
type DistinctStep struct {
	Field           string
	NumPartitions   int
	MemoryThreshold int
}

func (s DistinctStep) apply(ctx context.Context, eng *Engine, in stream.Stream[source.Row]) (stream.Stream[source.Row], error) {
	field := s.Field
	keyString := func(r source.Row) string { return fmt.Sprint(r[field]) }
	out := spillhash.Distinct(ctx, in, keyString, partitionsOrDefault(s.NumPartitions), thresholdOrDefault(s.MemoryThreshold), eng.nextBucket("distinct"), eng.store)
	return out, nil
}

// SortStep orders rows by Field using the chunk-sort + k-way-merge
// external sort (component K, first half), so a sort step scales past
// memory the same as a real stream.Stream source would.
type SortStep struct {
	Field      string
	Descending bool
	ChunkSize  int
}

func (s SortStep) apply(_ context.Context, _ *Engine, in stream.Stream[source.Row]) (stream.Stream[source.Row], error) {
	field := s.Field
	less := func(a, b source.Row) bool {
		c := compareOrdered(a[field], b[field])
		if s.Descending {
			return c > 0
		}
		return c < 0
	}
	chunkSize := s.ChunkSize
	if chunkSize < 1 {
		chunkSize = 1000
	}
	sorted, _, err := extsort.Sort(in, less, chunkSize)
	return sorted, err
}

// Spec declaratively describes one pipeline run: where its rows come
// from and the ordered steps applied to them.
type Spec struct {
	Source       SourceKind
	CSVOptions   source.CSVOptions
	JSONLOptions source.JSONLOptions
	ChunkSize    int
	Steps        []Step
}

// compareEqual and compareOrdered treat numeric values loosely (the
// coercion ladder in internal/runtime/source already normalized
// strings to int64/float64/bool where possible, so equality here is
// plain Go equality plus an int64/float64 cross-comparison).
func compareEqual(a, b any) bool {
	return compareOrdered(a, b) == 0
}

func compareOrdered(a, b any) int {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	as := fmt.Sprint(a)
	bs := fmt.Sprint(b)
	return strings.Compare(as, bs)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func partitionsOrDefault(n int) int {
	if n < 1 {
		return 8
	}
	return n
}

func thresholdOrDefault(n int) int {
	if n < 1 {
		return 10000
	}
	return n
}


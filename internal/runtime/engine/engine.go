package engine

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/aro-lang/aro/internal/runtime/source"
	"github.com/aro-lang/aro/internal/runtime/spillhash"
	"github.com/aro-lang/aro/internal/runtime/stream"
	"github.com/aro-lang/aro/internal/runtime/tee"
	"github.com/google/uuid"
)

// Engine builds pipelines from a Spec, giving every spill-backed step
// (Distinct, and anything else component K ends up powering) a shared
// Store and a collision-free bucket namespace.
type Engine struct {
	store  spillhash.Store
	prefix string
	seq    uint64
}

// New creates an Engine whose spill-backed steps share store, each
// under its own generated bucket prefix so concurrent pipelines on the
// same store don't collide.
func New(store spillhash.Store) *Engine {
	return &Engine{store: store, prefix: uuid.NewString()}
}

func (e *Engine) nextBucket(kind string) string {
	n := atomic.AddUint64(&e.seq, 1)
	return fmt.Sprintf("%s/%s/%d", e.prefix, kind, n)
}

// Build opens spec's source and threads it through every step in
// order, returning the resulting stream. r is closed by the caller
// once the stream is fully drained (Build does not close it itself,
// matching source.FromCSV/FromJSONL/FromJSONArray's own contract of
// taking an io.Reader rather than owning it).
func (e *Engine) Build(ctx context.Context, r io.Reader, spec Spec) (stream.Stream[source.Row], error) {
	chunkSize := spec.ChunkSize
	if chunkSize < 1 {
		chunkSize = 500
	}

	var rows stream.Stream[source.Row]
	switch spec.Source {
	case SourceCSV:
		opts := spec.CSVOptions
		if opts == (source.CSVOptions{}) {
			opts = source.DefaultCSVOptions()
		}
		rows = source.FromCSV(r, opts, chunkSize)
	case SourceJSONL:
		rows = source.FromJSONL(r, spec.JSONLOptions)
	case SourceJSONArray:
		decoded, err := source.FromJSONArray(r)
		if err != nil {
			return nil, err
		}
		rows = decoded
	default:
		return nil, fmt.Errorf("engine: unknown source kind %q", spec.Source)
	}

	for _, step := range spec.Steps {
		next, err := step.apply(ctx, e, rows)
		if err != nil {
			return nil, err
		}
		rows = next
	}
	return rows, nil
}

// Pipeline is one running Build result, fanned out through a Tee so
// multiple gateway consumers can read it independently (spec §4.J).
type Pipeline struct {
	ID  string
	tee *tee.Tee[source.Row]
}

// CreateConsumer registers a new tee consumer and returns the stream
// view it should read from (spec §4.J: each consumer pulls
// independently, at its own pace).
func (p *Pipeline) CreateConsumer() (consumerID int, rows stream.Stream[source.Row]) {
	id := p.tee.CreateConsumer()
	return id, p.tee.Stream(id)
}

// CloseConsumer releases a consumer's place in the tee's ring buffer
// so a slow or abandoned consumer doesn't hold back trimming.
func (p *Pipeline) CloseConsumer(consumerID int) {
	p.tee.CloseConsumer(consumerID)
}

// Registry tracks running pipelines by job ID (spec §6: POST
// /v1/pipelines returns a UUID job ID; GET .../tee looks the job back
// up by that ID).
type Registry struct {
	mu        sync.RWMutex
	pipelines map[string]*Pipeline
	bufferCap int
}

// NewRegistry creates a Registry whose tees buffer bufferCap elements
// per pipeline before the slowest consumer starts failing with
// tee.ErrConsumerTooSlow.
func NewRegistry(bufferCap int) *Registry {
	if bufferCap < 1 {
		bufferCap = 256
	}
	return &Registry{pipelines: map[string]*Pipeline{}, bufferCap: bufferCap}
}

// Create wraps rows in a new Tee, registers it under a generated job
// ID, and returns the Pipeline handle.
func (reg *Registry) Create(rows stream.Stream[source.Row]) *Pipeline {
	p := &Pipeline{ID: uuid.NewString(), tee: tee.New(rows, reg.bufferCap)}
	reg.mu.Lock()
	reg.pipelines[p.ID] = p
	reg.mu.Unlock()
	return p
}

// Get looks up a running pipeline by job ID.
func (reg *Registry) Get(id string) (*Pipeline, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	p, ok := reg.pipelines[id]
	return p, ok
}

// Remove drops a pipeline from the registry; it does not stop any
// consumer currently reading from its tee.
func (reg *Registry) Remove(id string) {
	reg.mu.Lock()
	delete(reg.pipelines, id)
	reg.mu.Unlock()
}

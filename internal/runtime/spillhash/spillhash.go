// Package spillhash implements the partitioned, spillable hash map
// described in spec §4.K, and the GroupBy/Distinct operators derived
// from it.
package spillhash

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/aro-lang/aro/internal/runtime/stream"
	"github.com/google/uuid"
)

// Entry pairs a key and value for iteration and for spill encoding —
// stored whole so a spilled record can be decoded back into its
// original K without needing a reversible key encoding.
type Entry[K any, V any] struct {
	Key   K
	Value V
}

// Stats records spill bookkeeping (spec §4.K).
type Stats struct {
	SpillCount        int
	PartitionsSpilled int
}

// Map is a hash map partitioned by hash(key) mod numPartitions. Once
// the total number of in-memory entries exceeds memoryThreshold, the
// largest in-memory partition is spilled to store and cleared from
// memory.
type Map[K any, V any] struct {
	mu              sync.Mutex
	store           Store
	keyString       func(K) string
	numPartitions   int
	memoryThreshold int
	bucketPrefix    string

	partitions []map[string]Entry[K, V]
	spilled    map[int]bool
	stats      Stats
}

// New creates a spillable map. keyString must deterministically encode
// K into a string used both for partition hashing and as the spilled
// record's field name.
func New[K any, V any](store Store, keyString func(K) string, numPartitions, memoryThreshold int, bucketPrefix string) *Map[K, V] {
	if numPartitions < 1 {
		numPartitions = 1
	}
	partitions := make([]map[string]Entry[K, V], numPartitions)
	for i := range partitions {
		partitions[i] = map[string]Entry[K, V]{}
	}
	return &Map[K, V]{
		store:           store,
		keyString:       keyString,
		numPartitions:   numPartitions,
		memoryThreshold: memoryThreshold,
		bucketPrefix:    bucketPrefix,
		partitions:      partitions,
		spilled:         map[int]bool{},
	}
}

// NewWithGeneratedPrefix is New with a unique bucket prefix, so callers
// that don't otherwise need a stable name (a one-off GroupBy/Distinct
// pass, for instance) don't collide with another spillable map sharing
// the same store. The prefix namespaces the map's buckets: Redis hash
// keys for RedisStore, bucket files for DiskStore.
func NewWithGeneratedPrefix[K any, V any](store Store, keyString func(K) string, numPartitions, memoryThreshold int) *Map[K, V] {
	return New[K, V](store, keyString, numPartitions, memoryThreshold, uuid.NewString())
}

func (m *Map[K, V]) partitionIndex(ks string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(ks))
	return int(h.Sum32()) % m.numPartitions
}

func (m *Map[K, V]) bucketName(idx int) string {
	return m.bucketPrefix + "/" + strconv.Itoa(idx)
}

// Insert adds or overwrites key with value.
func (m *Map[K, V]) Insert(ctx context.Context, key K, value V) error {
	ks := m.keyString(key)
	idx := m.partitionIndex(ks)

	m.mu.Lock()
	defer m.mu.Unlock()

	wasSpilled := m.spilled[idx]
	bucket := m.bucketName(idx)
	m.partitions[idx][ks] = Entry[K, V]{Key: key, Value: value}

	if m.totalInMemoryLocked() > m.memoryThreshold {
		if err := m.spillLargestLocked(ctx); err != nil {
			return err
		}
	}

	// A key that was spilled earlier and is now back in memory leaves a
	// stale copy behind in the store; drop it so Entries doesn't union
	// both. Harmless no-op if the field was never spilled.
	if wasSpilled {
		if _, stillInMemory := m.partitions[idx][ks]; stillInMemory {
			if err := m.store.DeleteField(ctx, bucket, ks); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *Map[K, V]) totalInMemoryLocked() int {
	total := 0
	for _, p := range m.partitions {
		total += len(p)
	}
	return total
}

// spillLargestLocked serializes the largest non-empty in-memory
// partition to the store and clears it from memory. Must be called
// with mu held.
func (m *Map[K, V]) spillLargestLocked(ctx context.Context) error {
	largest, largestSize := -1, 0
	for i, p := range m.partitions {
		if len(p) > largestSize {
			largest, largestSize = i, len(p)
		}
	}
	if largest == -1 {
		return nil
	}

	bucket := m.bucketName(largest)
	for ks, entry := range m.partitions[largest] {
		encoded, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		if err := m.store.SetField(ctx, bucket, ks, encoded); err != nil {
			return err
		}
	}

	m.partitions[largest] = map[string]Entry[K, V]{}
	if !m.spilled[largest] {
		m.spilled[largest] = true
		m.stats.PartitionsSpilled = len(m.spilled)
	}
	m.stats.SpillCount++
	return nil
}

// Get looks up key, transparently checking the spilled partition if it
// is not resident in memory (spec §4.K: queries against spilled
// partitions may transparently merge at iteration time).
func (m *Map[K, V]) Get(ctx context.Context, key K) (V, bool, error) {
	ks := m.keyString(key)
	idx := m.partitionIndex(ks)

	m.mu.Lock()
	entry, ok := m.partitions[idx][ks]
	spilled := m.spilled[idx]
	bucket := m.bucketName(idx)
	m.mu.Unlock()

	if ok {
		return entry.Value, true, nil
	}
	if !spilled {
		var zero V
		return zero, false, nil
	}

	fields, err := m.store.AllFields(ctx, bucket)
	if err != nil {
		var zero V
		return zero, false, err
	}
	raw, ok := fields[ks]
	if !ok {
		var zero V
		return zero, false, nil
	}
	var decoded Entry[K, V]
	if err := json.Unmarshal(raw, &decoded); err != nil {
		var zero V
		return zero, false, err
	}
	return decoded.Value, true, nil
}

// Entries returns a stream over every entry, in-memory and spilled
// (spec §4.K: "entries() returns a stream that unions all in-memory
// and spilled data").
func (m *Map[K, V]) Entries(ctx context.Context) (stream.Stream[Entry[K, V]], error) {
	m.mu.Lock()
	var all []Entry[K, V]
	for _, p := range m.partitions {
		for _, e := range p {
			all = append(all, e)
		}
	}
	spilledIdx := make([]int, 0, len(m.spilled))
	for idx := range m.spilled {
		spilledIdx = append(spilledIdx, idx)
	}
	m.mu.Unlock()

	for _, idx := range spilledIdx {
		fields, err := m.store.AllFields(ctx, m.bucketName(idx))
		if err != nil {
			return nil, err
		}
		for _, raw := range fields {
			var decoded Entry[K, V]
			if err := json.Unmarshal(raw, &decoded); err != nil {
				return nil, err
			}
			all = append(all, decoded)
		}
	}
	return stream.FromSlice(all), nil
}

// Stats returns the spill bookkeeping accumulated so far.
func (m *Map[K, V]) Stats() Stats { return m.stats }

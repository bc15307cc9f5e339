package spillhash

import (
	"context"
	"fmt"

	"github.com/aro-lang/aro/internal/runtime/stream"
)

// Group is one key's accumulated members, as produced by GroupBy.
type Group[K any, T any] struct {
	Key     K
	Members []T
}

// GroupBy accumulates key -> list via a spillable map and then emits
// one Group per distinct key (spec §4.K: "GroupBy accumulates
// key -> list via spillable map and then iterates entries").
func GroupBy[T any, K any](ctx context.Context, src stream.Stream[T], keyFn func(T) K, keyString func(K) string, numPartitions, memoryThreshold int, bucketPrefix string, store Store) (stream.Stream[Group[K, T]], error) {
	m := New[K, []T](store, keyString, numPartitions, memoryThreshold, bucketPrefix)

	for {
		v, ok, err := src.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		key := keyFn(v)
		existing, found, err := m.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if !found {
			existing = nil
		}
		if err := m.Insert(ctx, key, append(existing, v)); err != nil {
			return nil, err
		}
	}

	entries, err := m.Entries(ctx)
	if err != nil {
		return nil, err
	}
	return stream.Map(entries, func(e Entry[K, []T]) Group[K, T] {
		return Group[K, T]{Key: e.Key, Members: e.Value}
	}), nil
}

// Distinct uses a spillable map as a T -> () seen-set and emits the
// first occurrence of each key, preserving encounter order (spec §4.K,
// testable property 15).
func Distinct[T any](ctx context.Context, src stream.Stream[T], keyString func(T) string, numPartitions, memoryThreshold int, bucketPrefix string, store Store) stream.Stream[T] {
	seen := New[T, struct{}](store, keyString, numPartitions, memoryThreshold, bucketPrefix)

	return stream.FromFunc(func() (T, bool, error) {
		var zero T
		for {
			v, ok, err := src.Next()
			if err != nil {
				return zero, false, err
			}
			if !ok {
				return zero, false, nil
			}
			_, found, err := seen.Get(ctx, v)
			if err != nil {
				return zero, false, err
			}
			if found {
				continue
			}
			if err := seen.Insert(ctx, v, struct{}{}); err != nil {
				return zero, false, err
			}
			return v, true, nil
		}
	})
}

// Record is a dictionary-shaped streaming element keyed by string
// fields, the shape streaming_group_by operates over (spec §6).
type Record map[string]any

// StreamingGroupBy specializes GroupBy to Record streams keyed by a
// single string field (spec §4.K: "Streaming GroupBy by field
// specializes to dictionary records keyed by a string field").
func StreamingGroupBy(ctx context.Context, src stream.Stream[Record], field string, numPartitions, memoryThreshold int, bucketPrefix string, store Store) (stream.Stream[Group[string, Record]], error) {
	keyFn := func(r Record) string {
		if v, ok := r[field]; ok {
			return toKeyString(v)
		}
		return ""
	}
	keyString := func(k string) string { return k }
	return GroupBy(ctx, src, keyFn, keyString, numPartitions, memoryThreshold, bucketPrefix, store)
}

func toKeyString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Package extsort implements the chunk-sort + k-way-merge external sort
// described in spec §4.K.
package extsort

import (
	"sort"

	"github.com/aro-lang/aro/internal/runtime/stream"
)

// Stats records the bookkeeping spec §4.K calls for.
type Stats struct {
	TotalElements        int
	ChunksCreated        int
	BytesSpilledEstimate int64
	MergePasses          int
}

// Sort drains src into chunks of at most chunkSize elements, sorts each
// chunk in memory with less, and returns a lazily-merged stream in
// sorted order together with the resulting stats. Chunks are merged by
// a single repeated-linear-scan-for-minimum pass across all of them at
// once (spec §4.K: "a binary heap is permitted but the design does not
// require it"), so MergePasses is always 1 once at least one chunk
// exists.
func Sort[T any](src stream.Stream[T], less func(a, b T) bool, chunkSize int) (stream.Stream[T], Stats, error) {
	if chunkSize < 1 {
		chunkSize = 1
	}

	var stats Stats
	var chunks [][]T
	chunk := make([]T, 0, chunkSize)

	flush := func() {
		if len(chunk) == 0 {
			return
		}
		sort.Slice(chunk, func(i, j int) bool { return less(chunk[i], chunk[j]) })
		chunks = append(chunks, chunk)
		stats.ChunksCreated++
		chunk = make([]T, 0, chunkSize)
	}

	for {
		v, ok, err := src.Next()
		if err != nil {
			return nil, stats, err
		}
		if !ok {
			break
		}
		chunk = append(chunk, v)
		stats.TotalElements++
		if len(chunk) == chunkSize {
			flush()
		}
	}
	flush()

	if stats.ChunksCreated > 0 {
		stats.MergePasses = 1
	}

	return mergeChunks(chunks, less), stats, nil
}

// mergeChunks performs a k-way merge over already-sorted chunks by
// repeated linear scan for the minimum head element.
func mergeChunks[T any](chunks [][]T, less func(a, b T) bool) stream.Stream[T] {
	cursor := make([]int, len(chunks))
	return stream.FromFunc(func() (T, bool, error) {
		var zero T
		best := -1
		for i, c := range chunks {
			if cursor[i] >= len(c) {
				continue
			}
			if best == -1 || less(c[cursor[i]], chunks[best][cursor[best]]) {
				best = i
			}
		}
		if best == -1 {
			return zero, false, nil
		}
		v := chunks[best][cursor[best]]
		cursor[best]++
		return v, true, nil
	})
}

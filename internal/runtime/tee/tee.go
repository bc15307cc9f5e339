package tee

import (
	"errors"
	"sync"

	"github.com/aro-lang/aro/internal/runtime/stream"
)

// ErrConsumerTooSlow is returned by Next when a consumer's required
// element has already been evicted from the buffer (spec §7).
var ErrConsumerTooSlow = errors.New("tee: consumer too slow")

// ErrInvalidConsumer is returned by Next for an unknown or
// already-closed consumer id (spec §7); CloseConsumer of such an id is
// a no-op.
var ErrInvalidConsumer = errors.New("tee: invalid consumer")

// Tee owns a single source stream and a shared ring buffer, fanning the
// source out to any number of independent consumers that each see the
// same element sequence in source order (spec §4.J).
//
// The reference design pulls the source from a dedicated background
// task; here every Next call pulls synchronously under the tee's own
// mutex instead — there is still exactly one puller active at a time
// (the mutex is the isolation boundary spec §5 calls for), it simply
// runs on the calling consumer's goroutine rather than a separate one.
type Tee[T any] struct {
	mu         sync.Mutex
	source     stream.Stream[T]
	buf        *RingBuffer[T]
	positions  map[int]int
	nextID     int
	sourceErr  error
	sourceDone bool
}

// New creates a tee over source with a ring buffer of the given
// capacity.
func New[T any](source stream.Stream[T], bufferCapacity int) *Tee[T] {
	return &Tee[T]{
		source:    source,
		buf:       NewRingBuffer[T](bufferCapacity),
		positions: map[int]int{},
	}
}

// CreateConsumer registers a new consumer starting at the beginning of
// the source sequence and returns its id.
func (t *Tee[T]) CreateConsumer() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextID
	t.nextID++
	t.positions[id] = 0
	return id
}

// CloseConsumer removes a consumer from tracking, potentially allowing
// the buffer to trim further.
func (t *Tee[T]) CloseConsumer(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.positions, id)
	t.trimToSlowestLocked()
}

// Next returns the consumer's next element, pulling from the source if
// it is not yet buffered. After a successful advance the buffer is
// trimmed to the slowest remaining consumer's position.
func (t *Tee[T]) Next(id int) (T, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var zero T
	pos, ok := t.positions[id]
	if !ok {
		return zero, false, ErrInvalidConsumer
	}

	for {
		if v, avail := t.buf.Element(pos); avail {
			t.positions[id] = pos + 1
			t.trimToSlowestLocked()
			return v, true, nil
		}
		if t.buf.WasEvicted(pos) {
			return zero, false, ErrConsumerTooSlow
		}
		if t.sourceErr != nil {
			return zero, false, t.sourceErr
		}
		if t.sourceDone {
			return zero, false, nil
		}

		v, more, err := t.source.Next()
		if err != nil {
			t.sourceErr = err
			return zero, false, err
		}
		if !more {
			t.sourceDone = true
			return zero, false, nil
		}
		t.buf.Append(v)
	}
}

// trimToSlowestLocked trims the buffer to the minimum read position
// across all live consumers (spec §4.J: "after each consumer advance,
// trim buffer to min(consumer positions)"). Must be called with mu held.
func (t *Tee[T]) trimToSlowestLocked() {
	if len(t.positions) == 0 {
		t.buf.TrimTo(t.buf.Produced())
		return
	}
	min := -1
	for _, p := range t.positions {
		if min == -1 || p < min {
			min = p
		}
	}
	t.buf.TrimTo(min)
}

// Stream returns a stream.Stream view of one consumer, so tee output can
// be composed with the rest of the stream package's operators.
func (t *Tee[T]) Stream(id int) stream.Stream[T] {
	return stream.FromFunc(func() (T, bool, error) {
		return t.Next(id)
	})
}

package stream

// Filter yields only elements for which pred returns true. Lazy: pred is
// invoked at most once per upstream element, only when the consumer pulls.
func Filter[T any](s Stream[T], pred func(T) bool) Stream[T] {
	return PullFunc[T](func() (T, bool, error) {
		for {
			v, ok, err := s.Next()
			if err != nil || !ok {
				return v, ok, err
			}
			if pred(v) {
				return v, true, nil
			}
		}
	})
}

// Map transforms each element with f. Because Go forbids a method from
// introducing a new type parameter, this and every other shape-changing
// operator are free functions rather than Stream[T] methods.
func Map[T, U any](s Stream[T], f func(T) U) Stream[U] {
	return PullFunc[U](func() (U, bool, error) {
		var zero U
		v, ok, err := s.Next()
		if err != nil || !ok {
			return zero, ok, err
		}
		return f(v), true, nil
	})
}

// FlatMap maps each element to an inner stream and flattens the results.
func FlatMap[T, U any](s Stream[T], f func(T) Stream[U]) Stream[U] {
	var inner Stream[U]
	return PullFunc[U](func() (U, bool, error) {
		var zero U
		for {
			if inner != nil {
				v, ok, err := inner.Next()
				if err != nil {
					return zero, false, err
				}
				if ok {
					return v, true, nil
				}
				inner = nil
			}
			v, ok, err := s.Next()
			if err != nil || !ok {
				return zero, ok, err
			}
			inner = f(v)
		}
	})
}

// CompactMap maps each element, dropping those where f's second return
// is false (the combined map+filter idiom).
func CompactMap[T, U any](s Stream[T], f func(T) (U, bool)) Stream[U] {
	return PullFunc[U](func() (U, bool, error) {
		var zero U
		for {
			v, ok, err := s.Next()
			if err != nil || !ok {
				return zero, ok, err
			}
			if u, keep := f(v); keep {
				return u, true, nil
			}
		}
	})
}

// Take yields at most n elements then completes, without pulling the
// (n+1)th upstream element (spec testable property 12).
func Take[T any](s Stream[T], n int) Stream[T] {
	taken := 0
	return PullFunc[T](func() (T, bool, error) {
		var zero T
		if taken >= n {
			return zero, false, nil
		}
		v, ok, err := s.Next()
		if err != nil || !ok {
			return v, ok, err
		}
		taken++
		return v, true, nil
	})
}

// Drop discards the first n elements, then yields the rest.
func Drop[T any](s Stream[T], n int) Stream[T] {
	dropped := 0
	return PullFunc[T](func() (T, bool, error) {
		for dropped < n {
			_, ok, err := s.Next()
			if err != nil || !ok {
				var zero T
				return zero, ok, err
			}
			dropped++
		}
		return s.Next()
	})
}

// TakeWhile yields elements until pred first returns false, then
// completes without consuming further upstream elements.
func TakeWhile[T any](s Stream[T], pred func(T) bool) Stream[T] {
	done := false
	return PullFunc[T](func() (T, bool, error) {
		var zero T
		if done {
			return zero, false, nil
		}
		v, ok, err := s.Next()
		if err != nil || !ok {
			return v, ok, err
		}
		if !pred(v) {
			done = true
			return zero, false, nil
		}
		return v, true, nil
	})
}

// DropWhile discards elements while pred holds, then yields everything
// from the first element for which pred is false onward.
func DropWhile[T any](s Stream[T], pred func(T) bool) Stream[T] {
	dropping := true
	return PullFunc[T](func() (T, bool, error) {
		for dropping {
			v, ok, err := s.Next()
			if err != nil || !ok {
				var zero T
				return zero, ok, err
			}
			if !pred(v) {
				dropping = false
				return v, true, nil
			}
		}
		return s.Next()
	})
}

// Collect drives s to completion and materializes every element.
func Collect[T any](s Stream[T]) ([]T, error) {
	var out []T
	for {
		v, ok, err := s.Next()
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, v)
	}
}

// Reduce drives s to completion, folding elements through f starting
// from init.
func Reduce[T, A any](s Stream[T], init A, f func(A, T) A) (A, error) {
	acc := init
	for {
		v, ok, err := s.Next()
		if err != nil {
			return acc, err
		}
		if !ok {
			return acc, nil
		}
		acc = f(acc, v)
	}
}

// ForEach drives s to completion, invoking f for every element.
func ForEach[T any](s Stream[T], f func(T)) error {
	_, err := Reduce(s, struct{}{}, func(_ struct{}, v T) struct{} {
		f(v)
		return struct{}{}
	})
	return err
}

// Count drives s to completion and returns the number of elements seen.
func Count[T any](s Stream[T]) (int, error) {
	return Reduce(s, 0, func(n int, _ T) int { return n + 1 })
}

// First returns the first element for which pred holds, or ok=false if
// none does. Stops pulling upstream as soon as a match is found.
func First[T any](s Stream[T], pred func(T) bool) (value T, ok bool, err error) {
	for {
		v, more, e := s.Next()
		if e != nil || !more {
			return v, false, e
		}
		if pred(v) {
			return v, true, nil
		}
	}
}

// Contains reports whether any element satisfies pred.
func Contains[T any](s Stream[T], pred func(T) bool) (bool, error) {
	_, ok, err := First(s, pred)
	return ok, err
}

// AllSatisfy reports whether every element satisfies pred, short-
// circuiting on the first failure.
func AllSatisfy[T any](s Stream[T], pred func(T) bool) (bool, error) {
	for {
		v, ok, err := s.Next()
		if err != nil {
			return false, err
		}
		if !ok {
			return true, nil
		}
		if !pred(v) {
			return false, nil
		}
	}
}

// Number is the set of element types the numeric reductions accept.
type Number interface {
	~int | ~int32 | ~int64 | ~float32 | ~float64
}

// Sum drives s to completion and returns the sum of its elements.
func Sum[T Number](s Stream[T]) (T, error) {
	var zero T
	return Reduce(s, zero, func(acc T, v T) T { return acc + v })
}

// Min drives s to completion and returns its smallest element.
func Min[T Number](s Stream[T]) (min T, ok bool, err error) {
	first := true
	for {
		v, more, e := s.Next()
		if e != nil {
			return min, false, e
		}
		if !more {
			return min, !first, nil
		}
		if first || v < min {
			min = v
		}
		first = false
	}
}

// Max drives s to completion and returns its largest element.
func Max[T Number](s Stream[T]) (max T, ok bool, err error) {
	first := true
	for {
		v, more, e := s.Next()
		if e != nil {
			return max, false, e
		}
		if !more {
			return max, !first, nil
		}
		if first || v > max {
			max = v
		}
		first = false
	}
}

package source

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/aro-lang/aro/internal/runtime/stream"
)

// ErrNotAnArray and ErrElementNotObject are the named JSON-array
// runtime errors from spec §7 (notAnArray, elementNotObject).
var (
	ErrNotAnArray       = errors.New("source: not an array")
	ErrElementNotObject = errors.New("source: element not object")
)

// FromJSONArray streams each element of a top-level JSON array as a
// Row, decoding one element at a time rather than materializing the
// whole array.
func FromJSONArray(r io.Reader) (stream.Stream[Row], error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, ErrNotAnArray
	}

	return stream.FromFunc(func() (Row, bool, error) {
		var zero Row
		if !dec.More() {
			if _, err := dec.Token(); err != nil && err != io.EOF {
				return zero, false, err
			}
			return zero, false, nil
		}
		var row Row
		if err := dec.Decode(&row); err != nil {
			return zero, false, ErrElementNotObject
		}
		return row, true, nil
	}), nil
}

package source

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/aro-lang/aro/internal/runtime/stream"
)

// ErrLineTooLong and ErrMalformedJSON are the named JSONL runtime
// errors from spec §7 (lineTooLong, malformedJSON).
var (
	ErrLineTooLong   = errors.New("source: line too long")
	ErrMalformedJSON = errors.New("source: malformed json")
)

// JSONLOptions mirrors stream_from_jsonl's option bag (spec §6).
type JSONLOptions struct {
	SkipMalformed bool
	MaxLineLength int // 0 means unlimited
}

// FromJSONL streams one Row per JSON-object line. Blank lines and
// lines starting with "#" or "//" are skipped. Lines over
// MaxLineLength, and lines that fail to decode as a JSON object,
// either abort the stream or are skipped depending on SkipMalformed.
func FromJSONL(r io.Reader, opts JSONLOptions) stream.Stream[Row] {
	br := bufio.NewReader(r)
	var failErr error

	return stream.FromFunc(func() (Row, bool, error) {
		var zero Row
		if failErr != nil {
			return zero, false, failErr
		}
		for {
			raw, readErr := br.ReadString('\n')
			if raw == "" && readErr != nil {
				if readErr == io.EOF {
					return zero, false, nil
				}
				failErr = readErr
				return zero, false, readErr
			}
			done := readErr == io.EOF

			line := strings.TrimSpace(strings.TrimRight(raw, "\r\n"))
			if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
				if done {
					return zero, false, nil
				}
				continue
			}

			if opts.MaxLineLength > 0 && len(line) > opts.MaxLineLength {
				if !opts.SkipMalformed {
					failErr = ErrLineTooLong
					return zero, false, ErrLineTooLong
				}
				if done {
					return zero, false, nil
				}
				continue
			}

			var row Row
			if err := json.Unmarshal([]byte(line), &row); err != nil {
				if !opts.SkipMalformed {
					failErr = ErrMalformedJSON
					return zero, false, ErrMalformedJSON
				}
				if done {
					return zero, false, nil
				}
				continue
			}
			return row, true, nil
		}
	})
}

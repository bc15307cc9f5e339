// Package source implements the CSV/JSONL/JSON-array stream readers
// described in spec §6.
package source

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/aro-lang/aro/internal/runtime/stream"
)

// Row is one record from any source reader: a dictionary keyed by
// (for CSV) header name or column index, or (for JSON/JSONL) the
// decoded object's own keys.
type Row map[string]any

// CSVOptions mirrors stream_from_csv's option bag (spec §6).
type CSVOptions struct {
	Delimiter      rune
	HasHeader      bool
	TrimWhitespace bool
}

func DefaultCSVOptions() CSVOptions {
	return CSVOptions{Delimiter: ',', HasHeader: true, TrimWhitespace: true}
}

// FromCSV streams rows out of r. Quoted fields, embedded delimiters and
// newlines, and "" escaped-quote handling all come from encoding/csv,
// which already implements RFC-4180 to the letter the spec asks for;
// the one option the spec names that encoding/csv has no hook for is a
// configurable quote character, so quoting is always '"' regardless of
// CSVOptions. chunkSize only sizes the underlying read buffer — rows
// are still produced one at a time, since Stream is pull-based.
func FromCSV(r io.Reader, opts CSVOptions, chunkSize int) stream.Stream[Row] {
	bufSize := chunkSize * 256
	if bufSize < 4096 {
		bufSize = 4096
	}
	cr := csv.NewReader(bufio.NewReaderSize(r, bufSize))
	if opts.Delimiter != 0 {
		cr.Comma = opts.Delimiter
	}
	cr.FieldsPerRecord = -1

	var header []string
	headerRead := !opts.HasHeader
	var failErr error

	return stream.FromFunc(func() (Row, bool, error) {
		var zero Row
		if failErr != nil {
			return zero, false, failErr
		}
		for {
			rec, err := cr.Read()
			if err == io.EOF {
				return zero, false, nil
			}
			if err != nil {
				failErr = err
				return zero, false, err
			}
			if opts.TrimWhitespace {
				for i, f := range rec {
					rec[i] = strings.TrimSpace(f)
				}
			}
			if !headerRead {
				header = make([]string, len(rec))
				for i, h := range rec {
					header[i] = kebabCase(h)
				}
				headerRead = true
				continue
			}
			return buildRow(header, rec), true, nil
		}
	})
}

// FromCSVFile opens path and streams it, returning a closer the caller
// must invoke once the stream is drained or abandoned.
func FromCSVFile(path string, opts CSVOptions, chunkSize int) (stream.Stream[Row], func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return FromCSV(f, opts, chunkSize), f.Close, nil
}

func buildRow(header []string, rec []string) Row {
	row := make(Row, len(rec))
	for i, v := range rec {
		key := fmt.Sprintf("col%d", i)
		if i < len(header) {
			key = header[i]
		}
		row[key] = coerceValue(v)
	}
	return row
}

// coerceValue applies the int/float/bool/string ladder spec §6 spells
// out for CSV cell values.
func coerceValue(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch strings.ToLower(s) {
	case "true", "yes":
		return true
	case "false", "no":
		return false
	}
	return s
}

// kebabCase normalizes a CSV header cell to lower-case kebab-case,
// replacing dots and spaces with '-' (spec §6).
func kebabCase(s string) string {
	s = strings.ToLower(s)
	s = strings.Map(func(r rune) rune {
		if r == ' ' || r == '.' {
			return '-'
		}
		return r
	}, s)
	return s
}

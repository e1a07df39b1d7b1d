// Package table reads the comment-tolerant delimited text files written by the
// logging app.
package table

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
)

// Comma and Tab are the two delimiters in use: sensor dumps are comma
// separated, merged output is tab separated.
const (
	Comma = ','
	Tab   = '\t'
)

// ErrMalformedRow is returned when a row cannot be decoded
var ErrMalformedRow = errors.New("malformed row")

// Read parses the file at path into rows of fields. A missing file yields an
// empty table.
func Read(path string, delim rune) ([][]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}
	defer f.Close()

	return Parse(f, delim)
}

// Parse decodes rows from r. Lines starting with '#' are skipped and rows may
// have differing field counts.
func Parse(r io.Reader, delim rune) ([][]string, error) {
	reader := newReader(r, delim)

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, wrapRowError(err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Each streams rows from the file at path to fn without holding the whole file
// in memory. A missing file calls fn zero times.
func Each(path string, delim rune, fn func(line int, row []string) error) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open table: %w", err)
	}
	defer f.Close()

	reader := newReader(bufio.NewReaderSize(f, 1<<20), delim)
	reader.ReuseRecord = true

	for {
		row, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return wrapRowError(err)
		}
		line, _ := reader.FieldPos(0)
		if err := fn(line, row); err != nil {
			return err
		}
	}
}

func newReader(r io.Reader, delim rune) *csv.Reader {
	reader := csv.NewReader(r)
	reader.Comma = delim
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	return reader
}

func wrapRowError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return fmt.Errorf("%w: line %d: %v", ErrMalformedRow, pe.Line, pe.Err)
	}
	return fmt.Errorf("read table: %w", err)
}

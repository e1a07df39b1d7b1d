// Package labels maps barometer timestamps onto the vehicle labels recorded in
// the merged output files.
package labels

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pbaille/barotrace/internal/domain"
)

// Merged output columns
const (
	labelCol = 0
	toCol    = 3
	fromCol  = 4
)

// DateKey returns the YYYY-M-D key (no zero padding) of a Unix millisecond
// timestamp in loc
func DateKey(ts int64, loc *time.Location) string {
	t := time.UnixMilli(ts).In(loc)
	return fmt.Sprintf("%d-%d-%d", t.Year(), int(t.Month()), t.Day())
}

// DateIndex holds one date's events as parallel timestamp/label slices, in
// insertion order
type DateIndex struct {
	Timestamps []int64
	Labels     []string
}

func (d *DateIndex) add(e domain.LabelEvent) {
	d.Timestamps = append(d.Timestamps, e.Timestamp)
	d.Labels = append(d.Labels, e.Label)
}

// Len returns the number of events stored for the date
func (d *DateIndex) Len() int {
	return len(d.Timestamps)
}

// Index is the per-date label index built from merged output. It is filled
// during the first pass and only read afterwards.
type Index struct {
	loc   *time.Location
	dates map[string]*DateIndex
}

// NewIndex creates an empty index keyed by calendar dates in loc
func NewIndex(loc *time.Location) *Index {
	if loc == nil {
		loc = time.Local
	}
	return &Index{loc: loc, dates: make(map[string]*DateIndex)}
}

// Location returns the zone used to derive date keys
func (ix *Index) Location() *time.Location {
	return ix.loc
}

// AddRow emits the to and from events of a merged output row into both the
// to date and the from date
func (ix *Index) AddRow(row []string) error {
	if len(row) <= fromCol {
		return fmt.Errorf("merged row has %d fields, want at least %d", len(row), fromCol+1)
	}

	label := strings.TrimSpace(row[labelCol])
	to, err := strconv.ParseInt(strings.TrimSpace(row[toCol]), 10, 64)
	if err != nil {
		return fmt.Errorf("parse to timestamp: %w", err)
	}
	from, err := strconv.ParseInt(strings.TrimSpace(row[fromCol]), 10, 64)
	if err != nil {
		return fmt.Errorf("parse from timestamp: %w", err)
	}

	events := []domain.LabelEvent{
		{Timestamp: to, Label: label},
		{Timestamp: from, Label: label},
	}

	toDate, fromDate := DateKey(to, ix.loc), DateKey(from, ix.loc)
	for _, date := range uniqueDates(toDate, fromDate) {
		d := ix.date(date)
		for _, e := range events {
			d.add(e)
		}
	}
	return nil
}

// AddTable adds every row of a merged output table in order
func (ix *Index) AddTable(rows [][]string) error {
	for i, row := range rows {
		if err := ix.AddRow(row); err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
	}
	return nil
}

// Date returns the index of a date key, or nil when the date has no events
func (ix *Index) Date(key string) *DateIndex {
	return ix.dates[key]
}

// Dates returns the number of indexed dates
func (ix *Index) Dates() int {
	return len(ix.dates)
}

func (ix *Index) date(key string) *DateIndex {
	d, ok := ix.dates[key]
	if !ok {
		d = &DateIndex{}
		ix.dates[key] = d
	}
	return d
}

func uniqueDates(a, b string) []string {
	if a == b {
		return []string{a}
	}
	return []string{a, b}
}

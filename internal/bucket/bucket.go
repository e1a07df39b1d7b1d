// Package bucket accumulates reading lines per (label, date) and writes them
// out as the label/date.txt tree.
package bucket

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/pbaille/barotrace/internal/domain"
	"github.com/pbaille/barotrace/internal/fsutil"
)

// GroundTruthFile is the name of a label's reference trace
const GroundTruthFile = "groundTruth.txt"

// Set holds bucket lines keyed by label then date
type Set struct {
	lines map[string]map[string][]string
}

// NewSet creates an empty Set
func NewSet() *Set {
	return &Set{lines: make(map[string]map[string][]string)}
}

// Append adds a line to the (label, date) bucket
func (s *Set) Append(label, date, line string) {
	dates, ok := s.lines[label]
	if !ok {
		dates = make(map[string][]string)
		s.lines[label] = dates
	}
	dates[date] = append(dates[date], line)
}

// Merge appends every bucket of other after the lines already held
func (s *Set) Merge(other *Set) {
	for _, label := range other.Labels() {
		for _, date := range other.Dates(label) {
			for _, line := range other.lines[label][date] {
				s.Append(label, date, line)
			}
		}
	}
}

// Labels returns the labels present, sorted
func (s *Set) Labels() []string {
	return sortedKeys(s.lines)
}

// Dates returns the dates present for label, sorted
func (s *Set) Dates(label string) []string {
	return sortedKeys(s.lines[label])
}

// Lines returns the lines of one bucket
func (s *Set) Lines(label, date string) []string {
	return s.lines[label][date]
}

// Len returns the number of buckets
func (s *Set) Len() int {
	n := 0
	for _, dates := range s.lines {
		n += len(dates)
	}
	return n
}

// Flush writes every bucket to outputRoot/label/date.txt
func Flush(s *Set, outputRoot string) ([]domain.BucketFile, error) {
	var written []domain.BucketFile
	for _, label := range s.Labels() {
		dir := filepath.Join(outputRoot, label)
		if err := fsutil.EnsureDir(dir); err != nil {
			return written, fmt.Errorf("label %s: %w", label, err)
		}

		for _, date := range s.Dates(label) {
			lines := s.Lines(label, date)
			path := filepath.Join(dir, date+".txt")
			if err := fsutil.WriteLines(path, lines); err != nil {
				return written, fmt.Errorf("label %s: %w", label, err)
			}
			written = append(written, domain.BucketFile{
				Label: label,
				Date:  date,
				Lines: len(lines),
				Path:  path,
			})
		}
	}
	return written, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Package groundtruth picks the reference trace of every label: the shortest
// trace among the dates that also have a location log.
package groundtruth

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pbaille/barotrace/internal/bucket"
	"github.com/pbaille/barotrace/internal/domain"
	"github.com/pbaille/barotrace/internal/fsutil"
	"go.uber.org/zap"
)

// CompanionLog is the per-date file whose presence makes a date eligible
const CompanionLog = "Loc.txt"

// ErrEmptyTrace is returned for a bucket file without any rows
var ErrEmptyTrace = errors.New("empty trace")

// Companions reports whether a date has a companion log
type Companions interface {
	HasCompanionLog(date string) bool
}

// CompanionTree looks for dataRoot/<date>/Loc.txt
type CompanionTree struct {
	Root string
}

// HasCompanionLog checks the date as given, then its zero-padded form
func (c CompanionTree) HasCompanionLog(date string) bool {
	if fsutil.Exists(filepath.Join(c.Root, date, CompanionLog)) {
		return true
	}
	t, err := time.Parse("2006-1-2", date)
	if err != nil {
		return false
	}
	return fsutil.Exists(filepath.Join(c.Root, t.Format("2006-01-02"), CompanionLog))
}

// Selector chooses ground truths over an output tree
type Selector struct {
	companions Companions
	logger     *zap.Logger
}

// New creates a Selector
func New(companions Companions, logger *zap.Logger) *Selector {
	return &Selector{companions: companions, logger: logger}
}

// Select walks every label directory of outputRoot, picks the qualifying date
// with the minimum elapsed time and copies it to groundTruth.txt. Labels
// without a candidate are logged and left out of the result.
func (s *Selector) Select(ctx context.Context, outputRoot string) (map[string]domain.GroundTruthMark, error) {
	labels, err := fsutil.ListDirs(outputRoot)
	if err != nil {
		return nil, err
	}

	marks := make(map[string]domain.GroundTruthMark)
	for _, label := range labels {
		if err := ctx.Err(); err != nil {
			return marks, err
		}

		mark, ok, err := s.selectLabel(filepath.Join(outputRoot, label), label)
		if err != nil {
			return marks, fmt.Errorf("label %s: %w", label, err)
		}
		if !ok {
			s.logger.Warn("no ground truth candidate", zap.String("label", label))
			continue
		}

		dir := filepath.Join(outputRoot, label)
		if err := fsutil.CopyFile(filepath.Join(dir, mark.File), filepath.Join(dir, bucket.GroundTruthFile)); err != nil {
			return marks, fmt.Errorf("label %s: %w", label, err)
		}
		s.logger.Info("ground truth selected",
			zap.String("label", label),
			zap.String("date", mark.Date),
			zap.Float64("minutes", float64(mark.ElapsedMs)/float64(time.Minute/time.Millisecond)),
		)
		marks[label] = mark
	}
	return marks, nil
}

func (s *Selector) selectLabel(dir, label string) (domain.GroundTruthMark, bool, error) {
	files, err := fsutil.ListFiles(dir)
	if err != nil {
		return domain.GroundTruthMark{}, false, err
	}

	var best domain.GroundTruthMark
	found := false
	for _, file := range files {
		if !fsutil.IsDateName(file) {
			continue
		}
		date := strings.TrimSuffix(file, ".txt")
		if !s.companions.HasCompanionLog(date) {
			continue
		}

		elapsed, err := Elapsed(filepath.Join(dir, file))
		if errors.Is(err, ErrEmptyTrace) {
			s.logger.Warn("skipping empty trace", zap.String("label", label), zap.String("date", date))
			continue
		}
		if err != nil {
			return domain.GroundTruthMark{}, false, err
		}

		if !found || elapsed < best.ElapsedMs {
			best = domain.GroundTruthMark{Label: label, Date: date, File: file, ElapsedMs: elapsed}
			found = true
		}
	}
	return best, found, nil
}

// Elapsed returns the first field of the last non-empty line minus the first
// field of the first line
func Elapsed(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open trace: %w", err)
	}
	defer f.Close()

	var first, last string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if first == "" {
			first = line
		}
		last = line
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("read trace: %w", err)
	}
	if first == "" {
		return 0, ErrEmptyTrace
	}

	start, err := leadingTimestamp(first)
	if err != nil {
		return 0, err
	}
	end, err := leadingTimestamp(last)
	if err != nil {
		return 0, err
	}
	return end - start, nil
}

func leadingTimestamp(line string) (int64, error) {
	field, _, _ := strings.Cut(line, ",")
	ts, err := strconv.ParseInt(strings.TrimSpace(field), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse timestamp %q: %w", field, err)
	}
	return ts, nil
}

// Package pipeline runs the two-pass merge of merged output labels with
// barometer readings.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/pbaille/barotrace/internal/bucket"
	"github.com/pbaille/barotrace/internal/classify"
	"github.com/pbaille/barotrace/internal/domain"
	"github.com/pbaille/barotrace/internal/fsutil"
	"github.com/pbaille/barotrace/internal/labels"
	"github.com/pbaille/barotrace/internal/table"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Input files inside each date directory
const (
	MergedOutputFile = "MergedOutput.txt"
	BaroFile         = "Baro.txt"
)

// Result describes a finished merge
type Result struct {
	Dates        []string
	Skipped      []string
	Index        *labels.Index
	Buckets      *bucket.Set
	Written      []domain.BucketFile
	MissingDates []string
}

// Merger builds the label index over every date directory, then classifies
// every barometer file against it
type Merger struct {
	Jobs       int
	Location   *time.Location
	YieldEvery int
	logger     *zap.Logger
}

// NewMerger creates a Merger running at most jobs file jobs at once
func NewMerger(jobs int, loc *time.Location, logger *zap.Logger) *Merger {
	return &Merger{
		Jobs:       jobs,
		Location:   loc,
		YieldEvery: classify.DefaultYieldEvery,
		logger:     logger,
	}
}

// Merge runs both passes over dataRoot and writes the buckets under outputRoot
func (m *Merger) Merge(ctx context.Context, dataRoot, outputRoot string) (*Result, error) {
	dirs, err := fsutil.ListDirs(dataRoot)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for _, dir := range dirs {
		if !fsutil.IsDateName(dir) {
			m.logger.Warn("ignoring non-date directory", zap.String("dir", dir), zap.String("root", dataRoot))
			res.Skipped = append(res.Skipped, dir)
			continue
		}
		res.Dates = append(res.Dates, dir)
	}

	res.Index, err = m.buildIndex(ctx, dataRoot, res.Dates)
	if err != nil {
		return nil, fmt.Errorf("index pass: %w", err)
	}
	m.logger.Info("label index built", zap.Int("dates", res.Index.Dates()))

	resolver := labels.NewResolver(res.Index, m.logger)
	res.Buckets, err = m.classify(ctx, dataRoot, res.Dates, resolver)
	if err != nil {
		return nil, fmt.Errorf("classify pass: %w", err)
	}
	res.MissingDates = resolver.MissingDates()

	res.Written, err = bucket.Flush(res.Buckets, outputRoot)
	if err != nil {
		return res, fmt.Errorf("flush buckets: %w", err)
	}
	return res, nil
}

// buildIndex reads the merged output tables concurrently and adds them in
// directory order so the index does not depend on scheduling
func (m *Merger) buildIndex(ctx context.Context, root string, dates []string) (*labels.Index, error) {
	tables := make([][][]string, len(dates))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.jobs())
	for i, dir := range dates {
		i, dir := i, dir
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			path := filepath.Join(root, dir, MergedOutputFile)
			rows, err := table.Read(path, table.Tab)
			if err != nil {
				return fmt.Errorf("%s: %w", dir, err)
			}
			if rows == nil {
				m.logger.Warn("merged output missing or empty", zap.String("path", path))
			}
			tables[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ix := labels.NewIndex(m.Location)
	for i, rows := range tables {
		if err := ix.AddTable(rows); err != nil {
			return nil, fmt.Errorf("%s: %w", dates[i], err)
		}
	}
	return ix, nil
}

func (m *Merger) classify(ctx context.Context, root string, dates []string, resolver *labels.Resolver) (*bucket.Set, error) {
	sets := make([]*bucket.Set, len(dates))
	c := classify.New(resolver, m.logger)
	c.YieldEvery = m.YieldEvery

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.jobs())
	for i, dir := range dates {
		i, dir := i, dir
		g.Go(func() error {
			set, err := c.ClassifyFile(ctx, filepath.Join(root, dir, BaroFile))
			if err != nil {
				return err
			}
			sets[i] = set
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	all := bucket.NewSet()
	for _, set := range sets {
		all.Merge(set)
	}
	return all, nil
}

func (m *Merger) jobs() int {
	return max(m.Jobs, 1)
}

// Package normalize rewrites bucket timestamps relative to their first row.
package normalize

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pbaille/barotrace/internal/fsutil"
	"github.com/pbaille/barotrace/internal/table"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// File rewrites the first field of every row of path as its offset from the
// first row, in place. An empty file is left untouched.
func File(path string) error {
	rows, err := table.Read(path, table.Comma)
	if err != nil {
		return fmt.Errorf("normalize %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil
	}

	gt, err := parseTimestamp(rows[0])
	if err != nil {
		return fmt.Errorf("normalize %s: row 1: %w", path, err)
	}

	lines := make([]string, len(rows))
	for i, row := range rows {
		ts, err := parseTimestamp(row)
		if err != nil {
			return fmt.Errorf("normalize %s: row %d: %w", path, i+1, err)
		}
		row[0] = strconv.FormatInt(ts-gt, 10)
		lines[i] = strings.Join(row, ",")
	}
	return fsutil.WriteLines(path, lines)
}

// Tree normalizes every file of every label directory under outputRoot, with
// at most jobs files in flight
func Tree(ctx context.Context, outputRoot string, jobs int, logger *zap.Logger) (int, error) {
	labels, err := fsutil.ListDirs(outputRoot)
	if err != nil {
		return 0, err
	}

	var paths []string
	for _, label := range labels {
		files, err := fsutil.ListFiles(filepath.Join(outputRoot, label))
		if err != nil {
			return 0, err
		}
		for _, file := range files {
			paths = append(paths, filepath.Join(outputRoot, label, file))
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(jobs, 1))
	for _, path := range paths {
		path := path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			logger.Debug("normalizing", zap.String("path", path))
			return File(path)
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(paths), nil
}

func parseTimestamp(row []string) (int64, error) {
	ts, err := strconv.ParseInt(strings.TrimSpace(row[0]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: timestamp: %v", table.ErrMalformedRow, err)
	}
	return ts, nil
}

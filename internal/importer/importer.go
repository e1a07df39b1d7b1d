// Package importer copies raw logging-app dumps into the working data tree.
package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/pbaille/barotrace/internal/fsutil"
	"go.uber.org/zap"
)

// MergedOutput is the name every merged output file is saved under
const MergedOutput = "MergedOutput.txt"

// DefaultFiles are the sensor dumps copied from each date directory
var DefaultFiles = []string{"Baro.txt", "Loc.txt"}

var mergedRevision = regexp.MustCompile(`\d+`)

// Summary counts what an import copied
type Summary struct {
	Dates  int
	Files  int
	Merged int
}

// Importer copies date directories from a source drive
type Importer struct {
	Files  []string
	logger *zap.Logger
}

// New creates an Importer copying DefaultFiles
func New(logger *zap.Logger) *Importer {
	return &Importer{Files: DefaultFiles, logger: logger}
}

// Import mirrors every sub-directory of src into dest, copying the sensor
// files that exist and the latest merged output as MergedOutput.txt
func (im *Importer) Import(ctx context.Context, src, dest string) (Summary, error) {
	var sum Summary

	dirs, err := fsutil.ListDirs(src)
	if err != nil {
		return sum, err
	}

	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		target := filepath.Join(dest, dir)
		if err := fsutil.EnsureDir(target); err != nil {
			return sum, err
		}
		sum.Dates++

		for _, name := range im.Files {
			copied, err := fsutil.CopyIfExists(filepath.Join(src, dir, name), filepath.Join(target, name))
			if err != nil {
				return sum, fmt.Errorf("%s/%s: %w", dir, name, err)
			}
			if copied {
				sum.Files++
			} else {
				im.logger.Debug("sensor file missing", zap.String("dir", dir), zap.String("file", name))
			}
		}

		merged, err := LatestMergedOutput(filepath.Join(src, dir))
		if err != nil {
			return sum, err
		}
		if merged == "" {
			im.logger.Warn("no merged output", zap.String("dir", dir))
			continue
		}
		if err := fsutil.CopyFile(filepath.Join(src, dir, merged), filepath.Join(target, MergedOutput)); err != nil {
			return sum, fmt.Errorf("%s/%s: %w", dir, merged, err)
		}
		sum.Merged++
	}

	im.logger.Info("import finished",
		zap.Int("dates", sum.Dates),
		zap.Int("files", sum.Files),
		zap.Int("merged", sum.Merged),
	)
	return sum, nil
}

// LatestMergedOutput returns the MergedOutput file of dir with the highest
// revision number. An unnumbered MergedOutput.txt counts as revision 0.
func LatestMergedOutput(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read dir: %w", err)
	}

	best, bestRev := "", -1
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.Contains(name, "MergedOutput") {
			continue
		}
		rev := 0
		if m := mergedRevision.FindString(name); m != "" {
			rev, _ = strconv.Atoi(m)
		}
		if rev > bestRev {
			best, bestRev = name, rev
		}
	}
	return best, nil
}

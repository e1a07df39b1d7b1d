package plot

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/pbaille/barotrace/internal/bucket"
	"github.com/pbaille/barotrace/internal/fsutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultBlacklist holds the places and idle states that are never plotted
var DefaultBlacklist = []string{
	"Home", "comp1", "erc", "Idle", "ntu", "Office", "Unknown Travel", "Vehicle",
	"Walking", "waiting for mrt @ TP", "Waiting", "at clementi", "Unknown Place",
}

// ImageExt is the extension of rendered plots
const ImageExt = ".jpeg"

// Plot is one rendered image
type Plot struct {
	Label string
	Date  string
	Image string
}

// Plotter renders an output tree into a plots tree
type Plotter struct {
	Renderer  Renderer
	Blacklist []string
	Jobs      int
	logger    *zap.Logger
}

// NewPlotter creates a Plotter with the default blacklist
func NewPlotter(r Renderer, jobs int, logger *zap.Logger) *Plotter {
	return &Plotter{Renderer: r, Blacklist: DefaultBlacklist, Jobs: jobs, logger: logger}
}

// Run renders every dated file of every eligible label and writes the gallery
// page. Labels that are blacklisted or lack a ground truth are skipped.
func (p *Plotter) Run(ctx context.Context, outputRoot, plotsRoot string) ([]Plot, error) {
	labels, err := fsutil.ListDirs(outputRoot)
	if err != nil {
		return nil, err
	}

	var jobs []Plot
	gts := make(map[string]string)
	for _, label := range labels {
		if slices.Contains(p.Blacklist, label) {
			continue
		}
		dir := filepath.Join(outputRoot, label)
		gt := filepath.Join(dir, bucket.GroundTruthFile)
		if !fsutil.Exists(gt) {
			p.logger.Info("ground truth missing, skipping label", zap.String("label", label))
			continue
		}
		if err := fsutil.EnsureDir(filepath.Join(plotsRoot, label)); err != nil {
			return nil, err
		}

		files, err := fsutil.ListFiles(dir)
		if err != nil {
			return nil, err
		}
		for _, file := range files {
			if !fsutil.IsDateName(file) {
				continue
			}
			date := strings.TrimSuffix(file, ".txt")
			jobs = append(jobs, Plot{
				Label: label,
				Date:  date,
				Image: filepath.Join(plotsRoot, label, date+ImageExt),
			})
		}
		gts[label] = gt
	}

	var mu sync.Mutex
	var done []Plot
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(p.Jobs, 1))
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			trace := filepath.Join(outputRoot, job.Label, job.Date+".txt")
			if err := p.Renderer.Render(ctx, gts[job.Label], trace, job.Image); err != nil {
				return fmt.Errorf("plot %s %s: %w", job.Label, job.Date, err)
			}
			p.logger.Debug("plot rendered", zap.String("image", job.Image))

			mu.Lock()
			done = append(done, job)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slices.SortFunc(done, func(a, b Plot) int {
		if c := strings.Compare(a.Label, b.Label); c != 0 {
			return c
		}
		return strings.Compare(a.Date, b.Date)
	})
	if err := WriteGallery(filepath.Join(plotsRoot, GalleryFile), plotsRoot, done); err != nil {
		return done, err
	}
	return done, nil
}

// Package plot renders every dated trace of a label against its ground truth.
package plot

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/pbaille/barotrace/internal/dtw"
	"go.uber.org/zap"
)

// Renderer draws trace against groundTruth into the image dest
type Renderer interface {
	Render(ctx context.Context, groundTruth, trace, dest string) error
}

// ExecRenderer runs an external command with the ground truth, trace and
// destination as its last three arguments. Only the exit status is checked.
type ExecRenderer struct {
	Command string
	Args    []string
}

// Render runs the command
func (r ExecRenderer) Render(ctx context.Context, groundTruth, trace, dest string) error {
	return r.run(ctx, groundTruth, trace, dest)
}

// GnuplotRenderer aligns both curves, writes a gnuplot script next to the
// image and runs gnuplot on it
type GnuplotRenderer struct {
	Gnuplot  string
	Template dtw.Template
	Params   dtw.Params
	logger   *zap.Logger
}

// NewGnuplotRenderer creates a renderer using the embedded template
func NewGnuplotRenderer(logger *zap.Logger) *GnuplotRenderer {
	return &GnuplotRenderer{
		Gnuplot:  "gnuplot",
		Template: dtw.DefaultTemplate(),
		Params:   dtw.DefaultParams,
		logger:   logger,
	}
}

// Render writes dest's script and runs gnuplot
func (r *GnuplotRenderer) Render(ctx context.Context, groundTruth, trace, dest string) error {
	script, err := r.WriteScript(groundTruth, trace, dest)
	if err != nil {
		return err
	}
	return ExecRenderer{Command: r.Gnuplot}.run(ctx, script)
}

// WriteScript generates the gnuplot script for one plot and returns its path
func (r *GnuplotRenderer) WriteScript(groundTruth, trace, dest string) (string, error) {
	gt, err := dtw.ReadCurve(groundTruth)
	if err != nil {
		return "", fmt.Errorf("read ground truth: %w", err)
	}
	tr, err := dtw.ReadCurve(trace)
	if err != nil {
		return "", fmt.Errorf("read trace: %w", err)
	}

	path, err := dtw.Align(gt, tr, r.Params.Window)
	if err != nil {
		return "", fmt.Errorf("align %s: %w", trace, err)
	}
	r.logger.Debug("warp path", zap.String("trace", trace), zap.Int("steps", len(path)))

	scriptPath := strings.TrimSuffix(dest, ".jpeg") + ".gp"
	f, err := os.Create(scriptPath)
	if err != nil {
		return "", fmt.Errorf("create script: %w", err)
	}
	defer f.Close()

	err = dtw.Write(f, r.Template, r.Params, dtw.Script{
		Image:      dest,
		CurveFile1: groundTruth,
		CurveFile2: trace,
		Curve1:     gt,
		Curve2:     tr,
		Path:       path,
	})
	if err != nil {
		return "", fmt.Errorf("write script: %w", err)
	}
	return scriptPath, f.Close()
}

func (r ExecRenderer) run(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, r.Command, append(append([]string{}, r.Args...), args...)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", r.Command, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

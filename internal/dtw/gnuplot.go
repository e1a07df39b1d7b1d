package dtw

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Section markers of a gnuplot template
const (
	markerArrowStart = "#DTW-ARROW-START"
	markerArrowEnd   = "#DTW-ARROW-END"
	markerEnd        = "#DTW-END"
)

//go:embed default.gp
var defaultTemplate string

// Template is a gnuplot script split into its preamble, the per-arrow format
// (four %f verbs) and the plot section (three %s verbs: image, curve 1,
// curve 2)
type Template struct {
	Preamble string
	Arrow    string
	Plot     string
}

// Params tune the generated script
type Params struct {
	// Spacing is the number of samples of the shorter curve between arrows
	Spacing int
	// HeightOffset lifts the first curve so the arrows are visible
	HeightOffset float64
	// Window is the warp window constraint
	Window int
}

// DefaultParams mirrors the values the plots were produced with
var DefaultParams = Params{Spacing: 100, HeightOffset: 10, Window: 100}

// DefaultTemplate returns the embedded template
func DefaultTemplate() Template {
	t, _ := ParseTemplate(strings.NewReader(defaultTemplate))
	return t
}

// ParseTemplate reads a template up to the #DTW-END marker
func ParseTemplate(r io.Reader) (Template, error) {
	var pre, arrow, plot strings.Builder
	inArrow, inPlot := false, false

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case markerEnd:
			return Template{Preamble: pre.String(), Arrow: arrow.String(), Plot: plot.String()}, nil
		case markerArrowStart:
			inArrow = true
			continue
		case markerArrowEnd:
			inArrow, inPlot = false, true
			continue
		}

		switch {
		case inArrow:
			arrow.WriteString(line + "\n")
		case inPlot:
			plot.WriteString(line + "\n")
		default:
			pre.WriteString(line + "\n")
		}
	}
	if err := scanner.Err(); err != nil {
		return Template{}, fmt.Errorf("read template: %w", err)
	}
	return Template{Preamble: pre.String(), Arrow: arrow.String(), Plot: plot.String()}, nil
}

// Script describes one plot to render
type Script struct {
	Image      string
	CurveFile1 string
	CurveFile2 string
	Curve1     []Point
	Curve2     []Point
	Path       []Step
}

// Write renders s with tmpl and p. Arrows are drawn every p.Spacing samples
// of the curve that ends first.
func Write(w io.Writer, tmpl Template, p Params, s Script) error {
	if p.Spacing <= 0 {
		return fmt.Errorf("sample spacing must be positive, got %d", p.Spacing)
	}
	if len(s.Curve1) == 0 || len(s.Curve2) == 0 {
		return ErrEmptyCurve
	}

	bw := bufio.NewWriter(w)
	bw.WriteString(tmpl.Preamble)
	fmt.Fprintf(bw, "heightCurveOffset = %s\n\n", strconv.FormatFloat(p.HeightOffset, 'f', -1, 64))

	shorter, useJ := s.Curve1, false
	if s.Curve2[len(s.Curve2)-1].Timestamp < s.Curve1[len(s.Curve1)-1].Timestamp {
		shorter, useJ = s.Curve2, true
	}

	k := 0
	for i := 0; i < len(shorter); i += p.Spacing {
		for k < len(s.Path) && index(s.Path[k], useJ) != i {
			k++
		}
		if k == len(s.Path) {
			return fmt.Errorf("warp path does not cover sample %d", i)
		}
		a, b := s.Curve1[s.Path[k].I], s.Curve2[s.Path[k].J]
		fmt.Fprintf(bw, tmpl.Arrow, a.Timestamp/1000, a.Data+p.HeightOffset, b.Timestamp/1000, b.Data)
	}

	fmt.Fprintf(bw, tmpl.Plot, s.Image, s.CurveFile1, s.CurveFile2)
	return bw.Flush()
}

func index(s Step, useJ bool) int {
	if useJ {
		return s.J
	}
	return s.I
}

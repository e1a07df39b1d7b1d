// Package dtw aligns two barometer curves with dynamic time warping and
// renders the warp path as a gnuplot script.
package dtw

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pbaille/barotrace/internal/table"
)

// Differences below SensorNoise are treated as equal; differences above
// AllowedError are squared.
const (
	SensorNoise  = 2.0
	AllowedError = 2.0
)

// ErrEmptyCurve is returned when a curve has no samples
var ErrEmptyCurve = errors.New("empty curve")

// Point is one (timestamp ms, value) sample of a curve
type Point struct {
	Timestamp float64
	Data      float64
}

// Step maps sample I of the first curve onto sample J of the second
type Step struct {
	I, J int
}

// ReadCurve loads a timestamp,value file. Comment lines are skipped.
func ReadCurve(path string) ([]Point, error) {
	rows, err := table.Read(path, table.Comma)
	if err != nil {
		return nil, err
	}

	points := make([]Point, 0, len(rows))
	for i, row := range rows {
		if len(row) < 2 {
			return nil, fmt.Errorf("%s: row %d: %w", path, i+1, table.ErrMalformedRow)
		}
		ts, err := strconv.ParseFloat(strings.TrimSpace(row[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("%s: row %d: %w: %v", path, i+1, table.ErrMalformedRow, err)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("%s: row %d: %w: %v", path, i+1, table.ErrMalformedRow, err)
		}
		points = append(points, Point{Timestamp: ts, Data: v})
	}
	return points, nil
}

// Align returns the warp path from [0,0] to [len(a)-1,len(b)-1]. window
// bounds |i-j| and is widened to the length difference of the curves.
func Align(a, b []Point, window int) ([]Step, error) {
	n1, n2 := len(a), len(b)
	if n1 == 0 || n2 == 0 {
		return nil, ErrEmptyCurve
	}
	w := max(window, abs(n1-n2))

	cols := n2 + 1
	cost := make([]float64, (n1+1)*cols)
	for k := range cost {
		cost[k] = math.Inf(1)
	}
	cost[0] = 0
	at := func(i, j int) float64 { return cost[i*cols+j] }

	for i := 1; i <= n1; i++ {
		for j := max(1, i-w); j <= min(n2, i+w); j++ {
			d := distance(a[i-1].Data, b[j-1].Data)
			cost[i*cols+j] = d + min(at(i-1, j), at(i, j-1), at(i-1, j-1))
		}
	}

	// Backtrack from [n1,n2], preferring the diagonal and then the i==j axis.
	i, j := n1, n2
	path := []Step{{I: i - 1, J: j - 1}}
	for i > 1 || j > 1 {
		down, left, diag := at(i, j-1), at(i-1, j), at(i-1, j-1)
		switch {
		case diag <= left && diag <= down:
			i--
			j--
		case left < diag && left < down:
			i--
		case down < diag && down < left:
			j--
		case i <= j:
			j--
		default:
			i--
		}
		path = append(path, Step{I: i - 1, J: j - 1})
	}

	for l, r := 0, len(path)-1; l < r; l, r = l+1, r-1 {
		path[l], path[r] = path[r], path[l]
	}
	return path, nil
}

func distance(x, y float64) float64 {
	d := math.Abs(x - y)
	switch {
	case d < SensorNoise:
		return 0
	case d > AllowedError:
		return d * d
	}
	return d
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

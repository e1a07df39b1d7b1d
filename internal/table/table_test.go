package table

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		given    string
		delim    rune
		expected [][]string
	}{
		{
			name:     "comma with comments",
			given:    "# header\n0,1520000000000,0,1008.5\n0,1520000000100,0,1008.6\n",
			delim:    Comma,
			expected: [][]string{{"0", "1520000000000", "0", "1008.5"}, {"0", "1520000000100", "0", "1008.6"}},
		},
		{
			name:     "tab with varying widths",
			given:    "Mrt\tx\ty\t100\t200\nWalking\tx\ty\t300\t400\textra\n",
			delim:    Tab,
			expected: [][]string{{"Mrt", "x", "y", "100", "200"}, {"Walking", "x", "y", "300", "400", "extra"}},
		},
		{
			name:     "labels with spaces survive tabs",
			given:    "waiting for mrt @ TP\ta\tb\t1\t2",
			delim:    Tab,
			expected: [][]string{{"waiting for mrt @ TP", "a", "b", "1", "2"}},
		},
		{
			name:     "only comments",
			given:    "# nothing\n# here\n",
			delim:    Comma,
			expected: nil,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			rows, err := Parse(strings.NewReader(test.given), test.delim)
			require.NoError(t, err)
			assert.Equal(t, test.expected, rows)
		})
	}
}

func TestReadMissingFileIsEmpty(t *testing.T) {
	rows, err := Read(filepath.Join(t.TempDir(), "Baro.txt"), Comma)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestEach(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Baro.txt")
	require.NoError(t, os.WriteFile(path, []byte("# c\na,1\nb,2\n"), 0o644))

	var got []string
	var lines []int
	err := Each(path, Comma, func(line int, row []string) error {
		got = append(got, row[0]+row[1])
		lines = append(lines, line)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "b2"}, got)
	assert.Equal(t, []int{2, 3}, lines)
}

func TestEachMissingFile(t *testing.T) {
	called := false
	err := Each(filepath.Join(t.TempDir(), "nope.txt"), Comma, func(int, []string) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called)
}

package normalize

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pbaille/barotrace/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "2018-3-1.txt")
	require.NoError(t, os.WriteFile(path, []byte("100,a\n150,b\n200,c"), 0o644))

	require.NoError(t, File(path))
	rows, err := table.Read(path, table.Comma)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"0", "a"}, {"50", "b"}, {"100", "c"}}, rows)

	// Running again subtracts zero.
	require.NoError(t, File(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "0,a\n50,b\n100,c", string(data))
}

func TestFileEmptyIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(path, []byte("# nothing yet\n"), 0o644))

	require.NoError(t, File(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# nothing yet\n", string(data))
}

func TestFileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.txt")
	require.NoError(t, os.WriteFile(path, []byte("100,a\nnope,b"), 0o644))

	err := File(path)
	assert.ErrorIs(t, err, table.ErrMalformedRow)
}

func TestTree(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{
		filepath.Join(root, "Mrt", "2018-3-1.txt"):    "1000,1\n1010,2",
		filepath.Join(root, "Mrt", "groundTruth.txt"): "1000,1\n1010,2",
		filepath.Join(root, "Bus", "2018-3-2.txt"):    "500,9\n700,8\n900,7",
	}
	for path, content := range files {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	n, err := Tree(context.Background(), root, 2, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	data, err := os.ReadFile(filepath.Join(root, "Bus", "2018-3-2.txt"))
	require.NoError(t, err)
	assert.Equal(t, "0,9\n200,8\n400,7", string(data))

	data, err = os.ReadFile(filepath.Join(root, "Mrt", "groundTruth.txt"))
	require.NoError(t, err)
	assert.Equal(t, "0,1\n10,2", string(data))
}

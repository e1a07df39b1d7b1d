package plot

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

type recordingRenderer struct {
	mu    sync.Mutex
	calls [][3]string
}

func (r *recordingRenderer) Render(_ context.Context, groundTruth, trace, dest string) error {
	r.mu.Lock()
	r.calls = append(r.calls, [3]string{groundTruth, trace, dest})
	r.mu.Unlock()
	return os.WriteFile(dest, []byte("jpeg"), 0o644)
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestPlotterRun(t *testing.T) {
	out, plots := t.TempDir(), t.TempDir()
	write(t, filepath.Join(out, "Mrt", "groundTruth.txt"), "0,1")
	write(t, filepath.Join(out, "Mrt", "2018-3-1.txt"), "0,1")
	write(t, filepath.Join(out, "Mrt", "2018-3-2.txt"), "0,1")
	write(t, filepath.Join(out, "Walking", "groundTruth.txt"), "0,1")
	write(t, filepath.Join(out, "Walking", "2018-3-1.txt"), "0,1")
	write(t, filepath.Join(out, "Bus 96", "2018-3-1.txt"), "0,1")

	r := &recordingRenderer{}
	done, err := NewPlotter(r, 2, zap.NewNop()).Run(context.Background(), out, plots)
	require.NoError(t, err)

	require.Len(t, done, 2)
	assert.Equal(t, "2018-3-1", done[0].Date)
	assert.Equal(t, "2018-3-2", done[1].Date)
	assert.Len(t, r.calls, 2)
	for _, c := range r.calls {
		assert.Equal(t, filepath.Join(out, "Mrt", "groundTruth.txt"), c[0])
	}
	assert.FileExists(t, filepath.Join(plots, "Mrt", "2018-3-1.jpeg"))
	assert.NoDirExists(t, filepath.Join(plots, "Walking"))
	assert.NoDirExists(t, filepath.Join(plots, "Bus 96"))
	assert.FileExists(t, filepath.Join(plots, GalleryFile))
}

func TestWriteGallery(t *testing.T) {
	plots := t.TempDir()
	path := filepath.Join(plots, GalleryFile)
	err := WriteGallery(path, plots, []Plot{
		{Label: "Bus 96", Date: "2018-3-1", Image: filepath.Join(plots, "Bus 96", "2018-3-1.jpeg")},
		{Label: "Mrt", Date: "2018-3-1", Image: filepath.Join(plots, "Mrt", "2018-3-1.jpeg")},
		{Label: "Mrt", Date: "2018-3-2", Image: filepath.Join(plots, "Mrt", "2018-3-2.jpeg")},
	})
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	doc, err := html.Parse(f)
	require.NoError(t, err)

	var srcs, ids []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, a := range n.Attr {
				switch {
				case n.Data == "img" && a.Key == "src":
					srcs = append(srcs, a.Val)
				case n.Data == "h2" && a.Key == "id":
					ids = append(ids, a.Val)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	assert.Equal(t, []string{"Bus%2096/2018-3-1.jpeg", "Mrt/2018-3-1.jpeg", "Mrt/2018-3-2.jpeg"}, srcs)
	assert.Equal(t, []string{"bus-96", "mrt"}, ids)
}

func TestGnuplotRendererWriteScript(t *testing.T) {
	dir := t.TempDir()
	gt := filepath.Join(dir, "groundTruth.txt")
	trace := filepath.Join(dir, "2018-3-1.txt")
	write(t, gt, "0,1000\n1000,1010\n2000,1020")
	write(t, trace, "0,1000\n1000,1000\n2000,1010\n3000,1020")

	r := NewGnuplotRenderer(zap.NewNop())
	r.Params.Spacing = 1
	script, err := r.WriteScript(gt, trace, filepath.Join(dir, "2018-3-1.jpeg"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2018-3-1.gp"), script)

	data, err := os.ReadFile(script)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "heightCurveOffset = 10")
	assert.Equal(t, 3, strings.Count(content, "set arrow"))
	assert.Contains(t, content, `set output "`+filepath.Join(dir, "2018-3-1.jpeg")+`"`)
}

func TestExecRenderer(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	dir := t.TempDir()
	gt := filepath.Join(dir, "gt.txt")
	write(t, gt, "0,1")
	dest := filepath.Join(dir, "out.jpeg")

	ok := ExecRenderer{Command: "sh", Args: []string{"-c", `cp "$1" "$3"`, "sh"}}
	require.NoError(t, ok.Render(context.Background(), gt, "trace.txt", dest))
	assert.FileExists(t, dest)

	fail := ExecRenderer{Command: "sh", Args: []string{"-c", "echo boom >&2; exit 3", "sh"}}
	err := fail.Render(context.Background(), gt, "trace.txt", dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

package cli

import (
	"bytes"
	"context"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TFMV/forcegraph/render"
)

const triangle = `{
	"nodes": [{"id": "a", "label": "Alpha"}, {"id": "b", "label": "Beta"}, {"id": "c", "label": "Gamma"}],
	"edges": [
		{"id": "ab", "source": "a", "target": "b", "label": "one"},
		{"id": "bc", "source": "b", "target": "c"},
		{"id": "ca", "source": "c", "target": "a"}
	]
}`

func run(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	var logs, out bytes.Buffer
	c := New(&logs, LogInfo)
	root := c.RootCommand()
	root.SetOut(&out)
	root.SetErr(&logs)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

func writeInput(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRenderSVGToFile(t *testing.T) {
	in := writeInput(t, "tri.json", triangle)

	_, err := run(t, context.Background(), "render", in)
	require.NoError(t, err)

	data, err := os.ReadFile(strings.TrimSuffix(in, ".json") + ".svg")
	require.NoError(t, err)
	svg := string(data)
	assert.Contains(t, svg, `width="960"`)
	assert.Contains(t, svg, ">Alpha</text>")
	assert.Contains(t, svg, ">one</textPath>")
}

func TestRenderPNGFollowsOutputExtension(t *testing.T) {
	in := writeInput(t, "tri.json", triangle)
	out := filepath.Join(filepath.Dir(in), "tri.png")

	_, err := run(t, context.Background(), "render", in, "-o", out, "--width", "300", "--height", "200", "--dpr", "2")
	require.NoError(t, err)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 600, cfg.Width)
	assert.Equal(t, 400, cfg.Height)
}

func TestRenderToStdout(t *testing.T) {
	in := writeInput(t, "edges.csv", "source,target,label\na,b,x\nb,c,y\n")

	out, err := run(t, context.Background(), "render", in, "-o", "-", "--backend", "svg")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "<?xml"))
	assert.Contains(t, out, "</svg>")
}

func TestRenderErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, context.Background(), "render", filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	in := writeInput(t, "graph.dot", "digraph {}")
	_, err = run(t, context.Background(), "render", in)
	assert.Error(t, err)

	_, err = run(t, context.Background(), "render")
	assert.Error(t, err)

	_, err = run(t, context.Background(), "render", writeInput(t, "ok.json", triangle), "--backend", "webgl")
	assert.Error(t, err)
}

func TestRenderWatchRerenders(t *testing.T) {
	in := writeInput(t, "tri.json", triangle)
	out := filepath.Join(filepath.Dir(in), "tri.svg")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := run(t, ctx, "render", in, "-o", out, "--watch")
		done <- err
	}()

	contains := func(s string) func() bool {
		return func() bool {
			data, err := os.ReadFile(out)
			return err == nil && strings.Contains(string(data), s)
		}
	}
	require.Eventually(t, contains(">Alpha</text>"), 10*time.Second, 20*time.Millisecond)

	require.NoError(t, os.WriteFile(in, []byte(strings.ReplaceAll(triangle, "Alpha", "Delta")), 0o644))
	require.Eventually(t, contains(">Delta</text>"), 10*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}

func TestOutputHelpers(t *testing.T) {
	assert.Equal(t, "dir/g.svg", defaultOutput("dir/g.json", render.KindRetained))
	assert.Equal(t, "g.png", defaultOutput("g.yaml", render.KindImmediate))

	kind, ok := kindForOutput("OUT.PNG")
	assert.True(t, ok)
	assert.Equal(t, render.KindImmediate, kind)
	_, ok = kindForOutput("out.txt")
	assert.False(t, ok)
}

func TestVersion(t *testing.T) {
	SetVersion("v1.2.3", "abc123", "")
	defer SetVersion("dev", "", "")

	out, err := run(t, context.Background(), "version")
	require.NoError(t, err)
	assert.Equal(t, "forcegraph v1.2.3\ncommit: abc123\n", out)
}

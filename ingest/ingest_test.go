package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TFMV/forcegraph/errors"
)

const jsonDoc = `{
  "id": "g1",
  "name": "deps",
  "nodes": [{"id": "a", "name": "api"}, {"id": "b", "label": "db", "x": 10, "y": 20}],
  "edges": [{"id": "e1", "name": "reads", "source": "a", "target": "b"}]
}`

const yamlDoc = `
id: g1
name: deps
nodes:
  - id: a
    name: api
  - id: b
    label: db
    x: 10
    y: 20
edges:
  - id: e1
    name: reads
    source: a
    target: b
`

const tomlDoc = `
id = "g1"
name = "deps"

[[nodes]]
id = "a"
name = "api"

[[nodes]]
id = "b"
label = "db"
x = 10.0
y = 20.0

[[edges]]
id = "e1"
name = "reads"
source = "a"
target = "b"
`

func TestProcessorsAgree(t *testing.T) {
	for format, input := range map[string]string{"json": jsonDoc, "yaml": yamlDoc, "toml": tomlDoc} {
		t.Run(format, func(t *testing.T) {
			doc, err := Decode(strings.NewReader(input), format)
			require.NoError(t, err)
			assert.Equal(t, "g1", doc.ID)
			assert.Equal(t, "deps", doc.Name)
			require.Len(t, doc.Nodes, 2)
			assert.Equal(t, "api", doc.Nodes[0].DisplayLabel())
			assert.Equal(t, "db", doc.Nodes[1].DisplayLabel())
			assert.Equal(t, 10.0, doc.Nodes[1].X)
			assert.Equal(t, 20.0, doc.Nodes[1].Y)
			require.Len(t, doc.Edges, 1)
			assert.Equal(t, "reads", doc.Edges[0].DisplayLabel())
			assert.Equal(t, "a", doc.Edges[0].Source)
			assert.Equal(t, "b", doc.Edges[0].Target)
		})
	}
}

func TestProcessorErrors(t *testing.T) {
	_, err := Decode(strings.NewReader("{"), "json")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidFormat))

	_, err = Decode(strings.NewReader(`{"nodes": "a"}`), "json")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidFormat))

	_, err = Decode(strings.NewReader("nodes = ["), "toml")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidFormat))

	_, err = GetProcessor("xml")
	assert.True(t, errors.Is(err, errors.ErrCodeUnsupported))
}

func TestCSVEdgeList(t *testing.T) {
	input := "from,to,label\napi,db,reads\napi,cache, warms\ncache,db,\n"
	doc, err := Decode(strings.NewReader(input), "csv")
	require.NoError(t, err)

	var ids []string
	for _, n := range doc.Nodes {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"api", "db", "cache"}, ids)
	require.Len(t, doc.Edges, 3)
	assert.Equal(t, "reads", doc.Edges[0].Label)
	assert.Equal(t, "warms", doc.Edges[1].Label)
	for _, e := range doc.Edges {
		assert.NotEmpty(t, e.ID)
	}
	assert.NoError(t, doc.Validate())

	_, err = Decode(strings.NewReader("a,b\n1,2\n"), "csv")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidFormat))
}

func TestLoadFileDetectsFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graph.YAML")
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o644))

	assert.Equal(t, "yaml", DetectFormat(path))
	doc, err := LoadFile(path, "")
	require.NoError(t, err)
	assert.Len(t, doc.Nodes, 2)

	_, err = LoadFile(filepath.Join(dir, "missing.json"), "")
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))
}

func TestBuilder(t *testing.T) {
	b := NewBuilder().SetName("My Graph")
	assert.Equal(t, "1", b.AddNode("a"))
	assert.Equal(t, "2", b.AddNode("b"))
	assert.Equal(t, "3", b.AddNode("c"))
	b.AddEdge("a", "b", "Edge 1")
	b.AddEdge("a", "b", "Edge 2")
	b.AddEdge("c", "b", "Edge 3")
	b.AddEdge("a", "nobody", "dropped")

	doc := b.Finalize()
	assert.Equal(t, "My Graph", doc.Name)
	require.Len(t, doc.Edges, 3)
	assert.Equal(t, "1", doc.Edges[0].Source)
	assert.Equal(t, "2", doc.Edges[0].Target)
	assert.Equal(t, "Edge 2", doc.Edges[1].Name)
	assert.Equal(t, "3", doc.Edges[2].Source)
	assert.NoError(t, doc.Validate())

	seen := map[string]bool{}
	for _, n := range doc.Nodes {
		seen[n.ID] = true
	}
	for _, e := range doc.Edges {
		assert.False(t, seen[e.ID], "edge id %s collides with a node id", e.ID)
	}
}

func TestBuilderFansOutDuplicateNames(t *testing.T) {
	b := NewBuilder()
	b.AddNode("x")
	b.AddNode("x")
	b.AddNode("y")
	b.AddEdge("x", "y", "")
	doc := b.Finalize()
	require.Len(t, doc.Edges, 2)
	assert.Equal(t, "1", doc.Edges[0].Source)
	assert.Equal(t, "2", doc.Edges[1].Source)
}

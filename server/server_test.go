package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	_ "image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TFMV/forcegraph/config"
	"github.com/TFMV/forcegraph/metrics"
)

const pathDoc = `{
	"name": "path",
	"nodes": [{"id": "a", "label": "Alpha"}, {"id": "b"}, {"id": "c"}],
	"edges": [{"id": "ab", "source": "a", "target": "b", "label": "next"}, {"id": "bc", "source": "b", "target": "c"}]
}`

func setupTestServer(t *testing.T) *Server {
	t.Helper()
	cfg, err := config.Load(nil, "")
	require.NoError(t, err)
	cfg.Physics.TickInterval = time.Millisecond
	cfg.Layout.ResizeDelay = 5 * time.Millisecond

	s := New(cfg, log.New(io.Discard), metrics.NewRegistry())
	t.Cleanup(s.Close)
	return s
}

func do(t *testing.T, s *Server, method, target, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func createGraph(t *testing.T, s *Server, body string) string {
	t.Helper()
	rr := do(t, s, http.MethodPost, "/api/graphs", "application/json", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var summary GraphSummary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &summary))
	return summary.ID
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp), rr.Body.String())
	return resp
}

func TestGraphLifecycle(t *testing.T) {
	s := setupTestServer(t)
	id := createGraph(t, s, pathDoc)

	rr := do(t, s, http.MethodGet, "/api/graphs/"+id, "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"source":"a"`)
	assert.Contains(t, rr.Body.String(), `"id":"ab"`)

	rr = do(t, s, http.MethodGet, "/api/graphs", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var list []GraphSummary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, 3, list[0].Nodes)
	assert.Equal(t, 2, list[0].Edges)

	rr = do(t, s, http.MethodDelete, "/api/graphs/"+id, "", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = do(t, s, http.MethodGet, "/api/graphs/"+id, "", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rr).Code)
}

func TestCreateGraphFormats(t *testing.T) {
	s := setupTestServer(t)

	yamlDoc := "nodes:\n  - id: a\n  - id: b\nedges:\n  - source: a\n    target: b\n"
	rr := do(t, s, http.MethodPost, "/api/graphs", "application/x-yaml", yamlDoc)
	assert.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = do(t, s, http.MethodPost, "/api/graphs?format=csv", "", "source,target\na,b\nb,c\n")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"nodes":3`)
}

func TestCreateGraphRejectsBadInput(t *testing.T) {
	s := setupTestServer(t)

	tests := []struct {
		name   string
		target string
		body   string
		status int
		code   string
	}{
		{"malformed json", "/api/graphs", `{"nodes": [`, http.StatusBadRequest, "INVALID_FORMAT"},
		{"duplicate node", "/api/graphs", `{"nodes": [{"id": "a"}, {"id": "a"}]}`, http.StatusBadRequest, "DUPLICATE_ID"},
		{"unknown format", "/api/graphs?format=dot", `digraph {}`, http.StatusUnsupportedMediaType, "UNSUPPORTED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, s, http.MethodPost, tt.target, "", tt.body)
			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, tt.code, decodeError(t, rr).Code)
		})
	}
}

func TestRenderSVG(t *testing.T) {
	s := setupTestServer(t)
	id := createGraph(t, s, pathDoc)

	rr := do(t, s, http.MethodGet, "/api/graphs/"+id+"/render?width=400&height=300", "", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "image/svg+xml", rr.Header().Get("Content-Type"))
	assert.Equal(t, "true", rr.Header().Get("X-Layout-At-Rest"))
	assert.Equal(t, "0", rr.Header().Get("X-Rejected-Edges"))
	ticks, err := strconv.Atoi(rr.Header().Get("X-Layout-Ticks"))
	require.NoError(t, err)
	assert.InDelta(t, 300, ticks, 5)

	body := rr.Body.String()
	assert.Contains(t, body, "<svg")
	assert.Contains(t, body, `width="400"`)
	assert.Contains(t, body, `xlink:href="#edge-ab"`)
	assert.Contains(t, body, ">Alpha</text>")
}

func TestRenderPNG(t *testing.T) {
	s := setupTestServer(t)
	id := createGraph(t, s, pathDoc)

	rr := do(t, s, http.MethodGet, "/api/graphs/"+id+"/render?backend=png&width=200&height=100&dpr=2", "", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))

	cfg, format, err := image.DecodeConfig(bytes.NewReader(rr.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 400, cfg.Width)
	assert.Equal(t, 200, cfg.Height)
}

func TestRenderRejectsBadQuery(t *testing.T) {
	s := setupTestServer(t)
	id := createGraph(t, s, pathDoc)

	rr := do(t, s, http.MethodGet, "/api/graphs/"+id+"/render?width=-1", "", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, s, http.MethodGet, "/api/graphs/"+id+"/render?backend=webgl", "", "")
	assert.Equal(t, http.StatusUnsupportedMediaType, rr.Code)

	rr = do(t, s, http.MethodGet, "/api/graphs/missing/render", "", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestLayoutReportsRejectedEdges(t *testing.T) {
	s := setupTestServer(t)
	id := createGraph(t, s, `{"nodes": [{"id": "a"}, {"id": "b"}], "edges": [{"source": "a", "target": "b"}, {"source": "a", "target": "ghost"}]}`)

	rr := do(t, s, http.MethodGet, "/api/graphs/"+id+"/layout", "", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp LayoutResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Rejected)
	assert.True(t, resp.AtRest)
	require.Len(t, resp.Document.Nodes, 2)
	a, b := resp.Document.Nodes[0], resp.Document.Nodes[1]
	assert.Greater(t, (a.X-b.X)*(a.X-b.X)+(a.Y-b.Y)*(a.Y-b.Y), 50.0*50.0)
}

func createView(t *testing.T, s *Server, graphID string) ViewState {
	t.Helper()
	rr := do(t, s, http.MethodPost, "/api/graphs/"+graphID+"/views?width=400&height=300", "", "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var st ViewState
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &st))
	return st
}

func postEvent(t *testing.T, s *Server, viewID string, ev Event) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(ev)
	require.NoError(t, err)
	return do(t, s, http.MethodPost, "/api/views/"+viewID+"/events", "application/json", string(body))
}

func TestLiveViewDrag(t *testing.T) {
	s := setupTestServer(t)
	st := createView(t, s, createGraph(t, s, pathDoc))
	assert.Equal(t, "retained", st.Backend)
	assert.Equal(t, 400.0, st.Width)

	rr := postEvent(t, s, st.ID, Event{Type: "pointerdown", Pointer: 1, Node: "a", X: 10, Y: 10})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var after ViewState
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &after))
	assert.Equal(t, 1, after.Dragging)
	assert.False(t, after.Idle)

	rr = postEvent(t, s, st.ID, Event{Type: "pointerdown", Pointer: 2, Node: "a", X: 10, Y: 10})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "ALREADY_DRAGGING", decodeError(t, rr).Code)

	rr = postEvent(t, s, st.ID, Event{Type: "pointermove", Pointer: 1, X: 50, Y: 60})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, s, http.MethodGet, "/api/views/"+st.ID, "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var full ViewState
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &full))
	require.NotEmpty(t, full.Nodes)
	require.NotNil(t, full.Nodes[0].FX)
	assert.Equal(t, 50.0, *full.Nodes[0].FX)
	assert.Equal(t, 60.0, *full.Nodes[0].FY)

	rr = postEvent(t, s, st.ID, Event{Type: "pointerup", Pointer: 1})
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &after))
	assert.Equal(t, 0, after.Dragging)

	rr = postEvent(t, s, st.ID, Event{Type: "pointerup", Pointer: 1})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = postEvent(t, s, st.ID, Event{Type: "wheel"})
	assert.Equal(t, http.StatusUnsupportedMediaType, rr.Code)
}

func TestLiveViewResizeAndFrame(t *testing.T) {
	s := setupTestServer(t)
	st := createView(t, s, createGraph(t, s, pathDoc))

	rr := postEvent(t, s, st.ID, Event{Type: "resize", Width: 640, Height: 480})
	require.Equal(t, http.StatusOK, rr.Code)

	require.Eventually(t, func() bool {
		rr := do(t, s, http.MethodGet, "/api/views/"+st.ID, "", "")
		var cur ViewState
		if json.Unmarshal(rr.Body.Bytes(), &cur) != nil {
			return false
		}
		return cur.Width == 640 && cur.Height == 480
	}, 2*time.Second, 10*time.Millisecond)

	rr = do(t, s, http.MethodGet, "/api/views/"+st.ID+"/frame", "", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "image/svg+xml", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), `width="640"`)
	assert.NotEmpty(t, rr.Header().Get("X-Layout-Alpha"))

	rr = do(t, s, http.MethodDelete, "/api/views/"+st.ID, "", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = do(t, s, http.MethodGet, "/api/views/"+st.ID+"/frame", "", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestLiveViewSettles(t *testing.T) {
	s := setupTestServer(t)
	st := createView(t, s, createGraph(t, s, pathDoc))

	require.Eventually(t, func() bool {
		rr := do(t, s, http.MethodGet, "/api/views/"+st.ID, "", "")
		var cur ViewState
		if json.Unmarshal(rr.Body.Bytes(), &cur) != nil {
			return false
		}
		return cur.Idle && cur.Ticks > 250
	}, 10*time.Second, 20*time.Millisecond)
}

func TestViewNodeQueries(t *testing.T) {
	s := setupTestServer(t)
	st := createView(t, s, createGraph(t, s, pathDoc))

	rr := do(t, s, http.MethodGet, "/api/views/"+st.ID+"?node=b", "", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var cur ViewState
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &cur))
	require.Len(t, cur.Nodes, 1)
	assert.Equal(t, "b", cur.Nodes[0].ID)

	rr = do(t, s, http.MethodGet, "/api/views/"+st.ID+"?node=ghost", "", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rr).Code)

	rr = do(t, s, http.MethodGet, "/api/views/"+st.ID+"?pinned=maybe", "", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, s, http.MethodGet, "/api/views/"+st.ID+"?pinned=true", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	cur = ViewState{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &cur))
	assert.Empty(t, cur.Nodes)

	rr = postEvent(t, s, st.ID, Event{Type: "pointerdown", Pointer: 1, Node: "a", X: 10, Y: 10})
	require.Equal(t, http.StatusOK, rr.Code)
	rr = do(t, s, http.MethodGet, "/api/views/"+st.ID+"?pinned=true", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	cur = ViewState{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &cur))
	require.Len(t, cur.Nodes, 1)
	assert.Equal(t, "a", cur.Nodes[0].ID)
}

func TestCreateViewWithCancelledRequest(t *testing.T) {
	s := setupTestServer(t)
	id := createGraph(t, s, pathDoc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/graphs/"+id+"/views", nil).WithContext(ctx)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)

	if rr.Code == http.StatusCreated {
		return
	}
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code, rr.Body.String())
	s.mu.RLock()
	assert.Empty(t, s.views)
	s.mu.RUnlock()
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(s.metrics.ActiveViews) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCreateViewWithRejectedEdges(t *testing.T) {
	s := setupTestServer(t)
	id := createGraph(t, s, `{"nodes": [{"id": "a"}], "edges": [{"source": "a", "target": "ghost"}]}`)

	st := createView(t, s, id)
	assert.Equal(t, 1, st.Rejected)

	rr := do(t, s, http.MethodPost, "/api/graphs/missing/views", "", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := setupTestServer(t)
	createGraph(t, s, pathDoc)

	rr := do(t, s, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"graphs":1`)

	rr = do(t, s, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "forcegraph_graphs_stored 1")
	assert.Contains(t, body, `route="/api/graphs"`)
}

package server

import (
	"bytes"
	"net/http"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/TFMV/forcegraph/errors"
	"github.com/TFMV/forcegraph/models"
	"github.com/TFMV/forcegraph/view"
)

// GraphSummary describes a stored document.
type GraphSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Nodes int    `json:"nodes"`
	Edges int    `json:"edges"`
}

func (s *Server) createGraph(w http.ResponseWriter, r *http.Request) {
	doc, err := s.decodeDocument(w, r)
	if err != nil {
		s.respondError(w, err)
		return
	}
	doc = doc.Clone()
	doc.DeriveEdgeIDs()
	if err := doc.Validate(); err != nil {
		s.respondError(w, err)
		return
	}

	id := uuid.NewString()
	if doc.ID == "" {
		doc.ID = id
	}

	s.mu.Lock()
	s.graphs[id] = doc
	stored := len(s.graphs)
	s.mu.Unlock()
	s.metrics.GraphsStored.Set(float64(stored))

	s.logger.Info("graph stored", "id", id, "nodes", len(doc.Nodes), "edges", len(doc.Edges))
	s.respondJSON(w, http.StatusCreated, GraphSummary{
		ID:    id,
		Name:  doc.Name,
		Nodes: len(doc.Nodes),
		Edges: len(doc.Edges),
	})
}

func (s *Server) listGraphs(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	out := make([]GraphSummary, 0, len(s.graphs))
	for id, doc := range s.graphs {
		out = append(out, GraphSummary{ID: id, Name: doc.Name, Nodes: len(doc.Nodes), Edges: len(doc.Edges)})
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	s.respondJSON(w, http.StatusOK, out)
}

func (s *Server) getGraph(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	doc, ok := s.graph(id)
	if !ok {
		s.respondError(w, errors.New(errors.ErrCodeNotFound, "graph %s not found", id))
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) deleteGraph(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	_, ok := s.graphs[id]
	delete(s.graphs, id)
	stored := len(s.graphs)
	s.mu.Unlock()
	if !ok {
		s.respondError(w, errors.New(errors.ErrCodeNotFound, "graph %s not found", id))
		return
	}
	s.metrics.GraphsStored.Set(float64(stored))
	w.WriteHeader(http.StatusNoContent)
}

// settle runs a headless layout of the stored graph for this request.
func (s *Server) settle(r *http.Request) (*view.SettleResult, *bytes.Buffer, string, error) {
	id := mux.Vars(r)["id"]
	doc, ok := s.graph(id)
	if !ok {
		return nil, nil, "", errors.New(errors.ErrCodeNotFound, "graph %s not found", id)
	}
	q := r.URL.Query()
	vp, err := s.viewportFrom(q)
	if err != nil {
		return nil, nil, "", err
	}
	backend, err := s.backendFrom(q)
	if err != nil {
		return nil, nil, "", err
	}
	defer backend.Teardown()

	res, err := view.Settle(r.Context(), doc, backend, vp, s.cfg.ViewOptions(s.logger, s.metrics))
	if err != nil {
		return nil, nil, "", err
	}
	var buf bytes.Buffer
	if err := backend.Encode(&buf); err != nil {
		return nil, nil, "", err
	}
	return res, &buf, backend.ContentType(), nil
}

func (s *Server) renderGraph(w http.ResponseWriter, r *http.Request) {
	res, buf, contentType, err := s.settle(r)
	if err != nil {
		s.respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Layout-Ticks", strconv.Itoa(res.Ticks))
	w.Header().Set("X-Layout-At-Rest", strconv.FormatBool(res.AtRest))
	w.Header().Set("X-Rejected-Edges", strconv.Itoa(errors.Count(res.Rejected, errors.ErrCodeInvalidEdge)))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Warn("error writing frame", "err", err)
	}
}

// LayoutResponse is the settled document with final positions.
type LayoutResponse struct {
	Ticks    int                   `json:"ticks"`
	AtRest   bool                  `json:"atRest"`
	Rejected int                   `json:"rejected"`
	Document *models.GraphDocument `json:"document"`
}

func (s *Server) layoutGraph(w http.ResponseWriter, r *http.Request) {
	res, _, _, err := s.settle(r)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, LayoutResponse{
		Ticks:    res.Ticks,
		AtRest:   res.AtRest,
		Rejected: errors.Count(res.Rejected, errors.ErrCodeInvalidEdge),
		Document: res.Document,
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	graphs, views := len(s.graphs), len(s.views)
	s.mu.RUnlock()
	s.respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"graphs": graphs,
		"views":  views,
	})
}

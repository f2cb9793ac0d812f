package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/TFMV/forcegraph/errors"
	"github.com/TFMV/forcegraph/eventloop"
	"github.com/TFMV/forcegraph/models"
	"github.com/TFMV/forcegraph/render"
	"github.com/TFMV/forcegraph/view"
)

// Event is a pointer or resize event sent to a live view.
type Event struct {
	Type       string  `json:"type"` // pointerdown, pointermove, pointerup or resize
	Pointer    int     `json:"pointer"`
	Node       string  `json:"node,omitempty"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width,omitempty"`
	Height     float64 `json:"height,omitempty"`
	PixelRatio float64 `json:"dpr,omitempty"`
}

// ViewState is a snapshot of a live view.
type ViewState struct {
	ID         string        `json:"id"`
	GraphID    string        `json:"graph"`
	Backend    string        `json:"backend"`
	Width      float64       `json:"width"`
	Height     float64       `json:"height"`
	PixelRatio float64       `json:"dpr"`
	Alpha      float64       `json:"alpha"`
	Ticks      int           `json:"ticks"`
	Idle       bool          `json:"idle"`
	Dragging   int           `json:"dragging"`
	Rejected   int           `json:"rejected,omitempty"`
	Created    time.Time     `json:"created"`
	Nodes      []models.Node `json:"nodes,omitempty"`
}

// snapshot must run on the view's loop.
func (hv *hostedView) snapshot(nodes []*models.Node) ViewState {
	v := hv.view
	vp := v.Viewport()
	st := ViewState{
		ID:         hv.id,
		GraphID:    hv.graphID,
		Backend:    string(v.Backend().Kind()),
		Width:      vp.Width,
		Height:     vp.Height,
		PixelRatio: vp.PixelRatio,
		Created:    hv.created,
	}
	if sim := v.Simulation(); sim != nil {
		st.Alpha = sim.Alpha()
		st.Ticks = sim.Ticks()
		st.Idle = sim.Idle()
	}
	if d := v.Drag(); d != nil {
		st.Dragging = d.Active()
	}
	if nodes != nil {
		st.Nodes = make([]models.Node, len(nodes))
		for i, n := range nodes {
			st.Nodes[i] = *n
		}
	}
	return st
}

// selectNodes picks the nodes a view snapshot reports: a single node by id,
// the pinned nodes, or every node.
func selectNodes(doc *models.GraphDocument, id string, pinned bool) ([]*models.Node, error) {
	if doc == nil {
		return nil, nil
	}
	if id != "" {
		n, err := doc.FindNodeByID(id)
		if err != nil {
			return nil, err
		}
		if pinned && !n.Pinned() {
			return []*models.Node{}, nil
		}
		return []*models.Node{n}, nil
	}
	if pinned {
		return append([]*models.Node{}, doc.FilterNodes((*models.Node).Pinned)...), nil
	}
	return doc.Nodes, nil
}

func (s *Server) createView(w http.ResponseWriter, r *http.Request) {
	graphID := mux.Vars(r)["id"]
	doc, ok := s.graph(graphID)
	if !ok {
		s.respondError(w, errors.New(errors.ErrCodeNotFound, "graph %s not found", graphID))
		return
	}
	q := r.URL.Query()
	vp, err := s.viewportFrom(q)
	if err != nil {
		s.respondError(w, err)
		return
	}
	backend, err := s.backendFrom(q)
	if err != nil {
		s.respondError(w, err)
		return
	}

	hv := &hostedView{
		id:      uuid.NewString(),
		graphID: graphID,
		loop:    eventloop.New(0),
		created: time.Now().UTC(),
	}
	go hv.loop.Run(s.ctx)

	var loadErr error
	var st ViewState
	err = hv.loop.Do(r.Context(), func() {
		hv.view = view.New(hv.loop, backend, s.cfg.ViewOptions(s.logger, s.metrics))
		if loadErr = hv.view.Mount(vp); loadErr != nil {
			return
		}
		loadErr = hv.view.Load(doc)
		st = hv.snapshot(nil)
	})
	if err != nil {
		s.abandonView(hv)
		s.respondError(w, err)
		return
	}
	if loadErr != nil && !errors.Is(loadErr, errors.ErrCodeInvalidEdge) {
		s.stopView(hv)
		s.respondError(w, loadErr)
		return
	}
	st.Rejected = errors.Count(loadErr, errors.ErrCodeInvalidEdge)

	s.mu.Lock()
	s.views[hv.id] = hv
	s.mu.Unlock()

	s.logger.Info("view created", "view", hv.id, "graph", graphID, "backend", backend.Kind())
	s.respondJSON(w, http.StatusCreated, st)
}

func (s *Server) getView(w http.ResponseWriter, r *http.Request) {
	hv, ok := s.hosted(mux.Vars(r)["id"])
	if !ok {
		s.respondError(w, errors.New(errors.ErrCodeNotFound, "view %s not found", mux.Vars(r)["id"]))
		return
	}
	q := r.URL.Query()
	pinned := false
	if raw := q.Get("pinned"); raw != "" {
		var err error
		if pinned, err = strconv.ParseBool(raw); err != nil {
			s.respondError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid pinned %q", raw))
			return
		}
	}

	var st ViewState
	var selErr error
	err := hv.loop.Do(r.Context(), func() {
		var nodes []*models.Node
		if nodes, selErr = selectNodes(hv.view.Document(), q.Get("node"), pinned); selErr == nil {
			st = hv.snapshot(nodes)
		}
	})
	if err == nil {
		err = selErr
	}
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, st)
}

func (s *Server) deleteView(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	hv, ok := s.views[id]
	delete(s.views, id)
	s.mu.Unlock()
	if !ok {
		s.respondError(w, errors.New(errors.ErrCodeNotFound, "view %s not found", id))
		return
	}
	s.stopView(hv)
	s.logger.Info("view closed", "view", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) postEvent(w http.ResponseWriter, r *http.Request) {
	hv, ok := s.hosted(mux.Vars(r)["id"])
	if !ok {
		s.respondError(w, errors.New(errors.ErrCodeNotFound, "view %s not found", mux.Vars(r)["id"]))
		return
	}

	var ev Event
	body := http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(&ev); err != nil {
		s.respondError(w, errors.Wrap(errors.ErrCodeInvalidFormat, err, "invalid event body"))
		return
	}

	var evErr error
	var st ViewState
	err := hv.loop.Do(r.Context(), func() {
		evErr = dispatch(hv.view, ev)
		st = hv.snapshot(nil)
	})
	if err == nil {
		err = evErr
	}
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, st)
}

// dispatch must run on the view's loop.
func dispatch(v *view.View, ev Event) error {
	switch ev.Type {
	case "pointerdown":
		return v.PointerDown(ev.Pointer, ev.Node, ev.X, ev.Y)
	case "pointermove":
		return v.PointerMove(ev.Pointer, ev.X, ev.Y)
	case "pointerup":
		return v.PointerUp(ev.Pointer)
	case "resize":
		v.Resize(render.Viewport{Width: ev.Width, Height: ev.Height, PixelRatio: ev.PixelRatio})
		return nil
	default:
		return errors.New(errors.ErrCodeUnsupported, "unsupported event type %q", ev.Type)
	}
}

func (s *Server) getFrame(w http.ResponseWriter, r *http.Request) {
	hv, ok := s.hosted(mux.Vars(r)["id"])
	if !ok {
		s.respondError(w, errors.New(errors.ErrCodeNotFound, "view %s not found", mux.Vars(r)["id"]))
		return
	}

	var buf bytes.Buffer
	var encErr error
	var st ViewState
	var contentType string
	err := hv.loop.Do(r.Context(), func() {
		contentType = hv.view.Backend().ContentType()
		encErr = hv.view.Encode(&buf)
		st = hv.snapshot(nil)
	})
	if err == nil {
		err = encErr
	}
	if err != nil {
		s.respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Layout-Ticks", strconv.Itoa(st.Ticks))
	w.Header().Set("X-Layout-Alpha", strconv.FormatFloat(st.Alpha, 'f', 4, 64))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Warn("error writing frame", "err", err)
	}
}

package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/TFMV/forcegraph/errors"
	"github.com/TFMV/forcegraph/ingest"
	"github.com/TFMV/forcegraph/models"
	"github.com/TFMV/forcegraph/render"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("error encoding JSON response", "err", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	s.respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Code:    string(errors.GetCode(err)),
		Message: errors.UserMessage(err),
	})
}

func statusFor(err error) int {
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable
	}
	var tooLarge *http.MaxBytesError
	if stderrors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidFormat, errors.ErrCodeInvalidEdge, errors.ErrCodeDuplicateID:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeAlreadyDragging, errors.ErrCodeNoSurface:
		return http.StatusConflict
	case errors.ErrCodeClosed:
		return http.StatusGone
	case errors.ErrCodeUnsupported:
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusInternalServerError
	}
}

// requestFormat picks the document format from ?format= or the Content-Type.
func requestFormat(r *http.Request) string {
	if f := r.URL.Query().Get("format"); f != "" {
		return f
	}
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return "json"
	}
	switch mt {
	case "application/yaml", "application/x-yaml", "text/yaml":
		return "yaml"
	case "application/toml":
		return "toml"
	case "text/csv":
		return "csv"
	default:
		return "json"
	}
}

func (s *Server) decodeDocument(w http.ResponseWriter, r *http.Request) (*models.GraphDocument, error) {
	body := http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodyBytes)
	defer body.Close()
	return ingest.Decode(body, requestFormat(r))
}

// viewportFrom reads width, height and dpr, falling back to the configured
// defaults for missing values.
func (s *Server) viewportFrom(q url.Values) (render.Viewport, error) {
	vp := s.cfg.Viewport()
	for _, p := range []struct {
		name string
		dst  *float64
	}{
		{"width", &vp.Width},
		{"height", &vp.Height},
		{"dpr", &vp.PixelRatio},
	} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 {
			return vp, errors.New(errors.ErrCodeInvalidInput, "%s must be a positive number, got %q", p.name, raw)
		}
		*p.dst = v
	}
	return vp, nil
}

func (s *Server) backendFrom(q url.Values) (render.Backend, error) {
	kind := s.cfg.BackendKind()
	if raw := strings.TrimSpace(q.Get("backend")); raw != "" {
		k, err := render.ParseKind(raw)
		if err != nil {
			return nil, err
		}
		kind = k
	}
	return render.New(kind, s.cfg.RenderOptions(s.logger))
}

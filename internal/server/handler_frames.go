package server

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/me/mandelzoom/internal/export"
	"github.com/me/mandelzoom/internal/render"
	"github.com/me/mandelzoom/pkg/fractal"
	"github.com/me/mandelzoom/pkg/model"
)

type zoomResponse struct {
	Frames        int           `json:"frames"`
	Width         int           `json:"width"`
	Height        int           `json:"height"`
	Center        fractal.Point `json:"center"`
	StartWidth    float64       `json:"start_width"`
	EndWidth      float64       `json:"end_width"`
	ZoomFactor    float64       `json:"zoom_factor"`
	MaxIterations int           `json:"max_iterations"`
}

func (s *Server) handleZoom(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	respondOK(w, reqID, zoomResponse{
		Frames:        s.frames,
		Width:         s.zoom.Width,
		Height:        s.zoom.Height,
		Center:        s.zoom.Center,
		StartWidth:    s.zoom.StartWidth,
		EndWidth:      s.zoom.EndWidth,
		ZoomFactor:    s.zoom.ZoomFactor,
		MaxIterations: s.zoom.MaxIterations,
	})
}

// handleFramePNG renders one frame of the zoom on demand.
func (s *Server) handleFramePNG(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("Invalid frame index",
			model.FieldError{Field: "index", Message: "must be a non-negative integer"}))
		return
	}
	if index >= s.frames {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("frame", strconv.Itoa(index)))
		return
	}

	width, apiErr := sizeParam(r, "width", s.zoom.Width, s.config.MaxFrameWidth)
	if apiErr != nil {
		respondError(w, reqID, http.StatusBadRequest, apiErr)
		return
	}
	height, apiErr := sizeParam(r, "height", s.zoom.Height, s.config.MaxFrameHeight)
	if apiErr != nil {
		respondError(w, reqID, http.StatusBadRequest, apiErr)
		return
	}

	key := frameKey{index: index, width: width, height: height}
	if png, ok := s.cachedPreview(key); ok {
		writePNG(w, png, "HIT")
		return
	}

	if !s.slots.Acquire(r.Context()) {
		respondError(w, reqID, http.StatusServiceUnavailable,
			&model.APIError{Code: model.ErrBusy, Message: "request cancelled while waiting for a render slot"})
		return
	}
	grid, err := render.Frame(s.zoom, index, width, height, s.scheduler)
	s.slots.Release()
	if err != nil {
		s.logger.Error("frame render failed", "index", index, "error", err, "request_id", reqID)
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}

	var buf bytes.Buffer
	if err := export.EncodePNG(&buf, grid, s.palette); err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}
	if s.previews != nil {
		s.previews.Add(key, buf.Bytes())
	}
	writePNG(w, buf.Bytes(), "MISS")
}

// frameKey identifies one encoded preview. The palette is fixed per server.
type frameKey struct {
	index, width, height int
}

func (s *Server) cachedPreview(key frameKey) ([]byte, bool) {
	if s.previews == nil {
		return nil, false
	}
	v, ok := s.previews.Get(key)
	if !ok {
		return nil, false
	}
	return v.([]byte), true
}

func writePNG(w http.ResponseWriter, png []byte, cache string) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("X-Frame-Cache", cache)
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// sizeParam reads a positive pixel size capped at limit (when limit > 0).
func sizeParam(r *http.Request, name string, def, limit int) (int, *model.APIError) {
	v, apiErr := intParam(r, name, def)
	if apiErr != nil {
		return 0, apiErr
	}
	if v <= 0 || (limit > 0 && v > limit) {
		msg := "must be positive"
		if limit > 0 {
			msg = "must be between 1 and " + strconv.Itoa(limit)
		}
		return 0, model.NewValidationError("Invalid frame size", model.FieldError{Field: name, Message: msg})
	}
	return v, nil
}

func intParam(r *http.Request, name string, def int) (int, *model.APIError) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, model.NewValidationError("Invalid query", model.FieldError{Field: name, Message: "expected int"})
	}
	return v, nil
}

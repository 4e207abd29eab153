package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/me/mandelzoom/pkg/model"
)

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	opts := model.DefaultListOptions()
	q := r.URL.Query()
	if state := q.Get("state"); state != "" {
		st, ok := model.ParseRunState(state)
		if !ok {
			respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("Invalid query",
				model.FieldError{Field: "state", Message: "must be PENDING, RUNNING, COMPLETED or FAILED"}))
			return
		}
		opts.State = st
	}
	var apiErr *model.APIError
	if opts.Limit, apiErr = intParam(r, "limit", opts.Limit); apiErr != nil {
		respondError(w, reqID, http.StatusBadRequest, apiErr)
		return
	}
	if opts.Offset, apiErr = intParam(r, "offset", opts.Offset); apiErr != nil {
		respondError(w, reqID, http.StatusBadRequest, apiErr)
		return
	}
	opts.Clamp()

	if s.store == nil {
		respondList(w, reqID, []*model.Run{}, opts.PageOf(0))
		return
	}

	runs, total, err := s.store.ListRuns(r.Context(), opts)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}
	if runs == nil {
		runs = []*model.Run{}
	}

	respondList(w, reqID, runs, opts.PageOf(total))
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if s.store == nil {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("run", id))
		return
	}
	run, err := s.store.GetRun(r.Context(), id)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}
	if run == nil {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("run", id))
		return
	}
	respondOK(w, reqID, run)
}

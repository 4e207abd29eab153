package server

import (
	"net/http"
	"runtime"
	"time"
)

// Version is reported by the health endpoints.
const Version = "0.1.0"

type healthResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	GoVersion   string `json:"go_version"`
	Uptime      string `json:"uptime"`
	Scheduler   string `json:"scheduler"`
	Workers     int    `json:"workers"`
	Store       string `json:"store"`
	Frames      int    `json:"frames"`
	RenderSlots int    `json:"render_slots"`
	RendersBusy int    `json:"renders_busy"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	storeState := "disabled"
	if s.store != nil {
		storeState = "sqlite"
	}
	respondOK(w, reqID, healthResponse{
		Status:      "healthy",
		Version:     Version,
		GoVersion:   runtime.Version(),
		Uptime:      time.Since(s.startTime).Round(time.Second).String(),
		Scheduler:   s.scheduler.Strategy().String(),
		Workers:     s.scheduler.Workers(),
		Store:       storeState,
		Frames:      s.frames,
		RenderSlots: s.slots.Capacity(),
		RendersBusy: s.slots.InUse(),
	})
}

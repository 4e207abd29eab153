package server

import "net/http"

type endpointInfo struct {
	Path        string   `json:"path"`
	Methods     []string `json:"methods"`
	Description string   `json:"description"`
}

type discoveryResponse struct {
	Name        string         `json:"name"`
	Version     string         `json:"version"`
	Description string         `json:"description"`
	Endpoints   []endpointInfo `json:"endpoints"`
}

func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	endpoints := []endpointInfo{
		{"/api/v1/zoom", []string{"GET"}, "Zoom geometry and frame count"},
		{"/api/v1/runs", []string{"GET"}, "Render history, newest first. Accepts ?state=&limit=&offset="},
		{"/api/v1/runs/{id}", []string{"GET"}, "Single render run"},
		{"/api/v1/frames/{index}.png", []string{"GET"}, "Render one frame as PNG. Accepts ?width=&height="},
		{"/api/v1/health", []string{"GET"}, "Server health and version"},
		{"/healthz", []string{"GET"}, "Liveness probe"},
		{"/ui/", []string{"GET"}, "HTML dashboard and frame gallery"},
	}
	if s.gatherer != nil {
		endpoints = append(endpoints, endpointInfo{"/metrics", []string{"GET"}, "Prometheus metrics"})
	}
	respondOK(w, reqID, discoveryResponse{
		Name:        "mandelzoom preview API",
		Version:     "v1",
		Description: "Mandelbrot zoom previews and render history",
		Endpoints:   endpoints,
	})
}

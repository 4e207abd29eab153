// Package ui serves the HTML dashboard of the preview server: zoom
// parameters, run history and a frame gallery.
package ui

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/me/mandelzoom/internal/logging"
	"github.com/me/mandelzoom/internal/store"
	"github.com/me/mandelzoom/pkg/fractal"
	"github.com/me/mandelzoom/pkg/model"
)

const (
	framesPerPage = 24
	recentRuns    = 10
	thumbWidth    = 240
)

// UI handles the web user interface.
type UI struct {
	base      string
	store     store.Store
	zoom      fractal.FrameOptions
	frames    int
	scheduler string
	workers   int
	logger    *slog.Logger
	startTime time.Time
}

// Config holds UI configuration.
type Config struct {
	// Base is the path the UI is mounted at, e.g. "/ui".
	Base      string
	Zoom      fractal.FrameOptions
	Scheduler string
	Workers   int
}

// New creates a UI. st may be nil, which hides the run history.
func New(st store.Store, logger *slog.Logger, cfg Config) *UI {
	return &UI{
		base:      cfg.Base,
		store:     st,
		zoom:      cfg.Zoom,
		frames:    cfg.Zoom.FrameCount(),
		scheduler: cfg.Scheduler,
		workers:   cfg.Workers,
		logger:    logging.Component(logger, "ui"),
		startTime: time.Now(),
	}
}

// RegisterRoutes registers all UI routes on the given router.
func (ui *UI) RegisterRoutes(r chi.Router) {
	r.Get("/", ui.HandleDashboard)
	r.Get("/frames", ui.HandleFrames)
	r.Get("/runs/{id}", ui.HandleRunDetail)
}

type stateCount struct {
	State model.RunState
	Count int
}

// HandleDashboard renders the zoom summary and the most recent runs.
func (ui *UI) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	data := ui.page("Dashboard - mandelzoom")
	data["Zoom"] = map[string]int{
		"Frames":        ui.frames,
		"Width":         ui.zoom.Width,
		"Height":        ui.zoom.Height,
		"MaxIterations": ui.zoom.MaxIterations,
	}
	data["Scheduler"] = ui.scheduler
	data["Workers"] = ui.workers
	data["Uptime"] = time.Since(ui.startTime).Round(time.Second).String()
	data["HistoryEnabled"] = ui.store != nil

	if ui.store != nil {
		ctx := r.Context()
		runs, _, err := ui.store.ListRuns(ctx, model.ListOptions{Limit: recentRuns})
		if err != nil {
			ui.renderError(w, "List runs failed", err)
			return
		}
		var stats []stateCount
		for _, st := range []model.RunState{model.RunStatePending, model.RunStateRunning, model.RunStateCompleted, model.RunStateFailed} {
			_, total, err := ui.store.ListRuns(ctx, model.ListOptions{Limit: 1, State: st})
			if err != nil {
				ui.renderError(w, "Count runs failed", err)
				return
			}
			stats = append(stats, stateCount{State: st, Count: total})
		}
		data["Runs"] = runs
		data["Stats"] = stats
	}
	ui.render(w, "dashboard", data)
}

// HandleFrames renders one page of frame thumbnails. The images are
// fetched from the frame PNG endpoint.
func (ui *UI) HandleFrames(w http.ResponseWriter, r *http.Request) {
	page := 0
	if v := r.URL.Query().Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			ui.renderStatus(w, http.StatusBadRequest, "Bad request", "page must be a non-negative integer")
			return
		}
		page = n
	}
	// Page 0 always renders, even for an empty zoom.
	pages := (ui.frames + framesPerPage - 1) / framesPerPage
	if page > 0 && page >= pages {
		ui.renderStatus(w, http.StatusNotFound, "Not found", "no frames on page "+strconv.Itoa(page))
		return
	}
	first := page * framesPerPage
	last := min(first+framesPerPage, ui.frames)
	indices := make([]int, 0, last-first)
	for i := first; i < last; i++ {
		indices = append(indices, i)
	}

	data := ui.page("Frames - mandelzoom")
	data["Indices"] = indices
	data["First"] = first
	data["Last"] = max(last-1, first)
	data["Total"] = ui.frames
	data["Page"] = page
	data["HasMore"] = last < ui.frames
	data["ThumbWidth"] = thumbWidth
	data["ThumbHeight"] = ui.thumbHeight()
	ui.render(w, "frames", data)
}

// HandleRunDetail renders a single run.
func (ui *UI) HandleRunDetail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if ui.store == nil {
		ui.renderStatus(w, http.StatusNotFound, "Not found", "run history is disabled")
		return
	}
	run, err := ui.store.GetRun(r.Context(), id)
	if err != nil {
		ui.renderError(w, "Get run failed", err)
		return
	}
	if run == nil {
		ui.renderStatus(w, http.StatusNotFound, "Not found", "run "+id+" not found")
		return
	}
	data := ui.page(run.ID + " - mandelzoom")
	data["Run"] = run
	ui.render(w, "runs/detail", data)
}

// thumbHeight keeps the aspect ratio of the zoom.
func (ui *UI) thumbHeight() int {
	if ui.zoom.Width <= 0 {
		return thumbWidth
	}
	return max(1, thumbWidth*ui.zoom.Height/ui.zoom.Width)
}

func (ui *UI) page(title string) map[string]any {
	return map[string]any{"Title": title, "Base": ui.base}
}

func (ui *UI) render(w http.ResponseWriter, name string, data map[string]any) {
	ui.renderWithStatus(w, http.StatusOK, name, data)
}

func (ui *UI) renderWithStatus(w http.ResponseWriter, status int, name string, data map[string]any) {
	var buf bytes.Buffer
	if err := renderTemplate(&buf, name, data); err != nil {
		ui.logger.Error("template render failed", "template", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (ui *UI) renderStatus(w http.ResponseWriter, status int, heading, message string) {
	data := ui.page(heading + " - mandelzoom")
	data["Heading"] = heading
	data["Message"] = message
	ui.renderWithStatus(w, status, "error", data)
}

func (ui *UI) renderError(w http.ResponseWriter, message string, err error) {
	ui.logger.Error(message, "error", err)
	ui.renderStatus(w, http.StatusInternalServerError, "Error", message)
}

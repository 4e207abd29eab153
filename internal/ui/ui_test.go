package ui

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/me/mandelzoom/internal/store"
	"github.com/me/mandelzoom/pkg/fractal"
	"github.com/me/mandelzoom/pkg/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testZoom() fractal.FrameOptions {
	return fractal.FrameOptions{
		Width:         64,
		Height:        36,
		Center:        fractal.Point{X: -0.761574, Y: -0.0847596},
		StartWidth:    3,
		EndWidth:      0.01,
		ZoomFactor:    0.9,
		MaxMagnitude:  5,
		MaxIterations: 64,
	}
}

func testStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLiteStore(":memory:", testLogger())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func testRouter(st store.Store) http.Handler {
	ui := New(st, testLogger(), Config{Base: "/ui", Zoom: testZoom(), Scheduler: "pool", Workers: 4})
	r := chi.NewRouter()
	r.Route("/ui", ui.RegisterRoutes)
	return r
}

func get(t *testing.T, h http.Handler, path string, want int) string {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
	if w.Code != want {
		t.Fatalf("GET %s: status=%d, want %d, body=%s", path, w.Code, want, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("GET %s: Content-Type = %q", path, ct)
	}
	return w.Body.String()
}

func seed(t *testing.T, st store.Store) []*model.Run {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var runs []*model.Run
	for i, final := range []model.RunState{model.RunStateCompleted, model.RunStateFailed, model.RunStateRunning} {
		run := &model.Run{
			ID:        fmt.Sprintf("run_%d", i),
			State:     model.RunStatePending,
			Planner:   "row",
			Scheduler: "threads",
			Frames:    511,
			Width:     1920,
			Height:    1080,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := st.CreateRun(ctx, run); err != nil {
			t.Fatal(err)
		}
		run.State = model.RunStateRunning
		if err := st.UpdateRun(ctx, run); err != nil {
			t.Fatal(err)
		}
		if final != model.RunStateRunning {
			done := run.CreatedAt.Add(time.Second)
			run.State = final
			run.CompletedAt = &done
			run.Duration = 1500 * time.Millisecond
			if final == model.RunStateFailed {
				run.Error = "compute: job 7 failed"
			}
			if err := st.UpdateRun(ctx, run); err != nil {
				t.Fatal(err)
			}
		}
		runs = append(runs, run)
	}
	return runs
}

func TestDashboard_WithHistory(t *testing.T) {
	st := testStore(t)
	seed(t, st)
	body := get(t, testRouter(st), "/ui/", http.StatusOK)

	for _, want := range []string{
		"Dashboard",
		"64x36",
		"run_0", "run_1", "run_2",
		`href="/ui/runs/run_1"`,
		"COMPLETED", "FAILED", "RUNNING",
		"1.5s",
		"511",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}
}

func TestDashboard_NoHistory(t *testing.T) {
	body := get(t, testRouter(nil), "/ui/", http.StatusOK)
	if !strings.Contains(body, "Run history is disabled") {
		t.Error("expected disabled-history notice")
	}
	if strings.Contains(body, "Recent runs") {
		t.Error("runs table rendered without a store")
	}
}

func TestFrames_Pagination(t *testing.T) {
	h := testRouter(nil)
	total := testZoom().FrameCount()
	if total <= framesPerPage {
		t.Fatalf("test zoom has %d frames, need more than one page", total)
	}

	first := get(t, h, "/ui/frames", http.StatusOK)
	if got := strings.Count(first, "<figure>"); got != framesPerPage {
		t.Errorf("first page thumbnails = %d, want %d", got, framesPerPage)
	}
	if !strings.Contains(first, `/api/v1/frames/0.png?width=240&height=135`) {
		t.Error("first page missing thumbnail of frame 0")
	}
	if !strings.Contains(first, "/ui/frames?page=1") {
		t.Error("first page missing next link")
	}
	if strings.Contains(first, "previous") {
		t.Error("first page has a previous link")
	}

	lastPage := (total - 1) / framesPerPage
	last := get(t, h, fmt.Sprintf("/ui/frames?page=%d", lastPage), http.StatusOK)
	if got, want := strings.Count(last, "<figure>"), total-lastPage*framesPerPage; got != want {
		t.Errorf("last page thumbnails = %d, want %d", got, want)
	}
	if strings.Contains(last, "next") {
		t.Error("last page has a next link")
	}
	if !strings.Contains(last, fmt.Sprintf("frame %d", total-1)) {
		t.Errorf("last page missing frame %d", total-1)
	}
}

func TestFrames_BadPage(t *testing.T) {
	h := testRouter(nil)
	get(t, h, "/ui/frames?page=-1", http.StatusBadRequest)
	get(t, h, "/ui/frames?page=x", http.StatusBadRequest)
	get(t, h, "/ui/frames?page=1000", http.StatusNotFound)
	get(t, h, "/ui/frames?page=9223372036854775807", http.StatusNotFound)
}

func TestFrames_EmptyZoom(t *testing.T) {
	ui := New(nil, nil, Config{Base: "/ui"})
	r := chi.NewRouter()
	r.Route("/ui", ui.RegisterRoutes)

	body := get(t, r, "/ui/frames", http.StatusOK)
	if strings.Contains(body, "<figure>") {
		t.Error("empty zoom rendered thumbnails")
	}
	if strings.Contains(body, "next") {
		t.Error("empty zoom has a next link")
	}
	for _, page := range []string{"1", "3", "9223372036854775807"} {
		get(t, r, "/ui/frames?page="+page, http.StatusNotFound)
	}
}

func TestRunDetail(t *testing.T) {
	st := testStore(t)
	seed(t, st)
	h := testRouter(st)

	body := get(t, h, "/ui/runs/run_1", http.StatusOK)
	for _, want := range []string{"run_1", "FAILED", "compute: job 7 failed", "threads", "1920x1080"} {
		if !strings.Contains(body, want) {
			t.Errorf("detail missing %q", want)
		}
	}

	get(t, h, "/ui/runs/run_missing", http.StatusNotFound)
}

func TestRunDetail_NoHistory(t *testing.T) {
	body := get(t, testRouter(nil), "/ui/runs/run_0", http.StatusNotFound)
	if !strings.Contains(body, "run history is disabled") {
		t.Errorf("body = %s", body)
	}
}

func TestTemplates_AllParse(t *testing.T) {
	for name, content := range templates {
		tmpl, err := template.New("layout").Funcs(templateFuncs).Parse(templates["layout"])
		if err != nil {
			t.Fatalf("layout: %v", err)
		}
		if _, err := tmpl.New("content").Parse(content); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
}

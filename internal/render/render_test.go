package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/me/mandelzoom/internal/config"
	"github.com/me/mandelzoom/internal/export"
	"github.com/me/mandelzoom/internal/planner"
	"github.com/me/mandelzoom/internal/scheduler"
	"github.com/me/mandelzoom/internal/store"
	"github.com/me/mandelzoom/pkg/fractal"
	"github.com/me/mandelzoom/pkg/model"
)

func testStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLiteStore(":memory:", nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func smallConfig(t *testing.T) config.RenderConfig {
	t.Helper()
	cfg := config.DefaultRenderConfig()
	cfg.Width = 24
	cfg.Height = 12
	cfg.MaxIterations = 64
	cfg.ZoomFactor = 0.5
	cfg.EndWidth = 0.3 // widths 3, 1.5, 0.75, 0.375
	cfg.Workers = 3
	cfg.Output = filepath.Join(t.TempDir(), "zoom.wif")
	return cfg
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestRender_WritesFramesAndRecordsRun(t *testing.T) {
	st := testStore(t)
	cfg := smallConfig(t)

	r, err := New(cfg, Options{Logger: testLogger(), Store: st})
	if err != nil {
		t.Fatal(err)
	}
	res, err := r.Render(context.Background())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	if res.Run.Frames != 4 {
		t.Errorf("Frames = %d, want 4", res.Run.Frames)
	}
	if res.Run.Jobs != 4*12 {
		t.Errorf("Jobs = %d, want %d (one per row)", res.Run.Jobs, 4*12)
	}
	if res.Stats.Executed != res.Run.Jobs {
		t.Errorf("Executed = %d, want %d", res.Stats.Executed, res.Run.Jobs)
	}
	if !strings.HasPrefix(res.Run.ID, "run_") {
		t.Errorf("run id %q lacks run_ prefix", res.Run.ID)
	}

	f, err := os.Open(cfg.Output)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	frames, err := export.ReadBinaryWIF(f)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if len(frames) != 4 {
		t.Fatalf("decoded %d frames, want 4", len(frames))
	}
	if info, _ := f.Stat(); info.Size() != res.Bytes {
		t.Errorf("Result.Bytes = %d, file size %d", res.Bytes, info.Size())
	}

	// The first frame must match a sequential computation of the same grid.
	want, err := fractal.Frame(cfg.FrameOptions(), 0)
	if err != nil {
		t.Fatal(err)
	}
	want.ComputeAll()
	table, err := export.Table(export.Grayscale{}, cfg.MaxIterations)
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < cfg.Height; y++ {
		for x := 0; x < cfg.Width; x++ {
			if got := frames[0].RGBAAt(x, y); got != table[want.At(x, y)] {
				t.Fatalf("frame 0 pixel (%d,%d) = %v, want %v", x, y, got, table[want.At(x, y)])
			}
		}
	}

	got, err := st.GetRun(context.Background(), res.Run.ID)
	if err != nil || got == nil {
		t.Fatalf("GetRun: %v, %v", got, err)
	}
	if got.State != model.RunStateCompleted || got.CompletedAt == nil {
		t.Errorf("recorded run = %+v, want COMPLETED", got)
	}
	if got.Executed != res.Run.Jobs || got.Workers != 3 {
		t.Errorf("recorded executed/workers = %d/%d", got.Executed, got.Workers)
	}
}

func TestRender_TextFormatWithoutStore(t *testing.T) {
	cfg := smallConfig(t)
	cfg.Format = "text"
	cfg.Palette = "colorful"
	cfg.Planner = planner.Pixel
	cfg.Scheduler = scheduler.Task

	r, err := New(cfg, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Render(context.Background()); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(cfg.Output)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(string(data), "<<<\n"); got != 4 {
		t.Errorf("text output has %d frame blocks, want 4", got)
	}
}

func TestRender_ExportFailureMarksRunFailed(t *testing.T) {
	st := testStore(t)
	cfg := smallConfig(t)
	cfg.Output = "s3://renders/zoom.wif"

	r, err := New(cfg, Options{
		Logger: testLogger(),
		Store:  st,
		Sinks: export.Sinks{NewUploader: func(context.Context) (export.Uploader, error) {
			return nil, errors.New("no credentials")
		}},
	})
	if err != nil {
		t.Fatal(err)
	}
	res, err := r.Render(context.Background())
	if err == nil || !strings.Contains(err.Error(), "no credentials") {
		t.Fatalf("Render err = %v, want credential failure", err)
	}

	got, _ := st.GetRun(context.Background(), res.Run.ID)
	if got.State != model.RunStateFailed {
		t.Errorf("state = %s, want FAILED", got.State)
	}
	if !strings.Contains(got.Error, "export") {
		t.Errorf("recorded error %q does not mention export", got.Error)
	}
	// The frames were computed before the export failed.
	if got.Executed != got.Jobs || got.Jobs == 0 {
		t.Errorf("executed %d of %d jobs", got.Executed, got.Jobs)
	}
}

func TestRender_CancelledBeforeCompute(t *testing.T) {
	st := testStore(t)
	cfg := smallConfig(t)
	r, err := New(cfg, Options{Logger: testLogger(), Store: st})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := r.Render(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	got, _ := st.GetRun(context.Background(), res.Run.ID)
	if got == nil || got.State != model.RunStateFailed || got.Executed != 0 {
		t.Errorf("recorded run = %+v, want FAILED with nothing executed", got)
	}
	if _, err := os.Stat(cfg.Output); !os.IsNotExist(err) {
		t.Errorf("output written despite cancellation: %v", err)
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := smallConfig(t)
	cfg.ZoomFactor = 1
	if _, err := New(cfg, Options{}); err == nil {
		t.Error("New accepted zoom factor 1")
	}
}

func TestFrame_MatchesSequential(t *testing.T) {
	o := smallConfig(t).FrameOptions()
	sched, err := scheduler.New(scheduler.Parallel, scheduler.Options{Workers: 4})
	if err != nil {
		t.Fatal(err)
	}

	g, err := Frame(o, 2, 40, 30, sched)
	if err != nil {
		t.Fatal(err)
	}
	if g.Width() != 40 || g.Height() != 30 {
		t.Fatalf("frame size = %dx%d, want 40x30", g.Width(), g.Height())
	}

	o.Width, o.Height = 40, 30
	want, _ := fractal.Frame(o, 2)
	want.ComputeAll()
	if !g.Equal(want) {
		t.Error("scheduled frame differs from sequential computation")
	}

	if _, err := Frame(o, 99, 0, 0, sched); err == nil {
		t.Error("Frame(99) beyond the zoom should fail")
	}
}

func TestBenchmark_Repeats(t *testing.T) {
	sched, _ := scheduler.New(scheduler.Threads, scheduler.Options{Workers: 2})
	o := smallConfig(t).FrameOptions()
	builds := 0
	times, err := Benchmark(sched, func() (scheduler.Plan, error) {
		builds++
		grids, err := fractal.Frames(o)
		if err != nil {
			return nil, err
		}
		return planner.New(planner.Frame, grids)
	}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(times) != 3 || builds != 3 {
		t.Errorf("got %d timings from %d plans, want 3 and 3", len(times), builds)
	}
}

func TestMatrix_AllPairsMatchBaseline(t *testing.T) {
	o := smallConfig(t).FrameOptions()
	report, err := Matrix(context.Background(), MatrixOptions{Frames: o, Workers: 3})
	if err != nil {
		t.Fatal(err)
	}
	want := len(planner.Granularities()) * len(scheduler.Strategies())
	if len(report.Entries) != want {
		t.Fatalf("entries = %d, want %d", len(report.Entries), want)
	}
	if bad := report.Mismatches(); len(bad) != 0 {
		t.Errorf("pairs differing from baseline: %+v", bad)
	}
	for _, e := range report.Entries {
		if e.Best <= 0 || e.Mean < e.Best {
			t.Errorf("%s/%s: best %v mean %v", e.Planner, e.Scheduler, e.Best, e.Mean)
		}
	}
}

func TestMatrix_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Matrix(ctx, MatrixOptions{Frames: smallConfig(t).FrameOptions()})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func sampleReport() *BenchReport {
	return &BenchReport{
		Frames: 4, Width: 24, Height: 12, MaxIterations: 64,
		Baseline: 40 * time.Millisecond,
		Entries: []BenchEntry{
			{Planner: planner.Row, Scheduler: scheduler.Pool, Workers: 4, Jobs: 48, Best: 10 * time.Millisecond, Mean: 12 * time.Millisecond, Match: true},
			{Planner: planner.Pixel, Scheduler: scheduler.Task, Workers: 4, Jobs: 1152, Best: 20 * time.Millisecond, Mean: 25 * time.Millisecond},
		},
	}
}

func TestBenchReport_Formats(t *testing.T) {
	r := sampleReport()

	var table bytes.Buffer
	if err := r.Write(&table, "table"); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"PLANNER", "row", "pool", "4.00x", "MISMATCH"} {
		if !strings.Contains(table.String(), want) {
			t.Errorf("table missing %q:\n%s", want, table.String())
		}
	}

	var js bytes.Buffer
	if err := r.Write(&js, "json"); err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		Entries []struct {
			Planner   string `json:"planner"`
			Scheduler string `json:"scheduler"`
			BestNS    int64  `json:"best_ns"`
		} `json:"entries"`
	}
	if err := json.Unmarshal(js.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if e := decoded.Entries[1]; e.Planner != "pixel" || e.Scheduler != "task" || e.BestNS != int64(20*time.Millisecond) {
		t.Errorf("json entry = %+v", e)
	}

	var y bytes.Buffer
	if err := r.Write(&y, "yaml"); err != nil {
		t.Fatal(err)
	}
	var back BenchReport
	if err := yaml.Unmarshal(y.Bytes(), &back); err != nil {
		t.Fatalf("yaml round trip: %v\n%s", err, y.String())
	}
	if back.Entries[0].Planner != planner.Row || back.Entries[0].Best != 10*time.Millisecond {
		t.Errorf("yaml entry = %+v", back.Entries[0])
	}

	if err := r.Write(io.Discard, "csv"); err == nil {
		t.Error("Write(csv) succeeded")
	}
}

func TestPrintSummary(t *testing.T) {
	done := time.Now()
	res := &Result{
		Run: &model.Run{
			ID: "run_abc", State: model.RunStateCompleted,
			Planner: "row", Scheduler: "pool", Workers: 8,
			Frames: 511, Width: 1920, Height: 1080, Jobs: 551880,
			CompletedAt: &done,
		},
		Compute:     90 * time.Second,
		Export:      2500 * time.Millisecond,
		Bytes:       3_178_700_000,
		Destination: "mandel.wif",
	}
	var buf bytes.Buffer
	PrintSummary(&buf, res)
	out := buf.String()
	for _, want := range []string{"run_abc", "551,880", "1m 30s", "2.5s", "3.2 GB", "mandel.wif"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{250 * time.Microsecond, "250µs"},
		{42 * time.Millisecond, "42ms"},
		{1500 * time.Millisecond, "1.5s"},
		{125 * time.Second, "2m 05s"},
		{3*time.Hour + 4*time.Minute + 5*time.Second, "3h 04m 05s"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

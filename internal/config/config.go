// Package config holds the render and server settings. Values come from
// defaults, then an optional YAML file, then command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/me/mandelzoom/internal/export"
	"github.com/me/mandelzoom/internal/planner"
	"github.com/me/mandelzoom/internal/scheduler"
	"github.com/me/mandelzoom/pkg/fractal"
)

// RenderConfig describes one zoom render.
type RenderConfig struct {
	Width         int           `yaml:"width"`
	Height        int           `yaml:"height"`
	Center        fractal.Point `yaml:"center"`
	StartWidth    float64       `yaml:"start_width"`
	EndWidth      float64       `yaml:"end_width"`
	ZoomFactor    float64       `yaml:"zoom_factor"`
	MaxMagnitude  float64       `yaml:"max_magnitude"`
	MaxIterations int           `yaml:"max_iterations"`

	// MaxFrames truncates the zoom after this many frames. 0 renders all.
	MaxFrames int `yaml:"max_frames"`

	Output  string `yaml:"output"`  // local path or s3://bucket/key
	Format  string `yaml:"format"`  // binary, text
	Palette string `yaml:"palette"` // grayscale, colorful, expr:<js>

	Planner   planner.Granularity `yaml:"planner"`
	Scheduler scheduler.Strategy  `yaml:"scheduler"`
	Workers   int                 `yaml:"workers"` // 0 = runtime.NumCPU()

	// DBPath is the run history database. Empty disables history.
	DBPath string `yaml:"db_path"`
}

// DefaultRenderConfig returns the classic seahorse-valley zoom at 1080p.
func DefaultRenderConfig() RenderConfig {
	return RenderConfig{
		Width:         1920,
		Height:        1080,
		Center:        fractal.Point{X: -0.761574, Y: -0.0847596},
		StartWidth:    3,
		EndWidth:      0.0001,
		ZoomFactor:    0.98,
		MaxMagnitude:  5.0,
		MaxIterations: fractal.DefaultMaxIterations,
		Output:        "mandel.wif",
		Format:        "binary",
		Palette:       "grayscale",
		Planner:       planner.Row,
		Scheduler:     scheduler.Pool,
	}
}

// Load reads a YAML file over the defaults. Unknown keys are rejected.
func Load(path string) (RenderConfig, error) {
	cfg := DefaultRenderConfig()
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// FrameOptions returns the zoom geometry of the config.
func (c RenderConfig) FrameOptions() fractal.FrameOptions {
	return fractal.FrameOptions{
		Width:         c.Width,
		Height:        c.Height,
		Center:        c.Center,
		StartWidth:    c.StartWidth,
		EndWidth:      c.EndWidth,
		ZoomFactor:    c.ZoomFactor,
		MaxMagnitude:  c.MaxMagnitude,
		MaxIterations: c.MaxIterations,
		MaxFrames:     c.MaxFrames,
	}
}

// FrameCount is the number of frames a render of c produces.
func (c RenderConfig) FrameCount() int {
	return c.FrameOptions().FrameCount()
}

// Validate reports every problem with the config at once.
func (c RenderConfig) Validate() error {
	errs := []error{c.FrameOptions().Validate()}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers %d must not be negative", c.Workers))
	}
	if strings.TrimSpace(c.Output) == "" {
		errs = append(errs, errors.New("output must be set"))
	}
	if _, err := export.ParseFormat(c.Format); err != nil {
		errs = append(errs, err)
	}
	if _, err := export.ParsePalette(c.Palette); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Planner.MarshalText(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Scheduler.MarshalText(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid render config: %w", err)
	}
	return nil
}

// ServerConfig holds configuration for the preview server.
type ServerConfig struct {
	Addr      string // Listen address (default ":8080")
	LogLevel  string // Log level: debug, info, warn, error
	LogFormat string // Log format: text, json
	DBPath    string // SQLite run history; empty serves no history

	// MaxConcurrentFrames bounds on-demand frame renders. Default: 2.
	MaxConcurrentFrames int
	// MaxFrameWidth and MaxFrameHeight cap the ?width=&height= of a preview.
	MaxFrameWidth  int
	MaxFrameHeight int
	// FrameCacheSize is the number of encoded previews kept in memory.
	// 0 disables the cache.
	FrameCacheSize int
}

// DefaultServerConfig returns sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:                ":8080",
		LogLevel:            "info",
		LogFormat:           "text",
		MaxConcurrentFrames: 2,
		MaxFrameWidth:       1920,
		MaxFrameHeight:      1080,
		FrameCacheSize:      64,
	}
}

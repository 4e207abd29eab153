package ui

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/me/mandelzoom/internal/render"
)

// Template functions available in all templates.
var templateFuncs = template.FuncMap{
	"formatTime": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.Format("2006-01-02 15:04:05")
	},
	"formatTimePtr": func(t *time.Time) string {
		if t == nil || t.IsZero() {
			return "-"
		}
		return t.Format("2006-01-02 15:04:05")
	},
	"since": func(t time.Time) string {
		return humanize.Time(t)
	},
	"duration": func(d time.Duration) string {
		if d <= 0 {
			return "-"
		}
		return render.FormatDuration(d)
	},
	"comma": func(n int) string {
		return humanize.Comma(int64(n))
	},
	"stateColor": func(state fmt.Stringer) string {
		switch strings.ToUpper(state.String()) {
		case "PENDING":
			return "#9ca3af"
		case "RUNNING":
			return "#3b82f6"
		case "COMPLETED":
			return "#22c55e"
		case "FAILED":
			return "#ef4444"
		default:
			return "#9ca3af"
		}
	},
	"add": func(a, b int) int {
		return a + b
	},
	"sub": func(a, b int) int {
		return a - b
	},
}

// renderTemplate renders the named page inside the layout.
func renderTemplate(w io.Writer, name string, data map[string]any) error {
	content, ok := templates[name]
	if !ok {
		return fmt.Errorf("template not found: %s", name)
	}
	tmpl, err := template.New("layout").Funcs(templateFuncs).Parse(templates["layout"])
	if err != nil {
		return fmt.Errorf("parse layout: %w", err)
	}
	if _, err := tmpl.New("content").Parse(content); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return tmpl.Execute(w, data)
}

var templates = map[string]string{
	"layout": `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <style>
        body { font-family: system-ui, sans-serif; margin: 0; background: #f9fafb; color: #111827; }
        nav { background: #fff; border-bottom: 1px solid #e5e7eb; padding: 0 2rem; display: flex; gap: 2rem; height: 3.5rem; align-items: center; }
        nav a { color: #6b7280; text-decoration: none; font-size: 0.9rem; }
        nav a.brand { color: #4f46e5; font-weight: 700; font-size: 1.2rem; }
        main { max-width: 72rem; margin: 0 auto; padding: 1.5rem 2rem; }
        table { width: 100%; border-collapse: collapse; background: #fff; font-size: 0.85rem; }
        th, td { text-align: left; padding: 0.5rem 0.75rem; border-bottom: 1px solid #e5e7eb; }
        th { color: #6b7280; font-weight: 500; text-transform: uppercase; font-size: 0.75rem; }
        .cards { display: grid; grid-template-columns: repeat(4, 1fr); gap: 1rem; margin-bottom: 2rem; }
        .card { background: #fff; border-radius: 0.5rem; padding: 1rem; box-shadow: 0 1px 2px rgba(0,0,0,0.05); }
        .card .value { font-size: 1.5rem; font-weight: 600; }
        .card .label { color: #6b7280; font-size: 0.8rem; }
        .dot { display: inline-block; width: 0.6rem; height: 0.6rem; border-radius: 50%; margin-right: 0.4rem; }
        .gallery { display: grid; grid-template-columns: repeat(auto-fill, minmax(240px, 1fr)); gap: 0.75rem; }
        .gallery figure { margin: 0; background: #fff; padding: 0.4rem; border-radius: 0.4rem; }
        .gallery img { width: 100%; display: block; image-rendering: pixelated; }
        .gallery figcaption { font-size: 0.75rem; color: #6b7280; padding-top: 0.3rem; }
        .pager { margin-top: 1rem; display: flex; gap: 1rem; font-size: 0.9rem; }
        dl { display: grid; grid-template-columns: 10rem 1fr; gap: 0.4rem 1rem; background: #fff; padding: 1rem; font-size: 0.9rem; }
        dt { color: #6b7280; }
        .error { color: #b91c1c; }
    </style>
</head>
<body>
    <nav>
        <a class="brand" href="{{.Base}}/">mandelzoom</a>
        <a href="{{.Base}}/">Dashboard</a>
        <a href="{{.Base}}/frames">Frames</a>
        <a href="/api/v1/">API</a>
    </nav>
    <main>
        {{template "content" .}}
    </main>
</body>
</html>`,

	"dashboard": `{{define "content"}}
<h1>Dashboard</h1>
<div class="cards">
    <div class="card"><div class="value">{{comma .Zoom.Frames}}</div><div class="label">frames of {{.Zoom.Width}}x{{.Zoom.Height}}</div></div>
    <div class="card"><div class="value">{{.Zoom.MaxIterations}}</div><div class="label">max iterations</div></div>
    <div class="card"><div class="value">{{.Scheduler}}</div><div class="label">preview scheduler, {{.Workers}} workers</div></div>
    <div class="card"><div class="value">{{.Uptime}}</div><div class="label">uptime</div></div>
</div>
{{if .HistoryEnabled}}
<div class="cards">
    {{range .Stats}}<div class="card"><div class="value"><span class="dot" style="background: {{stateColor .State}}"></span>{{.Count}}</div><div class="label">{{.State}}</div></div>{{end}}
</div>
<h2>Recent runs</h2>
<table>
    <thead><tr><th>Run</th><th>State</th><th>Planner</th><th>Scheduler</th><th>Frames</th><th>Jobs</th><th>Compute</th><th>Created</th></tr></thead>
    <tbody>
    {{range .Runs}}
        <tr>
            <td><a href="{{$.Base}}/runs/{{.ID}}">{{.ID}}</a></td>
            <td><span class="dot" style="background: {{stateColor .State}}"></span>{{.State}}</td>
            <td>{{.Planner}}</td>
            <td>{{.Scheduler}}</td>
            <td>{{comma .Frames}}</td>
            <td>{{comma .Jobs}}</td>
            <td>{{duration .Duration}}</td>
            <td>{{since .CreatedAt}}</td>
        </tr>
    {{else}}
        <tr><td colspan="8">No runs recorded yet.</td></tr>
    {{end}}
    </tbody>
</table>
{{else}}
<p>Run history is disabled. Start the server with --db to record renders.</p>
{{end}}
{{end}}`,

	"frames": `{{define "content"}}
<h1>Frames {{.First}}-{{.Last}} of {{comma .Total}}</h1>
<div class="gallery">
{{range .Indices}}
    <figure>
        <a href="/api/v1/frames/{{.}}.png"><img loading="lazy" src="/api/v1/frames/{{.}}.png?width={{$.ThumbWidth}}&height={{$.ThumbHeight}}" alt="frame {{.}}"></a>
        <figcaption>frame {{.}}</figcaption>
    </figure>
{{end}}
</div>
<div class="pager">
    {{if gt .Page 0}}<a href="{{.Base}}/frames?page={{sub .Page 1}}">&larr; previous</a>{{end}}
    {{if .HasMore}}<a href="{{.Base}}/frames?page={{add .Page 1}}">next &rarr;</a>{{end}}
</div>
{{end}}`,

	"runs/detail": `{{define "content"}}
{{with .Run}}
<h1>{{.ID}}</h1>
<dl>
    <dt>State</dt><dd><span class="dot" style="background: {{stateColor .State}}"></span>{{.State}}</dd>
    <dt>Planner</dt><dd>{{.Planner}}</dd>
    <dt>Scheduler</dt><dd>{{.Scheduler}} ({{.Workers}} workers)</dd>
    <dt>Workload</dt><dd>{{comma .Frames}} frames of {{.Width}}x{{.Height}}, {{.MaxIterations}} max iterations</dd>
    <dt>Jobs</dt><dd>{{comma .Executed}} of {{comma .Jobs}} executed</dd>
    <dt>Compute</dt><dd>{{duration .Duration}}</dd>
    <dt>Output</dt><dd>{{.Output}} ({{.Format}}, {{.Palette}})</dd>
    <dt>Created</dt><dd>{{formatTime .CreatedAt}}</dd>
    <dt>Finished</dt><dd>{{formatTimePtr .CompletedAt}}</dd>
    {{if .Error}}<dt>Error</dt><dd class="error">{{.Error}}</dd>{{end}}
</dl>
{{end}}
{{end}}`,

	"error": `{{define "content"}}
<h1>{{.Heading}}</h1>
<p class="error">{{.Message}}</p>
{{end}}`,
}

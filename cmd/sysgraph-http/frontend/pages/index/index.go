package index

import (
	"html/template"
	"io"
	"strings"
	"time"

	"git.unix.lgbt/diamondburned/sysgraph/cmd/sysgraph-http/frontend"
	"git.unix.lgbt/diamondburned/sysgraph/cmd/sysgraph-http/frontend/components/errbox"
	"git.unix.lgbt/diamondburned/sysgraph/graph"
)

var index = frontend.Templater.Register("index", "pages/index/index.html")

// Durations are the quick links shown on top of the page.
var Durations = []string{"1h", "3h", "12h", "1d", "1w", "30d"}

type renderData struct {
	Config  frontend.Config
	Dura    time.Duration // rounded to seconds
	Query   string        // the "t" parameter as given
	Refresh bool
	Width   int
	Height  int
	Error   error
}

type indexGraph struct {
	Name   string
	Title  string
	SVG    template.HTML
	Legend []graph.LegendEntry
	Error  template.HTML
}

// Durations returns the quick link durations.
func (r *renderData) Durations() []string { return Durations }

// Graphs reads and draws every preset.
func (r *renderData) Graphs() []indexGraph {
	reader, err := frontend.Open(r.Config, time.Now(), r.Dura)
	if err != nil {
		r.Error = err
		return nil
	}
	defer reader.Close()

	presets := reader.Presets()
	graphs := make([]indexGraph, len(presets))

	for i, p := range presets {
		graphs[i] = indexGraph{Name: p.Name, Title: p.Title}

		scene, err := reader.Scene(p, r.Width, r.Height)
		if err != nil {
			graphs[i].Error = errbox.Render(err)
			continue
		}

		svg, err := frontend.InlineSVG(scene)
		if err != nil {
			graphs[i].Error = errbox.Render(err)
			continue
		}

		graphs[i].SVG = svg
		graphs[i].Legend = scene.Legend
	}

	return graphs
}

// Render renders the index page.
func Render(w io.Writer, cfg frontend.Config, q string, d time.Duration, width, height int, refresh bool) {
	index.Execute(w, &renderData{
		Config:  cfg,
		Dura:    d.Round(time.Second),
		Query:   strings.TrimSpace(q),
		Refresh: refresh,
		Width:   width,
		Height:  height,
	})
}

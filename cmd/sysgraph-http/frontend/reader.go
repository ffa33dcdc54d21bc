package frontend

import (
	"log"
	"time"

	"git.unix.lgbt/diamondburned/sysgraph"
	"git.unix.lgbt/diamondburned/sysgraph/graph"
	"github.com/pkg/errors"
)

// Config is the frontend configuration shared by every request.
type Config struct {
	DBPath       string
	ProblemsPath string // optional
	WorkPeriods  []graph.WorkPeriod
	Location     *time.Location
	Theme        *graph.Theme
}

// ErrUnknownGraph is returned when no preset has the requested name.
var ErrUnknownGraph = errors.New("unknown graph")

// Default graph sizes.
const (
	DefaultWidth  = 900
	DefaultHeight = 220
)

// Reader reads graphs over a single time window. It must be closed once it's
// done.
type Reader struct {
	cfg      Config
	db       *sysgraph.Database
	problems []graph.Problem
	from     int64
	till     int64
}

// Open opens the databases for reading the window of the given duration up to
// now.
func Open(cfg Config, now time.Time, dura time.Duration) (*Reader, error) {
	d, err := sysgraph.Open(cfg.DBPath, false)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open")
	}

	r := Reader{
		cfg:  cfg,
		db:   d,
		till: now.Unix(),
		from: now.Add(-dura).Unix(),
	}

	if cfg.ProblemsPath != "" {
		r.problems, err = readProblems(cfg.ProblemsPath, r.from, r.till)
		if err != nil {
			// Problems are an overlay; the graphs are still drawn without
			// them.
			log.Println("cannot read problems:", err)
		}
	}

	return &r, nil
}

func readProblems(path string, from, till int64) ([]graph.Problem, error) {
	p, err := sysgraph.OpenProblems(path, false)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open problems")
	}
	defer p.Close()

	return p.Range(from, till)
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.db.Close()
}

// Presets returns all presets available on this machine.
func (r *Reader) Presets() []Preset {
	presets := append([]Preset(nil), Presets...)

	latest, err := r.db.Latest()
	if err != nil {
		if !errors.Is(err, sysgraph.ErrUninitialized) {
			log.Println("cannot read latest snapshot:", err)
		}
		return presets
	}

	return append(presets, DynamicPresets(latest)...)
}

// Preset finds a preset by its name. The "custom" preset takes its sources
// from the given string.
func (r *Reader) Preset(name, sources string) (Preset, error) {
	if name == "custom" {
		return CustomPreset(sources)
	}

	for _, p := range r.Presets() {
		if p.Name == name {
			return p, nil
		}
	}

	return Preset{}, errors.Wrapf(ErrUnknownGraph, "%q", name)
}

// Options reads the preset's data into render options.
func (r *Reader) Options(p Preset, width, height int) (graph.Options, error) {
	opts := graph.Options{
		Width:           width,
		Height:          height,
		From:            r.from,
		Till:            r.till,
		Now:             r.till,
		Metrics:         make([]graph.Metric, len(p.Metrics)),
		Left:            p.Left,
		Right:           p.Right,
		ShowXAxis:       true,
		Problems:        r.problems,
		ShowWorkingTime: len(r.cfg.WorkPeriods) > 0,
		WorkPeriods:     r.cfg.WorkPeriods,
		Location:        r.cfg.Location,
		Theme:           r.cfg.Theme,
	}

	sources := make([]sysgraph.Source, len(p.Metrics))
	for i, m := range p.Metrics {
		src, err := sysgraph.LookupSource(m.Source)
		if err != nil {
			return opts, err
		}
		sources[i] = src
	}

	// Every metric of a preset shares the same snapshots.
	snapshots, err := r.db.Window(r.from, r.till)
	if err != nil {
		return opts, errors.Wrap(err, "failed to read window")
	}

	for i, m := range p.Metrics {
		opts.Metrics[i] = graph.Metric{
			Name:    m.Name,
			Source:  m.Source,
			Units:   sources[i].Units,
			Options: m.Options,
			Points:  sources[i].Extract(snapshots),
		}
	}

	return opts, nil
}

// Scene reads and draws the preset.
func (r *Reader) Scene(p Preset, width, height int) (*graph.Scene, error) {
	opts, err := r.Options(p, width, height)
	if err != nil {
		return nil, err
	}

	return graph.Draw(opts), nil
}

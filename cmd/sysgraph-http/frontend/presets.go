package frontend

import (
	"fmt"
	"strings"

	"git.unix.lgbt/diamondburned/sysgraph"
	"git.unix.lgbt/diamondburned/sysgraph/graph"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
)

// Preset describes one graph on the page.
type Preset struct {
	Name    string // used in URLs
	Title   string
	Metrics []PresetMetric
	Left    graph.AxisConfig
	Right   graph.AxisConfig
}

// PresetMetric is a metric drawn from a source.
type PresetMetric struct {
	Name    string
	Source  string
	Options graph.MetricOptions
}

func color(c uint32) string { return fmt.Sprintf("#%06X", c) }

var percentAxis = graph.AxisConfig{
	Show: true,
	Min:  graph.Float(0),
	Max:  graph.Float(100),
}

// Presets is the list of graphs that are always shown.
var Presets = []Preset{
	{
		Name:  "cpu",
		Title: "CPU Usage",
		Metrics: []PresetMetric{{
			Name:    "Usage",
			Source:  "cpu.util",
			Options: graph.MetricOptions{Fill: 3, Color: color(0xEAB839)},
		}},
		Left: percentAxis,
	},
	{
		Name:  "memory",
		Title: "RAM Usage",
		Metrics: []PresetMetric{{
			Name:   "RAM",
			Source: "mem.used",
			Options: graph.MetricOptions{
				Type:  graph.TypeStaircase,
				Fill:  2,
				Color: color(0xFF9830),
			},
		}, {
			Name:   "Swap",
			Source: "swap.used",
			Options: graph.MetricOptions{
				Type:  graph.TypeStaircase,
				Color: color(0x5794F2),
			},
		}},
		Left: graph.AxisConfig{Show: true, Min: graph.Float(0)},
	},
	{
		Name:  "load",
		Title: "Load Average",
		Metrics: []PresetMetric{
			{"1 minute", "load.1", graph.MetricOptions{MissingData: graph.MissingZero, Color: color(0x8AC3FF)}},
			{"5 minutes", "load.5", graph.MetricOptions{MissingData: graph.MissingZero, Color: color(0x459AEA)}},
			{"15 minutes", "load.15", graph.MetricOptions{MissingData: graph.MissingZero, Color: color(0x0071D5)}},
		},
		Left: graph.AxisConfig{Show: true},
	},
	{
		Name:  "network",
		Title: "Network",
		Metrics: []PresetMetric{
			{"Received", "net.in", graph.MetricOptions{Type: graph.TypeBar, Color: color(0xDF2F44)}},
			{"Sent", "net.out", graph.MetricOptions{Type: graph.TypeBar, Color: color(0x5794F2)}},
		},
		Left: graph.AxisConfig{Show: true, Min: graph.Float(0)},
	},
}

// DynamicPresets returns the presets whose metrics depend on the hardware, such
// as one line per disk. The latest snapshot decides what exists.
func DynamicPresets(latest sysgraph.Snapshot) []Preset {
	disks := Preset{
		Name:  "disks",
		Title: "Disks",
		Left:  percentAxis,
	}

	temps := Preset{
		Name:  "temperatures",
		Title: "Temperatures",
		Left:  graph.AxisConfig{Show: true},
	}

	for _, d := range latest.Disks {
		disks.Metrics = append(disks.Metrics, PresetMetric{
			Name:    fmt.Sprintf("%s (total %s)", d.Path, humanize.IBytes(d.Total)),
			Source:  "disk.pused:" + d.Path,
			Options: graph.MetricOptions{Type: graph.TypeStaircase},
		})
	}

	for _, t := range latest.Temps {
		temps.Metrics = append(temps.Metrics, PresetMetric{
			Name:   t.SensorKey,
			Source: "temp:" + t.SensorKey,
		})
	}

	var presets []Preset
	for _, p := range []Preset{disks, temps} {
		if len(p.Metrics) > 0 {
			presets = append(presets, p)
		}
	}

	return presets
}

// ErrNoSources is returned when a custom preset names no sources.
var ErrNoSources = errors.New("no sources given")

// CustomPreset returns a preset drawing the given sources. Sources are
// separated by commas; a source prefixed with "right:" goes on the right axis.
func CustomPreset(sources string) (Preset, error) {
	p := Preset{
		Name:  "custom",
		Title: "Custom",
		Left:  graph.AxisConfig{Show: true},
		Right: graph.AxisConfig{Show: true},
	}

	for _, source := range strings.Split(sources, ",") {
		source = strings.TrimSpace(source)
		if source == "" {
			continue
		}

		var opts graph.MetricOptions
		if s, ok := strings.CutPrefix(source, "right:"); ok {
			source = s
			opts.Axis = graph.Right
		}

		if _, err := sysgraph.LookupSource(source); err != nil {
			return p, err
		}

		p.Metrics = append(p.Metrics, PresetMetric{
			Name:    source,
			Source:  source,
			Options: opts,
		})
	}

	if len(p.Metrics) == 0 {
		return p, ErrNoSources
	}

	return p, nil
}

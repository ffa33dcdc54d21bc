package sysgraph

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/cpu"

	"git.unix.lgbt/diamondburned/sysgraph/graph"
)

// ErrUnknownSource is returned for source identifiers that name no series.
var ErrUnknownSource = errors.New("unknown source")

// IgnoredNetworks contains interfaces that are never summed into the network
// sources.
var IgnoredNetworks = map[string]struct{}{
	"lo": {},
}

// Source extracts one series out of a sequence of snapshots.
type Source struct {
	ID    string
	Units string

	// value returns the sample for s. prev is the snapshot before s, or nil.
	// ok is false if s yields no sample.
	value func(prev, s *Snapshot) (v float64, ok bool)
}

type sourceFunc struct {
	units string
	value func(arg string) func(prev, s *Snapshot) (float64, bool)
}

var sources = map[string]sourceFunc{
	"cpu.util": {"%", constSource(cpuUtil)},

	"mem.used":      {"B", constSource(gauge(func(s *Snapshot) float64 { return float64(s.Memory.Used) }))},
	"mem.available": {"B", constSource(gauge(func(s *Snapshot) float64 { return float64(s.Memory.Available) }))},
	"swap.used":     {"B", constSource(gauge(func(s *Snapshot) float64 { return float64(s.Swap.Used) }))},

	"load.1":  {"", constSource(gauge(func(s *Snapshot) float64 { return s.LoadAvgs.Load1 }))},
	"load.5":  {"", constSource(gauge(func(s *Snapshot) float64 { return s.LoadAvgs.Load5 }))},
	"load.15": {"", constSource(gauge(func(s *Snapshot) float64 { return s.LoadAvgs.Load15 }))},

	"net.in":  {"Bps", constSource(rate(netCounter(true)))},
	"net.out": {"Bps", constSource(rate(netCounter(false)))},

	"disk.pused": {"%", diskUsed},
	"temp":       {"°C", temperature},
}

// LookupSource parses a source identifier. Sources taking an argument, such as
// a mountpoint, are written as "disk.pused:/home".
func LookupSource(id string) (Source, error) {
	name, arg, hasArg := strings.Cut(id, ":")

	fn, ok := sources[name]
	if !ok {
		return Source{}, errors.Wrapf(ErrUnknownSource, "%q", id)
	}

	switch name {
	case "disk.pused", "temp":
		if !hasArg || arg == "" {
			return Source{}, errors.Wrapf(ErrUnknownSource, "%q needs an argument", id)
		}
	default:
		if hasArg {
			return Source{}, errors.Wrapf(ErrUnknownSource, "%q takes no argument", id)
		}
	}

	return Source{
		ID:    id,
		Units: fn.units,
		value: fn.value(arg),
	}, nil
}

// Extract returns the series of the source over the given snapshots, which
// must be ordered by time.
func (src Source) Extract(snapshots []Snapshot) []graph.Point {
	points := make([]graph.Point, 0, len(snapshots))

	var prev *Snapshot
	for i := range snapshots {
		s := &snapshots[i]

		if v, ok := src.value(prev, s); ok {
			points = append(points, graph.Point{Clock: s.UnixTime(), Value: v})
		}

		prev = s
	}

	return points
}

// AvailableSources lists the argument sources found in the snapshot, such as
// every mounted disk and temperature sensor.
func AvailableSources(s Snapshot) []string {
	var ids []string

	for _, d := range s.Disks {
		ids = append(ids, "disk.pused:"+d.Path)
	}
	for _, t := range s.Temps {
		ids = append(ids, "temp:"+t.SensorKey)
	}

	sort.Strings(ids)
	return ids
}

// maxSnapshots bounds the number of snapshots read for a single series.
const maxSnapshots = 2000

// Points reads the series of the given source over the window [from, till].
// Long windows are thinned out to keep the read bounded.
func (db *Database) Points(source string, from, till int64) ([]graph.Point, error) {
	src, err := LookupSource(source)
	if err != nil {
		return nil, err
	}

	snapshots, err := db.Window(from, till)
	if err != nil {
		return nil, err
	}

	return src.Extract(snapshots), nil
}

// Window reads the snapshots covering [from, till], including one snapshot
// before from when there is one, so that rate sources have a sample at the
// start of the window.
func (db *Database) Window(from, till int64) ([]Snapshot, error) {
	if till <= from {
		return nil, errors.Errorf("invalid window [%d, %d]", from, till)
	}

	step := time.Duration((till-from)/maxSnapshots) * time.Second

	// Reach back far enough to find the previous sample.
	lookback := int64(step/time.Second) + 300
	start := from - lookback
	if start < 1 {
		start = 1
	}

	iter, err := db.Iterator(IteratorOpts{
		From: time.Unix(start, 0),
		Till: time.Unix(till, 0),
		Step: step,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create iterator")
	}
	defer iter.Close()

	snapshots := iter.ReadAll()
	if err := iter.Err(); err != nil {
		return nil, err
	}

	// Drop all but the last snapshot before the window.
	first := sort.Search(len(snapshots), func(i int) bool {
		return snapshots[i].UnixTime() >= from
	})
	if first > 1 {
		snapshots = snapshots[first-1:]
	}

	return snapshots, nil
}

func constSource(fn func(prev, s *Snapshot) (float64, bool)) func(string) func(prev, s *Snapshot) (float64, bool) {
	return func(string) func(prev, s *Snapshot) (float64, bool) { return fn }
}

func gauge(fn func(s *Snapshot) float64) func(prev, s *Snapshot) (float64, bool) {
	return func(_, s *Snapshot) (float64, bool) { return fn(s), true }
}

// rate turns a cumulative counter into a per-second rate. A counter that went
// backwards was reset, which gives a null sample.
func rate(counter func(s *Snapshot) uint64) func(prev, s *Snapshot) (float64, bool) {
	return func(prev, s *Snapshot) (float64, bool) {
		if prev == nil {
			return 0, false
		}

		elapsed := s.UnixTime() - prev.UnixTime()
		if elapsed <= 0 {
			return 0, false
		}

		last, curr := counter(prev), counter(s)
		if curr < last {
			return math.NaN(), true
		}

		return float64(curr-last) / float64(elapsed), true
	}
}

func netCounter(recv bool) func(s *Snapshot) uint64 {
	return func(s *Snapshot) uint64 {
		var total uint64
		for _, n := range s.Network {
			if _, ignored := IgnoredNetworks[n.Name]; ignored {
				continue
			}
			if recv {
				total += n.BytesRecv
			} else {
				total += n.BytesSent
			}
		}
		return total
	}
}

func sumCPUTime(t cpu.TimesStat) (active, total float64) {
	active = t.User + t.System + t.Nice + t.Iowait + t.Irq + t.Softirq + t.Steal
	total = active + t.Idle
	return
}

func cpuTimes(s *Snapshot) (active, total float64) {
	for _, t := range s.CPUs {
		a, b := sumCPUTime(t)
		active += a
		total += b
	}
	return
}

func cpuUtil(prev, s *Snapshot) (float64, bool) {
	if prev == nil || len(s.CPUs) == 0 {
		return 0, false
	}

	lastActive, lastTotal := cpuTimes(prev)
	active, total := cpuTimes(s)

	switch {
	case total < lastTotal || active < lastActive:
		return math.NaN(), true
	case total == lastTotal:
		return 0, false
	}

	return (active - lastActive) / (total - lastTotal) * 100, true
}

func diskUsed(path string) func(prev, s *Snapshot) (float64, bool) {
	return func(_, s *Snapshot) (float64, bool) {
		for _, d := range s.Disks {
			if d.Path == path {
				return d.UsedPercent, true
			}
		}
		return 0, false
	}
}

func temperature(sensor string) func(prev, s *Snapshot) (float64, bool) {
	return func(_, s *Snapshot) (float64, bool) {
		for _, t := range s.Temps {
			if t.SensorKey == sensor {
				return t.Temperature, true
			}
		}
		return 0, false
	}
}

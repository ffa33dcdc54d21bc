package graph

import (
	"math"
	"sort"
)

// Segment is a run of mapped points drawn as one connected shape.
type Segment []MappedPoint

// BuildSegments splits mapped points into segments at every gap marker.
// Empty segments are never returned.
func BuildSegments(points []MappedPoint) []Segment {
	var segments []Segment
	var current Segment

	for _, p := range points {
		if p.Gap {
			if len(current) > 0 {
				segments = append(segments, current)
				current = nil
			}
			continue
		}
		current = append(current, p)
	}

	if len(current) > 0 {
		segments = append(segments, current)
	}

	return segments
}

// Staircase expands a segment so that every change of value is drawn as a
// horizontal run followed by a vertical step.
func Staircase(seg Segment) Segment {
	if len(seg) < 2 {
		return seg
	}

	out := make(Segment, 0, 2*len(seg)-1)
	out = append(out, seg[0])

	for i := 1; i < len(seg); i++ {
		step := seg[i]
		step.Y = seg[i-1].Y
		step.Label = seg[i-1].Label
		out = append(out, step, seg[i])
	}

	return out
}

// Bar is one bar of a bar metric, in pixels.
type Bar struct {
	Metric int     `json:"metric"` // index into Options.Metrics
	Clock  int64   `json:"clock"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Label  string  `json:"label,omitempty"`
}

// BarGroup is the set of bars sharing one time bucket on one axis side.
type BarGroup struct {
	Side   AxisSide `json:"side"`
	Bucket float64  `json:"bucket"`
	// X is the nominal center of the bucket and Width the group width.
	X     float64 `json:"x"`
	Width float64 `json:"width"`
	Bars  []Bar   `json:"bars"`
}

// barFill is the share of a bar slot covered by the bar itself.
const barFill = 0.75

// defaultGroupWidth is used when no spacing between buckets is known.
const defaultGroupWidth = 20

// barSample is a bar metric sample prior to grouping.
type barSample struct {
	metric int
	point  Point
}

// BucketOf returns the start time of the bucket holding a timestamp for the
// given zoom. Below one second per pixel, every timestamp is its own bucket.
func BucketOf(clock int64, secondsPerPixel float64) float64 {
	if secondsPerPixel <= 1 {
		return float64(clock)
	}
	return math.Floor(float64(clock)/secondsPerPixel) * secondsPerPixel
}

// BuildBarGroups groups the samples of all bar metrics by axis side and time
// bucket. Within each side, the group width is the minimum pixel spacing
// between buckets, split evenly between the bars of a bucket.
func BuildBarGroups(metrics []Metric, points [][]Point, m Mapper) []BarGroup {
	spp := float64(m.timeRange()) / math.Max(m.Canvas.Width, 1)

	var groups []BarGroup

	for _, side := range []AxisSide{Left, Right} {
		buckets := make(map[float64][]barSample)

		for i, metric := range metrics {
			if metric.Options.Type != TypeBar || metric.Options.Axis != side {
				continue
			}

			for _, p := range points[i] {
				if p.IsNull() {
					continue
				}
				// Bucket on displayed time so that shifted metrics line up.
				bucket := BucketOf(p.Clock-metric.Options.TimeShift, spp)
				buckets[bucket] = append(buckets[bucket], barSample{i, p})
			}
		}

		if len(buckets) == 0 {
			continue
		}

		keys := make([]float64, 0, len(buckets))
		for k := range buckets {
			keys = append(keys, k)
		}
		sort.Float64s(keys)

		gw := groupWidth(keys, m)

		for _, bucket := range keys {
			groups = append(groups, buildGroup(side, bucket, gw, buckets[bucket], m))
		}
	}

	return groups
}

// groupWidth returns the minimum pixel distance between two consecutive
// buckets, bounded by the canvas width.
func groupWidth(buckets []float64, m Mapper) float64 {
	gw := math.Inf(1)
	for i := 1; i < len(buckets); i++ {
		d := m.timeXf(buckets[i]) - m.timeXf(buckets[i-1])
		if d > 0 && d < gw {
			gw = d
		}
	}

	if math.IsInf(gw, 1) {
		gw = defaultGroupWidth
	}

	return math.Min(gw, m.Canvas.Width)
}

func buildGroup(side AxisSide, bucket float64, gw float64, samples []barSample, m Mapper) BarGroup {
	// One bar per metric; a metric hitting a bucket twice keeps its last
	// sample.
	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].metric < samples[j].metric
	})
	n := 0
	for i := range samples {
		if n > 0 && samples[n-1].metric == samples[i].metric {
			samples[n-1] = samples[i]
			continue
		}
		samples[n] = samples[i]
		n++
	}
	samples = samples[:n]

	center := m.timeXf(bucket)
	slot := gw / float64(len(samples))
	width := barFill * slot
	left := center - gw/2

	zero := m.ZeroY(side)

	group := BarGroup{
		Side:   side,
		Bucket: bucket,
		X:      center,
		Width:  gw,
		Bars:   make([]Bar, 0, len(samples)),
	}

	for i, s := range samples {
		x := left + float64(i)*slot + (slot-width)/2
		x0 := clamp(x, m.Canvas.X, m.Canvas.Right())
		x1 := clamp(x+width, m.Canvas.X, m.Canvas.Right())

		y := m.Y(s.point.Value, side)
		top, bottom := math.Min(y, zero), math.Max(y, zero)

		group.Bars = append(group.Bars, Bar{
			Metric: s.metric,
			Clock:  s.point.Clock,
			X:      x0,
			Y:      top,
			Width:  x1 - x0,
			Height: bottom - top,
			Label:  m.Hint(s.point.Value, side),
		})
	}

	return group
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

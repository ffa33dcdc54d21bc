package graph

import (
	"math"

	"golang.org/x/exp/constraints"
)

// virtualBound is how far outside of the canvas a clamped value may be drawn
// before the final clamp, in pixels.
const virtualBound = 1 << 16

// Canvas is the pixel rectangle the graph body is drawn into.
type Canvas struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Valid returns true if the canvas has an area.
func (c Canvas) Valid() bool {
	return c.Width > 0 && c.Height > 0
}

// Right returns the right edge.
func (c Canvas) Right() float64 { return c.X + c.Width }

// Bottom returns the bottom edge.
func (c Canvas) Bottom() float64 { return c.Y + c.Height }

// MappedPoint is a point in pixel coordinates with its formatted value.
type MappedPoint struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Clock int64   `json:"clock"`
	Label string  `json:"label,omitempty"`
	// Gap marks a break in the series; X and Y are meaningless.
	Gap bool `json:"-"`
}

// Mapper converts times and values into canvas pixels.
type Mapper struct {
	Canvas Canvas
	From   int64
	Till   int64
	Axes   [2]Scale
	Format [2]Formatter
}

// timeRange is never zero.
func (m Mapper) timeRange() int64 {
	if r := m.Till - m.From; r > 1 {
		return r
	}
	return 1
}

// TimeX returns the unclamped x of a time, shifted by timeShift seconds.
func (m Mapper) TimeX(clock, timeShift int64) float64 {
	return m.timeXf(float64(clock - timeShift))
}

// timeXf is TimeX for fractional times such as bar bucket starts.
func (m Mapper) timeXf(clock float64) float64 {
	c := m.Canvas
	return c.X + c.Width - c.Width*(float64(m.Till)-clock)/float64(m.timeRange())
}

// X returns the x of a time clamped to the canvas.
func (m Mapper) X(clock, timeShift int64) float64 {
	return clamp(m.TimeX(clock, timeShift), m.Canvas.X, m.Canvas.Right())
}

// ValueY returns the unclamped y of a value on the given axis. It may return
// an infinity for values far outside the axis range.
func (m Mapper) ValueY(value float64, side AxisSide) float64 {
	s := m.Axes[side]
	return m.Canvas.Y + m.Canvas.Height*valueRatio(value, s.Min, s.Max)
}

// Y returns the y of a value clamped to the canvas, first against a virtual
// bound so that huge overshoots stay finite.
func (m Mapper) Y(value float64, side AxisSide) float64 {
	c := m.Canvas
	y := clamp(m.ValueY(value, side), c.Y-virtualBound, c.Bottom()+virtualBound)
	return clamp(y, c.Y, c.Bottom())
}

// ZeroY returns the y of the zero value on the given axis, clamped to the
// canvas.
func (m Mapper) ZeroY(side AxisSide) float64 {
	s := m.Axes[side]
	return m.Canvas.Y + m.Canvas.Height*clamp(valueRatio(0, s.Min, s.Max), 0, 1)
}

// InRange returns true if the value is within the axis range.
func (m Mapper) InRange(value float64, side AxisSide) bool {
	s := m.Axes[side]
	return value >= s.Min && value <= s.Max
}

// MapPoint maps a sample of a metric. Null samples become gap markers. Out of
// range samples of points metrics are skipped, others are clamped.
func (m Mapper) MapPoint(p Point, opts MetricOptions) (MappedPoint, bool) {
	if p.IsNull() {
		return MappedPoint{Clock: p.Clock, Gap: true}, true
	}

	if opts.Type == TypePoints && !m.InRange(p.Value, opts.Axis) {
		return MappedPoint{}, false
	}

	return MappedPoint{
		X:     m.X(p.Clock, opts.TimeShift),
		Y:     m.Y(p.Value, opts.Axis),
		Clock: p.Clock,
		Label: m.Hint(p.Value, opts.Axis),
	}, true
}

// hintDecimals is the precision added to axis labels for value hints.
const hintDecimals = 2

// Hint formats a value of the given axis for a tooltip.
func (m Mapper) Hint(value float64, side AxisSide) string {
	return m.Format[side].WithDecimals(hintDecimals).Format(value)
}

// valueRatio returns (max-value) / (max-min). If max-min overflows, every
// term is divided by 10 first.
func valueRatio(value, min, max float64) float64 {
	if math.IsInf(max-min, 0) {
		return (max/10 - value/10) / (max/10 - min/10)
	}
	return (max - value) / (max - min)
}

func clamp[T constraints.Integer | constraints.Float](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

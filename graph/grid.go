package graph

import (
	"math"
	"time"
)

// GridLine is a single gridline along with its label.
type GridLine struct {
	// Pos is the y of a value gridline or the x of a time gridline.
	Pos   float64 `json:"pos"`
	Label string  `json:"label"`
	// Value is the axis value or the unix time of the gridline.
	Value float64 `json:"value"`
}

// ValueGrid returns one gridline per interval of the axis scale, from the
// bottom up.
func ValueGrid(m Mapper, side AxisSide) []GridLine {
	s := m.Axes[side]
	if s.Interval <= 0 || math.IsNaN(s.Interval) || math.IsInf(s.Interval, 0) {
		return nil
	}

	f := m.Format[side]
	lines := make([]GridLine, 0, s.Rows+1)

	for k := 0; k <= s.Rows; k++ {
		v := finite(s.Min + float64(k)*s.Interval)
		if v > s.Max && !nearlyEqual(v, s.Max, s.Interval) {
			break
		}
		if k == s.Rows {
			v = s.Max
		}
		if math.Abs(v) < s.Interval*1e-9 {
			v = 0
		}

		lines = append(lines, GridLine{
			Pos:   m.Y(v, side),
			Label: f.Format(v),
			Value: v,
		})
	}

	return lines
}

// skipSharedZero drops the zero label of the right axis when it sits on the
// zero line of the left axis, so that "0" is printed once.
func skipSharedZero(lines []GridLine, m Mapper) []GridLine {
	owner := m.ZeroY(Left)
	if !m.InRange(0, Left) {
		return lines
	}

	out := lines[:0:0]
	for _, l := range lines {
		if l.Value == 0 && math.Abs(l.Pos-owner) < 1 {
			continue
		}
		out = append(out, l)
	}
	return out
}

// timeFormats are tried from the coarsest to the finest.
var timeFormats = []string{
	"2006-1-02",
	"1-02",
	"1-02 15:04",
	"15:04",
	"15:04:05",
}

// timeGridSpacing is the target distance between time gridlines in pixels.
const timeGridSpacing = 100

// TimeGrid returns the time gridlines of the window. Labels use the coarsest
// format that keeps them all distinct. A degenerate window or a step rounding
// to zero yields only the two window edges labeled with seconds.
func TimeGrid(from, till int64, canvas Canvas, loc *time.Location) []GridLine {
	if loc == nil {
		loc = time.Local
	}

	m := Mapper{Canvas: canvas, From: from, Till: till}

	period := till - from
	var step int64
	if period > 0 && canvas.Width > 0 {
		step = int64(math.Round(float64(period) / canvas.Width * timeGridSpacing))
	}

	if step <= 0 {
		return edgeLabels(from, till, m, loc)
	}

	var clocks []int64
	var lastX = math.Inf(-1)

	for t := from + step - floorMod(from, step); t < till; t += step {
		x := m.X(t, 0)
		if x-lastX < 1 {
			continue
		}
		lastX = x
		clocks = append(clocks, t)
	}

	if len(clocks) == 0 {
		return edgeLabels(from, till, m, loc)
	}

	for _, format := range timeFormats {
		if lines, ok := formatTimes(clocks, m, loc, format); ok {
			return lines
		}
	}

	// Sub-second steps cannot be told apart; keep the first of each label.
	lines, _ := formatTimes(clocks, m, loc, timeFormats[len(timeFormats)-1])
	seen := make(map[string]bool, len(lines))
	out := lines[:0]
	for _, l := range lines {
		if !seen[l.Label] {
			seen[l.Label] = true
			out = append(out, l)
		}
	}
	return out
}

func formatTimes(clocks []int64, m Mapper, loc *time.Location, format string) ([]GridLine, bool) {
	lines := make([]GridLine, len(clocks))
	seen := make(map[string]bool, len(clocks))
	distinct := true

	for i, c := range clocks {
		label := time.Unix(c, 0).In(loc).Format(format)
		if seen[label] {
			distinct = false
		}
		seen[label] = true

		lines[i] = GridLine{
			Pos:   m.X(c, 0),
			Label: label,
			Value: float64(c),
		}
	}

	return lines, distinct
}

func edgeLabels(from, till int64, m Mapper, loc *time.Location) []GridLine {
	format := timeFormats[len(timeFormats)-1]
	return []GridLine{
		{Pos: m.Canvas.X, Label: time.Unix(from, 0).In(loc).Format(format), Value: float64(from)},
		{Pos: m.Canvas.Right(), Label: time.Unix(till, 0).In(loc).Format(format), Value: float64(till)},
	}
}

func floorMod(a, b int64) int64 {
	return a - floorDiv(a, b)*b
}

func nearlyEqual(a, b, scale float64) bool {
	return math.Abs(a-b) <= math.Abs(scale)*1e-9
}

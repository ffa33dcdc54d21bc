// Package graph turns metric time series into a vector scene: axis scales,
// gap handling, pixel mapping, paths, bar groups, grids and problem overlays.
//
// A render is a single synchronous call. All intermediate state lives in a
// Graph that is discarded afterwards, so independent graphs may be drawn from
// multiple goroutines as long as their inputs are not mutated.
package graph

import (
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// AxisSide is the Y axis a metric is bound to.
type AxisSide uint8

const (
	Left AxisSide = iota
	Right
)

func (s AxisSide) String() string {
	if s == Right {
		return "right"
	}
	return "left"
}

// MetricType is the way a metric is drawn.
type MetricType uint8

const (
	TypeLine MetricType = iota
	TypePoints
	TypeStaircase
	TypeBar
)

var metricTypeNames = []string{"line", "points", "staircase", "bar"}

func (t MetricType) String() string {
	if int(t) < len(metricTypeNames) {
		return metricTypeNames[t]
	}
	return "unknown"
}

// continuous returns true for the types drawn as connected shapes.
func (t MetricType) continuous() bool {
	return t == TypeLine || t == TypeStaircase
}

// ParseMetricType parses the name returned by MetricType.String.
func ParseMetricType(s string) (MetricType, error) {
	for i, name := range metricTypeNames {
		if strings.EqualFold(s, name) {
			return MetricType(i), nil
		}
	}
	return 0, errors.Errorf("unknown metric type %q", s)
}

// MissingData is the policy for time gaps in a series.
type MissingData uint8

const (
	// MissingConnected draws a straight line across gaps.
	MissingConnected MissingData = iota
	// MissingNone breaks the line at gaps.
	MissingNone
	// MissingZero drops the line to zero for the duration of a gap.
	MissingZero
)

var missingDataNames = []string{"connected", "none", "zero"}

func (m MissingData) String() string {
	if int(m) < len(missingDataNames) {
		return missingDataNames[m]
	}
	return "unknown"
}

// ParseMissingData parses the name returned by MissingData.String.
func ParseMissingData(s string) (MissingData, error) {
	for i, name := range missingDataNames {
		if strings.EqualFold(s, name) {
			return MissingData(i), nil
		}
	}
	return 0, errors.Errorf("unknown missing data policy %q", s)
}

// Point is a single sample. A NaN value marks a gap with no sample.
type Point struct {
	Clock int64 // unix seconds
	Value float64
}

// NullPoint returns a gap marker at the given time.
func NullPoint(clock int64) Point {
	return Point{Clock: clock, Value: math.NaN()}
}

// IsNull returns true if the point carries no sample.
func (p Point) IsNull() bool { return math.IsNaN(p.Value) }

// MetricOptions describes how a metric is drawn.
type MetricOptions struct {
	Type MetricType
	Axis AxisSide
	// Fill is the area opacity in tenths, 0 to 10. Zero draws no area.
	Fill int
	// Width is the line width in pixels.
	Width int
	// PointSize is the marker diameter for TypePoints.
	PointSize int
	// MissingData only applies to continuous types.
	MissingData MissingData
	// TimeShift in seconds. Negative shifts draw past data over the window.
	TimeShift int64
	// Color is a CSS color. The theme palette is used if empty.
	Color string
}

// Metric is one series to be plotted. Points must be ordered by Clock; a
// Metric is never mutated by the engine.
type Metric struct {
	Name    string
	Source  string
	Units   string
	Options MetricOptions
	Points  []Point
}

// AxisConfig configures one Y axis. Nil Min, Max or Units are computed.
type AxisConfig struct {
	Show bool
	Min  *float64
	Max  *float64
	// Units is inferred from the first metric on the side if nil. A leading
	// "!" disables K/M/G scaling.
	Units *string
}

// Severity is the problem severity, from not classified to disaster.
type Severity uint8

const (
	SeverityNotClassified Severity = iota
	SeverityInformation
	SeverityWarning
	SeverityAverage
	SeverityHigh
	SeverityDisaster
)

var severityNames = []string{
	"not-classified", "information", "warning", "average", "high", "disaster",
}

func (s Severity) String() string {
	if int(s) < len(severityNames) {
		return severityNames[s]
	}
	return severityNames[0]
}

// ParseSeverity parses the name returned by Severity.String.
func ParseSeverity(s string) (Severity, error) {
	for i, name := range severityNames {
		if strings.EqualFold(s, name) {
			return Severity(i), nil
		}
	}
	return 0, errors.Errorf("unknown severity %q", s)
}

// AckAction is a bitmask of what an acknowledgement did to a problem.
type AckAction uint32

const (
	AckClose AckAction = 1 << iota
	AckAcknowledge
	AckMessage
	AckSeverity
)

// Acknowledgement is a single problem update.
type Acknowledgement struct {
	Clock   int64
	Action  AckAction
	Message string
}

// Problem is an incident time range drawn over the graph.
type Problem struct {
	EventID  uint64
	Name     string
	Severity Severity
	Clock    int64
	// RClock is the recovery time, 0 if unresolved.
	RClock   int64
	REventID uint64
	URL      string

	Acknowledges []Acknowledgement
}

// Resolved returns true if the problem has recovered.
func (p Problem) Resolved() bool {
	return p.REventID != 0 || p.RClock != 0
}

// Options is the complete input of a single render.
type Options struct {
	Width  int
	Height int

	// From and Till bound the visible window in unix seconds.
	From int64
	Till int64
	// Now is used for unresolved problems. Zero means time.Now.
	Now int64

	Metrics   []Metric
	Left      AxisConfig
	Right     AxisConfig
	ShowXAxis bool

	Problems []Problem

	ShowWorkingTime bool
	WorkPeriods     []WorkPeriod

	// Location formats time labels. Nil means time.Local.
	Location *time.Location
	// Theme is DefaultTheme if nil.
	Theme *Theme
}

// Float returns a pointer to v, for AxisConfig bounds.
func Float(v float64) *float64 { return &v }

// String returns a pointer to s, for AxisConfig units.
func String(s string) *string { return &s }

package graph

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// DrawType is a bitmask describing how an annotation is drawn.
type DrawType uint8

const (
	// AnnotationSimple is a vertical marker for ranges too narrow to see.
	AnnotationSimple DrawType = 1 << iota
	// AnnotationRange is a highlighted rectangle.
	AnnotationRange
	// DashStart marks a problem that started before the window.
	DashStart
	// DashEnd marks a problem that is ongoing or ends after the window.
	DashEnd
)

// Has returns true if all bits of f are set.
func (d DrawType) Has(f DrawType) bool { return d&f == f }

// simpleWidth is the widest annotation drawn as a marker, in pixels.
const simpleWidth = 2

// Problem statuses.
const (
	StatusProblem  = "PROBLEM"
	StatusResolved = "RESOLVED"
	StatusClosing  = "CLOSING"
)

// ProblemInfo is the opaque metadata attached to an annotation.
type ProblemInfo struct {
	EventID       uint64 `json:"eventid"`
	Name          string `json:"name"`
	Clock         string `json:"clock"`
	RClock        string `json:"r_clock,omitempty"`
	Duration      string `json:"duration"`
	Severity      string `json:"severity"`
	SeverityClass string `json:"severity_class"`
	Status        string `json:"status"`
	StatusClass   string `json:"status_class"`
	Acknowledged  bool   `json:"acknowledged"`
	Color         string `json:"color"`
	URL           string `json:"url,omitempty"`
}

// Annotation is a problem mapped onto the canvas.
type Annotation struct {
	X        float64     `json:"x"`
	Y        float64     `json:"y"`
	Width    float64     `json:"width"`
	Height   float64     `json:"height"`
	DrawType DrawType    `json:"draw_type"`
	Info     ProblemInfo `json:"info"`
}

// ProblemStatus returns RESOLVED for recovered problems, CLOSING if any
// acknowledgement closed the problem and PROBLEM otherwise.
func ProblemStatus(p Problem) string {
	if p.Resolved() {
		return StatusResolved
	}
	for _, ack := range p.Acknowledges {
		if ack.Action&AckClose != 0 {
			return StatusClosing
		}
	}
	return StatusProblem
}

func acknowledged(p Problem) bool {
	for _, ack := range p.Acknowledges {
		if ack.Action&AckAcknowledge != 0 {
			return true
		}
	}
	return false
}

// BuildAnnotations maps problems to full height canvas regions. Problems
// entirely outside of the window are skipped.
func BuildAnnotations(problems []Problem, m Mapper, now int64, theme *Theme, loc *time.Location) []Annotation {
	if loc == nil {
		loc = time.Local
	}

	annotations := make([]Annotation, 0, len(problems))

	for _, p := range problems {
		end := now
		if p.Resolved() {
			end = p.RClock
		}

		if p.Clock > m.Till || end < m.From {
			continue
		}

		x1 := m.X(p.Clock, 0)
		x2 := m.X(minInt64(end, m.Till), 0)

		var draw DrawType
		if x2-x1 <= simpleWidth {
			draw = AnnotationSimple
		} else {
			draw = AnnotationRange
		}

		if p.Clock < m.From {
			draw |= DashStart
		}
		if !p.Resolved() || p.RClock > m.Till {
			draw |= DashEnd
		}

		annotations = append(annotations, Annotation{
			X:        x1,
			Y:        m.Canvas.Y,
			Width:    x2 - x1,
			Height:   m.Canvas.Height,
			DrawType: draw,
			Info:     problemInfo(p, end, theme, loc),
		})
	}

	return annotations
}

const problemTimeFormat = "2006-01-02 15:04:05"

func problemInfo(p Problem, end int64, theme *Theme, loc *time.Location) ProblemInfo {
	status := ProblemStatus(p)

	info := ProblemInfo{
		EventID:       p.EventID,
		Name:          p.Name,
		Clock:         time.Unix(p.Clock, 0).In(loc).Format(problemTimeFormat),
		Duration:      strings.TrimSpace(humanize.RelTime(time.Unix(p.Clock, 0), time.Unix(end, 0), "", "")),
		Severity:      p.Severity.String(),
		SeverityClass: "severity-" + p.Severity.String(),
		Status:        status,
		StatusClass:   "status-" + strings.ToLower(status),
		Acknowledged:  acknowledged(p),
		Color:         theme.SeverityColor(p.Severity),
		URL:           p.URL,
	}

	if p.Resolved() {
		info.RClock = time.Unix(p.RClock, 0).In(loc).Format(problemTimeFormat)
		info.Color = theme.Resolved
	}

	return info
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

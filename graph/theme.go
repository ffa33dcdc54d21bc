package graph

import "fmt"

// Theme holds every color and size used by a scene.
type Theme struct {
	Background string
	Grid       string
	Axis       string
	Text       string
	WorkTime   string
	// Severities is indexed by Severity.
	Severities [6]string
	Problem    string
	Resolved   string
	// Palette colors metrics that have no color of their own, in order.
	Palette  []string
	FontSize float64
}

// DefaultTheme returns the dark theme.
func DefaultTheme() *Theme {
	return &Theme{
		Background: "#181B1F",
		Grid:       "#2C3235",
		Axis:       "#8E8E8E",
		Text:       "#CCCCDC",
		WorkTime:   "#1F2326",
		Severities: [6]string{
			hexColor(0x97AAB3), // not classified
			hexColor(0x7499FF), // information
			hexColor(0xFFC859), // warning
			hexColor(0xFFA059), // average
			hexColor(0xE97659), // high
			hexColor(0xE45959), // disaster
		},
		Problem:  hexColor(0xDF2F44),
		Resolved: hexColor(0x59DB8F),
		Palette: []string{
			hexColor(0xEAB839), // yellow
			hexColor(0xFF9830), // orange
			hexColor(0x5794F2), // blue
			hexColor(0xDF2F44), // red
			hexColor(0x8AC3FF), // light blue
			hexColor(0x459AEA),
			hexColor(0x0071D5),
			hexColor(0x73BF69), // green
		},
		FontSize: 11,
	}
}

// MetricColor returns the color of the i-th metric.
func (t *Theme) MetricColor(i int, m Metric) string {
	if m.Options.Color != "" {
		return m.Options.Color
	}
	if len(t.Palette) == 0 {
		return t.Text
	}
	return t.Palette[i%len(t.Palette)]
}

// SeverityColor returns the color of a severity, or the problem color for
// unknown severities.
func (t *Theme) SeverityColor(s Severity) string {
	if int(s) < len(t.Severities) && t.Severities[s] != "" {
		return t.Severities[s]
	}
	return t.Problem
}

func hexColor(c uint32) string {
	return fmt.Sprintf("#%06X", c)
}

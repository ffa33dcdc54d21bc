package graph

import (
	"math"
	"testing"
)

func TestParseNames(t *testing.T) {
	type test struct {
		name  string
		parse func(string) (string, error)
		in    string
		out   string
		err   bool
	}

	metricType := func(s string) (string, error) {
		v, err := ParseMetricType(s)
		return v.String(), err
	}
	missingData := func(s string) (string, error) {
		v, err := ParseMissingData(s)
		return v.String(), err
	}
	severity := func(s string) (string, error) {
		v, err := ParseSeverity(s)
		return v.String(), err
	}

	var tests = []test{
		{"type_line", metricType, "line", "line", false},
		{"type_case", metricType, "Staircase", "staircase", false},
		{"type_unknown", metricType, "pie", "", true},
		{"missing_zero", missingData, "zero", "zero", false},
		{"missing_case", missingData, "CONNECTED", "connected", false},
		{"missing_unknown", missingData, "interpolate", "", true},
		{"severity_high", severity, "high", "high", false},
		{"severity_dash", severity, "Not-Classified", "not-classified", false},
		{"severity_unknown", severity, "critical", "", true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			out, err := test.parse(test.in)
			if test.err {
				if err == nil {
					t.Fatalf("expected error parsing %q, got %q", test.in, out)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error parsing %q: %v", test.in, err)
			}

			if out != test.out {
				t.Fatalf("parsing %q gave %q, expected %q", test.in, out, test.out)
			}
		})
	}
}

func TestProblemResolved(t *testing.T) {
	if (Problem{Clock: 10}).Resolved() {
		t.Fatal("open problem is resolved")
	}
	if !(Problem{Clock: 10, RClock: 20}).Resolved() {
		t.Fatal("problem with recovery time is not resolved")
	}
	if !(Problem{Clock: 10, REventID: 3}).Resolved() {
		t.Fatal("problem with recovery event is not resolved")
	}
}

func TestNullPoint(t *testing.T) {
	p := NullPoint(5)
	if !p.IsNull() || p.Clock != 5 {
		t.Fatalf("unexpected null point %+v", p)
	}

	if (Point{Clock: 5, Value: math.Inf(1)}).IsNull() {
		t.Fatal("infinite point is null")
	}
}

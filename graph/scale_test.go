package graph

import (
	"math"
	"math/rand"
	"testing"
)

func TestComputeScale(t *testing.T) {
	type test struct {
		name       string
		min, max   float64
		binary     bool
		calc       [2]bool // min, max
		rows       [2]int
		expects    Scale
		checkRows  bool
		checkPower bool
	}

	var tests = []test{{
		name:      "auto_0_100",
		min:       0,
		max:       100,
		calc:      [2]bool{true, true},
		rows:      [2]int{4, 15},
		expects:   Scale{Min: 0, Max: 100, Interval: 10, Rows: 10},
		checkRows: true,
	}, {
		name:      "fixed_rows",
		min:       1000,
		max:       2000,
		calc:      [2]bool{true, true},
		rows:      [2]int{10, 10},
		expects:   Scale{Min: 1000, Max: 2000, Interval: 100, Rows: 10},
		checkRows: true,
	}, {
		name:    "explicit_inverted",
		min:     10,
		max:     0,
		calc:    [2]bool{false, false},
		rows:    [2]int{4, 15},
		expects: Scale{Min: 0, Max: 10},
	}, {
		name:    "explicit_max_clips",
		min:     0,
		max:     50,
		calc:    [2]bool{true, false},
		rows:    [2]int{4, 15},
		expects: Scale{Min: 0, Max: 50},
	}, {
		name:    "flat_zero",
		min:     0,
		max:     0,
		calc:    [2]bool{true, true},
		rows:    [2]int{4, 15},
		expects: Scale{Min: 0, Max: 1},
	}, {
		name:       "kilo",
		min:        0,
		max:        25000,
		calc:       [2]bool{true, true},
		rows:       [2]int{4, 15},
		expects:    Scale{Min: 0, Max: 25000, Power: 1},
		checkPower: true,
	}, {
		name:       "binary_mebi",
		min:        0,
		max:        3 * 1024 * 1024,
		binary:     true,
		calc:       [2]bool{true, true},
		rows:       [2]int{4, 15},
		expects:    Scale{Min: 0, Max: 3 * 1024 * 1024, Power: 2},
		checkPower: true,
	}}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s := ComputeScale(
				test.min, test.max, test.binary, true,
				test.calc[0], test.calc[1], test.rows[0], test.rows[1],
			)

			t.Logf("expects: %+v", test.expects)
			t.Logf("got:     %+v", s)

			if !approx(s.Min, test.expects.Min) || !approx(s.Max, test.expects.Max) {
				t.Fatalf("expected range [%v, %v], got [%v, %v]",
					test.expects.Min, test.expects.Max, s.Min, s.Max)
			}

			if test.expects.Interval != 0 && !approx(s.Interval, test.expects.Interval) {
				t.Errorf("expected interval %v, got %v", test.expects.Interval, s.Interval)
			}

			if test.checkRows && s.Rows != test.expects.Rows {
				t.Errorf("expected %d rows, got %d", test.expects.Rows, s.Rows)
			}

			if test.checkPower && s.Power != test.expects.Power {
				t.Errorf("expected power %d, got %d", test.expects.Power, s.Power)
			}

			if s.Interval <= 0 {
				t.Errorf("interval %v is not positive", s.Interval)
			}
		})
	}
}

func TestComputeScaleBinaryInterval(t *testing.T) {
	s := ComputeScale(0, 3*1024*1024, true, true, true, true, 4, 15)

	if exp := math.Log2(s.Interval); exp != math.Trunc(exp) {
		t.Fatalf("binary interval %v is not a power of two", s.Interval)
	}

	if s.Rows < 4 || s.Rows > 15 {
		t.Errorf("rows %d out of [4, 15]", s.Rows)
	}
}

func TestComputeScaleFlat(t *testing.T) {
	for _, v := range []float64{-3, 0.001, 5, 1e12} {
		s := ComputeScale(v, v, false, true, true, true, 4, 15)

		if !(s.Min < v && s.Max > v) && !(v == 0 && s.Min == 0) {
			t.Errorf("flat %v: range [%v, %v] does not surround the value", v, s.Min, s.Max)
		}
		if s.Max-s.Min <= 0 {
			t.Errorf("flat %v: empty range [%v, %v]", v, s.Min, s.Max)
		}
	}
}

func TestComputeScaleInfinite(t *testing.T) {
	s := ComputeScale(-math.MaxFloat64, math.MaxFloat64, false, true, true, true, 4, 15)

	for _, v := range []float64{s.Min, s.Max, s.Interval} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("scale is not finite: %+v", s)
		}
	}

	if s.Min > -math.MaxFloat64 || s.Max < math.MaxFloat64 {
		t.Errorf("scale %+v does not contain the data", s)
	}

	m := Mapper{
		Canvas: Canvas{X: 0, Y: 0, Width: 100, Height: 100},
		Axes:   [2]Scale{s, s},
	}

	for _, v := range []float64{-math.MaxFloat64, 0, math.MaxFloat64} {
		y := m.Y(v, Left)
		if math.IsNaN(y) || y < 0 || y > 100 {
			t.Errorf("y of %v is %v", v, y)
		}
	}

	if y := m.Y(0, Left); math.Abs(y-50) > 1e-6 {
		t.Errorf("expected zero in the middle, got %v", y)
	}
}

// TestComputeScaleContains checks that computed ranges always contain the
// data for random inputs.
func TestComputeScaleContains(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 2000; i++ {
		a := (rng.Float64() - 0.5) * math.Pow(10, float64(rng.Intn(20)-6))
		b := (rng.Float64() - 0.5) * math.Pow(10, float64(rng.Intn(20)-6))
		if a > b {
			a, b = b, a
		}

		binary := rng.Intn(2) == 0
		rowsMin := 1 + rng.Intn(5)
		rowsMax := rowsMin + rng.Intn(10)

		s := ComputeScale(a, b, binary, true, true, true, rowsMin, rowsMax)

		if s.Min > a || s.Max < b {
			t.Fatalf("[%v, %v] binary=%v rows=[%d, %d]: got %+v",
				a, b, binary, rowsMin, rowsMax, s)
		}
		if !(s.Interval > 0) || s.Max < s.Min {
			t.Fatalf("[%v, %v]: invalid scale %+v", a, b, s)
		}
	}
}

func TestNiceStep(t *testing.T) {
	type test struct {
		raw     float64
		binary  bool
		expects float64
	}

	var tests = []test{
		{raw: 0.3, expects: 0.5},
		{raw: 1, expects: 1},
		{raw: 1.2, expects: 2},
		{raw: 7, expects: 10},
		{raw: 45, expects: 50},
		{raw: 3, binary: true, expects: 4},
		{raw: 1000, binary: true, expects: 1024},
		{raw: 1500, binary: true, expects: 2048},
		{raw: 0.3, binary: true, expects: 0.5},
	}

	for _, test := range tests {
		got, _ := niceStep(test.raw, test.binary)
		if math.Abs(got-test.expects) > 1e-12 {
			t.Errorf("niceStep(%v, %v): expected %v, got %v", test.raw, test.binary, test.expects, got)
		}
	}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(1, math.Abs(b))
}

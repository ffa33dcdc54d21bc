package graph

import "math"

// Scale is the resolved range of one value axis.
type Scale struct {
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Interval float64 `json:"interval"`
	// Power is the unit prefix exponent applied to every label of the axis.
	Power int `json:"power"`
	// Rows is the number of grid rows between Min and Max.
	Rows int `json:"rows"`
}

// maxRows caps the number of rows a degenerate range can produce.
const maxRows = 1000

var (
	decimalMantissas = []float64{1, 2, 5}
	// binaryMantissas fill the whole 1024 decade so that every step has a
	// ceiling that is a power of two.
	binaryMantissas = []float64{1, 2, 4, 8, 16, 32, 64, 128, 256, 512}
)

// ComputeScale computes a range containing [dataMin, dataMax] with a round
// interval. Bounds that are not calculated (calcMin or calcMax false) are
// kept verbatim; they are only corrected if inverted or equal.
//
// If rowsMin equals rowsMax, the result has exactly that many rows so that a
// second axis can share the gridlines of the first one. Otherwise the row
// count giving the tightest round range within [rowsMin, rowsMax] is chosen.
func ComputeScale(
	dataMin, dataMax float64, binary, allowPower, calcMin, calcMax bool,
	rowsMin, rowsMax int) Scale {

	rowsMin = clamp(rowsMin, 1, maxRows)
	rowsMax = clamp(rowsMax, rowsMin, maxRows)

	min, max := sanitizeRange(dataMin, dataMax, calcMin, calcMax)

	var scale Scale
	if rowsMin == rowsMax {
		scale = fixedRowsScale(min, max, binary, calcMin, calcMax, rowsMin)
	} else {
		scale = bestScale(min, max, binary, calcMin, calcMax, rowsMin, rowsMax)
	}

	scale.Power = power(scale.Min, scale.Max, Units{Binary: binary, AllowPower: allowPower})
	return scale
}

// sanitizeRange replaces NaN and infinite bounds, orders them and widens an
// empty range.
func sanitizeRange(min, max float64, calcMin, calcMax bool) (float64, float64) {
	switch {
	case math.IsNaN(min) && math.IsNaN(max):
		min, max = 0, 1
	case math.IsNaN(min):
		min = max
	case math.IsNaN(max):
		max = min
	}

	min = finite(min)
	max = finite(max)

	if min > max {
		min, max = max, min
	}

	if min == max {
		d := math.Abs(min) / 2
		if d == 0 {
			d = 0.5
		}

		switch {
		case calcMin && !calcMax:
			min = finite(min - 2*d)
		case calcMax && !calcMin:
			max = finite(max + 2*d)
		case min == 0:
			max = 1
		default:
			min = finite(min - d)
			max = finite(max + d)
		}
	}

	return min, max
}

// candidate is one possible scale along with how well it fits.
type candidate struct {
	Scale
	inRange bool    // Rows within the requested bounds
	waste   float64 // (Max-Min) / data span
	frac    float64 // distance of the row count from an integer
	rank    int     // index in the mantissa list
}

func (c candidate) betterThan(o candidate) bool {
	const eps = 1e-9
	switch {
	case c.inRange != o.inRange:
		return c.inRange
	case c.waste < o.waste-eps:
		return true
	case c.waste > o.waste+eps:
		return false
	case c.frac < o.frac-eps:
		return true
	case c.frac > o.frac+eps:
		return false
	case c.rank != o.rank:
		return c.rank < o.rank
	default:
		return c.Rows > o.Rows
	}
}

func bestScale(min, max float64, binary, calcMin, calcMax bool, rowsMin, rowsMax int) Scale {
	var best candidate
	var found bool

	for rows := rowsMin; rows <= rowsMax; rows++ {
		step, rank := niceStep(stepOf(min, max, rows), binary)

		lo, hi := min, max
		if calcMin {
			lo = floorTo(min, step)
		}
		if calcMax {
			hi = ceilTo(max, step)
		}

		n := rowsOf(lo, hi, step)
		r := rowCount(n)

		c := candidate{
			Scale:   Scale{Min: lo, Max: hi, Interval: step, Rows: r},
			inRange: r >= rowsMin && r <= rowsMax,
			waste:   spanRatio(lo, hi, min, max),
			frac:    math.Abs(n - math.Round(n)),
			rank:    rank,
		}

		if !found || c.betterThan(best) {
			best = c
			found = true
		}
	}

	return best.Scale
}

func fixedRowsScale(min, max float64, binary, calcMin, calcMax bool, rows int) Scale {
	if !calcMin && !calcMax {
		return Scale{
			Min:      min,
			Max:      max,
			Interval: finite(stepOf(min, max, rows)),
			Rows:     rows,
		}
	}

	step, _ := niceStep(stepOf(min, max, rows), binary)
	n := float64(rows)

	// Grow the step until the fixed number of rows covers the data. This
	// terminates since every iteration at least doubles the step.
	for i := 0; i < 64; i++ {
		var lo, hi float64
		switch {
		case calcMin && calcMax:
			lo = floorTo(min, step)
			hi = finite(lo + n*step)
		case calcMin:
			hi = max
			lo = finite(hi - n*step)
		default:
			lo = min
			hi = finite(lo + n*step)
		}

		if lo <= min && hi >= max {
			return Scale{Min: lo, Max: hi, Interval: step, Rows: rows}
		}

		step, _ = niceStep(step*(1+1e-9), binary)
	}

	return Scale{Min: min, Max: max, Interval: finite(stepOf(min, max, rows)), Rows: rows}
}

// niceStep returns the smallest round step not below raw, along with the
// index of its mantissa.
func niceStep(raw float64, binary bool) (float64, int) {
	if raw <= 0 || math.IsNaN(raw) {
		return 1, 0
	}
	if math.IsInf(raw, 1) {
		return math.MaxFloat64, 0
	}

	const eps = 1e-9

	if binary && raw >= 1 {
		base := math.Pow(1024, math.Floor(math.Log(raw)/math.Log(1024)))
		for i, m := range binaryMantissas {
			if s := m * base; s >= raw*(1-eps) {
				return s, i
			}
		}
		return finite(1024 * base), 0
	}

	base := math.Pow(10, math.Floor(math.Log10(raw)))
	for i, m := range decimalMantissas {
		if s := m * base; s >= raw*(1-eps) {
			return s, i
		}
	}

	return finite(10 * base), 0
}

// spanRatio returns (hi-lo) / (max-min) without overflowing.
func spanRatio(lo, hi, min, max float64) float64 {
	a, b := hi-lo, max-min
	if math.IsInf(a, 0) || math.IsInf(b, 0) {
		a, b = hi/10-lo/10, max/10-min/10
	}
	return a / b
}

// stepOf returns the raw step that divides [min, max] into rows.
func stepOf(min, max float64, rows int) float64 {
	if d := max - min; !math.IsInf(d, 0) {
		return d / float64(rows)
	}
	return finite((max/10 - min/10) / float64(rows) * 10)
}

// rowsOf returns the number of steps between lo and hi.
func rowsOf(lo, hi, step float64) float64 {
	if d := hi - lo; !math.IsInf(d, 0) {
		return d / step
	}
	return (hi/10 - lo/10) / (step / 10)
}

func rowCount(n float64) int {
	rows := int(math.Ceil(n - 1e-9))
	return clamp(rows, 1, maxRows)
}

func floorTo(v, step float64) float64 {
	r := finite(math.Floor(v/step) * step)
	if r > v {
		r = finite(r - step)
	}
	return r
}

func ceilTo(v, step float64) float64 {
	r := finite(math.Ceil(v/step) * step)
	if r < v {
		r = finite(r + step)
	}
	return r
}

// finite clamps infinities to the largest representable values.
func finite(v float64) float64 {
	switch {
	case math.IsInf(v, 1):
		return math.MaxFloat64
	case math.IsInf(v, -1):
		return -math.MaxFloat64
	default:
		return v
	}
}

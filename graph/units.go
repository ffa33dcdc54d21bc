package graph

import (
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// maxPower is the largest unit prefix, Y.
const maxPower = 8

var unitPrefixes = [maxPower + 1]string{"", "K", "M", "G", "T", "P", "E", "Z", "Y"}

// Values at or above maxPlainValue after scaling are printed in exponent form
// with expDigits significant digits. This only happens past the largest prefix
// or on units that are never scaled.
const (
	maxPlainValue = 1e6
	expDigits     = 6
)

// noPowerUnits are never scaled with a prefix.
var noPowerUnits = map[string]bool{
	"%":   true,
	"ms":  true,
	"rpm": true,
	"RPM": true,
}

// Units describes a unit string and how it scales.
type Units struct {
	Name       string
	Binary     bool
	AllowPower bool
}

// ParseUnits parses a unit string. Bytes are binary; a leading "!" or one of
// the percent/rpm/ms units disable prefixes.
func ParseUnits(s string) Units {
	u := Units{Name: s, AllowPower: true}

	if strings.HasPrefix(s, "!") {
		u.Name = s[1:]
		u.AllowPower = false
	}

	if noPowerUnits[u.Name] {
		u.AllowPower = false
	}

	u.Binary = u.Name == "B" || u.Name == "Bps"
	return u
}

// Base returns 1024 for binary units and 1000 otherwise.
func (u Units) Base() float64 {
	if u.Binary {
		return 1024
	}
	return 1000
}

// Formatter formats values of one axis with a fixed prefix.
type Formatter struct {
	Units    Units
	Power    int
	Decimals int
}

// divisor returns Base^Power.
func (f Formatter) divisor() float64 {
	return math.Pow(f.Units.Base(), float64(f.Power))
}

// Format formats v as "<number> <prefix><units>".
func (f Formatter) Format(v float64) string {
	if math.IsNaN(v) {
		return ""
	}

	v /= f.divisor()
	if v == 0 {
		v = 0 // no "-0"
	}

	var s string
	if math.Abs(v) >= maxPlainValue {
		s = strconv.FormatFloat(v, 'g', expDigits, 64)
	} else {
		s = humanize.FtoaWithDigits(v, f.Decimals)
	}

	suffix := unitPrefixes[clampPower(f.Power)] + f.Units.Name
	if suffix == "" {
		return s
	}
	return s + " " + suffix
}

// WithDecimals returns a copy of the formatter with extra decimals, for value
// hints that need more precision than the axis labels.
func (f Formatter) WithDecimals(extra int) Formatter {
	f.Decimals += extra
	return f
}

// power returns the largest prefix that keeps the largest absolute value at or
// above 1.
func power(min, max float64, u Units) int {
	if !u.AllowPower {
		return 0
	}

	v := math.Max(math.Abs(min), math.Abs(max))
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}

	base := u.Base()
	p := 0
	for v >= base && p < maxPower {
		v /= base
		p++
	}

	return p
}

// decimalsFor returns the number of decimals needed to print step exactly,
// capped at 10.
func decimalsFor(step float64) int {
	step = math.Abs(step)
	if step == 0 || math.IsNaN(step) || math.IsInf(step, 0) {
		return 0
	}

	for d := 0; d < 10; d++ {
		scaled := step * math.Pow(10, float64(d))
		if math.Abs(scaled-math.Round(scaled)) <= 1e-9*math.Max(1, scaled) {
			return d
		}
	}

	return 10
}

func clampPower(p int) int {
	return clamp(p, 0, maxPower)
}

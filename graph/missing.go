package graph

import "sort"

// gapFactor is how many times the mean sample spacing a delta must exceed to
// be considered a gap.
const gapFactor = 3

// normalizePoints returns a copy of points ordered by clock with duplicates
// resolved to the last one. The input is never modified.
func normalizePoints(points []Point) []Point {
	out := make([]Point, len(points))
	copy(out, points)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Clock < out[j].Clock
	})

	// Dedupe in place, keeping the last of equal clocks.
	n := 0
	for i := range out {
		if n > 0 && out[n-1].Clock == out[i].Clock {
			out[n-1] = out[i]
			continue
		}
		out[n] = out[i]
		n++
	}

	return out[:n]
}

// GapThreshold returns the spacing above which two consecutive samples are
// separated by a gap, or 0 if there are fewer than 2 samples.
func GapThreshold(points []Point) float64 {
	var first, last int64
	var n int

	for _, p := range points {
		if p.IsNull() {
			continue
		}
		if n == 0 {
			first = p.Clock
		}
		last = p.Clock
		n++
	}

	if n < 2 {
		return 0
	}

	mean := float64(last-first) / float64(n-1)
	return gapFactor * mean
}

// GapPoints returns the points the policy inserts into the ordered series.
// Nothing is inserted under MissingConnected.
func GapPoints(points []Point, policy MissingData) []Point {
	if policy == MissingConnected {
		return nil
	}

	threshold := GapThreshold(points)
	if threshold <= 0 {
		return nil
	}

	var inserted []Point
	var prev Point
	var hasPrev bool

	for _, p := range points {
		if p.IsNull() {
			// Caller gaps already break the series.
			hasPrev = false
			continue
		}

		if hasPrev {
			delta := p.Clock - prev.Clock
			if float64(delta) > threshold {
				offset := int64(float64(delta) / threshold)
				if offset < 1 {
					offset = 1
				}

				switch policy {
				case MissingNone:
					inserted = append(inserted, NullPoint(prev.Clock+offset))
				case MissingZero:
					inserted = append(inserted,
						Point{Clock: prev.Clock + offset},
						Point{Clock: p.Clock - offset},
					)
				}
			}
		}

		prev = p
		hasPrev = true
	}

	return inserted
}

// ApplyMissingData returns a new ordered series with the policy's points
// merged in. The input is left untouched.
func ApplyMissingData(points []Point, policy MissingData) []Point {
	points = normalizePoints(points)
	return mergePoints(points, GapPoints(points, policy))
}

// mergePoints merges two ordered series. Samples win over inserted points of
// the same clock.
func mergePoints(points, inserted []Point) []Point {
	if len(inserted) == 0 {
		return points
	}

	merged := make([]Point, 0, len(points)+len(inserted))
	i, j := 0, 0
	for i < len(points) || j < len(inserted) {
		if j >= len(inserted) || (i < len(points) && points[i].Clock <= inserted[j].Clock) {
			if j < len(inserted) && points[i].Clock == inserted[j].Clock {
				j++
			}
			merged = append(merged, points[i])
			i++
			continue
		}
		merged = append(merged, inserted[j])
		j++
	}

	return merged
}

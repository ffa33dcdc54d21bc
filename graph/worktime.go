package graph

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// MaxWorkingTimeWindow is the longest window that still gets working time
// shading.
const MaxWorkingTimeWindow = 3 * 30 * 24 * 60 * 60

// WorkPeriod is a recurring weekly working period.
type WorkPeriod struct {
	// FromDay and ToDay are weekdays from 1 (Monday) to 7 (Sunday).
	FromDay int
	ToDay   int
	// Start and End are minutes since midnight; End may be 1440.
	Start int
	End   int
}

// ParseWorkPeriods parses periods of the form "1-5,09:00-18:00", separated by
// semicolons. A single day may be given as "6,10:00-16:00".
func ParseWorkPeriods(s string) ([]WorkPeriod, error) {
	var periods []WorkPeriod

	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		p, err := parseWorkPeriod(part)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid period %q", part)
		}

		periods = append(periods, p)
	}

	return periods, nil
}

func parseWorkPeriod(s string) (WorkPeriod, error) {
	days, hours, ok := strings.Cut(s, ",")
	if !ok {
		return WorkPeriod{}, errors.New("missing time range")
	}

	var p WorkPeriod
	var err error

	fromDay, toDay, ok := strings.Cut(days, "-")
	if !ok {
		toDay = fromDay
	}

	if p.FromDay, err = parseWeekday(fromDay); err != nil {
		return p, err
	}
	if p.ToDay, err = parseWeekday(toDay); err != nil {
		return p, err
	}
	if p.FromDay > p.ToDay {
		return p, errors.New("day range is inverted")
	}

	start, end, ok := strings.Cut(hours, "-")
	if !ok {
		return p, errors.New("time range is missing its end")
	}

	if p.Start, err = parseDayTime(start); err != nil {
		return p, err
	}
	if p.End, err = parseDayTime(end); err != nil {
		return p, err
	}
	if p.Start >= p.End {
		return p, errors.New("time range is empty")
	}

	return p, nil
}

func parseWeekday(s string) (int, error) {
	d, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, errors.Wrap(err, "invalid weekday")
	}
	if d < 1 || d > 7 {
		return 0, errors.Errorf("weekday %d out of range 1-7", d)
	}
	return d, nil
}

// parseDayTime parses "hh:mm" into minutes since midnight.
func parseDayTime(s string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, errors.Errorf("invalid time %q", s)
	}

	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid hour in %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid minute in %q", s)
	}

	if h < 0 || h > 24 || m < 0 || m > 59 || (h == 24 && m != 0) {
		return 0, errors.Errorf("time %q out of range", s)
	}

	return h*60 + m, nil
}

// isoWeekday returns 1 for Monday up to 7 for Sunday.
func isoWeekday(t time.Time) int {
	if wd := t.Weekday(); wd != time.Sunday {
		return int(wd)
	}
	return 7
}

// WorkingTime returns the working intervals within [from, till] as unix
// second pairs, ordered and merged. Nothing is returned for windows longer
// than MaxWorkingTimeWindow.
func WorkingTime(periods []WorkPeriod, from, till int64, loc *time.Location) [][2]int64 {
	if len(periods) == 0 || till <= from || till-from > MaxWorkingTimeWindow {
		return nil
	}
	if loc == nil {
		loc = time.Local
	}

	var spans [][2]int64

	start := time.Unix(from, 0).In(loc)
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)

	for ; day.Unix() < till; day = day.AddDate(0, 0, 1) {
		wd := isoWeekday(day)

		for _, p := range periods {
			if wd < p.FromDay || wd > p.ToDay {
				continue
			}

			// Adding minutes through time.Date follows DST changes.
			s := time.Date(day.Year(), day.Month(), day.Day(), 0, p.Start, 0, 0, loc).Unix()
			e := time.Date(day.Year(), day.Month(), day.Day(), 0, p.End, 0, 0, loc).Unix()

			if s < from {
				s = from
			}
			if e > till {
				e = till
			}
			if s < e {
				spans = append(spans, [2]int64{s, e})
			}
		}
	}

	return mergeSpans(spans)
}

func mergeSpans(spans [][2]int64) [][2]int64 {
	if len(spans) < 2 {
		return spans
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i][0] < spans[j][0] })

	merged := spans[:1]
	for _, s := range spans[1:] {
		last := &merged[len(merged)-1]
		if s[0] <= last[1] {
			if s[1] > last[1] {
				last[1] = s[1]
			}
			continue
		}
		merged = append(merged, s)
	}

	return merged
}

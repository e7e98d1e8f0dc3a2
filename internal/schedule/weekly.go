// Package schedule holds a class's recurring weekly timetable.
package schedule

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	MinPeriod = 1
	MaxPeriod = 10
)

// weekdayNames is the wire spelling of weekdays, Monday first.
var weekdayNames = []struct {
	Name string
	Day  time.Weekday
}{
	{"monday", time.Monday},
	{"tuesday", time.Tuesday},
	{"wednesday", time.Wednesday},
	{"thursday", time.Thursday},
	{"friday", time.Friday},
	{"saturday", time.Saturday},
	{"sunday", time.Sunday},
}

// WeekdayName returns the wire name of a weekday ("monday" ... "sunday").
func WeekdayName(d time.Weekday) string {
	for _, w := range weekdayNames {
		if w.Day == d {
			return w.Name
		}
	}
	return ""
}

// ParseWeekday parses a wire weekday name, case-insensitively.
func ParseWeekday(name string) (time.Weekday, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, w := range weekdayNames {
		if w.Name == n {
			return w.Day, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", name)
}

// Weekly maps weekdays to the ascending set of periods taught that day.
// Days without periods are not stored. The zero value is an empty schedule.
type Weekly struct {
	days map[time.Weekday][]int
}

// New builds a schedule from a weekday -> periods map. Periods are
// deduplicated and sorted; out-of-range periods are rejected.
func New(days map[time.Weekday][]int) (Weekly, error) {
	w := Weekly{}
	for day, periods := range days {
		if day < time.Sunday || day > time.Saturday {
			return Weekly{}, fmt.Errorf("invalid weekday %d", day)
		}
		for _, p := range periods {
			if p < MinPeriod || p > MaxPeriod {
				return Weekly{}, fmt.Errorf("%s: period %d out of range %d-%d", WeekdayName(day), p, MinPeriod, MaxPeriod)
			}
			w = w.with(day, p)
		}
	}
	return w, nil
}

// MustNew is New for literals in tests and defaults.
func MustNew(days map[time.Weekday][]int) Weekly {
	w, err := New(days)
	if err != nil {
		panic(err)
	}
	return w
}

// PeriodsFor returns the periods scheduled on a weekday in ascending order.
// The returned slice is a copy.
func (w Weekly) PeriodsFor(day time.Weekday) []int {
	periods := w.days[day]
	if len(periods) == 0 {
		return nil
	}
	out := make([]int, len(periods))
	copy(out, periods)
	return out
}

// Has reports whether period is scheduled on day.
func (w Weekly) Has(day time.Weekday, period int) bool {
	for _, p := range w.days[day] {
		if p == period {
			return true
		}
	}
	return false
}

// HasCapacity reports whether at least one weekday has a period.
func (w Weekly) HasCapacity() bool {
	return len(w.days) > 0
}

// WeeklyCapacity is the number of periods taught per week.
func (w Weekly) WeeklyCapacity() int {
	n := 0
	for _, periods := range w.days {
		n += len(periods)
	}
	return n
}

// Days returns scheduled weekdays, Monday first.
func (w Weekly) Days() []time.Weekday {
	var out []time.Weekday
	for _, wd := range weekdayNames {
		if len(w.days[wd.Day]) > 0 {
			out = append(out, wd.Day)
		}
	}
	return out
}

// Toggle adds period to day if absent and removes it if present. A day left
// without periods is dropped from the schedule. The receiver is not modified.
func (w Weekly) Toggle(day time.Weekday, period int) (Weekly, error) {
	if period < MinPeriod || period > MaxPeriod {
		return w, fmt.Errorf("period %d out of range %d-%d", period, MinPeriod, MaxPeriod)
	}
	if w.Has(day, period) {
		return w.without(day, period), nil
	}
	return w.with(day, period), nil
}

// Nearest returns the scheduled period on day closest to period, preferring
// the earlier one on ties. ok is false when the day has no periods.
func (w Weekly) Nearest(day time.Weekday, period int) (nearest int, ok bool) {
	best, bestDist := 0, -1
	for _, p := range w.days[day] {
		d := p - period
		if d < 0 {
			d = -d
		}
		if bestDist < 0 || d < bestDist {
			best, bestDist = p, d
		}
	}
	return best, bestDist >= 0
}

func (w Weekly) clone() Weekly {
	days := make(map[time.Weekday][]int, len(w.days))
	for d, p := range w.days {
		days[d] = append([]int(nil), p...)
	}
	return Weekly{days: days}
}

func (w Weekly) with(day time.Weekday, period int) Weekly {
	if w.Has(day, period) {
		return w
	}
	out := w.clone()
	out.days[day] = append(out.days[day], period)
	sort.Ints(out.days[day])
	return out
}

func (w Weekly) without(day time.Weekday, period int) Weekly {
	out := w.clone()
	kept := out.days[day][:0]
	for _, p := range out.days[day] {
		if p != period {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		delete(out.days, day)
	} else {
		out.days[day] = kept
	}
	return out
}

// MarshalJSON encodes the schedule as {"monday": [1, 2], ...}, omitting empty days.
func (w Weekly) MarshalJSON() ([]byte, error) {
	m := make(map[string][]int, len(w.days))
	for day, periods := range w.days {
		if len(periods) > 0 {
			m[WeekdayName(day)] = periods
		}
	}
	return json.Marshal(m)
}

// UnmarshalJSON decodes the wire representation. Unknown weekday names and
// out-of-range periods are rejected; empty days are dropped.
func (w *Weekly) UnmarshalJSON(data []byte) error {
	var raw map[string][]int
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	days := make(map[time.Weekday][]int, len(raw))
	for name, periods := range raw {
		day, err := ParseWeekday(name)
		if err != nil {
			return err
		}
		days[day] = append(days[day], periods...)
	}
	parsed, err := New(days)
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

// Package slots projects a weekly schedule onto concrete calendar slots.
package slots

import (
	"fmt"
	"time"

	"lessonplanner/internal/schedule"
)

// DefaultHorizon is how many days Project walks before giving up.
const DefaultHorizon = 365

// Slot is a (date, period) coordinate valid under a weekly schedule.
type Slot struct {
	Date   time.Time
	Period int
}

// String formats the slot as "2026-03-02#3".
func (s Slot) String() string {
	return fmt.Sprintf("%s#%d", schedule.FormatDate(s.Date), s.Period)
}

// InsufficientCapacityError is returned when the horizon is exhausted before
// the requested number of slots was found.
type InsufficientCapacityError struct {
	Requested int
	Found     int
	Horizon   int
}

func (e *InsufficientCapacityError) Error() string {
	return fmt.Sprintf("insufficient capacity: found %d of %d slots within %d days", e.Found, e.Requested, e.Horizon)
}

// Projector walks calendar days forward emitting scheduled periods.
type Projector struct {
	horizon int
}

// NewProjector creates a projector with the given search horizon in days.
func NewProjector(horizonDays int) *Projector {
	if horizonDays <= 0 {
		horizonDays = DefaultHorizon
	}
	return &Projector{horizon: horizonDays}
}

// Horizon returns the search horizon in days.
func (p *Projector) Horizon() int {
	return p.horizon
}

// Project returns exactly count slots starting at start (inclusive), ordered
// by day and then by ascending period. It fails with
// *InsufficientCapacityError when fewer than count slots exist within the
// horizon; no partial sequence is returned in that case.
func (p *Projector) Project(w schedule.Weekly, start time.Time, count int) ([]Slot, error) {
	if count <= 0 {
		return nil, nil
	}

	out := make([]Slot, 0, count)
	day := schedule.DateOf(start)
	for i := 0; i < p.horizon; i++ {
		for _, period := range w.PeriodsFor(day.Weekday()) {
			out = append(out, Slot{Date: day, Period: period})
			if len(out) == count {
				return out, nil
			}
		}
		day = day.AddDate(0, 0, 1)
	}

	return nil, &InsufficientCapacityError{Requested: count, Found: len(out), Horizon: p.horizon}
}

// Project projects with the default horizon.
func Project(w schedule.Weekly, start time.Time, count int) ([]Slot, error) {
	return NewProjector(DefaultHorizon).Project(w, start, count)
}

// ForRange returns every slot between from and to, both inclusive.
func ForRange(w schedule.Weekly, from, to time.Time) []Slot {
	var out []Slot
	end := schedule.DateOf(to)
	for day := schedule.DateOf(from); !day.After(end); day = day.AddDate(0, 0, 1) {
		for _, period := range w.PeriodsFor(day.Weekday()) {
			out = append(out, Slot{Date: day, Period: period})
		}
	}
	return out
}

// GroupByDay splits an ordered slot sequence into per-day runs.
func GroupByDay(slots []Slot) [][]Slot {
	if len(slots) == 0 {
		return nil
	}

	var groups [][]Slot
	current := []Slot{slots[0]}
	for i := 1; i < len(slots); i++ {
		if slots[i].Date.Equal(current[len(current)-1].Date) {
			current = append(current, slots[i])
		} else {
			groups = append(groups, current)
			current = []Slot{slots[i]}
		}
	}
	return append(groups, current)
}

// Package calendar lays reconciled days out as month and week grids.
package calendar

import (
	"time"

	"lessonplanner/internal/model"
	"lessonplanner/internal/reconcile"
	"lessonplanner/internal/schedule"
)

// View selects the grid layout.
type View string

const (
	ViewMonth View = "month"
	ViewWeek  View = "week"
)

// Cell is one day of the grid.
type Cell struct {
	Date       time.Time
	Day        reconcile.DayView
	Weekend    bool
	OtherMonth bool
	Today      bool
	Holiday    string
}

// IsHoliday reports whether the day has a holiday name.
func (c Cell) IsHoliday() bool {
	return c.Holiday != ""
}

// Grid is a Monday-first calendar. Weeks always hold whole weeks; days outside
// the focused month are flagged OtherMonth.
type Grid struct {
	ClassID string
	View    View
	Year    int
	Month   time.Month
	Weeks   [][]Cell
}

// Range returns the first and last day covered by the grid.
func (g *Grid) Range() (from, to time.Time) {
	if len(g.Weeks) == 0 {
		return time.Time{}, time.Time{}
	}
	last := g.Weeks[len(g.Weeks)-1]
	return g.Weeks[0][0].Date, last[len(last)-1].Date
}

// Cell returns the cell for date.
func (g *Grid) Cell(date time.Time) (Cell, bool) {
	for _, week := range g.Weeks {
		for _, c := range week {
			if schedule.SameDay(c.Date, date) {
				return c, true
			}
		}
	}
	return Cell{}, false
}

// Options tune grid construction.
type Options struct {
	HideWeekends bool
}

// Builder composes grids from a class's records.
type Builder struct {
	holidays HolidayProvider
	now      func() time.Time
}

// NewBuilder creates a builder. holidays may be nil.
func NewBuilder(holidays HolidayProvider) *Builder {
	return &Builder{holidays: holidays, now: time.Now}
}

// MonthRange returns the Monday before (or on) the 1st and the Sunday after
// (or on) the last day of the month.
func MonthRange(year int, month time.Month) (from, to time.Time) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	from = first.AddDate(0, 0, 1-schedule.ISOWeekday(first))
	to = last.AddDate(0, 0, 7-schedule.ISOWeekday(last))
	return from, to
}

// WeekRange returns Monday and Sunday of the week containing day.
func WeekRange(day time.Time) (from, to time.Time) {
	d := schedule.DateOf(day)
	from = d.AddDate(0, 0, 1-schedule.ISOWeekday(d))
	return from, from.AddDate(0, 0, 6)
}

// Month builds the month grid of class.
func (b *Builder) Month(year int, month time.Month, class model.Class, lessons []model.LessonRecord, entries []model.WorkplanEntry, opts Options) *Grid {
	from, to := MonthRange(year, month)
	g := &Grid{ClassID: class.ID, View: ViewMonth, Year: year, Month: month}
	g.Weeks = b.weeks(from, to, month, class, lessons, entries, opts)
	return g
}

// Week builds the grid of the week containing day.
func (b *Builder) Week(day time.Time, class model.Class, lessons []model.LessonRecord, entries []model.WorkplanEntry, opts Options) *Grid {
	from, to := WeekRange(day)
	d := schedule.DateOf(day)
	g := &Grid{ClassID: class.ID, View: ViewWeek, Year: d.Year(), Month: d.Month()}
	g.Weeks = b.weeks(from, to, d.Month(), class, lessons, entries, opts)
	return g
}

func (b *Builder) weeks(from, to time.Time, month time.Month, class model.Class, lessons []model.LessonRecord, entries []model.WorkplanEntry, opts Options) [][]Cell {
	idx := reconcile.NewIndex(class.ID, lessons, entries)
	today := schedule.DateOf(b.now())

	var weeks [][]Cell
	row := make([]Cell, 0, 7)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		weekend := d.Weekday() == time.Saturday || d.Weekday() == time.Sunday
		if !(weekend && opts.HideWeekends) {
			cell := Cell{
				Date:       d,
				Day:        idx.Day(d, class.Schedule),
				Weekend:    weekend,
				OtherMonth: d.Month() != month,
				Today:      d.Equal(today),
			}
			if b.holidays != nil {
				if name, ok := b.holidays.HolidayOn(d); ok {
					cell.Holiday = name
				}
			}
			row = append(row, cell)
		}
		if d.Weekday() == time.Sunday {
			weeks = append(weeks, row)
			row = make([]Cell, 0, 7)
		}
	}
	return weeks
}

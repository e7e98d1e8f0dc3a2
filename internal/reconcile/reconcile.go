// Package reconcile merges lessons, workplan entries and empty slots into a
// single per-day, per-period view.
package reconcile

import (
	"sort"
	"time"

	"lessonplanner/internal/model"
	"lessonplanner/internal/schedule"
	"lessonplanner/internal/slots"
)

// Occupant is what fills a calendar slot: *LessonOccupant, *WorkplanOccupant
// or *EmptyOccupant.
type Occupant interface {
	occupant()
}

// LessonOccupant is a slot held by a lesson. Shadowed lists further lessons
// colliding on the same (date, period), in input order.
type LessonOccupant struct {
	Lesson   model.LessonRecord
	Shadowed []model.LessonRecord
}

// WorkplanOccupant is a slot held by a workplan placeholder.
type WorkplanOccupant struct {
	Entry model.WorkplanEntry
}

// EmptyOccupant is a free slot.
type EmptyOccupant struct{}

func (*LessonOccupant) occupant()   {}
func (*WorkplanOccupant) occupant() {}
func (*EmptyOccupant) occupant()    {}

// CalendarSlot is one scheduled period on one day.
type CalendarSlot struct {
	Slot     slots.Slot
	Occupant Occupant
}

// ID identifies the slot for gesture callbacks ("2026-03-02#3").
func (c CalendarSlot) ID() string {
	return c.Slot.String()
}

// Draggable reports whether the slot can start a drag: only lessons can move.
func (c CalendarSlot) Draggable() bool {
	_, ok := c.Occupant.(*LessonOccupant)
	return ok
}

// Lesson returns the occupying lesson, if any.
func (c CalendarSlot) Lesson() (model.LessonRecord, bool) {
	if lo, ok := c.Occupant.(*LessonOccupant); ok {
		return lo.Lesson, true
	}
	return model.LessonRecord{}, false
}

// DayView is the reconciled content of one calendar day.
type DayView struct {
	Date time.Time
	// Slots holds one entry per scheduled period, ascending.
	Slots []CalendarSlot
	// Unperiodized lessons follow the slots in their input order.
	Unperiodized []model.LessonRecord
	// OffSchedule lessons carry a period the day's schedule does not have.
	OffSchedule []model.LessonRecord
}

// Lessons returns every lesson visible on the day in display order.
func (d DayView) Lessons() []model.LessonRecord {
	var out []model.LessonRecord
	for _, s := range d.Slots {
		if lo, ok := s.Occupant.(*LessonOccupant); ok {
			out = append(out, lo.Lesson)
			out = append(out, lo.Shadowed...)
		}
	}
	out = append(out, d.Unperiodized...)
	return append(out, d.OffSchedule...)
}

// SlotFor returns the slot for period, if scheduled.
func (d DayView) SlotFor(period int) (CalendarSlot, bool) {
	for _, s := range d.Slots {
		if s.Slot.Period == period {
			return s, true
		}
	}
	return CalendarSlot{}, false
}

// Counts summarises occupancy.
func (d DayView) Counts() (lessons, workplan, empty int) {
	for _, s := range d.Slots {
		switch s.Occupant.(type) {
		case *LessonOccupant:
			lessons++
		case *WorkplanOccupant:
			workplan++
		default:
			empty++
		}
	}
	return lessons, workplan, empty
}

type dayRecords struct {
	periodized   map[int][]model.LessonRecord
	unperiodized []model.LessonRecord
	workplan     map[int]model.WorkplanEntry
}

// Index groups a class's records by day so that many days can be reconciled
// without rescanning the inputs.
type Index struct {
	classID string
	days    map[string]*dayRecords
}

// NewIndex indexes lessons and workplan entries of classID. Records of other
// classes are ignored; an empty classID accepts everything. For workplan
// entries sharing a key the last one wins.
func NewIndex(classID string, lessons []model.LessonRecord, entries []model.WorkplanEntry) *Index {
	idx := &Index{classID: classID, days: make(map[string]*dayRecords)}
	for _, l := range lessons {
		if !idx.accepts(l.ClassID) || l.Date.IsZero() {
			continue
		}
		rec := idx.day(l.Date)
		if l.HasPeriod() {
			rec.periodized[l.Period.Value] = append(rec.periodized[l.Period.Value], l)
		} else {
			rec.unperiodized = append(rec.unperiodized, l)
		}
	}
	for _, w := range entries {
		if !idx.accepts(w.ClassID) || w.Date.IsZero() {
			continue
		}
		idx.day(w.Date).workplan[w.Period] = w
	}
	return idx
}

func (idx *Index) accepts(classID string) bool {
	return idx.classID == "" || classID == idx.classID
}

func (idx *Index) day(date time.Time) *dayRecords {
	key := schedule.FormatDate(date)
	rec, ok := idx.days[key]
	if !ok {
		rec = &dayRecords{
			periodized: make(map[int][]model.LessonRecord),
			workplan:   make(map[int]model.WorkplanEntry),
		}
		idx.days[key] = rec
	}
	return rec
}

// Day reconciles one day against the weekly schedule. It never fails.
func (idx *Index) Day(date time.Time, w schedule.Weekly) DayView {
	date = schedule.DateOf(date)
	daySlots := slots.ForRange(w, date, date)
	view := DayView{Date: date, Slots: make([]CalendarSlot, 0, len(daySlots))}

	rec := idx.days[schedule.FormatDate(date)]
	for _, s := range daySlots {
		slot := CalendarSlot{Slot: s, Occupant: &EmptyOccupant{}}
		if rec != nil {
			if lessons := rec.periodized[s.Period]; len(lessons) > 0 {
				slot.Occupant = &LessonOccupant{Lesson: lessons[0], Shadowed: lessons[1:]}
			} else if entry, ok := rec.workplan[s.Period]; ok {
				slot.Occupant = &WorkplanOccupant{Entry: entry}
			}
		}
		view.Slots = append(view.Slots, slot)
	}
	if rec == nil {
		return view
	}

	view.Unperiodized = append(view.Unperiodized, rec.unperiodized...)
	var stray []int
	for p := range rec.periodized {
		if !w.Has(date.Weekday(), p) {
			stray = append(stray, p)
		}
	}
	sort.Ints(stray)
	for _, p := range stray {
		view.OffSchedule = append(view.OffSchedule, rec.periodized[p]...)
	}
	return view
}

// Reconcile builds the view of a single day.
func Reconcile(date time.Time, classID string, w schedule.Weekly, lessons []model.LessonRecord, entries []model.WorkplanEntry) DayView {
	return NewIndex(classID, lessons, entries).Day(date, w)
}

// Package model defines classes, lessons and workplan entries together with
// their wire representations.
package model

import (
	"time"

	"lessonplanner/internal/schedule"
)

// Class owns a weekly schedule and the records planned for it.
type Class struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Color    string          `json:"color,omitempty"`
	Schedule schedule.Weekly `json:"schedule"`
}

// LessonRecord is a dated, optionally periodized teaching event.
type LessonRecord struct {
	ID        string
	ClassID   string
	Date      time.Time
	Period    OptionalPeriod
	Topic     string
	Content   string
	Notes     string
	Cancelled bool
	UnitCount int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasPeriod reports whether the lesson is bound to a period.
func (l *LessonRecord) HasPeriod() bool {
	return l.Period.Valid
}

// WorkplanEntry is a bulk-plannable placeholder keyed by (date, period, class).
type WorkplanEntry struct {
	ClassID       string
	Date          time.Time
	Period        int
	Unit          string
	CurriculumRef string
	Topic         string
}

// Key identifies the entry for upserts.
func (w *WorkplanEntry) Key() WorkplanKey {
	return WorkplanKey{ClassID: w.ClassID, Date: schedule.FormatDate(w.Date), Period: w.Period}
}

// WorkplanKey is the (class, date, period) identity of a workplan entry.
type WorkplanKey struct {
	ClassID string
	Date    string
	Period  int
}

package calendar

import (
	"sync"
	"time"

	"lessonplanner/internal/schedule"
)

// HolidayProvider answers whether a day is a holiday.
type HolidayProvider interface {
	HolidayOn(date time.Time) (name string, ok bool)
}

// Holiday is a named day or an inclusive range of days.
type Holiday struct {
	Name  string
	Start time.Time
	End   time.Time // zero for single days
}

// HolidaySet is an in-memory HolidayProvider that can be swapped on reload.
type HolidaySet struct {
	mu   sync.RWMutex
	days map[string]string
}

// NewHolidaySet builds a set from holidays.
func NewHolidaySet(holidays []Holiday) *HolidaySet {
	s := &HolidaySet{}
	s.Replace(holidays)
	return s
}

// Replace swaps the full holiday list.
func (s *HolidaySet) Replace(holidays []Holiday) {
	days := make(map[string]string)
	for _, h := range holidays {
		end := h.End
		if end.IsZero() || end.Before(h.Start) {
			end = h.Start
		}
		for d := schedule.DateOf(h.Start); !d.After(schedule.DateOf(end)); d = d.AddDate(0, 0, 1) {
			days[schedule.FormatDate(d)] = h.Name
		}
	}

	s.mu.Lock()
	s.days = days
	s.mu.Unlock()
}

// HolidayOn implements HolidayProvider.
func (s *HolidaySet) HolidayOn(date time.Time) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name, ok := s.days[schedule.FormatDate(date)]
	return name, ok
}

// Len returns the number of holiday days.
func (s *HolidaySet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.days)
}

// Package editor models the lesson editor modal as an explicit state machine
// driven by calendar clicks.
package editor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lessonplanner/internal/model"
	"lessonplanner/internal/reconcile"
	"lessonplanner/internal/schedule"
)

// Mode names the modal state.
type Mode string

const (
	ModeClosed   Mode = "closed"
	ModeCreating Mode = "creating"
	ModeEditing  Mode = "editing"
)

// State is Closed, Creating or Editing.
type State interface {
	Mode() Mode
}

// Closed means no modal is shown.
type Closed struct{}

// Creating opens a new lesson on Date, optionally seeded with a period and
// with the workplan entry being promoted.
type Creating struct {
	ClassID  string
	Date     time.Time
	Period   model.OptionalPeriod
	Workplan *model.WorkplanEntry
}

// Editing opens an existing lesson.
type Editing struct {
	Lesson model.LessonRecord
}

func (Closed) Mode() Mode   { return ModeClosed }
func (Creating) Mode() Mode { return ModeCreating }
func (Editing) Mode() Mode  { return ModeEditing }

var ErrNotOpen = errors.New("editor is not open")

// Store persists lessons.
type Store interface {
	CreateLesson(ctx context.Context, lesson model.LessonRecord) (*model.LessonRecord, error)
	UpdateLesson(ctx context.Context, id string, patch model.LessonPatch) (*model.LessonRecord, error)
	DeleteLesson(ctx context.Context, id string) error
}

// Input holds the form fields.
type Input struct {
	Date      time.Time
	Period    model.OptionalPeriod
	Topic     string
	Content   string
	Notes     string
	Cancelled bool
	UnitCount int
}

// Modal is the editor modal of one class.
type Modal struct {
	classID string
	store   Store
	state   State
}

// NewModal creates a closed modal.
func NewModal(classID string, store Store) *Modal {
	return &Modal{classID: classID, store: store, state: Closed{}}
}

// State returns the current state.
func (m *Modal) State() State {
	return m.state
}

// ClickSlot opens the modal for a reconciled slot: lessons are edited,
// workplan placeholders and empty slots open creation pre-seeded with the
// slot's period.
func (m *Modal) ClickSlot(slot reconcile.CalendarSlot) State {
	switch occ := slot.Occupant.(type) {
	case *reconcile.LessonOccupant:
		m.state = Editing{Lesson: occ.Lesson}
	case *reconcile.WorkplanOccupant:
		entry := occ.Entry
		m.state = Creating{ClassID: m.classID, Date: slot.Slot.Date, Period: model.PeriodOf(slot.Slot.Period), Workplan: &entry}
	default:
		m.state = Creating{ClassID: m.classID, Date: slot.Slot.Date, Period: model.PeriodOf(slot.Slot.Period)}
	}
	return m.state
}

// ClickLesson opens an unperiodized or off-schedule lesson.
func (m *Modal) ClickLesson(lesson model.LessonRecord) State {
	m.state = Editing{Lesson: lesson}
	return m.state
}

// ClickDay opens creation of an unperiodized lesson on date.
func (m *Modal) ClickDay(date time.Time) State {
	m.state = Creating{ClassID: m.classID, Date: schedule.DateOf(date)}
	return m.state
}

// Close dismisses the modal.
func (m *Modal) Close() {
	m.state = Closed{}
}

// Initial returns the form values the modal opens with.
func (m *Modal) Initial() (Input, error) {
	switch s := m.state.(type) {
	case Creating:
		in := Input{Date: s.Date, Period: s.Period, UnitCount: 1}
		if s.Workplan != nil {
			in.Topic = s.Workplan.Topic
			in.Notes = s.Workplan.CurriculumRef
		}
		return in, nil
	case Editing:
		l := s.Lesson
		return Input{
			Date:      l.Date,
			Period:    l.Period,
			Topic:     l.Topic,
			Content:   l.Content,
			Notes:     l.Notes,
			Cancelled: l.Cancelled,
			UnitCount: l.UnitCount,
		}, nil
	default:
		return Input{}, ErrNotOpen
	}
}

// Save creates or updates the lesson. The modal closes only after the store
// confirms; on error it stays open with the user's input intact.
func (m *Modal) Save(ctx context.Context, in Input) (*model.LessonRecord, error) {
	if in.Date.IsZero() {
		return nil, &model.ValidationError{Fields: []model.FieldError{{Field: "date", Error: "required"}}}
	}
	if in.UnitCount <= 0 {
		in.UnitCount = 1
	}

	var (
		saved *model.LessonRecord
		err   error
	)
	switch s := m.state.(type) {
	case Creating:
		saved, err = m.store.CreateLesson(ctx, model.LessonRecord{
			ClassID:   s.ClassID,
			Date:      schedule.DateOf(in.Date),
			Period:    in.Period,
			Topic:     in.Topic,
			Content:   in.Content,
			Notes:     in.Notes,
			Cancelled: in.Cancelled,
			UnitCount: in.UnitCount,
		})
	case Editing:
		saved, err = m.store.UpdateLesson(ctx, s.Lesson.ID, patchFrom(s.Lesson, in))
	default:
		return nil, ErrNotOpen
	}
	if err != nil {
		return nil, fmt.Errorf("save lesson: %w", err)
	}
	m.state = Closed{}
	return saved, nil
}

// Delete removes the lesson being edited.
func (m *Modal) Delete(ctx context.Context) error {
	s, ok := m.state.(Editing)
	if !ok {
		return ErrNotOpen
	}
	if err := m.store.DeleteLesson(ctx, s.Lesson.ID); err != nil {
		return fmt.Errorf("delete lesson: %w", err)
	}
	m.state = Closed{}
	return nil
}

// patchFrom sends only the fields that differ from the stored lesson.
func patchFrom(l model.LessonRecord, in Input) model.LessonPatch {
	var p model.LessonPatch
	if d := schedule.DateOf(in.Date); !schedule.SameDay(d, l.Date) {
		p.Date = &d
	}
	if in.Period != l.Period {
		period := in.Period
		p.Period = &period
	}
	if in.Topic != l.Topic {
		p.Topic = &in.Topic
	}
	if in.Content != l.Content {
		p.Content = &in.Content
	}
	if in.Notes != l.Notes {
		p.Notes = &in.Notes
	}
	if in.Cancelled != l.Cancelled {
		p.Cancelled = &in.Cancelled
	}
	if in.UnitCount != l.UnitCount {
		p.UnitCount = &in.UnitCount
	}
	return p
}

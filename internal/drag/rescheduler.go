package drag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"lessonplanner/internal/events"
	"lessonplanner/internal/metrics"
	"lessonplanner/internal/model"
	"lessonplanner/internal/reconcile"
	"lessonplanner/internal/schedule"
)

var (
	ErrIllegalTransition = errors.New("illegal drag transition")
	ErrUnknownSlot       = errors.New("unknown slot")
	ErrNotDraggable      = errors.New("slot is not draggable")
)

// lessonSlotPrefix marks slot ids of unperiodized lessons, which have no
// period-keyed slot of their own.
const lessonSlotPrefix = "lesson:"

// LessonSlotID is the drag handle id of an unperiodized lesson.
func LessonSlotID(lessonID string) string {
	return lessonSlotPrefix + lessonID
}

// Capability is what a gesture library calls into. Slot ids are
// reconcile.CalendarSlot.ID values or LessonSlotID values; day ids are
// YYYY-MM-DD.
type Capability interface {
	OnDragStart(slotID string) error
	OnDrop(slotID, targetDayID string) (Result, error)
}

// Persister stores lesson updates.
type Persister interface {
	UpdateLesson(ctx context.Context, id string, patch model.LessonPatch) (*model.LessonRecord, error)
}

// Result describes a finished drop.
type Result struct {
	State    State
	Previous model.LessonRecord
	Lesson   model.LessonRecord
	Patch    model.LessonPatch
}

// Settlement reports the outcome of an asynchronous update.
type Settlement struct {
	LessonID   string
	Lesson     model.LessonRecord
	Err        error
	RolledBack bool
}

// Options configure a Rescheduler.
type Options struct {
	Policy    PeriodPolicy
	Bus       events.Publisher
	Logger    *zerolog.Logger
	OnSettled func(Settlement)
}

type session struct {
	slotID   string
	lessonID string
}

// Rescheduler owns the local lesson view of one class and applies drags to it
// optimistically while the update is persisted in the background. A failed
// update rolls the lesson back to its pre-drag state unless a later drag has
// superseded it.
type Rescheduler struct {
	mu      sync.Mutex
	fsm     *FSM
	state   State
	active  *session
	class   model.Class
	lessons map[string]model.LessonRecord
	order   []string
	seq     map[string]uint64

	store  Persister
	opts   Options
	logger *zerolog.Logger
	wg     sync.WaitGroup
}

var _ Capability = (*Rescheduler)(nil)

// NewRescheduler creates a rescheduler over a snapshot of class lessons.
func NewRescheduler(class model.Class, lessons []model.LessonRecord, store Persister, opts Options) *Rescheduler {
	if opts.Policy == "" {
		opts.Policy = PolicyKeep
	}
	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	r := &Rescheduler{
		fsm:    NewFSM(),
		state:  StateIdle,
		class:  class,
		store:  store,
		opts:   opts,
		logger: logger,
		seq:    make(map[string]uint64),
	}
	r.load(lessons)
	return r
}

// Replace swaps in a freshly fetched snapshot. An active drag is abandoned,
// and updates still in flight no longer touch the local view when they settle.
func (r *Rescheduler) Replace(lessons []model.LessonRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id := range r.seq {
		r.seq[id]++
	}
	r.load(lessons)
	r.state = StateIdle
	r.active = nil
}

func (r *Rescheduler) load(lessons []model.LessonRecord) {
	r.lessons = make(map[string]model.LessonRecord, len(lessons))
	r.order = r.order[:0]
	for _, l := range lessons {
		if l.ClassID != r.class.ID {
			continue
		}
		if _, dup := r.lessons[l.ID]; !dup {
			r.order = append(r.order, l.ID)
		}
		r.lessons[l.ID] = l
	}
}

// State returns the current drag state.
func (r *Rescheduler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Lessons returns the local view in load order.
func (r *Rescheduler) Lessons() []model.LessonRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot()
}

// Lesson returns one lesson of the local view.
func (r *Rescheduler) Lesson(id string) (model.LessonRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.lessons[id]
	return l, ok
}

// Day reconciles date from the local view.
func (r *Rescheduler) Day(date time.Time) reconcile.DayView {
	r.mu.Lock()
	lessons := r.snapshot()
	r.mu.Unlock()
	return reconcile.Reconcile(date, r.class.ID, r.class.Schedule, lessons, nil)
}

func (r *Rescheduler) snapshot() []model.LessonRecord {
	out := make([]model.LessonRecord, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.lessons[id])
	}
	return out
}

// OnDragStart begins dragging the lesson shown at slotID.
func (r *Rescheduler) OnDragStart(slotID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.fsm.CanTransition(r.state, StateDragging) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, r.state, StateDragging)
	}
	id, err := r.resolve(slotID)
	if err != nil {
		return err
	}
	if r.state, err = r.fsm.Transition(r.state, StateDragging); err != nil {
		return err
	}
	r.active = &session{slotID: slotID, lessonID: id}
	return nil
}

// Cancel abandons the active drag without touching any lesson.
func (r *Rescheduler) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateDragging {
		r.finish()
		metrics.IncDrag("cancelled")
	}
}

// OnDrop finishes the drag over the day targetDayID. Dropping on the source
// day is a no-op; otherwise the lesson's date moves and the update is
// persisted asynchronously. The machine is back in Idle when OnDrop returns.
func (r *Rescheduler) OnDrop(slotID, targetDayID string) (Result, error) {
	target, err := schedule.ParseDate(targetDayID)
	if err != nil {
		return Result{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active == nil || r.active.slotID != slotID {
		return Result{}, fmt.Errorf("%w: drop of %s in state %s", ErrIllegalTransition, slotID, r.state)
	}
	lesson, ok := r.lessons[r.active.lessonID]
	if !ok {
		r.finish()
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownSlot, slotID)
	}

	if schedule.SameDay(lesson.Date, target) {
		if r.state, err = r.fsm.Transition(r.state, StateDroppedSame); err != nil {
			return Result{}, err
		}
		r.finish()
		metrics.IncDrag("noop")
		return Result{State: StateDroppedSame, Previous: lesson, Lesson: lesson}, nil
	}

	if r.state, err = r.fsm.Transition(r.state, StateDroppedDifferent); err != nil {
		return Result{}, err
	}
	patch := r.patchFor(lesson, target)
	moved := lesson
	patch.Apply(&moved)
	r.lessons[moved.ID] = moved
	r.seq[moved.ID]++
	seq := r.seq[moved.ID]
	r.finish()

	r.logger.Debug().
		Str("lesson_id", moved.ID).
		Str("from", schedule.FormatDate(lesson.Date)).
		Str("to", schedule.FormatDate(moved.Date)).
		Str("period", moved.Period.String()).
		Msg("lesson dragged")

	r.wg.Add(1)
	go r.persist(lesson, moved, patch, seq)

	return Result{State: StateDroppedDifferent, Previous: lesson, Lesson: moved, Patch: patch}, nil
}

// Wait blocks until every submitted update has settled.
func (r *Rescheduler) Wait() {
	r.wg.Wait()
}

// finish ends the active gesture through the table back to Idle.
func (r *Rescheduler) finish() {
	if next, err := r.fsm.Transition(r.state, StateIdle); err == nil {
		r.state = next
	}
	r.active = nil
}

// resolve maps a slot id to the id of the lesson occupying it.
func (r *Rescheduler) resolve(slotID string) (string, error) {
	if id, ok := strings.CutPrefix(slotID, lessonSlotPrefix); ok {
		if _, exists := r.lessons[id]; !exists {
			return "", fmt.Errorf("%w: %s", ErrUnknownSlot, slotID)
		}
		return id, nil
	}

	dateStr, periodStr, ok := strings.Cut(slotID, "#")
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownSlot, slotID)
	}
	date, err := schedule.ParseDate(dateStr)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownSlot, slotID)
	}
	var period int
	if _, err := fmt.Sscanf(periodStr, "%d", &period); err != nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownSlot, slotID)
	}

	view := reconcile.Reconcile(date, r.class.ID, r.class.Schedule, r.snapshot(), nil)
	slot, ok := view.SlotFor(period)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownSlot, slotID)
	}
	lesson, ok := slot.Lesson()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotDraggable, slotID)
	}
	return lesson.ID, nil
}

// patchFor builds the update for moving lesson to target under the period
// policy. With PolicyKeep only the date is sent.
func (r *Rescheduler) patchFor(lesson model.LessonRecord, target time.Time) model.LessonPatch {
	patch := model.ReschedulePatch(target)
	if !lesson.HasPeriod() || r.class.Schedule.Has(target.Weekday(), lesson.Period.Value) {
		return patch
	}

	switch r.opts.Policy {
	case PolicyClear:
		period := model.NoPeriod
		patch.Period = &period
	case PolicyNearest:
		period := model.NoPeriod
		if p, ok := r.class.Schedule.Nearest(target.Weekday(), lesson.Period.Value); ok {
			period = model.PeriodOf(p)
		}
		patch.Period = &period
	}
	return patch
}

func (r *Rescheduler) persist(prev, moved model.LessonRecord, patch model.LessonPatch, seq uint64) {
	defer r.wg.Done()

	saved, err := r.store.UpdateLesson(context.Background(), moved.ID, patch)

	r.mu.Lock()
	current := r.seq[moved.ID] == seq
	settlement := Settlement{LessonID: moved.ID, Err: err}
	switch {
	case err != nil && current:
		r.lessons[prev.ID] = prev
		settlement.RolledBack = true
	case err == nil && current && saved != nil:
		r.lessons[saved.ID] = *saved
	}
	settlement.Lesson = r.lessons[moved.ID]
	r.mu.Unlock()

	payload := events.RescheduledPayload{
		LessonID: moved.ID,
		ClassID:  moved.ClassID,
		From:     schedule.FormatDate(prev.Date),
		To:       schedule.FormatDate(moved.Date),
		Period:   moved.Period.Ptr(),
	}
	eventType := events.LessonRescheduled
	if err != nil {
		eventType = events.LessonRescheduleFailed
		payload.Error = err.Error()
		r.logger.Error().Err(err).
			Str("lesson_id", moved.ID).
			Bool("rolled_back", settlement.RolledBack).
			Msg("failed to persist reschedule")
		if settlement.RolledBack {
			metrics.IncDrag("rolled_back")
		} else {
			metrics.IncDrag("failed")
		}
	} else {
		metrics.IncDrag("moved")
	}

	if r.opts.Bus != nil {
		if ev, evErr := events.New(eventType, payload); evErr == nil {
			r.opts.Bus.Publish(ev)
		}
	}
	if r.opts.OnSettled != nil {
		r.opts.OnSettled(settlement)
	}
}

package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"lessonplanner/internal/model"
	"lessonplanner/internal/reconcile"
	"lessonplanner/internal/schedule"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var class = model.Class{
	ID:   "c1",
	Name: "5a",
	Schedule: schedule.MustNew(map[time.Weekday][]int{
		time.Monday:   {1, 2},
		time.Thursday: {5},
	}),
}

func TestMonthRange(t *testing.T) {
	tests := []struct {
		name     string
		year     int
		month    time.Month
		wantFrom time.Time
		wantTo   time.Time
	}{
		{"march 2026 starts on sunday", 2026, time.March, date(2026, 2, 23), date(2026, 4, 5)},
		{"june 2026 starts on monday", 2026, time.June, date(2026, 6, 1), date(2026, 7, 5)},
		{"february 2027 whole weeks", 2027, time.February, date(2027, 2, 1), date(2027, 2, 28)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to := MonthRange(tt.year, tt.month)
			assert.Equal(t, tt.wantFrom, from)
			assert.Equal(t, tt.wantTo, to)
		})
	}
}

func TestBuilderMonth(t *testing.T) {
	holidays := NewHolidaySet([]Holiday{
		{Name: "Osterferien", Start: date(2026, 3, 30), End: date(2026, 4, 3)},
	})
	b := NewBuilder(holidays)
	b.now = func() time.Time { return date(2026, 3, 12).Add(10 * time.Hour) }

	lessons := []model.LessonRecord{
		{ID: "l1", ClassID: "c1", Date: date(2026, 3, 2), Period: model.PeriodOf(1)},
		{ID: "free", ClassID: "c1", Date: date(2026, 3, 4)},
	}
	entries := []model.WorkplanEntry{{ClassID: "c1", Date: date(2026, 3, 5), Period: 5, Topic: "Wiederholung"}}

	g := b.Month(2026, time.March, class, lessons, entries, Options{})

	require.Len(t, g.Weeks, 6)
	for _, week := range g.Weeks {
		require.Len(t, week, 7)
		assert.Equal(t, time.Monday, week[0].Date.Weekday())
	}

	first := g.Weeks[0][0]
	assert.True(t, first.OtherMonth)
	assert.Len(t, first.Day.Slots, 2, "other-month days are still populated")

	mon, ok := g.Cell(date(2026, 3, 2))
	require.True(t, ok)
	_, isLesson := mon.Day.Slots[0].Occupant.(*reconcile.LessonOccupant)
	assert.True(t, isLesson)

	wed, _ := g.Cell(date(2026, 3, 4))
	assert.Empty(t, wed.Day.Slots)
	assert.Len(t, wed.Day.Unperiodized, 1)

	thu, _ := g.Cell(date(2026, 3, 5))
	_, isPlan := thu.Day.Slots[0].Occupant.(*reconcile.WorkplanOccupant)
	assert.True(t, isPlan)

	today, _ := g.Cell(date(2026, 3, 12))
	assert.True(t, today.Today)

	sat, _ := g.Cell(date(2026, 3, 7))
	assert.True(t, sat.Weekend)

	easter, _ := g.Cell(date(2026, 4, 1))
	assert.Equal(t, "Osterferien", easter.Holiday)
	assert.True(t, easter.IsHoliday())
	assert.True(t, easter.OtherMonth)

	from, to := g.Range()
	assert.Equal(t, date(2026, 2, 23), from)
	assert.Equal(t, date(2026, 4, 5), to)
}

func TestBuilderHideWeekends(t *testing.T) {
	g := NewBuilder(nil).Week(date(2026, 3, 4), class, nil, nil, Options{HideWeekends: true})
	require.Len(t, g.Weeks, 1)
	require.Len(t, g.Weeks[0], 5)
	assert.Equal(t, date(2026, 3, 2), g.Weeks[0][0].Date)
	assert.Equal(t, date(2026, 3, 6), g.Weeks[0][4].Date)
	assert.Equal(t, ViewWeek, g.View)
}

func TestHolidaySetReplace(t *testing.T) {
	s := NewHolidaySet([]Holiday{{Name: "Neujahr", Start: date(2026, 1, 1)}})
	name, ok := s.HolidayOn(date(2026, 1, 1).Add(8 * time.Hour))
	assert.True(t, ok)
	assert.Equal(t, "Neujahr", name)

	s.Replace([]Holiday{{Name: "Tag der Arbeit", Start: date(2026, 5, 1)}})
	_, ok = s.HolidayOn(date(2026, 1, 1))
	assert.False(t, ok)
	assert.Equal(t, 1, s.Len())
}

type mockSource struct {
	mock.Mock
}

func (m *mockSource) GetClass(ctx context.Context, classID string) (*model.Class, error) {
	args := m.Called(ctx, classID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Class), args.Error(1)
}

func (m *mockSource) ListLessons(ctx context.Context, classID string, from, to time.Time) ([]model.LessonRecord, error) {
	args := m.Called(ctx, classID, from, to)
	return args.Get(0).([]model.LessonRecord), args.Error(1)
}

func (m *mockSource) GetWorkplan(ctx context.Context, classID string, from, to time.Time) ([]model.WorkplanEntry, error) {
	args := m.Called(ctx, classID, from, to)
	return args.Get(0).([]model.WorkplanEntry), args.Error(1)
}

func TestServiceLoadMonth(t *testing.T) {
	ctx := context.Background()
	from, to := MonthRange(2026, time.March)

	src := new(mockSource)
	src.On("GetClass", ctx, "c1").Return(&class, nil).Once()
	src.On("ListLessons", ctx, "c1", from, to).Return([]model.LessonRecord{
		{ID: "l1", ClassID: "c1", Date: date(2026, 3, 9), Period: model.PeriodOf(2)},
	}, nil).Once()
	src.On("GetWorkplan", ctx, "c1", from, to).Return([]model.WorkplanEntry{}, nil).Once()

	g, err := NewService(src, NewBuilder(nil)).LoadMonth(ctx, "c1", 2026, time.March, Options{})
	require.NoError(t, err)

	cell, ok := g.Cell(date(2026, 3, 9))
	require.True(t, ok)
	l, ok := cell.Day.Slots[1].Lesson()
	require.True(t, ok)
	assert.Equal(t, "l1", l.ID)
	src.AssertExpectations(t)
}

func TestServiceLoadWeekFailure(t *testing.T) {
	ctx := context.Background()
	day := date(2026, 3, 4)
	from, to := WeekRange(day)

	src := new(mockSource)
	src.On("GetClass", ctx, "c1").Return(&class, nil).Once()
	src.On("ListLessons", ctx, "c1", from, to).Return([]model.LessonRecord(nil), nil).Once()
	src.On("GetWorkplan", ctx, "c1", from, to).Return([]model.WorkplanEntry(nil), &model.TransportError{Op: "get workplan", StatusCode: 500}).Once()

	g, err := NewService(src, NewBuilder(nil)).LoadWeek(ctx, "c1", day, Options{})
	assert.Nil(t, g)
	assert.True(t, model.IsTransport(err))

	src2 := new(mockSource)
	src2.On("GetClass", ctx, "missing").Return(nil, errors.New("not found")).Once()
	_, err = NewService(src2, NewBuilder(nil)).LoadWeek(ctx, "missing", day, Options{})
	assert.ErrorContains(t, err, "get class")
}
